// Package logger provides a singleton Zap logger with context-based scoping.
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})
//	defer logger.Sync()
//
// En controllers/services (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("login started", logger.TenantSlug(slug))
//
// El middleware HTTP inyecta un logger "scoped" con request_id; From(ctx)
// cae al singleton si el contexto no trae ninguno.
package logger
