package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar HTTP.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// Campos estándar de negocio.

func TenantID(v string) zap.Field   { return zap.String("tenant_id", v) }
func TenantSlug(v string) zap.Field { return zap.String("tenant_slug", v) }
func UserID(v string) zap.Field     { return zap.String("user_id", v) }
func Provider(v string) zap.Field   { return zap.String("provider", v) }

// Campos estándar de sistema.

// Component identifica el componente/módulo que emite el log.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op identifica la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer identifica la capa (controller, service, repository).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// Genéricos.

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
