// Package config carga la configuración del servicio: archivo YAML más
// overrides por variables de entorno TEAMPULSE_*.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration permite escribir duraciones como strings en el YAML ("10m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std retorna la duración como time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Env      string `yaml:"env"`       // dev | prod
	LogLevel string `yaml:"log_level"` // debug | info | warn | error

	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`
	Slack    SlackConfig    `yaml:"slack"`
}

type HTTPConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MinIdleConns    int      `yaml:"min_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

type CacheConfig struct {
	Backend       string `yaml:"backend"` // memory | redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type SessionConfig struct {
	CookieName   string   `yaml:"cookie_name"`
	CookieDomain string   `yaml:"cookie_domain"`
	SameSite     string   `yaml:"same_site"`
	Secure       bool     `yaml:"secure"`
	TTL          Duration `yaml:"ttl"`
}

type AuthConfig struct {
	StateTTL         Duration `yaml:"state_ttl"`
	GCInterval       Duration `yaml:"gc_interval"`
	AdminLandingPath string   `yaml:"admin_landing_path"`

	// ElevatedDomains es la allow-list de dominios de email de operadores.
	ElevatedDomains []string `yaml:"elevated_domains"`
}

type SlackConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`

	// DiscoveryURL permite apuntar a un proveedor de prueba. Vacío usa el
	// well-known de Slack.
	DiscoveryURL string `yaml:"discovery_url"`
}

// Load lee el YAML (si path no es vacío), aplica defaults y después los
// overrides de entorno. Los secretos suelen venir solo por entorno.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Env:      "dev",
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(15 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Cache: CacheConfig{Backend: "memory"},
		Session: SessionConfig{
			CookieName: "tp_session",
			SameSite:   "Lax",
			TTL:        Duration(24 * time.Hour),
		},
		Auth: AuthConfig{
			StateTTL:         Duration(10 * time.Minute),
			GCInterval:       Duration(5 * time.Minute),
			AdminLandingPath: "/admin/workspaces",
		},
	}
}

func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&cfg.Env, "TEAMPULSE_ENV")
	setStr(&cfg.LogLevel, "TEAMPULSE_LOG_LEVEL")
	setStr(&cfg.HTTP.Addr, "TEAMPULSE_HTTP_ADDR")
	setStr(&cfg.Database.DSN, "TEAMPULSE_DATABASE_DSN")
	setStr(&cfg.Cache.Backend, "TEAMPULSE_CACHE_BACKEND")
	setStr(&cfg.Cache.RedisAddr, "TEAMPULSE_REDIS_ADDR")
	setStr(&cfg.Cache.RedisPassword, "TEAMPULSE_REDIS_PASSWORD")
	setStr(&cfg.Session.CookieDomain, "TEAMPULSE_SESSION_COOKIE_DOMAIN")
	setStr(&cfg.Slack.ClientID, "TEAMPULSE_SLACK_CLIENT_ID")
	setStr(&cfg.Slack.ClientSecret, "TEAMPULSE_SLACK_CLIENT_SECRET")
	setStr(&cfg.Slack.RedirectURL, "TEAMPULSE_SLACK_REDIRECT_URL")
	setStr(&cfg.Slack.DiscoveryURL, "TEAMPULSE_SLACK_DISCOVERY_URL")

	if v := os.Getenv("TEAMPULSE_SESSION_SECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Session.Secure = b
		}
	}
	if v := os.Getenv("TEAMPULSE_ELEVATED_DOMAINS"); v != "" {
		cfg.Auth.ElevatedDomains = splitCSV(v)
	}
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database.dsn is required")
	}
	if c.Slack.ClientID == "" || c.Slack.ClientSecret == "" {
		return fmt.Errorf("config: slack.client_id and slack.client_secret are required")
	}
	if c.Slack.RedirectURL == "" {
		return fmt.Errorf("config: slack.redirect_url is required")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("config: cache.redis_addr is required with the redis backend")
	}
	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
