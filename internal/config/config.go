// Package config loads the site's configuration from the environment using
// viper. Values from a .env file are already in the environment by the time
// Load runs (see the godotenv autoload import in main).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment is the deployment the process runs in.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Feedback storage backends.
const (
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT"`
	Port           string      `mapstructure:"PORT"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS"`
	TrustedProxies []string    `mapstructure:"TRUSTED_PROXIES"`
	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

type FeedbackConfig struct {
	Backend string `mapstructure:"BACKEND"`
	// SetupHint is shown to operators when the feedback table is missing.
	SetupHint string `mapstructure:"SETUP_HINT"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"URL"`
	MaxConns int32  `mapstructure:"MAX_CONNS"`
}

type SupabaseConfig struct {
	URL     string `mapstructure:"URL"`
	AnonKey string `mapstructure:"ANON_KEY"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"PATH"`
}

type RedisConfig struct {
	Address  string `mapstructure:"ADDRESS"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// ContactConfig selects how contact form messages are delivered: through
// Resend when an API key is set, otherwise over SMTP when credentials are set.
type ContactConfig struct {
	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
	From         string `mapstructure:"FROM"`
	To           string `mapstructure:"TO"`
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPass     string `mapstructure:"SMTP_PASS"`
}

type AdminConfig struct {
	Username       string `mapstructure:"USERNAME"`
	Password       string `mapstructure:"PASSWORD"`
	VisitorsDBPath string `mapstructure:"VISITORS_DB_PATH"`
	// VisitorRetention is how long hashed visitor records are kept.
	VisitorRetention time.Duration `mapstructure:"VISITOR_RETENTION"`
}

type RateLimitConfig struct {
	// Submissions allowed per client per window on public write endpoints.
	Submissions int           `mapstructure:"SUBMISSIONS"`
	Window      time.Duration `mapstructure:"WINDOW"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"SERVER"`
	Feedback  FeedbackConfig  `mapstructure:"FEEDBACK"`
	Database  DatabaseConfig  `mapstructure:"DATABASE"`
	Supabase  SupabaseConfig  `mapstructure:"SUPABASE"`
	SQLite    SQLiteConfig    `mapstructure:"SQLITE"`
	Redis     RedisConfig     `mapstructure:"REDIS"`
	Contact   ContactConfig   `mapstructure:"CONTACT"`
	Admin     AdminConfig     `mapstructure:"ADMIN"`
	RateLimit RateLimitConfig `mapstructure:"RATE_LIMIT"`
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// envBindings maps config keys onto the environment variables operators set.
// The first block keeps the names the site has always used.
var envBindings = [][2]string{
	{"SERVER.PORT", "PORT"},
	{"CONTACT.SMTP_HOST", "SMTP_HOST"},
	{"CONTACT.SMTP_PORT", "SMTP_PORT"},
	{"CONTACT.SMTP_USER", "SMTP_USER"},
	{"CONTACT.SMTP_PASS", "SMTP_PASS"},
	{"CONTACT.TO", "TO_EMAIL"},
	{"ADMIN.USERNAME", "ADMIN_USERNAME"},
	{"ADMIN.PASSWORD", "ADMIN_PASSWORD"},

	{"SERVER.ENVIRONMENT", "ENVIRONMENT"},
	{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
	{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
	{"SERVER.SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT"},
	{"FEEDBACK.BACKEND", "FEEDBACK_BACKEND"},
	{"FEEDBACK.SETUP_HINT", "FEEDBACK_SETUP_HINT"},
	{"DATABASE.URL", "DATABASE_URL"},
	{"DATABASE.MAX_CONNS", "DATABASE_MAX_CONNS"},
	{"SUPABASE.URL", "SUPABASE_URL"},
	{"SUPABASE.ANON_KEY", "SUPABASE_ANON_KEY"},
	{"SQLITE.PATH", "SQLITE_PATH"},
	{"REDIS.ADDRESS", "REDIS_ADDRESS"},
	{"REDIS.PASSWORD", "REDIS_PASSWORD"},
	{"REDIS.DB", "REDIS_DB"},
	{"CONTACT.RESEND_API_KEY", "RESEND_API_KEY"},
	{"CONTACT.FROM", "CONTACT_FROM"},
	{"ADMIN.VISITORS_DB_PATH", "VISITORS_DB_PATH"},
	{"ADMIN.VISITOR_RETENTION", "VISITOR_RETENTION"},
	{"RATE_LIMIT.SUBMISSIONS", "RATE_LIMIT_SUBMISSIONS"},
	{"RATE_LIMIT.WINDOW", "RATE_LIMIT_WINDOW"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{})
	v.SetDefault("SERVER.SHUTDOWN_TIMEOUT", 15*time.Second)
	v.SetDefault("FEEDBACK.BACKEND", BackendSQLite)
	v.SetDefault("FEEDBACK.SETUP_HINT", "go run ./cmd/migrate")
	v.SetDefault("DATABASE.URL", "")
	v.SetDefault("DATABASE.MAX_CONNS", 5)
	v.SetDefault("SUPABASE.URL", "")
	v.SetDefault("SUPABASE.ANON_KEY", "")
	v.SetDefault("SQLITE.PATH", "feedback.db")
	v.SetDefault("REDIS.ADDRESS", "")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("CONTACT.RESEND_API_KEY", "")
	v.SetDefault("CONTACT.FROM", "Portfolio <onboarding@resend.dev>")
	v.SetDefault("CONTACT.TO", "nivedita@example.com")
	v.SetDefault("CONTACT.SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("CONTACT.SMTP_PORT", "587")
	v.SetDefault("CONTACT.SMTP_USER", "")
	v.SetDefault("CONTACT.SMTP_PASS", "")
	v.SetDefault("ADMIN.USERNAME", "admin")
	v.SetDefault("ADMIN.PASSWORD", "admin123")
	v.SetDefault("ADMIN.VISITORS_DB_PATH", "visitors.db")
	v.SetDefault("ADMIN.VISITOR_RETENTION", 365*24*time.Hour)
	v.SetDefault("RATE_LIMIT.SUBMISSIONS", 5)
	v.SetDefault("RATE_LIMIT.WINDOW", time.Minute)
}

// Load reads defaults and environment variables into a validated Config.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, b := range envBindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Server.TrustedProxies = splitList(cfg.Server.TrustedProxies)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected feedback backend has what it needs.
func (c *Config) Validate() error {
	switch c.Feedback.Backend {
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s feedback backend", BackendPostgres)
		}
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required for the %s feedback backend", BackendSupabase)
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s feedback backend", BackendSQLite)
		}
	default:
		return fmt.Errorf("unknown feedback backend %q", c.Feedback.Backend)
	}

	if c.IsProduction() && c.Admin.Password == "admin123" {
		return fmt.Errorf("ADMIN_PASSWORD must be set in production")
	}
	if c.RateLimit.Submissions <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit submissions and window must be positive")
	}
	return nil
}

// splitList accepts both real lists and a single comma separated env value.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
