package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	DBMaxConns         int32
	JWTSecret          string
	Environment        string
	LogLevel           string
	RunMigrations      bool
	MigrationsDir      string
	MaxBodyBytes       int64
	CORSAllowedOrigins []string
	DefaultPageSize    int
	MaxPageSize        int
	MetricsEnabled     bool
	RateLimitPerMinute int
	TrustForwardedFor  bool
	ShutdownTimeout    time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("MAX_BODY_BYTES", 1048576)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("MAX_PAGE_SIZE", 100)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("TRUST_FORWARDED_FOR", false)
	v.SetDefault("SHUTDOWN_TIMEOUT", 15*time.Second)
}

// Flags registers the command-line overrides understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional YAML config file")
	fs.String("addr", "", "listen address (APP_ADDR)")
	fs.String("migrations-dir", "", "directory of .sql migrations (MIGRATIONS_DIR)")
	fs.String("log-level", "", "log level (LOG_LEVEL)")
}

var flagKeys = map[string]string{
	"addr":           "APP_ADDR",
	"migrations-dir": "MIGRATIONS_DIR",
	"log-level":      "LOG_LEVEL",
}

// Load resolves configuration from defaults, an optional config file,
// environment variables and finally explicitly set flags. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Addr:               v.GetString("APP_ADDR"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		DBMaxConns:         v.GetInt32("DB_MAX_CONNS"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		Environment:        v.GetString("APP_ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		RunMigrations:      v.GetBool("RUN_MIGRATIONS"),
		MigrationsDir:      v.GetString("MIGRATIONS_DIR"),
		MaxBodyBytes:       v.GetInt64("MAX_BODY_BYTES"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		DefaultPageSize:    v.GetInt("DEFAULT_PAGE_SIZE"),
		MaxPageSize:        v.GetInt("MAX_PAGE_SIZE"),
		MetricsEnabled:     v.GetBool("METRICS_ENABLED"),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		TrustForwardedFor:  v.GetBool("TRUST_FORWARDED_FOR"),
		ShutdownTimeout:    v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize <= 0 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE and MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must not exceed MAX_PAGE_SIZE")
	}
	return nil
}
