package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Questions   QuestionsConfig   `mapstructure:"questions"`
	Submissions SubmissionsConfig `mapstructure:"submissions"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Screening   ScreeningConfig   `mapstructure:"screening"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	TrustProxy     bool          `mapstructure:"trust_proxy"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// AuthConfig holds the session token settings. MaxSessionsPerIP sessions may
// be issued per hashed client address within SessionWindow.
type AuthConfig struct {
	TokenSecret      string        `mapstructure:"token_secret"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
	IPHashSalt       string        `mapstructure:"ip_hash_salt"`
	MaxSessionsPerIP int           `mapstructure:"max_sessions_per_ip"`
	SessionWindow    time.Duration `mapstructure:"session_window"`
}

type QuestionsConfig struct {
	DefaultCount int `mapstructure:"default_count"`
	MaxCount     int `mapstructure:"max_count"`
	DailyCount   int `mapstructure:"daily_count"`
}

type SubmissionsConfig struct {
	MaxTextLength int `mapstructure:"max_text_length"`
	ListLimit     int `mapstructure:"list_limit"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	UserCacheTTL time.Duration `mapstructure:"user_cache_ttl"`
}

// ScreeningConfig selects the advisory pre-screen backend: "off", "mock" or "anthropic".
type ScreeningConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// AdminConfig holds the bcrypt hash of the moderation API key.
type AdminConfig struct {
	KeyHash string `mapstructure:"key_hash"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.request_timeout", 25*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 10.0)
	v.SetDefault("server.rate_limit_burst", 30)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "trivia_user")
	v.SetDefault("database.password", "trivia_password")
	v.SetDefault("database.name", "trivia")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "trivia.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.token_ttl", 6*time.Hour)
	v.SetDefault("auth.ip_hash_salt", "")
	v.SetDefault("auth.max_sessions_per_ip", 20)
	v.SetDefault("auth.session_window", time.Hour)

	v.SetDefault("questions.default_count", 7)
	v.SetDefault("questions.max_count", 20)
	v.SetDefault("questions.daily_count", 10)

	v.SetDefault("submissions.max_text_length", 500)
	v.SetDefault("submissions.list_limit", 20)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.user_cache_ttl", 5*time.Minute)

	v.SetDefault("screening.provider", "mock")
	v.SetDefault("screening.model", "claude-sonnet-4-5")
	v.SetDefault("screening.api_key", "")

	v.SetDefault("admin.key_hash", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads configuration from defaults, an optional config.yaml under path,
// a .env file, and TRIVIA_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("TRIVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by the deployment scripts.
	v.BindEnv("server.port", "TRIVIA_SERVER_PORT", "PORT")
	v.BindEnv("database.host", "TRIVIA_DATABASE_HOST", "DB_HOST")
	v.BindEnv("database.port", "TRIVIA_DATABASE_PORT", "DB_PORT")
	v.BindEnv("database.user", "TRIVIA_DATABASE_USER", "DB_USER")
	v.BindEnv("database.password", "TRIVIA_DATABASE_PASSWORD", "DB_PASSWORD")
	v.BindEnv("database.name", "TRIVIA_DATABASE_NAME", "DB_NAME")
	v.BindEnv("database.sslmode", "TRIVIA_DATABASE_SSLMODE", "DB_SSLMODE")
	v.BindEnv("auth.token_secret", "TRIVIA_AUTH_TOKEN_SECRET", "JWT_SECRET")
	v.BindEnv("auth.ip_hash_salt", "TRIVIA_AUTH_IP_HASH_SALT", "IP_HASH_SALT")
	v.BindEnv("redis.addr", "TRIVIA_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "TRIVIA_REDIS_PASSWORD", "REDIS_PASSWORD")
	v.BindEnv("screening.api_key", "TRIVIA_SCREENING_API_KEY", "ANTHROPIC_API_KEY")
	v.BindEnv("admin.key_hash", "TRIVIA_ADMIN_KEY_HASH", "ADMIN_KEY_HASH")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every command needs before touching storage.
func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q must be postgres or sqlite3", c.Database.Driver))
	}
	if c.Auth.TokenSecret == "" {
		problems = append(problems, "auth.token_secret is required")
	} else if c.Server.Mode == "release" && len(c.Auth.TokenSecret) < 32 {
		problems = append(problems, "auth.token_secret must be at least 32 characters in release mode")
	}
	if c.Auth.IPHashSalt == "" {
		problems = append(problems, "auth.ip_hash_salt is required")
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "auth.token_ttl must be positive")
	}
	if c.Auth.MaxSessionsPerIP < 1 || c.Auth.SessionWindow <= 0 {
		problems = append(problems, "auth.max_sessions_per_ip and auth.session_window must be positive")
	}
	if c.Questions.DefaultCount < 1 || c.Questions.MaxCount < c.Questions.DefaultCount {
		problems = append(problems, "questions.default_count must be between 1 and questions.max_count")
	}
	if c.Questions.DailyCount < 1 {
		problems = append(problems, "questions.daily_count must be positive")
	}
	if c.Submissions.MaxTextLength < 1 {
		problems = append(problems, "submissions.max_text_length must be positive")
	}
	switch c.Screening.Provider {
	case "off", "mock":
	case "anthropic":
		if c.Screening.APIKey == "" {
			problems = append(problems, "screening.api_key is required for the anthropic provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("screening.provider %q must be off, mock or anthropic", c.Screening.Provider))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DataSource returns the driver-specific connection string.
func (d DatabaseConfig) DataSource() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == "sqlite3" {
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", d.Path)
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}
