package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Payment   PaymentConfig
	Email     EmailConfig
	Quiz      QuizConfig
	Rollbar   RollbarConfig
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port            string
	ReadTimeout     int      `mapstructure:"read_timeout"`  // секунды
	WriteTimeout    int      `mapstructure:"write_timeout"` // секунды
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: "single", "sentinel" или "cluster". По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: список адресов Redis (хост:порт). Для 'single' используется первый.
	Addrs []string `mapstructure:"addrs"`

	// Addr: адрес для режима 'single', если Addrs пуст
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: имя мастера (только для "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// JWTConfig содержит настройки JWT
type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	ExpirationHrs     int    `mapstructure:"expirationHrs"`
	WSTicketExpirySec int    `mapstructure:"wsTicketExpirySec"`
}

// PaymentConfig содержит ключи платёжных шлюзов.
// Шлюз регистрируется, только если задан его ключ.
type PaymentConfig struct {
	Stripe   StripeConfig
	Midtrans MidtransConfig
}

// StripeConfig - ключи Stripe
type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
}

// MidtransConfig - ключи Midtrans
type MidtransConfig struct {
	ServerKey  string `mapstructure:"server_key"`
	Production bool   `mapstructure:"production"`
	Currency   string `mapstructure:"currency"`
}

// EmailConfig - отправка писем через Resend. Без API-ключа письма не отправляются.
type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
}

// QuizConfig - настройки прохождения тестов
type QuizConfig struct {
	DisplayCacheTTL time.Duration `mapstructure:"display_cache_ttl"`
}

// RollbarConfig - отправка ошибок в Rollbar
type RollbarConfig struct {
	Token       string `mapstructure:"token"`
	Environment string `mapstructure:"environment"`
	CodeVersion string `mapstructure:"code_version"`
}

// RateLimitConfig - лимит запросов к платёжным маршрутам
type RateLimitConfig struct {
	PaymentMaxRequests int           `mapstructure:"payment_max_requests"`
	PaymentWindow      time.Duration `mapstructure:"payment_window"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из .env, файла и переменных окружения
func Load(configPath string) (*Config, error) {
	// .env не обязателен
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Предупреждение: не удалось прочитать .env: %v", err)
	}

	vip := viper.New()
	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// файла может не быть: есть BindEnv
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// списки из env приходят строкой через запятую
	cfg.Redis.Addrs = normalizeList(cfg.Redis.Addrs)
	cfg.Server.AllowedOrigins = normalizeList(cfg.Server.AllowedOrigins)

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database: %s@%s:%s/%s (sslmode=%s)", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, cfg.Database.SSLMode)
		log.Printf("Redis: mode=%s addr=%s addrs=%v", cfg.Redis.Mode, cfg.Redis.Addr, cfg.Redis.Addrs)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Stripe configured: %t, Midtrans configured: %t", cfg.Payment.Stripe.SecretKey != "", cfg.Payment.Midtrans.ServerKey != "")
		log.Printf("Resend configured: %t, Rollbar configured: %t", cfg.Email.ResendAPIKey != "", cfg.Rollbar.Token != "")
		log.Printf("-----------------------------------------")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required (check JWT_SECRET env var)")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Payment.Stripe.SecretKey != "" && c.Payment.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required when stripe is configured (check STRIPE_WEBHOOK_SECRET env var)")
	}
	if os.Getenv("GIN_MODE") == "release" && c.Database.Password == "" {
		return fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
	}
	return nil
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 30)
	vip.SetDefault("server.shutdown_timeout", 10)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_dir", "migrations")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")
	vip.SetDefault("jwt.expirationHrs", 24)
	vip.SetDefault("jwt.wsTicketExpirySec", 60)
	vip.SetDefault("quiz.display_cache_ttl", 10*time.Minute)
	vip.SetDefault("rollbar.environment", "development")
	vip.SetDefault("ratelimit.payment_max_requests", 30)
	vip.SetDefault("ratelimit.payment_window", time.Minute)
}

func bindEnv(vip *viper.Viper) {
	bindings := map[string]string{
		"server.port":            "SERVER_PORT",
		"server.allowed_origins": "SERVER_ALLOWED_ORIGINS",

		"database.host":           "DATABASE_HOST",
		"database.port":           "DATABASE_PORT",
		"database.user":           "DATABASE_USER",
		"database.password":       "DATABASE_PASSWORD",
		"database.dbname":         "DATABASE_DBNAME",
		"database.sslmode":        "DATABASE_SSLMODE",
		"database.migrations_dir": "DATABASE_MIGRATIONS_DIR",

		"redis.mode":        "REDIS_MODE",
		"redis.addrs":       "REDIS_ADDRS",
		"redis.addr":        "REDIS_ADDR",
		"redis.password":    "REDIS_PASSWORD",
		"redis.db":          "REDIS_DB",
		"redis.master_name": "REDIS_MASTER_NAME",

		"jwt.secret":            "JWT_SECRET",
		"jwt.expirationHrs":     "JWT_EXPIRATIONHRS",
		"jwt.wsTicketExpirySec": "JWT_WSTICKETEXPIRYSEC",

		"payment.stripe.secret_key":     "STRIPE_SECRET_KEY",
		"payment.stripe.webhook_secret": "STRIPE_WEBHOOK_SECRET",
		"payment.stripe.currency":       "STRIPE_CURRENCY",
		"payment.midtrans.server_key":   "MIDTRANS_SERVER_KEY",
		"payment.midtrans.production":   "MIDTRANS_PRODUCTION",
		"payment.midtrans.currency":     "MIDTRANS_CURRENCY",

		"email.resend_api_key": "RESEND_API_KEY",
		"email.from":           "EMAIL_FROM",

		"quiz.display_cache_ttl": "QUIZ_DISPLAY_CACHE_TTL",

		"rollbar.token":        "ROLLBAR_TOKEN",
		"rollbar.environment":  "ROLLBAR_ENVIRONMENT",
		"rollbar.code_version": "ROLLBAR_CODE_VERSION",

		"ratelimit.payment_max_requests": "RATELIMIT_PAYMENT_MAX_REQUESTS",
		"ratelimit.payment_window":       "RATELIMIT_PAYMENT_WINDOW",
	}
	for key, env := range bindings {
		if err := vip.BindEnv(key, env); err != nil {
			log.Printf("Предупреждение: не удалось привязать %s к %s: %v", key, env, err)
		}
	}
}

func normalizeList(list []string) []string {
	parts := strings.Split(strings.Join(list, ","), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
