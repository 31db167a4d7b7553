package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// BaseURL is the externally reachable origin used to build checkout
	// redirect URLs and the webhook notification URL.
	BaseURL string

	MercadoPago MercadoPagoConfig
	Email       EmailConfig
	RateLimit   RateLimitConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// MercadoPagoConfig carries the payment gateway credentials. The zero value
// is the disabled state: entry points must check Enabled before any call.
type MercadoPagoConfig struct {
	AccessToken   string
	PublicKey     string
	WebhookSecret string
}

func (c MercadoPagoConfig) Enabled() bool {
	return strings.TrimSpace(c.AccessToken) != "" && strings.TrimSpace(c.PublicKey) != ""
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

func (c EmailConfig) Enabled() bool {
	return strings.TrimSpace(c.SMTPHost) != "" && strings.TrimSpace(c.SMTPFrom) != ""
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CheckoutRate  float64
	CheckoutBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "funnelbase"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		BaseURL:     strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:8080"), "/"),
		MercadoPago: MercadoPagoConfig{
			AccessToken:   strings.TrimSpace(getenv("MERCADOPAGO_ACCESS_TOKEN", "")),
			PublicKey:     strings.TrimSpace(getenv("MERCADOPAGO_PUBLIC_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("MERCADOPAGO_WEBHOOK_SECRET", "")),
		},
		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATELIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("REDIS_DB", 0),
			CheckoutRate:  getenvFloat("RATELIMIT_CHECKOUT_RATE", 1),
			CheckoutBurst: getenvInt("RATELIMIT_CHECKOUT_BURST", 5),
		},
		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "funnelbase"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
