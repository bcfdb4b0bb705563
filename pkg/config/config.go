package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backends for payment proofs.
const (
	StorageLocal      = "local"
	StorageCloudinary = "cloudinary"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Metrics       MetricsConfig
	Pricing       PricingConfig
	Checkout      CheckoutConfig
	Payments      PaymentsConfig
	Bank          BankConfig
	Uploads       UploadsConfig
	Notifications NotificationsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// PricingConfig tunes price table caching.
type PricingConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// CheckoutConfig controls checkout session lifetime.
type CheckoutConfig struct {
	SessionTTL time.Duration
}

// PaymentsConfig selects and configures payment providers.
type PaymentsConfig struct {
	DefaultProvider      string
	CurrencyProviders    map[string]string
	ProviderTimeout      time.Duration
	StripeSecretKey      string
	StripePublishableKey string
	RazorpayKeyID        string
	RazorpayKeySecret    string
}

// BankConfig holds the static bank transfer details shown to payers.
type BankConfig struct {
	BankName      string
	AccountNumber string
	AccountHolder string
	SwiftCode     string
}

// UploadsConfig governs payment proof validation and storage.
type UploadsConfig struct {
	Backend          string
	StorageDir       string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	CloudinaryName   string
	CloudinaryKey    string
	CloudinarySecret string
	CloudinaryFolder string
}

// NotificationsConfig wires email and Telegram delivery.
type NotificationsConfig struct {
	EmailAPIURL      string
	EmailAPIKey      string
	EmailFrom        string
	PortalBaseURL    string
	ParentLinkSecret string
	ParentLinkTTL    time.Duration
	TelegramToken    string
	TelegramChatID   int64
	WorkerCount      int
	WorkerRetries    int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	cfg.Pricing = PricingConfig{
		CacheEnabled: v.GetBool("PRICING_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("PRICING_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Checkout = CheckoutConfig{
		SessionTTL: parseDuration(v.GetString("CHECKOUT_SESSION_TTL"), 2*time.Hour),
	}

	cfg.Payments = PaymentsConfig{
		DefaultProvider:      strings.ToLower(v.GetString("PAYMENT_DEFAULT_PROVIDER")),
		CurrencyProviders:    parsePairs(v.GetString("PAYMENT_CURRENCY_PROVIDERS")),
		ProviderTimeout:      parseDuration(v.GetString("PAYMENT_PROVIDER_TIMEOUT"), 20*time.Second),
		StripeSecretKey:      v.GetString("STRIPE_SECRET_KEY"),
		StripePublishableKey: v.GetString("STRIPE_PUBLISHABLE_KEY"),
		RazorpayKeyID:        v.GetString("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:    v.GetString("RAZORPAY_KEY_SECRET"),
	}

	cfg.Bank = BankConfig{
		BankName:      v.GetString("BANK_NAME"),
		AccountNumber: v.GetString("BANK_ACCOUNT_NUMBER"),
		AccountHolder: v.GetString("BANK_ACCOUNT_HOLDER"),
		SwiftCode:     v.GetString("BANK_SWIFT_CODE"),
	}

	maxProofSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxProofSize <= 0 {
		maxProofSize = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Backend:          strings.ToLower(v.GetString("UPLOADS_BACKEND")),
		StorageDir:       v.GetString("UPLOADS_STORAGE_DIR"),
		MaxFileSizeBytes: maxProofSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOADS_ALLOWED_MIME_TYPES")),
		CloudinaryName:   v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryKey:    v.GetString("CLOUDINARY_API_KEY"),
		CloudinarySecret: v.GetString("CLOUDINARY_API_SECRET"),
		CloudinaryFolder: v.GetString("CLOUDINARY_FOLDER"),
	}

	cfg.Notifications = NotificationsConfig{
		EmailAPIURL:      v.GetString("ZEPTO_API_URL"),
		EmailAPIKey:      v.GetString("ZEPTO_API_KEY"),
		EmailFrom:        v.GetString("EMAIL_FROM"),
		PortalBaseURL:    v.GetString("PORTAL_BASE_URL"),
		ParentLinkSecret: v.GetString("PARENT_LINK_SECRET"),
		ParentLinkTTL:    parseDuration(v.GetString("PARENT_LINK_TTL"), 72*time.Hour),
		TelegramToken:    v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   v.GetInt64("TELEGRAM_STAFF_CHAT_ID"),
		WorkerCount:      v.GetInt("NOTIFY_WORKER_CONCURRENCY"),
		WorkerRetries:    v.GetInt("NOTIFY_WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sports_academy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "sports-academy-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("PRICING_CACHE_ENABLED", true)
	v.SetDefault("PRICING_CACHE_TTL", "10m")
	v.SetDefault("CHECKOUT_SESSION_TTL", "2h")

	v.SetDefault("PAYMENT_DEFAULT_PROVIDER", "stripe")
	v.SetDefault("PAYMENT_CURRENCY_PROVIDERS", "INR:razorpay")
	v.SetDefault("PAYMENT_PROVIDER_TIMEOUT", "20s")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_PUBLISHABLE_KEY", "")
	v.SetDefault("RAZORPAY_KEY_ID", "")
	v.SetDefault("RAZORPAY_KEY_SECRET", "")

	v.SetDefault("BANK_NAME", "")
	v.SetDefault("BANK_ACCOUNT_NUMBER", "")
	v.SetDefault("BANK_ACCOUNT_HOLDER", "")
	v.SetDefault("BANK_SWIFT_CODE", "")

	v.SetDefault("UPLOADS_BACKEND", StorageLocal)
	v.SetDefault("UPLOADS_STORAGE_DIR", "./uploads")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_MIME_TYPES", "image/png,image/jpeg,image/webp,application/pdf")
	v.SetDefault("CLOUDINARY_FOLDER", "payment-proofs")

	v.SetDefault("ZEPTO_API_URL", "")
	v.SetDefault("ZEPTO_API_KEY", "")
	v.SetDefault("EMAIL_FROM", "")
	v.SetDefault("PORTAL_BASE_URL", "http://localhost:3000")
	v.SetDefault("PARENT_LINK_SECRET", "dev_parent_link_secret")
	v.SetDefault("PARENT_LINK_TTL", "72h")
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("TELEGRAM_STAFF_CHAT_ID", 0)
	v.SetDefault("NOTIFY_WORKER_CONCURRENCY", 1)
	v.SetDefault("NOTIFY_WORKER_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// parsePairs turns "INR:razorpay,USD:stripe" into an upper-cased key map.
func parsePairs(raw string) map[string]string {
	result := make(map[string]string)
	for _, part := range splitAndTrim(raw) {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.ToLower(strings.TrimSpace(value))
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	return result
}
