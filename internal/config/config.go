package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// WhatsApp gateway (primary instance)
	WhatsAppBaseURL     string
	WhatsAppInstanceID  string
	WhatsAppToken       string
	WhatsAppClientToken string

	// Optional secondary instance used when the primary send fails
	WhatsAppFallbackInstanceID string
	WhatsAppFallbackToken      string

	// Shared token expected on inbound webhook deliveries; empty disables the check
	WhatsAppWebhookToken string

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// NotifyTimeout bounds each best-effort outbound dispatch.
	NotifyTimeout time.Duration

	ServiceCacheSize int
	ServiceCacheTTL  time.Duration

	// Public booking endpoints allow PublicRateLimit requests per client per window.
	PublicRateLimit       int
	PublicRateLimitWindow time.Duration

	// ProcessedWebhookRetention is how long webhook dedupe rows are kept.
	ProcessedWebhookRetention time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		WhatsAppBaseURL:     getEnv("WHATSAPP_API_BASE_URL", "https://api.z-api.io"),
		WhatsAppInstanceID:  getEnv("WHATSAPP_INSTANCE_ID", ""),
		WhatsAppToken:       getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppClientToken: getEnv("WHATSAPP_CLIENT_TOKEN", ""),

		WhatsAppFallbackInstanceID: getEnv("WHATSAPP_FALLBACK_INSTANCE_ID", ""),
		WhatsAppFallbackToken:      getEnv("WHATSAPP_FALLBACK_TOKEN", ""),

		WhatsAppWebhookToken: getEnv("WHATSAPP_WEBHOOK_TOKEN", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Studio Scheduler"),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		NotifyTimeout: getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),

		ServiceCacheSize: getEnvAsInt("SERVICE_CACHE_SIZE", 512),
		ServiceCacheTTL:  getEnvAsDuration("SERVICE_CACHE_TTL", time.Minute),

		PublicRateLimit:       getEnvAsInt("PUBLIC_RATE_LIMIT", 60),
		PublicRateLimitWindow: getEnvAsDuration("PUBLIC_RATE_LIMIT_WINDOW", time.Minute),

		ProcessedWebhookRetention: getEnvAsDuration("PROCESSED_WEBHOOK_RETENTION", 30*24*time.Hour),
	}
}

// WhatsAppConfigured reports whether the primary gateway credentials are present.
func (c *Config) WhatsAppConfigured() bool {
	return c.WhatsAppInstanceID != "" && c.WhatsAppToken != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
