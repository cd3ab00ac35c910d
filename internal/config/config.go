package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	OTPTTL       time.Duration
	OTPStore     string // "memory" | "dynamo"
	MailProvider string // "smtp" | "sns" | "log"
	MailTimeout  time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AWSRegion       string
	AWSEndpointURL  string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID  string
	AWSSecretKey    string
	DynamoTableOTPs string
	SNSRegion       string
	SNSTopicARN     string

	RateLimitRPS   float64 // 0 disables the limiter
	RateLimitBurst int

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// Store backends.
const (
	StoreMemory = "memory"
	StoreDynamo = "dynamo"
)

// Mail providers.
const (
	MailSMTP = "smtp"
	MailSNS  = "sns"
	MailLog  = "log"
)

// Load reads all configuration from environment variables.
// EMAIL_USER / EMAIL_PASS are honoured as fallbacks for the SMTP credentials.
func Load() *Config {
	username := getEnv("SMTP_USERNAME", os.Getenv("EMAIL_USER"))
	return &Config{
		AppPort:  getEnv("APP_PORT", getEnv("PORT", "3000")),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OTPTTL:       getEnvDuration("OTP_TTL", 5*time.Minute),
		OTPStore:     strings.ToLower(getEnv("OTP_STORE", StoreMemory)),
		MailProvider: strings.ToLower(getEnv("MAIL_PROVIDER", MailSMTP)),
		MailTimeout:  getEnvDuration("MAIL_TIMEOUT", 10*time.Second),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPFrom:     getEnv("SMTP_FROM", getEnv("EMAIL_USER", "noreply@example.com")),
		SMTPUsername: username,
		SMTPPassword: getEnv("SMTP_PASSWORD", os.Getenv("EMAIL_PASS")),

		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL:  getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID:  getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTableOTPs: getEnv("DYNAMO_TABLE_OTPS", "wallet_otps"),
		SNSRegion:       getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:     getEnv("SNS_TOPIC_ARN", ""),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 15*time.Minute),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("5m", "300s").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
