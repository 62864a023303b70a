package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var AppEnv Config

type Config struct {
	Port            string
	MongoURI        string
	DBName          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	OTPTTL         time.Duration
	OTPMaxAttempts int

	CORSOrigins []string
	LogLevel    string
	LogPretty   bool
	UploadDir   string

	MSISDNPrefix string
	Currency     string

	PaymentGatewayURL    string
	PaymentGatewayKey    string
	PaymentRedirectBase  string
	PaymentWebhookSecret string

	SMSGatewayURL string
	SMSSandbox    bool
}

// Load fills AppEnv from .env (when present) and the process environment.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg(".env not loaded")
	}
	AppEnv = FromEnv()
}

func FromEnv() Config {
	return Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		MongoURI:        getEnvOrDefault("MONGO_URI", ""),
		DBName:          getEnvOrDefault("DB_NAME", "telecomstore"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),

		OTPTTL:         getDurationEnv("OTP_TTL", 10, time.Minute),
		OTPMaxAttempts: getIntEnv("OTP_MAX_ATTEMPTS", 5),

		CORSOrigins: getListEnv("CORS_ORIGINS", []string{"*"}),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogPretty:   getBoolEnv("LOG_PRETTY", false),
		UploadDir:   getEnvOrDefault("UPLOAD_DIR", "./public/uploads"),

		MSISDNPrefix: getEnvOrDefault("MSISDN_PREFIX", "9"),
		Currency:     getEnvOrDefault("CURRENCY", "INR"),

		PaymentGatewayURL:    getEnvOrDefault("PAYMENT_GATEWAY_URL", ""),
		PaymentGatewayKey:    getEnvOrDefault("PAYMENT_GATEWAY_KEY", ""),
		PaymentRedirectBase:  getEnvOrDefault("PAYMENT_REDIRECT_BASE", "http://localhost:8080/payments/redirect"),
		PaymentWebhookSecret: getEnvOrDefault("PAYMENT_WEBHOOK_SECRET", ""),

		SMSGatewayURL: getEnvOrDefault("SMS_GATEWAY_URL", ""),
		SMSSandbox:    getBoolEnv("SMS_SANDBOX", false),
	}
}

// Validate reports every required key that is missing.
func (c Config) Validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.OTPMaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be at least 1"))
	}
	if len(c.MSISDNPrefix) != 1 || c.MSISDNPrefix[0] < '1' || c.MSISDNPrefix[0] > '9' {
		errs = append(errs, errors.New("MSISDN_PREFIX must be a single non-zero digit"))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	return time.Duration(getIntEnv(key, defaultValue)) * unit
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	out := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
