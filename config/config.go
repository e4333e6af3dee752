package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// MongoDB (relation store and user store).
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Operator API authentication.
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// Payments provider.
	StripeKey string `mapstructure:"STRIPE_KEY"`

	// Scheduling provider.
	CalAPIKey        string `mapstructure:"CAL_API_KEY"`
	CalAPIURL        string `mapstructure:"CAL_API_URL"`
	CalAPIVersion    string `mapstructure:"CAL_API_VERSION"`
	CalWebhookSecret string `mapstructure:"CAL_WEBHOOK_SECRET"`
	FreeClassSlug    string `mapstructure:"FREE_CLASS_SLUG"`

	// Reconciliation.
	PollInterval       time.Duration `mapstructure:"POLL_INTERVAL"`
	HTTPConnectTimeout time.Duration `mapstructure:"HTTP_CONNECT_TIMEOUT"`
	HTTPTimeout        time.Duration `mapstructure:"HTTP_TIMEOUT"`
	RefundRetryMax     int           `mapstructure:"REFUND_RETRY_MAX"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "classbridge")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_QUEUE_DB", 3)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("STRIPE_KEY", "")
	v.SetDefault("CAL_API_KEY", "")
	v.SetDefault("CAL_API_URL", "https://api.cal.com/v2")
	v.SetDefault("CAL_API_VERSION", "2024-08-13")
	v.SetDefault("CAL_WEBHOOK_SECRET", "")
	v.SetDefault("FREE_CLASS_SLUG", "free-class")
	v.SetDefault("POLL_INTERVAL", "60s")
	v.SetDefault("HTTP_CONNECT_TIMEOUT", "10s")
	v.SetDefault("HTTP_TIMEOUT", "60s")
	v.SetDefault("REFUND_RETRY_MAX", 8)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
