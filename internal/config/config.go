// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Config struct {
	Environment string
	LogLevel    string
	Events      EventsConfig
	Storage     StorageConfig
	Stripe      StripeConfig
	Purchasing  PurchasingConfig
}

type EventsConfig struct {
	Endpoint  string  `validate:"omitempty,url"`
	APIKey    string
	PerSecond float64 `validate:"gt=0"`
	Burst     int     `validate:"gt=0"`
}

type StorageConfig struct {
	Path string
}

type StripeConfig struct {
	SecretKey string
}

type PurchasingConfig struct {
	// ExternalPurchaseController means the host app owns purchase state:
	// the SDK neither finalizes transactions nor reloads purchased products.
	ExternalPurchaseController bool
	// OverlayTimeoutCapable gates the payment-sheet timeout telemetry and the
	// cancelled classification of overlay-timeout failures.
	OverlayTimeoutCapable bool
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("PAYWALL_LOG_LEVEL", "info"),
		Events: EventsConfig{
			Endpoint:  getEnv("PAYWALL_EVENTS_ENDPOINT", ""),
			APIKey:    getEnv("PAYWALL_API_KEY", ""),
			PerSecond: getEnvAsFloat("PAYWALL_EVENTS_PER_SECOND", 10.0),
			Burst:     getEnvAsInt("PAYWALL_EVENTS_BURST", 20),
		},
		Storage: StorageConfig{
			Path: getEnv("PAYWALL_STORAGE_PATH", "paywallkit.db"),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		Purchasing: PurchasingConfig{
			ExternalPurchaseController: getEnvAsBool("PAYWALL_EXTERNAL_PURCHASE_CONTROLLER", false),
			OverlayTimeoutCapable:      getEnvAsBool("PAYWALL_OVERLAY_TIMEOUT_CAPABLE", true),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	return validate.Struct(c)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
