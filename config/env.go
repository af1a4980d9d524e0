package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvPrivateKey    = "PRIVATE_KEY"
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
	EnvCoinGeckoKey  = "COINGECKO_API_KEY"
)

// SecureConfig carries startup secrets sourced from the environment only
type SecureConfig struct {
	PrivateKey    string
	TelegramToken string
	CoinGeckoKey  string
}

// LoadEnv loads environment variables from a .env file if present
func LoadEnv() error {
	return godotenv.Load()
}

// LoadSecureConfig reads secrets from the environment. The private key is
// required unless the bot runs in dry-run mode; the rest are optional.
func LoadSecureConfig(requireSigner bool) (*SecureConfig, error) {
	sc := &SecureConfig{
		PrivateKey:    os.Getenv(EnvPrivateKey),
		TelegramToken: os.Getenv(EnvTelegramToken),
		CoinGeckoKey:  os.Getenv(EnvCoinGeckoKey),
	}

	if requireSigner && sc.PrivateKey == "" {
		return nil, fmt.Errorf("required environment variable %s not set", EnvPrivateKey)
	}
	return sc, nil
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetRequiredEnv returns an error when the variable is unset or empty
func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s not set", key)
	}
	return value, nil
}
