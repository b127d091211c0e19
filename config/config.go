// Package config loads the taxlot configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Environment variables read by Load.
const (
	EnvLedgerFile     = "CRYPTOTAX_LEDGER_FILE"
	EnvMethod         = "CRYPTOTAX_METHOD"
	EnvLiabilityRate  = "CRYPTOTAX_LIABILITY_RATE"
	EnvWallets        = "CRYPTOTAX_WALLETS"
	EnvVocabularyFile = "CRYPTOTAX_VOCABULARY_FILE"
	EnvMappingFile    = "CRYPTOTAX_MAPPING_FILE"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
)

// Config is the application configuration.
type Config struct {
	LedgerFile string
	// Method is the lot matching method name, parsed by the commands.
	Method string
	// LiabilityRate is invalid when not configured.
	LiabilityRate  decimal.NullDecimal
	Wallets        []string
	VocabularyFile string
	MappingFile    string
	LogLevel       string
	LogFormat      string
}

// Load reads the configuration from environment variables.
// It loads the .env file of the current directory when there is one, or the
// given envPath which must then exist. Variables already set win over the file.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	rate, err := parseDecimalEnv(EnvLiabilityRate)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvLiabilityRate, err)
	}

	return &Config{
		LedgerFile:     getEnvOrDefault(EnvLedgerFile, "transactions.jsonl"),
		Method:         getEnvOrDefault(EnvMethod, "fifo"),
		LiabilityRate:  rate,
		Wallets:        splitList(os.Getenv(EnvWallets)),
		VocabularyFile: os.Getenv(EnvVocabularyFile),
		MappingFile:    os.Getenv(EnvMappingFile),
		LogLevel:       getEnvOrDefault(EnvLogLevel, "warn"),
		LogFormat:      getEnvOrDefault(EnvLogFormat, "text"),
	}, nil
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseDecimalEnv parses an optional decimal environment variable.
func parseDecimalEnv(key string) (decimal.NullDecimal, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// splitList splits a comma separated list, dropping empty items.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
