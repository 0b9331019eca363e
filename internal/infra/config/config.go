package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the escalation engine.
type AppConfig struct {
	DatabaseURL string

	TelegramToken string // push channel bot token

	SMSProviderURL   string
	SMSProviderToken string
	SMSFromNumber    string

	VoiceProviderURL   string
	VoiceProviderToken string
	VoiceFromNumber    string

	CronSpecSweep string // recurring sweep for due escalations
	SweepWorkers  int    // bounded concurrency per sweep

	HTTPListenAddr string

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.SMSProviderURL = os.Getenv("SMS_PROVIDER_URL")
	cfg.SMSProviderToken = os.Getenv("SMS_PROVIDER_TOKEN")
	cfg.SMSFromNumber = os.Getenv("SMS_FROM_NUMBER")
	if cfg.SMSProviderURL == "" {
		return nil, fmt.Errorf("SMS_PROVIDER_URL is not set")
	}

	cfg.VoiceProviderURL = os.Getenv("VOICE_PROVIDER_URL")
	cfg.VoiceProviderToken = os.Getenv("VOICE_PROVIDER_TOKEN")
	cfg.VoiceFromNumber = os.Getenv("VOICE_FROM_NUMBER")
	if cfg.VoiceProviderURL == "" {
		return nil, fmt.Errorf("VOICE_PROVIDER_URL is not set")
	}

	cfg.CronSpecSweep = os.Getenv("CRON_SPEC_SWEEP")
	if cfg.CronSpecSweep == "" {
		// Every minute: the sweep interval bounds how late the smallest
		// configured stage delay can fire.
		cfg.CronSpecSweep = "* * * * *"
	}

	workersStr := os.Getenv("SWEEP_WORKERS")
	if workersStr == "" {
		cfg.SweepWorkers = 8
	} else {
		workers, err := strconv.Atoi(workersStr)
		if err != nil || workers < 1 {
			return nil, fmt.Errorf("invalid SWEEP_WORKERS: %q", workersStr)
		}
		cfg.SweepWorkers = workers
	}

	cfg.HTTPListenAddr = os.Getenv("HTTP_LISTEN_ADDR")
	if cfg.HTTPListenAddr == "" {
		cfg.HTTPListenAddr = ":8080"
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}
