package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort      string
	DatabaseURL     string
	LogLevel        string
	ScraperBaseURL  string
	ScraperMaxPages int
	RefreshCron     string
	UseBrowser      bool
}

// ScraperConfig holds tuning parameters for the tender scraper
type ScraperConfig struct {
	BaseURL            string        // Target portal base URL
	HTTPRequestTimeout time.Duration // Maximum time to wait for HTTP responses
	PageDelay          time.Duration // Minimum delay between consecutive page fetches
	MaxPages           int           // Default number of listing pages per run
	UseBrowser         bool          // Fetch pages through a headless browser
}

// DefaultScraperConfig returns production-ready scraper defaults
func DefaultScraperConfig() *ScraperConfig {
	return &ScraperConfig{
		BaseURL:            "https://eprocure.gov.in/epublish/app",
		HTTPRequestTimeout: 30 * time.Second,
		PageDelay:          2 * time.Second,
		MaxPages:           3,
		UseBrowser:         false,
	}
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ScraperBaseURL:  getEnv("SCRAPER_BASE_URL", "https://eprocure.gov.in/epublish/app"),
		ScraperMaxPages: getEnvInt("SCRAPER_MAX_PAGES", 3),
		RefreshCron:     getEnv("REFRESH_CRON", "@daily"),
		UseBrowser:      getEnv("SCRAPER_USE_BROWSER", "false") == "true",
	}
}

// Scraper builds the scraper configuration from the loaded environment
func (c *Config) Scraper() *ScraperConfig {
	cfg := DefaultScraperConfig()
	cfg.BaseURL = c.ScraperBaseURL
	cfg.MaxPages = c.ScraperMaxPages
	cfg.UseBrowser = c.UseBrowser
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %d", key, value, fallback)
		return fallback
	}
	return n
}
