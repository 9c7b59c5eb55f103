// Package config provides centralized default values for the Daily Mirror backend
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%f (default: %f)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Persistent Store
	StoreDriver string
	StorePath   string
	StoreURL    string

	// TTL Configuration
	RecommendationTTL time.Duration
	WardrobeTTL       time.Duration
	WeatherTTL        time.Duration
	StyleProfileTTL   time.Duration
	OptimizedImageTTL time.Duration
	MetricsTTL        time.Duration

	// Retention windows enforced by the cleanup worker
	RecommendationRetention time.Duration
	InteractionRetention    time.Duration

	// Retry Configuration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryJitterMax   time.Duration

	// Metrics Configuration
	MetricsEMAAlpha     float64
	MetricsSampleCap    int
	MetricsReloadWindow time.Duration

	// Cleanup Configuration
	CleanupInterval   time.Duration
	CleanupFirstDelay time.Duration
	CleanupVerbose    bool

	// Pre-generation Configuration
	PreGenerateCron string

	// Notification Configuration
	DefaultReminderHour   int
	DefaultReminderMinute int
	FeedbackPromptDelay   time.Duration
	PushTokenMaxAttempts  int
	PushTokenBackoffStep  time.Duration

	// Outfit rule thresholds (degrees Fahrenheit)
	ColdThresholdF float64
	HotThresholdF  float64

	// Image Optimization
	ImageMaxWidth    int
	ImageWebPQuality float32
	MediaBasePath    string

	// Email Configuration
	EmailFrom     string
	EmailFromName string

	// External API Keys and Endpoints
	ResendAPIKey      string
	AssemblyAIAPIKey  string
	PushGatewayURL    string
	PushGatewayAPIKey string
	StyleAPIURL       string
	StyleAPIKey       string
	WeatherAPIURL     string
	WeatherAPIKey     string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Persistent Store
	StoreDriver = getEnvString("STORE_DRIVER", "sqlite3")
	StorePath = getEnvString("STORE_PATH", "mirror.db")
	StoreURL = getEnvString("STORE_URL", "")

	// TTL Configuration
	RecommendationTTL = time.Duration(getEnvInt("RECOMMENDATION_TTL_HOURS", 24)) * time.Hour
	WardrobeTTL = time.Duration(getEnvInt("WARDROBE_TTL_DAYS", 7)) * 24 * time.Hour
	WeatherTTL = time.Duration(getEnvInt("WEATHER_TTL_HOURS", 2)) * time.Hour
	StyleProfileTTL = time.Duration(getEnvInt("STYLE_PROFILE_TTL_HOURS", 24)) * time.Hour
	OptimizedImageTTL = time.Duration(getEnvInt("OPTIMIZED_IMAGE_TTL_DAYS", 30)) * 24 * time.Hour
	MetricsTTL = time.Duration(getEnvInt("METRICS_TTL_MINUTES", 60)) * time.Minute

	// Retention
	RecommendationRetention = time.Duration(getEnvInt("RECOMMENDATION_RETENTION_DAYS", 30)) * 24 * time.Hour
	InteractionRetention = time.Duration(getEnvInt("INTERACTION_RETENTION_DAYS", 365)) * 24 * time.Hour

	// Retry Configuration
	RetryMaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", 3)
	RetryBaseDelay = getEnvDuration("RETRY_BASE_DELAY", time.Second)
	RetryMaxDelay = getEnvDuration("RETRY_MAX_DELAY", 10*time.Second)
	RetryJitterMax = getEnvDuration("RETRY_JITTER_MAX", time.Second)

	// Metrics Configuration
	MetricsEMAAlpha = getEnvFloat("METRICS_EMA_ALPHA", 0.1)
	MetricsSampleCap = getEnvInt("METRICS_SAMPLE_CAP", 100)
	MetricsReloadWindow = time.Duration(getEnvInt("METRICS_RELOAD_WINDOW_HOURS", 24)) * time.Hour

	// Cleanup Configuration
	CleanupInterval = time.Duration(getEnvInt("CLEANUP_INTERVAL_HOURS", 24)) * time.Hour
	CleanupFirstDelay = time.Duration(getEnvInt("CLEANUP_FIRST_DELAY_MINUTES", 5)) * time.Minute
	CleanupVerbose = getEnvBool("CLEANUP_VERBOSE", true)

	// Pre-generation sweep runs nightly before the earliest reminder window
	PreGenerateCron = getEnvString("PREGENERATE_CRON", "0 3 * * *")

	// Notification Configuration
	DefaultReminderHour = getEnvInt("DEFAULT_REMINDER_HOUR", 6)
	DefaultReminderMinute = getEnvInt("DEFAULT_REMINDER_MINUTE", 0)
	FeedbackPromptDelay = time.Duration(getEnvInt("FEEDBACK_PROMPT_DELAY_HOURS", 3)) * time.Hour
	PushTokenMaxAttempts = getEnvInt("PUSH_TOKEN_MAX_ATTEMPTS", 3)
	PushTokenBackoffStep = getEnvDuration("PUSH_TOKEN_BACKOFF_STEP", 400*time.Millisecond)

	// Outfit rule thresholds
	ColdThresholdF = getEnvFloat("COLD_THRESHOLD_F", 50)
	HotThresholdF = getEnvFloat("HOT_THRESHOLD_F", 80)

	// Image Optimization
	ImageMaxWidth = getEnvInt("IMAGE_MAX_WIDTH", 800)
	ImageWebPQuality = float32(getEnvFloat("IMAGE_WEBP_QUALITY", 80))
	MediaBasePath = getEnvString("MEDIA_BASE_PATH", "media")

	// Email Configuration
	EmailFrom = getEnvString("EMAIL_FROM", "hello@dailymirror.app")
	EmailFromName = getEnvString("EMAIL_FROM_NAME", "Daily Mirror")

	// External API Keys and Endpoints
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	AssemblyAIAPIKey = getEnvString("ASSEMBLYAI_API_KEY", "")
	PushGatewayURL = getEnvString("PUSH_GATEWAY_URL", "")
	PushGatewayAPIKey = getEnvString("PUSH_GATEWAY_API_KEY", "")
	StyleAPIURL = getEnvString("STYLE_API_URL", "")
	StyleAPIKey = getEnvString("STYLE_API_KEY", "")
	WeatherAPIURL = getEnvString("WEATHER_API_URL", "")
	WeatherAPIKey = getEnvString("WEATHER_API_KEY", "")
}
