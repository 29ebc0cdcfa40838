package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the client settings resolved from the environment.
type Config struct {
	APIURL     string
	AuthScheme string
	Token      string
	UserID     int
	Username   string

	HTTPTimeout    time.Duration
	SearchDebounce time.Duration

	ProfileDir     string
	StorageDriver  string
	StorageDSN     string
	MaxAttachBytes int64

	UploadURL    string
	UploadKey    string
	UploadBucket string

	MetricsAddr  string
	OTLPEndpoint string
	AMQPURL      string
	AMQPExchange string

	LogLevel  string
	LogFormat string
}

// LoadEnvFile loads a dotenv file if present. Missing files are not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads the configuration for the given profile.
func Load(profile string) Config {
	if profile == "" {
		profile = "default"
	}
	profileDir := getEnv("CHAT_PROFILE_DIR", defaultProfileDir(profile))

	return Config{
		APIURL:     getEnv("CHAT_API_URL", "https://instaclone-oise.onrender.com/api"),
		AuthScheme: getEnv("CHAT_AUTH_SCHEME", "Token"),
		Token:      os.Getenv("CHAT_TOKEN"),
		UserID:     getInt("CHAT_USER_ID", 0),
		Username:   os.Getenv("CHAT_USERNAME"),

		HTTPTimeout:    getDuration("CHAT_HTTP_TIMEOUT", 30*time.Second),
		SearchDebounce: getDuration("CHAT_SEARCH_DEBOUNCE", 300*time.Millisecond),

		ProfileDir:     profileDir,
		StorageDriver:  getEnv("CHAT_STORAGE_DRIVER", "sqlite3"),
		StorageDSN:     getEnv("CHAT_STORAGE_DSN", filepath.Join(profileDir, "storage.db")),
		MaxAttachBytes: int64(getInt("CHAT_MAX_ATTACHMENT_BYTES", 10<<20)),

		UploadURL:    os.Getenv("CHAT_UPLOAD_URL"),
		UploadKey:    os.Getenv("CHAT_UPLOAD_KEY"),
		UploadBucket: getEnv("CHAT_UPLOAD_BUCKET", "avatar"),

		MetricsAddr:  os.Getenv("CHAT_METRICS_ADDR"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "chat.client"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

func defaultProfileDir(profile string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".chat-client", profile)
	}
	return filepath.Join(home, ".config", "chat-client", profile)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
