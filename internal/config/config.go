package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	StoreURL      string
	MigrationsDir string
	JWTSecret     string
	AccessTTL     time.Duration
	CORSOrigin    string
	BcryptCost    int
	// Gemini
	GeminiAPIKey string
	GeminiModel  string
	// SMTP Configuration
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	// ResetDevBypass returns reset codes in the API response when SMTP is
	// unset. Development only.
	ResetDevBypass bool
	// Redis holds revoked admin tokens; empty keeps them in memory.
	RedisURL string
	// MinIO attachment storage; empty endpoint disables uploads.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string
	// Archive and scheduled jobs
	ArchiveDir       string
	SnapshotSchedule string
	SweepSchedule    string
	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the environment, after loading a .env file from the working
// directory when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:          getenv("API_ADDR", ":8787"),
		StoreURL:      getenv("KB_STORE_URL", "sqlite://./data/sopdesk.db"),
		MigrationsDir: getenv("KB_MIGRATIONS_DIR", "./db/migrations"),
		JWTSecret:     getenv("KB_JWT_SECRET", "sopdesk-dev-secret"),
		AccessTTL:     time.Duration(getenvInt("KB_ACCESS_TTL_SECONDS", 8*3600)) * time.Second,
		CORSOrigin:    getenv("KB_CORS_ORIGIN", "*"),
		BcryptCost:    getenvInt("KB_BCRYPT_COST", 10),
		GeminiAPIKey:  getenv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		GeminiModel:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		// SMTP - empty by default, which disables password reset
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPFromName: getenv("SMTP_FROM_NAME", "Knowledge Base"),
		RedisURL:     getenv("REDIS_URL", ""),

		ResetDevBypass: getenvBool("KB_RESET_DEV_BYPASS", false),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "kb-attachments"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
		MinioPublicURL: getenv("MINIO_PUBLIC_URL", ""),

		ArchiveDir:       getenv("KB_ARCHIVE_DIR", "./data/archive"),
		SnapshotSchedule: getenv("KB_SNAPSHOT_SCHEDULE", "0 0 3 * * *"),
		SweepSchedule:    getenv("KB_SWEEP_SCHEDULE", "0 */5 * * * *"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
