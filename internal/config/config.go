package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr            string
	UpstreamURL     string
	UpstreamTimeout time.Duration
	CORSOrigin      string
	TaxonomyTTL     time.Duration
	MeiliURL        string
	MeiliMasterKey  string
	// MinIO Configuration
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	// SMTP Configuration
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	// Redis Configuration
	RedisURL string
}

func Load() Config {
	return Config{
		Addr:            getenv("API_ADDR", ":8686"),
		UpstreamURL:     getenv("LEXHUB_UPSTREAM_URL", "http://localhost:3000/api"),
		UpstreamTimeout: time.Duration(getenvInt("LEXHUB_UPSTREAM_TIMEOUT_SECONDS", 15)) * time.Second,
		CORSOrigin:      getenv("LEXHUB_CORS_ORIGIN", "*"),
		TaxonomyTTL:     time.Duration(getenvInt("LEXHUB_TAXONOMY_TTL_SECONDS", 300)) * time.Second,
		MeiliURL:        getenv("MEILI_URL", ""),
		MeiliMasterKey:  getenv("MEILI_MASTER_KEY", ""),
		// MinIO - empty by default, export artifact storage disabled if not configured
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "lexhub-exports"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",
		// SMTP - empty by default, notification email disabled if not configured
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPFromName: getenv("SMTP_FROM_NAME", "LexHub"),
		// Redis - bookmarks and taxonomy cache
		RedisURL: getenv("REDIS_URL", "redis://localhost:6379/0"),
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
