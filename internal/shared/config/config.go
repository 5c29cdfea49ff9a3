package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevUploadSigningSecret signs local upload grants when no secret is set.
const DevUploadSigningSecret = "dev-upload-secret"

var ErrDevUploadSecret = errors.New("UPLOAD_SIGNING_SECRET must be set outside dev")

// Config holds application configuration.
type Config struct {
	Port                string
	Env                 string
	CORSAllowOrigin     []string
	DatabaseURL         string
	RedisURL            string
	ObjectStoreType     string
	LocalStoreDir       string
	PublicBaseURL       string
	UploadSigningSecret string
	UploadGrantTTL      time.Duration
	AWSRegion           string
	S3Bucket            string
	S3Prefix            string
	MinioEndpoint       string
	MinioAccessKey      string
	MinioSecretKey      string
	MinioBucket         string
	MinioUseSSL         bool
	Extractor           string
	ExtractionURL       string
	ExtractionAPIKey    string
	OpenAIAPIKey        string
	LLMModel            string
	ExtractionWorkers   int
	JWTSecret           string
	DefaultDriverLimit  int
	DefaultCredits      int
	ReminderQueueURL    string
	ReminderInterval    time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 env,
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:         dbURL,
		RedisURL:            getEnv("REDIS_URL", ""),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data"),
		PublicBaseURL:       strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		UploadSigningSecret: getEnv("UPLOAD_SIGNING_SECRET", DevUploadSigningSecret),
		UploadGrantTTL:      getDuration("UPLOAD_GRANT_TTL", 15*time.Minute),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", "documents"),
		MinioEndpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:      getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:      getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:         getEnv("MINIO_BUCKET", "driver-documents"),
		MinioUseSSL:         getBool("MINIO_USE_SSL", false),
		Extractor:           normalizeExtractor(getEnv("EXTRACTOR", "none")),
		ExtractionURL:       getEnv("EXTRACTION_URL", ""),
		ExtractionAPIKey:    getEnv("EXTRACTION_API_KEY", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		LLMModel:            getEnv("LLM_MODEL", "gpt-4o-mini"),
		ExtractionWorkers:   getInt("EXTRACTION_CONCURRENCY", 4),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		DefaultDriverLimit:  getInt("DEFAULT_DRIVER_LIMIT", 25),
		DefaultCredits:      getInt("DEFAULT_CREDITS", 0),
		ReminderQueueURL:    getEnv("REMINDER_QUEUE_URL", ""),
		ReminderInterval:    getDuration("REMINDER_INTERVAL", time.Hour),
	}
}

// Validate rejects settings that are only safe for local development.
func (c Config) Validate() error {
	if !c.IsDevLike() && (c.UploadSigningSecret == "" || c.UploadSigningSecret == DevUploadSigningSecret) {
		return ErrDevUploadSecret
	}
	return nil
}

// IsDevLike reports whether the environment tolerates in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getBool(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeExtractor(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "http":
		return "http"
	case "openai":
		return "openai"
	default:
		return "none"
	}
}
