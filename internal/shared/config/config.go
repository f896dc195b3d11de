package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DatabaseURL string
	Port        string
	Env         string
	LogLevel    string
	LogFile     string

	// LLM & embeddings
	OpenAIKey           string
	LLMAPIKey           string
	LLMProvider         string
	LLMBaseURL          string
	LLMModel            string
	EmbeddingModel      string
	EmbeddingDimensions int

	// Meta Messenger
	MetaPageAccessToken string
	MetaVerifyToken     string
	MetaAppSecret       string
	MetaGraphAPIVersion string

	// Vector index
	VectorBackend     string
	VectorDataDir     string
	QdrantHost        string
	QdrantPort        int
	QdrantCollection  string
	KnowledgeBaseFile string

	// Conversation state
	StateStore            string
	RedisURL              string
	SessionTimeoutMinutes int
	SessionSweepSchedule  string
	MessageRetentionDays  int
	RetentionSchedule     string

	// Turn processing
	WebhookConcurrency int
	TurnTimeout        time.Duration
	ExternalTimeout    time.Duration
	WebhookRateLimit   int

	// WhatsApp
	WhatsAppEnabled  bool
	WhatsAppStoreURL string

	AdminAPIKey string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        os.Getenv("PORT"),
		Env:         os.Getenv("ENV"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		LogFile:     os.Getenv("LOG_FILE"),

		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		LLMAPIKey:           os.Getenv("LLM_API_KEY"),
		LLMProvider:         strings.ToLower(os.Getenv("LLM_PROVIDER")),
		LLMBaseURL:          os.Getenv("LLM_BASE_URL"),
		LLMModel:            os.Getenv("LLM_MODEL"),
		EmbeddingModel:      os.Getenv("EMBEDDING_MODEL"),
		EmbeddingDimensions: getInt("EMBEDDING_DIMENSIONS", 1536),

		MetaPageAccessToken: os.Getenv("META_PAGE_ACCESS_TOKEN"),
		MetaVerifyToken:     os.Getenv("META_VERIFY_TOKEN"),
		MetaAppSecret:       os.Getenv("META_APP_SECRET"),
		MetaGraphAPIVersion: os.Getenv("META_GRAPH_API_VERSION"),

		VectorBackend:     strings.ToLower(os.Getenv("VECTOR_BACKEND")),
		VectorDataDir:     os.Getenv("VECTOR_DATA_DIR"),
		QdrantHost:        os.Getenv("QDRANT_HOST"),
		QdrantPort:        getInt("QDRANT_PORT", 6334),
		QdrantCollection:  os.Getenv("QDRANT_COLLECTION"),
		KnowledgeBaseFile: os.Getenv("KNOWLEDGE_BASE_FILE"),

		StateStore:            strings.ToLower(os.Getenv("STATE_STORE")),
		RedisURL:              os.Getenv("REDIS_URL"),
		SessionTimeoutMinutes: getInt("SESSION_TIMEOUT_MINUTES", 30),
		SessionSweepSchedule:  os.Getenv("SESSION_SWEEP_SCHEDULE"),
		MessageRetentionDays:  getInt("MESSAGE_RETENTION_DAYS", 30),
		RetentionSchedule:     os.Getenv("RETENTION_SCHEDULE"),

		WebhookConcurrency: getInt("WEBHOOK_CONCURRENCY", 8),
		TurnTimeout:        time.Duration(getInt("TURN_TIMEOUT_SECONDS", 30)) * time.Second,
		ExternalTimeout:    time.Duration(getInt("EXTERNAL_TIMEOUT_SECONDS", 10)) * time.Second,
		WebhookRateLimit:   getInt("WEBHOOK_RATE_LIMIT", 100),

		WhatsAppEnabled:  getBool("WHATSAPP_ENABLED", false),
		WhatsAppStoreURL: os.Getenv("WHATSAPP_STORE_URL"),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "openai"
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = cfg.OpenAIKey
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.MetaGraphAPIVersion == "" {
		cfg.MetaGraphAPIVersion = "v18.0"
	}
	if cfg.VectorBackend == "" {
		cfg.VectorBackend = "hnsw"
	}
	if cfg.VectorDataDir == "" {
		cfg.VectorDataDir = "data/vectordb"
	}
	if cfg.QdrantHost == "" {
		cfg.QdrantHost = "localhost"
	}
	if cfg.QdrantCollection == "" {
		cfg.QdrantCollection = "knowledge_base"
	}
	if cfg.StateStore == "" {
		cfg.StateStore = "postgres"
	}
	if cfg.SessionSweepSchedule == "" {
		cfg.SessionSweepSchedule = "0 */5 * * * *"
	}
	if cfg.RetentionSchedule == "" {
		cfg.RetentionSchedule = "0 0 3 * * *"
	}
	if cfg.WhatsAppStoreURL == "" {
		// Default to main database if not specified
		cfg.WhatsAppStoreURL = cfg.DatabaseURL
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("⚠️ invalid integer, using default")
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
