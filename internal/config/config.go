package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector backends understood by VECTOR_BACKEND.
const (
	BackendFile   = "file"
	BackendQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	RouterModelName    string
	LLMAPIKey          string
	LLMTimeout         time.Duration
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingDimension int

	DataDir  string
	IndexDir string
	DBPath   string

	VectorBackend          string
	QdrantURL              string
	QdrantCollectionPrefix string

	SchemaMatchThreshold float32
	MemoryMaxTurns       int
	PendingTTL           time.Duration
	RebuildOnStart       bool

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or a parent directory, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	llmBaseURL := getEnv("LLM_BASE_URL", "http://localhost:11434/v1")

	cfg := &Config{
		LLMBaseURL:             llmBaseURL,
		LLMModelName:           getEnv("LLM_MODEL", "llama3.1:8b"),
		RouterModelName:        getEnv("ROUTER_MODEL", "llama3"),
		LLMAPIKey:              getEnv("LLM_API_KEY", "ollama"),
		EmbeddingBaseURL:       getEnv("EMBEDDING_BASE_URL", llmBaseURL),
		EmbeddingModelName:     getEnv("EMBEDDING_MODEL_NAME", "all-minilm"),
		DataDir:                getEnv("DATA_DIR", "./data"),
		IndexDir:               getEnv("INDEX_DIR", "./faiss_indexes"),
		DBPath:                 getEnv("DB_PATH", "./data/ciq-assistant.db"),
		VectorBackend:          strings.ToLower(getEnv("VECTOR_BACKEND", BackendFile)),
		QdrantURL:              getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollectionPrefix: getEnv("QDRANT_COLLECTION_PREFIX", "ciq"),
		APIPort:                getEnv("API_PORT", "5000"),
		LogFormat:              strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	// EMBEDDING_DIMENSION must match the output size of the embeddings model.
	// all-minilm (all-MiniLM-L6-v2) produces 384-dimensional vectors.
	dimension, err := strconv.Atoi(getEnv("EMBEDDING_DIMENSION", "384"))
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION must be a valid integer: %w", err)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION must be greater than 0")
	}
	cfg.EmbeddingDimension = dimension

	timeout, err := time.ParseDuration(getEnv("LLM_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("LLM_TIMEOUT must be a valid duration: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT must be greater than 0")
	}
	cfg.LLMTimeout = timeout

	threshold, err := strconv.ParseFloat(getEnv("SCHEMA_MATCH_THRESHOLD", "0.7"), 32)
	if err != nil {
		return nil, fmt.Errorf("SCHEMA_MATCH_THRESHOLD must be a number: %w", err)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("SCHEMA_MATCH_THRESHOLD must be between 0 and 1")
	}
	cfg.SchemaMatchThreshold = float32(threshold)

	maxTurns, err := strconv.Atoi(getEnv("MEMORY_MAX_TURNS", "20"))
	if err != nil {
		return nil, fmt.Errorf("MEMORY_MAX_TURNS must be a valid integer: %w", err)
	}
	if maxTurns <= 0 {
		return nil, fmt.Errorf("MEMORY_MAX_TURNS must be greater than 0")
	}
	cfg.MemoryMaxTurns = maxTurns

	ttl, err := time.ParseDuration(getEnv("PENDING_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("PENDING_TTL must be a valid duration: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("PENDING_TTL must be greater than 0")
	}
	cfg.PendingTTL = ttl

	rebuild, err := strconv.ParseBool(getEnv("REBUILD_ON_START", "false"))
	if err != nil {
		return nil, fmt.Errorf("REBUILD_ON_START must be a boolean: %w", err)
	}
	cfg.RebuildOnStart = rebuild

	switch cfg.VectorBackend {
	case BackendFile, BackendQdrant:
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendFile, BackendQdrant, cfg.VectorBackend)
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	// Create the data directory for the database file
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.IndexDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	return cfg, nil
}

// FolderFor returns the source folder for a collection id.
func (c *Config) FolderFor(collection string) string {
	return filepath.Join(c.DataDir, Folders[collection])
}

// Folders maps collection ids to their source folder names under DataDir.
var Folders = map[string]string{
	"ciq":             "ciq_files",
	"standard_ciq":    "standard_ciq",
	"template":        "templates",
	"log":             "logs",
	"master_template": "master_templates",
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
