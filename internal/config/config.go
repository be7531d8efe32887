package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string
	GeminiConcurrentReqs int

	// Storage
	StoragePath string
	MaxUploadMB int

	// Retrieval
	ChunkSize        int
	ChunkOverlap     int
	RetrievalK       int
	RetrievalFetchK  int
	RetrievalLambda  float64
	ChatHistoryTurns int

	// Workers
	WorkerCount int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "5000"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiEmbeddingModel: getEnvOrDefault("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		StoragePath:          getEnvOrDefault("STORAGE_PATH", "./uploads"),
		MaxUploadMB:          getEnvAsIntOrDefault("MAX_UPLOAD_MB", 100),
		ChunkSize:            getEnvAsIntOrDefault("CHUNK_SIZE", 1024),
		ChunkOverlap:         getEnvAsIntOrDefault("CHUNK_OVERLAP", 64),
		RetrievalK:           getEnvAsIntOrDefault("RETRIEVAL_K", 6),
		RetrievalFetchK:      getEnvAsIntOrDefault("RETRIEVAL_FETCH_K", 20),
		RetrievalLambda:      getEnvAsFloatOrDefault("RETRIEVAL_LAMBDA", 0.25),
		ChatHistoryTurns:     getEnvAsIntOrDefault("CHAT_HISTORY_TURNS", 10),
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 2),
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		panic(fmt.Sprintf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize))
	}

	return cfg
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}
