package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	BOQDAPIKey string

	// OpenAI extraction
	OpenAIAPIKey string
	OpenAIModel  string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentParse int

	// Upload limits
	MaxUploadBytes int64
	MaxFilesPerJob int

	// Chunking defaults
	DefaultChunkSize    int
	DefaultChunkOverlap int

	// Classification
	ClassifierMinConfidence float64
	CategoryCatalogPath     string

	// Assembly
	SimilarityThreshold float64
	ContingencyPercent  float64
	SectionCatalogPath  string

	// Output
	TemplatePath string

	// Job state
	JobTTL time.Duration

	// Parsing
	MinPageTextChars     int
	OCREnabled           bool
	OCRLanguage          string
	OCRDPI               int
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		BOQDAPIKey: os.Getenv("BOQD_API_KEY"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  envOr("OPENAI_MODEL", "gpt-4o"),

		WorkerCount:        envInt("WORKER_COUNT", 4),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentParse: envInt("MAX_CONCURRENT_PARSE", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 104857600), // 100MB
		MaxFilesPerJob: envInt("MAX_FILES_PER_JOB", 20),

		DefaultChunkSize:    envInt("DEFAULT_CHUNK_SIZE", 4000),
		DefaultChunkOverlap: envInt("DEFAULT_CHUNK_OVERLAP", 200),

		ClassifierMinConfidence: envFloat("CLASSIFIER_MIN_CONFIDENCE", 0.3),
		CategoryCatalogPath:     os.Getenv("CATEGORY_CATALOG_PATH"),

		SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 0.85),
		ContingencyPercent:  envFloat("CONTINGENCY_PERCENT", 5.0),
		SectionCatalogPath:  os.Getenv("SECTION_CATALOG_PATH"),

		TemplatePath: os.Getenv("TEMPLATE_PATH"),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		MinPageTextChars:     envInt("MIN_PAGE_TEXT_CHARS", 50),
		OCREnabled:           envBool("OCR_ENABLED", true),
		OCRLanguage:          envOr("OCR_LANGUAGE", "eng"),
		OCRDPI:               envInt("OCR_DPI", 300),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentParse <= 0 {
		cfg.MaxConcurrentParse = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 104857600
	}
	if cfg.MaxFilesPerJob <= 0 {
		cfg.MaxFilesPerJob = 20
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 4000
	}
	if cfg.DefaultChunkOverlap < 0 {
		cfg.DefaultChunkOverlap = 200
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = 0.85
	}
	if cfg.ClassifierMinConfidence < 0 || cfg.ClassifierMinConfidence > 1 {
		cfg.ClassifierMinConfidence = 0.3
	}
	if cfg.ContingencyPercent < 0 {
		cfg.ContingencyPercent = 5.0
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.BOQDAPIKey == "" {
		return fmt.Errorf("BOQD_API_KEY is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.DefaultChunkOverlap >= c.DefaultChunkSize {
		return fmt.Errorf("DEFAULT_CHUNK_OVERLAP must be smaller than DEFAULT_CHUNK_SIZE")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
