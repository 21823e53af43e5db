package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth; empty disables bearer auth on /api/*
	APIKey string

	// Upload limits
	MaxUploadBytes int64
	MaxPages       int

	// Page extraction
	DefaultMode          string
	PDFFallbackPdftotext bool
	PdftotextBin         string
	PdftoppmBin          string
	TesseractBin         string
	OCRLang              string
	OCRDPI               int
	OCRTimeout           time.Duration

	// Optional YAML override of the embedded field table
	SchemaFile string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Job state and stats
	JobTTL      time.Duration
	StatsWindow time.Duration

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("PAYRECON_API_KEY"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		MaxPages:       envInt("MAX_PAGES", 200),

		DefaultMode:          strings.ToLower(envOr("DEFAULT_MODE", "auto")),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		PdftotextBin:         envOr("PDFTOTEXT_BIN", "pdftotext"),
		PdftoppmBin:          envOr("PDFTOPPM_BIN", "pdftoppm"),
		TesseractBin:         envOr("TESSERACT_BIN", "tesseract"),
		OCRLang:              envOr("OCR_LANG", "fra"),
		OCRDPI:               envInt("OCR_DPI", 300),
		OCRTimeout:           envDuration("OCR_TIMEOUT", 5*time.Minute),

		SchemaFile: os.Getenv("SCHEMA_FILE"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),

		JobTTL:      envDuration("JOB_TTL", 1*time.Hour),
		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),

		LogLevel:      strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: envInt("LOG_MAX_BACKUPS", 3),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	if cfg.OCRDPI <= 0 {
		cfg.OCRDPI = 300
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = 5 * time.Minute
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}
	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = 100
	}
	if cfg.LogMaxBackups < 0 {
		cfg.LogMaxBackups = 3
	}

	return cfg
}

func (c Config) Validate() error {
	switch c.DefaultMode {
	case "auto", "text", "ocr":
	default:
		return fmt.Errorf("DEFAULT_MODE must be auto, text or ocr, got %q", c.DefaultMode)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.SchemaFile != "" {
		if _, err := os.Stat(c.SchemaFile); err != nil {
			return fmt.Errorf("SCHEMA_FILE: %w", err)
		}
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
