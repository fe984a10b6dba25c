package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // sqlite | postgres
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string `yaml:"grpc_addr"`
	HTTPAddr       string `yaml:"http_addr"`
	PublicBaseURL  string `yaml:"public_base_url"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	UploadDir      string `yaml:"upload_dir"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	PdftoppmBin  string `yaml:"pdftoppm_bin"`
	TesseractBin string `yaml:"tesseract_bin"`
	Language     string `yaml:"language"`
	DPI          int    `yaml:"dpi"`
	PSM          int    `yaml:"psm"`
	MaxPages     int    `yaml:"max_pages"`
	TessdataDir  string `yaml:"tessdata_dir"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // openai | gemini | none
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// IngestConfig holds drop-folder and worker configuration
type IngestConfig struct {
	Dir            string        `yaml:"dir"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
	Debounce       time.Duration `yaml:"debounce"`
	Summarize      bool          `yaml:"summarize"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:blotter.db?_pragma=foreign_keys(1)",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr:       ":8080",
			HTTPAddr:       ":8081",
			PublicBaseURL:  "http://localhost:8081",
			MaxUploadBytes: 32 << 20,
			UploadDir:      "./uploads",
		},
		OCR: OCRConfig{
			PdftoppmBin:  "pdftoppm",
			TesseractBin: "tesseract",
			Language:     "eng",
			DPI:          200,
			PSM:          6,
			MaxPages:     50,
		},
		LLM: LLMConfig{
			Provider:    "none",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			Timeout:     45 * time.Second,
		},
		Ingest: IngestConfig{
			Dir:            "./inbox",
			Workers:        2,
			QueueSize:      64,
			ProcessTimeout: 2 * time.Minute,
			Debounce:       500 * time.Millisecond,
			Summarize:      true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig loads configuration: defaults, then .env, then the optional YAML file
// named by BLOTTER_CONFIG, then environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewAppError("CONFIG_ERROR", "failed to load .env", err)
	}

	cfg := DefaultConfig()
	if path := os.Getenv("BLOTTER_CONFIG"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("read %s", path), err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.Server.PublicBaseURL)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.UploadDir = getEnv("UPLOAD_DIR", c.Server.UploadDir)

	c.OCR.PdftoppmBin = getEnv("PDFTOPPM_BIN", c.OCR.PdftoppmBin)
	c.OCR.TesseractBin = getEnv("TESSERACT_BIN", c.OCR.TesseractBin)
	c.OCR.Language = getEnv("OCR_LANGUAGE", c.OCR.Language)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.PSM = getEnvAsInt("OCR_PSM", c.OCR.PSM)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.Ingest.Dir = getEnv("BLOTTER_INBOX", c.Ingest.Dir)
	c.Ingest.Workers = getEnvAsInt("BLOTTER_WORKERS", c.Ingest.Workers)
	c.Ingest.QueueSize = getEnvAsInt("BLOTTER_QUEUE_SIZE", c.Ingest.QueueSize)
	c.Ingest.ProcessTimeout = getEnvAsDuration("BLOTTER_PROCESS_TIMEOUT", c.Ingest.ProcessTimeout)
	c.Ingest.Debounce = getEnvAsDuration("BLOTTER_DEBOUNCE", c.Ingest.Debounce)
	c.Ingest.Summarize = getEnvAsBool("BLOTTER_SUMMARIZE", c.Ingest.Summarize)

	c.Log.Level = getEnv("BLOTTER_LOG_LEVEL", c.Log.Level)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_DRIVER %q is not supported", c.Database.Driver), ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "none":
	case "openai", "gemini":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("LLM_PROVIDER %q is not supported", c.LLM.Provider), ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR or HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Ingest.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "BLOTTER_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
