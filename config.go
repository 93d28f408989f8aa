package refrance

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the file-based configuration of the ingestion and profiling
// commands. Every field maps onto an Options field; zero values fall back
// to the same defaults New applies.
type Config struct {
	Ingest  IngestConfig  `yaml:"ingest"`
	Profile ProfileConfig `yaml:"profile"`
	Logging LoggingConfig `yaml:"logging"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	DataDir     string `yaml:"dataDir"`
	OutputPath  string `yaml:"outputPath"`
	Suffix      string `yaml:"suffix"`
	ChunkSize   int    `yaml:"chunkSize"`
	YearColumn  string `yaml:"yearColumn"`
	Strict      bool   `yaml:"strict"`
	Concurrency int    `yaml:"concurrency"`
}

// ProfileConfig holds profiling report settings.
type ProfileConfig struct {
	InputPath  string `yaml:"inputPath"`
	ReportPath string `yaml:"reportPath"`
	SampleSize int    `yaml:"sampleSize"`
	TopK       int    `yaml:"topK"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads a YAML config file (if provided) and applies
// environment-variable overrides. Missing values keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultConfig returns a Config with the defaults used when no file or
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			DataDir:    "data",
			OutputPath: "data/all_years.parquet",
			Suffix:     DefaultPartitionSuffix,
			ChunkSize:  DefaultRowsPerChunk,
			YearColumn: DefaultYearColumn,
		},
		Profile: ProfileConfig{
			InputPath:  "data/all_years.parquet",
			SampleSize: 0,
			TopK:       10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// PipelineOptions converts the ingest section into pipeline Options.
func (c *Config) PipelineOptions() Options {
	return Options{
		DataDir:     c.Ingest.DataDir,
		OutputPath:  c.Ingest.OutputPath,
		Suffix:      c.Ingest.Suffix,
		ChunkSize:   c.Ingest.ChunkSize,
		YearColumn:  c.Ingest.YearColumn,
		Strict:      c.Ingest.Strict,
		Concurrency: c.Ingest.Concurrency,
	}
}

// applyEnvOverrides reads REFRANCE_* environment variables and overrides
// the corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REFRANCE_DATA_DIR"); v != "" {
		cfg.Ingest.DataDir = v
	}
	if v := os.Getenv("REFRANCE_OUTPUT_PATH"); v != "" {
		cfg.Ingest.OutputPath = v
	}
	if v := os.Getenv("REFRANCE_SUFFIX"); v != "" {
		cfg.Ingest.Suffix = v
	}
	if v := os.Getenv("REFRANCE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.ChunkSize = n
		}
	}
	if v := os.Getenv("REFRANCE_YEAR_COLUMN"); v != "" {
		cfg.Ingest.YearColumn = v
	}
	if v := os.Getenv("REFRANCE_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Ingest.Strict = b
		}
	}
	if v := os.Getenv("REFRANCE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REFRANCE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// NewLogger builds a structured logger from the logging section, writing
// to w. Unknown levels fall back to info, unknown formats to text.
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
