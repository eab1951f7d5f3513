package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "CTASTATS_CONFIG"
	sourceKindEnv = "CTASTATS_SOURCE"
	sourceURLEnv  = "CTA_URL"
	sourceFileEnv = "CTA_FILE"
	timeoutEnv    = "CTA_TIMEOUT_SECONDS"
	databaseEnv   = "CTASTATS_DB"
	logLevelEnv   = "CTASTATS_LOG_LEVEL"
	addrEnv       = "CTASTATS_ADDR"
	countryEnv    = "CTASTATS_COUNTRY"
	outputDirEnv  = "CTASTATS_OUT"
)

const (
	SourceHTTP = "http"
	SourceFile = "file"
	SourceDB   = "db"
)

// Config holds settings shared by the collector and the publisher.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SourceConfig selects where the workbook comes from.
type SourceConfig struct {
	Kind           string `yaml:"kind"`
	URL            string `yaml:"url"`
	File           string `yaml:"file"`
	Sheet          string `yaml:"sheet"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	UserAgent      string `yaml:"userAgent"`
}

type PipelineConfig struct {
	GroupBy     string `yaml:"groupBy"`
	Country     string `yaml:"country"`
	RowsPerPage int    `yaml:"rowsPerPage"`
	DatePolicy  string `yaml:"datePolicy"`
}

// StoreConfig points at the SQLite snapshot database. Empty disables
// persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

type OutputConfig struct {
	Dir               string  `yaml:"dir"`
	Charts            bool    `yaml:"charts"`
	ChartWidthInches  float64 `yaml:"chartWidthInches"`
	ChartHeightInches float64 `yaml:"chartHeightInches"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $CTASTATS_CONFIG when path is empty), then environment overrides.
// A file that cannot be read or parsed is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Kind:           SourceHTTP,
			URL:            "https://sciencebasedtargets.org/download/excel",
			TimeoutSeconds: 60,
			UserAgent:      "ctastats/0.1",
		},
		Pipeline: PipelineConfig{
			GroupBy:    "country",
			Country:    "Sweden",
			DatePolicy: "strict",
		},
		Store: StoreConfig{Path: "ctastats.db"},
		Output: OutputConfig{
			Dir:               "site/data",
			Charts:            true,
			ChartWidthInches:  10,
			ChartHeightInches: 6,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func (c Config) Validate() error {
	switch c.Source.Kind {
	case SourceHTTP, SourceFile, SourceDB:
	default:
		return fmt.Errorf("config: unknown source kind %q", c.Source.Kind)
	}
	if c.Source.Kind == SourceFile && strings.TrimSpace(c.Source.File) == "" {
		return errors.New("config: source.file is required for file source")
	}
	if c.Source.Kind == SourceDB && strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("config: store.path is required for db source")
	}
	if c.Pipeline.RowsPerPage < 0 {
		return fmt.Errorf("config: pipeline.rowsPerPage must not be negative: %d", c.Pipeline.RowsPerPage)
	}
	return nil
}

func decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(sourceKindEnv); v != "" {
		c.Source.Kind = strings.ToLower(v)
	}
	if v := os.Getenv(sourceURLEnv); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv(sourceFileEnv); v != "" {
		c.Source.File = v
	}
	if v := os.Getenv(timeoutEnv); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", timeoutEnv, err)
		}
		c.Source.TimeoutSeconds = seconds
	}
	if v := os.Getenv(databaseEnv); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(addrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(countryEnv); v != "" {
		c.Pipeline.Country = v
	}
	if v := os.Getenv(outputDirEnv); v != "" {
		c.Output.Dir = v
	}
	return nil
}

// fillDefaults restores defaults for fields a config file blanked out.
func (c *Config) fillDefaults() {
	def := Default()
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	if c.Source.Kind == "" {
		c.Source.Kind = def.Source.Kind
	}
	if c.Source.URL == "" {
		c.Source.URL = def.Source.URL
	}
	if c.Source.TimeoutSeconds <= 0 {
		c.Source.TimeoutSeconds = def.Source.TimeoutSeconds
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = def.Source.UserAgent
	}
	if c.Pipeline.GroupBy == "" {
		c.Pipeline.GroupBy = def.Pipeline.GroupBy
	}
	if c.Pipeline.DatePolicy == "" {
		c.Pipeline.DatePolicy = def.Pipeline.DatePolicy
	}
	if c.Output.Dir == "" {
		c.Output.Dir = def.Output.Dir
	}
	if c.Output.ChartWidthInches <= 0 {
		c.Output.ChartWidthInches = def.Output.ChartWidthInches
	}
	if c.Output.ChartHeightInches <= 0 {
		c.Output.ChartHeightInches = def.Output.ChartHeightInches
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}
