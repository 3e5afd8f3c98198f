package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/mdpress/pdfpipe"
)

// Config is the top-level mdpress service configuration.
type Config struct {
	Listen         string         `yaml:"listen"`
	AuditDB        string         `yaml:"audit_db"`
	APIKeyHashes   []string       `yaml:"api_key_hashes"` // bcrypt hashes; empty disables auth
	MaxUploadMB    int64          `yaml:"max_upload_mb"`
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	PandocPath     string         `yaml:"pandoc_path"`
	Pipeline       PipelineConfig `yaml:"pipeline"`
}

// PipelineConfig exposes the PDF pipeline knobs in the config file.
type PipelineConfig struct {
	ChunkThresholdMB int64    `yaml:"chunk_threshold_mb"`
	ChunkTargetMB    int64    `yaml:"chunk_target_mb"`
	MinPages         int      `yaml:"min_pages"`
	FirstPassStep    int      `yaml:"first_pass_step"`
	OCRResolution    int      `yaml:"ocr_resolution"`
	OCRLanguages     []string `yaml:"ocr_languages"`
	Workers          int      `yaml:"workers"`
}

// loadConfig reads a YAML configuration file. An empty path yields defaults.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8086"
	}
	if c.AuditDB == "" {
		c.AuditDB = "db/conversions.db"
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 100
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Minute
	}
}

// pipelineConfig maps the file knobs onto a pdfpipe.Config; zero values keep
// the pipeline defaults.
func (c *Config) pipelineConfig(logger *slog.Logger) pdfpipe.Config {
	p := c.Pipeline
	return pdfpipe.Config{
		ChunkThreshold: p.ChunkThresholdMB << 20,
		ChunkTarget:    p.ChunkTargetMB << 20,
		MinPages:       p.MinPages,
		FirstPassStep:  p.FirstPassStep,
		OCRResolution:  p.OCRResolution,
		OCRLanguages:   p.OCRLanguages,
		Workers:        p.Workers,
		Logger:         logger,
	}
}
