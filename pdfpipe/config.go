package pdfpipe

import (
	"log/slog"
	"runtime"
)

const mb = 1 << 20

// Tunables. Exposed as named defaults; every one of them can be overridden
// per Pipeline through Config.
const (
	// DefaultChunkThreshold is the effective accept bound: a range whose
	// trial serialization stays at or under this size is never split
	// further. Looser than the target so marginally-large ranges are not
	// oversplit.
	DefaultChunkThreshold int64 = 50 * mb

	// DefaultChunkTarget is the desired chunk size. Ranges at or under the
	// target are accepted immediately without consulting the threshold.
	DefaultChunkTarget int64 = 20 * mb

	// DefaultMinPages is the page-count floor: ranges with this many pages
	// or fewer are never split.
	DefaultMinPages = 50

	// DefaultFirstPassStep is the page step of the initial coarse partition.
	DefaultFirstPassStep = 20

	// DefaultOCRResolution is the render resolution (DPI) for OCR fallback.
	DefaultOCRResolution = 300
)

// DefaultOCRLanguages is the fixed multilingual candidate set handed to the
// OCR engine when none is configured.
var DefaultOCRLanguages = []string{"eng", "deu", "fra", "ita", "spa", "por", "nld"}

// Config configures a Pipeline.
type Config struct {
	// ChunkThreshold is the accept bound for the size-aware splitter.
	ChunkThreshold int64 `json:"chunk_threshold" yaml:"chunk_threshold"`

	// ChunkTarget is the desired maximum chunk size.
	ChunkTarget int64 `json:"chunk_target" yaml:"chunk_target"`

	// MinPages is the page-count floor below which ranges are never split.
	MinPages int `json:"min_pages" yaml:"min_pages"`

	// FirstPassStep is the page step of the initial coarse partition.
	FirstPassStep int `json:"first_pass_step" yaml:"first_pass_step"`

	// OCRResolution is the page render resolution in DPI for OCR fallback.
	OCRResolution int `json:"ocr_resolution" yaml:"ocr_resolution"`

	// OCRLanguages is the language candidate set for text recognition.
	OCRLanguages []string `json:"ocr_languages" yaml:"ocr_languages"`

	// Workers bounds the extraction pool (default: runtime.NumCPU).
	Workers int `json:"workers" yaml:"workers"`

	// OCR overrides the recognition engine. Default: Tesseract.
	OCR OCREngine `json:"-" yaml:"-"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.ChunkThreshold <= 0 {
		c.ChunkThreshold = DefaultChunkThreshold
	}
	if c.ChunkTarget <= 0 {
		c.ChunkTarget = DefaultChunkTarget
	}
	if c.MinPages <= 0 {
		c.MinPages = DefaultMinPages
	}
	if c.FirstPassStep <= 0 {
		c.FirstPassStep = DefaultFirstPassStep
	}
	if c.OCRResolution <= 0 {
		c.OCRResolution = DefaultOCRResolution
	}
	if len(c.OCRLanguages) == 0 {
		c.OCRLanguages = DefaultOCRLanguages
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.OCR == nil {
		c.OCR = &TesseractEngine{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pipeline is the PDF conversion engine.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}
