// Entry point for the mdpress HTTP service: document → Markdown conversion
// with chi routing, bcrypt API keys, SQLite audit log and optional MCP stdio
// transport.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/mdpress/convlog"
	"github.com/hazyhaar/mdpress/htmlpipe"
	"github.com/hazyhaar/mdpress/pdfpipe"
	"github.com/hazyhaar/mdpress/wordpipe"
)

var errUnsupportedType = errors.New("unsupported file type, supported: .pdf, .doc, .docx, .html, .htm")

type server struct {
	cfg   *Config
	pdf   *pdfpipe.Pipeline
	word  *wordpipe.Converter
	html  *htmlpipe.Converter
	audit *convlog.Store
}

func main() {
	logLevel := env("LOG_LEVEL", "info")
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	mcpTransport := env("MCP_TRANSPORT", "")
	logOut := io.Writer(os.Stdout)
	if mcpTransport == "stdio" {
		// stdout belongs to the MCP transport.
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(env("CONFIG_FILE", ""))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	if v := env("LISTEN", ""); v != "" {
		cfg.Listen = v
	}
	if v := env("AUDIT_DB", ""); v != "" {
		cfg.AuditDB = v
	}
	if v := env("PANDOC_PATH", ""); v != "" {
		cfg.PandocPath = v
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pipe := pdfpipe.New(cfg.pipelineConfig(logger))

	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "mdpress",
			Version: "1.0.0",
		}, nil)
		pipe.RegisterMCP(mcpSrv)
		slog.Info("MCP stdio serving")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	audit, err := convlog.Open(cfg.AuditDB, logger)
	if err != nil {
		slog.Error("audit db", "error", err)
		os.Exit(1)
	}
	defer audit.Close()

	s := &server{
		cfg:   cfg,
		pdf:   pipe,
		word:  wordpipe.New(wordpipe.Config{PandocPath: cfg.PandocPath, Logger: logger}),
		html:  htmlpipe.New(htmlpipe.Config{Logger: logger}),
		audit: audit,
	}

	r := chi.NewRouter()
	r.Use(maxBody(cfg.MaxUploadMB << 20))
	r.Use(apiKeyAuth(cfg.APIKeyHashes))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{
			"status":            "ok",
			"supported_formats": []string{".pdf", ".doc", ".docx", ".html", ".htm"},
		})
	})
	r.Get("/conversions", s.handleRecent)
	r.Post("/extract", s.handleExtract)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// handleExtract accepts a multipart upload (field "file", optional boolean
// field "chunkable", default true) and responds with the conversion ZIP.
func (s *server) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, 400, fmt.Errorf("parse upload: %w", err))
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, 400, errors.New("missing file field"))
		return
	}
	defer file.Close()
	if hdr.Filename == "" {
		writeError(w, 400, errors.New("filename is required"))
		return
	}

	chunkable := true
	if v := r.FormValue("chunkable"); v != "" {
		chunkable, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, 400, fmt.Errorf("chunkable: %w", err))
			return
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, 400, fmt.Errorf("read upload: %w", err))
		return
	}

	start := time.Now()
	archive, entry, err := s.convert(ctx, hdr.Filename, data, chunkable)
	entry.Filename = hdr.Filename
	entry.Duration = time.Since(start)
	if err != nil {
		entry.Status = convlog.StatusError
		entry.Error = err.Error()
		s.audit.RecordAsync(entry)
		code := 500
		if errors.Is(err, errUnsupportedType) {
			code = 400
		}
		slog.Error("conversion failed", "file", hdr.Filename, "error", err)
		writeError(w, code, err)
		return
	}
	s.audit.RecordAsync(entry)
	slog.Info("conversion done", "file", hdr.Filename, "kind", entry.Kind,
		"pages", entry.Pages, "chunks", entry.Chunks, "duration", entry.Duration)

	stem := strings.TrimSuffix(hdr.Filename, filepath.Ext(hdr.Filename))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", contentDisposition(stem))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.Write(archive)
}

// convert dispatches by file extension and returns the archive bytes plus a
// partially-filled audit entry.
func (s *server) convert(ctx context.Context, filename string, data []byte, chunkable bool) ([]byte, *convlog.Entry, error) {
	switch {
	case strings.EqualFold(filepath.Ext(filename), ".pdf"):
		return s.convertPDF(ctx, data, chunkable)
	case wordpipe.IsWordFile(filename):
		out, err := s.word.Convert(ctx, filename, data)
		return out, &convlog.Entry{Kind: "word"}, err
	case htmlpipe.IsHTMLFile(filename):
		out, err := s.html.Convert(ctx, filename, data)
		return out, &convlog.Entry{Kind: "html"}, err
	default:
		return nil, &convlog.Entry{Kind: "unknown"}, errUnsupportedType
	}
}

func (s *server) convertPDF(ctx context.Context, data []byte, chunkable bool) ([]byte, *convlog.Entry, error) {
	entry := &convlog.Entry{Kind: "pdf"}

	outDir, err := os.MkdirTemp("", "mdpress-*")
	if err != nil {
		return nil, entry, err
	}
	defer os.RemoveAll(outDir)

	res, err := s.pdf.Process(ctx, data, chunkable, outDir)
	if err != nil {
		return nil, entry, err
	}
	entry.Pages = res.Pages
	entry.Chunks = res.Chunks
	entry.OCRPages = res.OCRPages
	entry.ImageCount = len(res.Images)

	var buf bytes.Buffer
	if err := pdfpipe.BuildArchive(&buf, outDir); err != nil {
		return nil, entry, err
	}
	return buf.Bytes(), entry, nil
}

func (s *server) handleRecent(w http.ResponseWriter, r *http.Request) {
	entries, err := s.audit.Recent(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, entries)
}

// --- Middleware ---

// maxBody caps the request body size; oversize uploads fail inside
// ParseMultipartForm with a 400 instead of filling the disk.
func maxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// apiKeyAuth enforces a bearer API key against the configured bcrypt hashes.
// No hashes configured means auth is disabled. /health stays public.
func apiKeyAuth(hashes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hashes) == 0 || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if key == "" {
				writeError(w, 401, errors.New("missing API key"))
				return
			}
			for _, h := range hashes {
				if bcrypt.CompareHashAndPassword([]byte(h), []byte(key)) == nil {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, 401, errors.New("invalid API key"))
		})
	}
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
