// Package logging provides structured logging for the signup client.
//
// Logs are written with slog as text or JSON. The page is drawn on stdout, so
// logs go to stderr unless another output is configured. An optional
// LogCollector keeps recent warnings and errors for the diagnostics view.
//
//	diagnostics := logging.NewLogCollector(0)
//	logger, err := logging.New(logging.Config{Output: "signup.log"},
//		logging.WithCollector(diagnostics))
//	if err != nil {
//		return err
//	}
//	defer logger.Close()
//	logger.Info("activities loaded", "count", 9)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"
)

// Config holds the configuration for the logger.
type Config struct {
	// Level is one of debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`
	// Format is json or text. Defaults to text.
	Format string `yaml:"format"`
	// Output is stdout, stderr or a file path, which is appended to. Defaults to stderr.
	Output string `yaml:"output"`
	// AddSource adds the source position to each record.
	AddSource bool `yaml:"add_source"`
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var formats = map[string]func(io.Writer, *slog.HandlerOptions) slog.Handler{
	"json": func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewJSONHandler(w, o) },
	"text": func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, o) },
}

// Logger is a slog.Logger that owns its output.
type Logger struct {
	*slog.Logger
	config Config
	closer io.Closer
}

type options struct {
	collector *LogCollector
	writer    io.Writer
}

// Option configures New.
type Option func(*options)

// WithCollector tees warn and error records into collector.
func WithCollector(collector *LogCollector) Option {
	return func(o *options) {
		o.collector = collector
	}
}

// WithWriter overrides the configured output destination.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// New creates a logger from cfg.
func New(cfg Config, opts ...Option) (*Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	cfg.setDefaults()

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	l := &Logger{config: cfg}
	writer := o.writer
	if writer == nil {
		writer, l.closer, err = openOutput(cfg.Output)
		if err != nil {
			return nil, err
		}
	}

	var handler slog.Handler = formats[cfg.Format](writer, &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: formatTime,
	})
	if o.collector != nil {
		handler = NewCapturingHandler(handler, o.collector, slog.LevelWarn)
	}
	l.Logger = slog.New(handler)
	return l, nil
}

// Config returns the effective configuration after defaults were applied.
func (l *Logger) Config() Config {
	return l.config
}

// Close closes the log file, if the logger opened one.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (cfg *Config) validate() error {
	if cfg.Level != "" {
		if _, err := parseLevel(cfg.Level); err != nil {
			return fmt.Errorf("level must be one of: %s", strings.Join(sortedKeys(levels), ", "))
		}
	}
	if _, ok := formats[cfg.Format]; cfg.Format != "" && !ok {
		return fmt.Errorf("format must be one of: %s", strings.Join(sortedKeys(formats), ", "))
	}
	return nil
}

func (cfg *Config) setDefaults() {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// parseLevel maps a level name, in any case, to its slog.Level.
func parseLevel(name string) (slog.Level, error) {
	level, ok := levels[strings.ToLower(name)]
	if !ok {
		return slog.LevelInfo, fmt.Errorf("unknown level: %s", name)
	}
	return level, nil
}

// openOutput resolves output to a writer. The closer is nil for stdout and stderr.
func openOutput(output string) (io.Writer, io.Closer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %q: %w", output, err)
	}
	return file, file, nil
}

// formatTime renders record times as RFC 3339.
func formatTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
	}
	return a
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
