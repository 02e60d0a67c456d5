package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level and destination of the logger.
//
// Filename "-" or "" writes to stderr, "." discards everything and any other
// value is a rotated log file.
type Config struct {
	Level      string `json:"level" enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"DEBUG,INFO,WARN,ERROR"`
	Filename   string `json:"filename" placeholder:"<path>" default:"-" help:"log file path, - for stderr"`
	MaxSize    int    `json:"max_size" default:"10" help:"log file max size in MB"`
	MaxBackups int    `json:"max_backups" default:"1" help:"number of backup files"`
	MaxAge     int    `json:"max_age" help:"how many days to keep backup files"`
	Compress   bool   `json:"compress" help:"compress backup files"`
	JSON       bool   `json:"json" help:"write JSON records instead of text"`
}

func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG", "TRACE":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level: %q", name)
}

// New builds a logger from cfg. The returned closer releases the log file
// and must be called before the program exits.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer
	var closer io.Closer = nopCloser{}
	switch cfg.Filename {
	case "", "-":
		w = os.Stderr
	case ".":
		w = io.Discard
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		w, closer = lj, lj
	}
	return NewWithWriter(w, level, cfg.JSON), closer, nil
}

func NewWithWriter(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
