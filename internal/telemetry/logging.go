package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelCritical — уровень выше ERROR, соответствует "critical"/"fatal" в событиях сервера.
const LevelCritical = slog.LevelError + 4

// Значения ротации лог-файла по умолчанию.
const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
)

// ParseLevel переводит имя уровня в slog.Level.
// Регистр не важен. Возможные значения: debug, info, warn, warning,
// error, exception, critical, fatal.
// Второе значение false, если имя неизвестно.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error", "exception":
		return slog.LevelError, true
	case "critical", "fatal":
		return LevelCritical, true
	default:
		return slog.LevelInfo, false
	}
}

// LogOptions — параметры логгера CLI.
type LogOptions struct {
	// Level — имя уровня (см. ParseLevel). Пустое значение — info.
	Level string

	// Verbose форсирует уровень DEBUG.
	Verbose bool

	// Format — "text" (по умолчанию) или "json".
	Format string

	// File — путь к лог-файлу. Если задан, записи дублируются в файл с ротацией.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Output — основной вывод. По умолчанию os.Stderr: stdout остаётся для данных.
	Output io.Writer
}

// SetupLogger создаёт логгер по опциям.
//
// Глобальный логгер не меняется: вызывающий передаёт результат дальше явно.
// Возвращаемый io.Closer закрывает лог-файл (если он был открыт).
func SetupLogger(opts LogOptions) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if opts.Level != "" {
		l, ok := ParseLevel(opts.Level)
		if !ok {
			return nil, nil, fmt.Errorf("unknown log level %q", opts.Level)
		}
		level = l
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, defaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, defaultMaxBackups),
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level == slog.LevelDebug,
		ReplaceAttr: replaceLevel,
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(handler), closer, nil
}

// replaceLevel печатает LevelCritical как CRITICAL вместо ERROR+4.
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Discard возвращает логгер, который ничего не пишет.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithTaskID возвращает логгер с добавленным task (correlation ID).
func WithTaskID(logger *slog.Logger, taskID string) *slog.Logger {
	return logger.With("task", taskID)
}
