package bootstrap

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/feedwatchdog/admin/config"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. Output goes to out, as JSON or
// through the console writer, and also to a daily rotated JSON file when
// cfg.File is set. The returned closer releases the file.
func NewLogger(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, io.Closer, error) {
	SetLogLevel(cfg.Level)

	if out == nil {
		out = os.Stdout
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	if cfg.File == "" {
		return zerolog.New(out).With().Timestamp().Logger(), nopCloser{}, nil
	}

	opts := []rotatelogs.Option{rotatelogs.WithLinkName(cfg.File)}
	if cfg.MaxAge > 0 {
		opts = append(opts, rotatelogs.WithMaxAge(cfg.MaxAge))
	}
	if cfg.RotationTime > 0 {
		opts = append(opts, rotatelogs.WithRotationTime(cfg.RotationTime))
	}
	rotator, err := rotatelogs.New(cfg.File+".%Y%m%d", opts...)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(out, rotator)).With().Timestamp().Logger()
	return logger, rotator, nil
}

// SetLogLevel sets the global level. Unknown names fall back to info.
func SetLogLevel(name string) {
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
