package internal

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// LogConfig controls where and how log lines are written
type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // text or json
	File       string // optional rotated log file
	WithCaller bool
}

// InitLogger configures the global zerolog logger
func InitLogger(cfg LogConfig) error {
	var w io.Writer
	if cfg.Format == "json" {
		w = os.Stderr
	} else {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	if cfg.File != "" {
		w = io.MultiWriter(w, zerolog.ConsoleWriter{
			NoColor: true,
			Out: &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			},
		})
	}

	logger := log.Output(w)
	if cfg.WithCaller {
		logger = logger.With().Caller().Logger()
	}
	log.Logger = logger

	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return err
	}
	SetLogLevel(level)
	return nil
}

func parseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "", "info":
		return LogLevelInfo, nil
	case "debug", "trace":
		return LogLevelDebug, nil
	case "warn":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q (debug, info, warn, error)", s)
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	switch level {
	case LogLevelError:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case LogLevelWarn:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case LogLevelDebug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// CurrentLogLevel reports the active level
func CurrentLogLevel() LogLevel {
	switch zerolog.GlobalLevel() {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return LogLevelError
	case zerolog.WarnLevel:
		return LogLevelWarn
	case zerolog.DebugLevel, zerolog.TraceLevel:
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LogLevelDebug)
	} else {
		SetLogLevel(LogLevelInfo)
	}
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	log.Error().Msgf(format, args...)
}

// LogWarn logs a warning message
func LogWarn(format string, args ...interface{}) {
	log.Warn().Msgf(format, args...)
}

// LogInfo logs an info message
func LogInfo(format string, args ...interface{}) {
	log.Info().Msgf(format, args...)
}

// LogDebug logs a debug message
func LogDebug(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}
