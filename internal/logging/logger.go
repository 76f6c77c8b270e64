//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package logging owns the process-wide zerolog logger used by the CLI,
// the warehouse builders and the HTTP API.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is shared by every package; replace it only through Init.
var Logger zerolog.Logger

// Config selects the level and format of log output.
type Config struct {
	Level      string
	Pretty     bool
	TimeFormat string

	// Output defaults to stderr when nil.
	Output io.Writer
}

// DefaultConfig logs at info level in human readable form.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Pretty:     true,
		TimeFormat: time.RFC3339,
	}
}

// Init rebuilds Logger from cfg. An unknown or empty level means info.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		timeFormat := cfg.TimeFormat
		if timeFormat == "" {
			timeFormat = time.RFC3339
		}
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	Logger = zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// With returns a child logger that stamps key=value on every event, such as
// the run id of a warehouse build.
func With(key, value string) zerolog.Logger {
	return Logger.With().Str(key, value).Logger()
}

// Debug starts a debug event.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info starts an info event.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn starts a warning event.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error starts an error event.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal starts a fatal event; sending it exits the process.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

func init() {
	Init(DefaultConfig())
}
