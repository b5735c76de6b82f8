/*
 * Copyright 2025 The FrameHub Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
}

// DefaultConfig returns info-level JSON logging to stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Output: "stdout",
	}
}

// Logger is the logging interface injected into every component. It is a
// thin surface over zerolog so call sites keep the event-builder style.
type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	Fatal() *zerolog.Event
	Panic() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) Logger
	SetLevel(level zerolog.Level)
	SetDebug(debug bool)
}

type zlog struct {
	logger zerolog.Logger
}

// New builds a Logger from config. A nil config gets the defaults.
func New(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var output io.Writer = os.Stdout
	if config.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return nil, err
		}
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &zlog{logger: zl}, nil
}

// NewWithWriter builds a Logger that writes to the given writer. Used by
// tests that assert on log output.
func NewWithWriter(w io.Writer, level zerolog.Level) Logger {
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zlog{logger: zl}
}

func (l *zlog) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *zlog) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *zlog) Info() *zerolog.Event  { return l.logger.Info() }
func (l *zlog) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *zlog) Error() *zerolog.Event { return l.logger.Error() }
func (l *zlog) Fatal() *zerolog.Event { return l.logger.Fatal() }
func (l *zlog) Panic() *zerolog.Event { return l.logger.Panic() }
func (l *zlog) With() zerolog.Context { return l.logger.With() }

func (l *zlog) WithComponent(component string) Logger {
	return &zlog{logger: l.logger.With().Str("component", component).Logger()}
}

func (l *zlog) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
}

func (l *zlog) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

// NewTestLogger creates a no-op logger for testing that discards all output.
func NewTestLogger() Logger {
	return &zlog{logger: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}
