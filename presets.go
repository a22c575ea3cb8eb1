// presets.go: common Config presets
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"time"

	"github.com/agilira/lumen/internal/zephyroslite"
)

// NewDevelopment builds a logger suited to local development: debug level,
// colorized timestamp output to stdout, caller info, and stack traces on
// error.
func NewDevelopment() (*Logger, error) {
	return Config{
		Level:            DebugLevel,
		RingCapacity:     1024,
		BatchSize:        32,
		EnableCaller:     true,
		StackTraceLevel:  ErrorLevel,
		DefaultWriters:   []string{"console"},
		Outputs: []OutputConfig{
			{Name: "console", Type: OutputConsole, Format: FormatTimestamp, Color: true},
		},
	}.Build()
}

// NewProduction builds a logger suited to production: info level, JSON to
// stdout, larger ring buffer and batch size for throughput.
func NewProduction() (*Logger, error) {
	return Config{
		Level:          InfoLevel,
		RingCapacity:   8192,
		BatchSize:      128,
		DefaultWriters: []string{"stdout"},
		Outputs: []OutputConfig{
			{Name: "stdout", Type: OutputConsole, Format: FormatJSON},
		},
	}.Build()
}

// NewExample builds a deterministic logger for documentation and tests:
// no timestamps, small buffers, JSON output.
func NewExample() (*Logger, error) {
	return Config{
		Level:            InfoLevel,
		RingCapacity:     512,
		BatchSize:        16,
		DisableTimestamp: true,
		DefaultWriters:   []string{"stdout"},
		Outputs: []OutputConfig{
			{Name: "stdout", Type: OutputConsole, Format: FormatJSON},
		},
	}.Build()
}

// NewHighThroughput builds a logger tuned for maximum sustained throughput:
// large ring and batch sizes, drop-on-full backpressure, no caller capture,
// async file output so the producer never blocks on disk I/O.
func NewHighThroughput(path string) (*Logger, error) {
	return Config{
		Level:          InfoLevel,
		RingCapacity:   32768,
		BatchSize:      512,
		DefaultWriters: []string{"file"},
		Outputs: []OutputConfig{
			{
				Name:          "file",
				Type:          OutputFile,
				Format:        FormatJSON,
				Path:          path,
				Async:         true,
				AsyncCapacity: 8192,
			},
		},
	}.Build()
}

// NewAudited builds a logger tuned for guaranteed delivery over raw
// throughput: block-on-full backpressure so a full ring slows producers
// down instead of dropping records, buffered file output flushed every
// second.
func NewAudited(path string) (*Logger, error) {
	return Config{
		Level:        InfoLevel,
		RingCapacity: 4096,
		BatchSize:    64,
		Backpressure: zephyroslite.BlockOnFull,
		DefaultWriters: []string{"file"},
		Outputs: []OutputConfig{
			{
				Name:          "file",
				Type:          OutputFile,
				Format:        FormatJSON,
				Path:          path,
				Buffered:      true,
				BufferSize:    64 * 1024,
				FlushInterval: time.Second,
			},
		},
	}.Build()
}
