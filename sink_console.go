// sink_console.go: stdout/stderr console sink
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"os"
	"sync"
)

// ConsoleSink writes to an *os.File (stdout or stderr) under a mutex, since
// os.File itself is not safe for concurrent interleaved writes when records
// span multiple Write calls.
type ConsoleSink struct {
	mu   sync.Mutex
	file *os.File
	name string
}

// NewConsoleSink wraps an *os.File as a synchronous Sink.
func NewConsoleSink(file *os.File) *ConsoleSink {
	return &ConsoleSink{file: file, name: "console"}
}

// NewStdoutSink returns a ConsoleSink writing to os.Stdout.
func NewStdoutSink() *ConsoleSink {
	s := NewConsoleSink(os.Stdout)
	s.name = "console:stdout"
	return s
}

// NewStderrSink returns a ConsoleSink writing to os.Stderr.
func NewStderrSink() *ConsoleSink {
	s := NewConsoleSink(os.Stderr)
	s.name = "console:stderr"
	return s
}

func (s *ConsoleSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Write(p)
}

func (s *ConsoleSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// stdout/stderr on some platforms (notably ttys) return ENOTTY/EINVAL
	// for Sync; that is not a write failure, so it is never reported.
	_ = s.file.Sync()
	return nil
}

func (s *ConsoleSink) Close() error {
	// Never close stdout/stderr; Close is a no-op so ConsoleSink can be
	// used in a decorator chain that calls Close on shutdown uniformly.
	return nil
}

func (s *ConsoleSink) Capabilities() SinkCapability {
	return CapSynchronous
}

// Name returns the sink's diagnostic name ("console:stdout", "console:stderr",
// or "console" for an arbitrary wrapped *os.File).
func (s *ConsoleSink) Name() string {
	return s.name
}

// IsHealthy always reports true: a console sink has no failure state to
// track short of the process losing its standard streams entirely.
func (s *ConsoleSink) IsHealthy() bool {
	return true
}
