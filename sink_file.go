// sink_file.go: plain append-only file sink
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/agilira/go-errors"
)

// FileSink writes records to a single append-only file. For rotation, see
// RotatingFileSink.
type FileSink struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	unhealthy int32
}

// NewFileSink opens (or creates) path for appending, matching the teacher's
// permission convention of 0600 for log files.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, WrapLoggerError(err, ErrCodeFileOpen, "failed to open log file")
	}
	return &FileSink{file: f, path: path}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.file.Write(p)
	if err != nil {
		atomic.StoreInt32(&s.unhealthy, 1)
		return n, errors.Wrap(err, ErrCodeFileWrite, "failed to write log file")
	}
	return n, nil
}

func (s *FileSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Sync(); err != nil {
		atomic.StoreInt32(&s.unhealthy, 1)
		return err
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *FileSink) Capabilities() SinkCapability {
	return CapSynchronous
}

// Name returns "file:<path>".
func (s *FileSink) Name() string {
	return "file:" + s.path
}

// IsHealthy reports false once a write or sync has returned an error on the
// underlying stream.
func (s *FileSink) IsHealthy() bool {
	return atomic.LoadInt32(&s.unhealthy) == 0
}
