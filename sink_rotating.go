// sink_rotating.go: size/time rotating file sink
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-errors"
	"github.com/klauspost/compress/gzip"
)

// RotationMode selects the rotating file sink's trigger condition.
type RotationMode uint8

const (
	RotateBySize RotationMode = iota
	RotateDaily
	RotateHourly
	RotateBySizeAndTime
)

// RotatingFileSink extends a plain file sink with size/time rotation,
// backup pruning, and optional gzip compression of retired backups.
type RotatingFileSink struct {
	mu sync.Mutex

	dir           string
	prefix        string
	ext           string
	mode          RotationMode
	maxBytes      int64
	maxFiles      int
	checkInterval int64
	compress      bool

	file         *os.File
	bytesWritten int64
	writeCount   int64
	periodStart  time.Time
	nextIndex    int
	unhealthy    int32
}

// RotatingFileConfig configures a RotatingFileSink.
type RotatingFileConfig struct {
	Directory     string
	Prefix        string
	Extension     string // defaults to "log"
	Mode          RotationMode
	MaxBytes      int64 // trigger for RotateBySize / RotateBySizeAndTime
	MaxFiles      int   // backups retained, oldest pruned first
	CheckInterval int64 // writes between rotation checks, default 100
	Compress      bool  // gzip retired backups (adopts klauspost/compress)
}

// NewRotatingFileSink creates a RotatingFileSink per cfg, opening (or
// creating) the active file immediately.
func NewRotatingFileSink(cfg RotatingFileConfig) (*RotatingFileSink, error) {
	if cfg.Extension == "" {
		cfg.Extension = "log"
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 100
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 1
	}
	if err := os.MkdirAll(cfg.Directory, 0o750); err != nil {
		return nil, WrapLoggerError(err, ErrCodeFileOpen, "failed to create log directory")
	}

	s := &RotatingFileSink{
		dir:           cfg.Directory,
		prefix:        cfg.Prefix,
		ext:           cfg.Extension,
		mode:          cfg.Mode,
		maxBytes:      cfg.MaxBytes,
		maxFiles:      cfg.MaxFiles,
		checkInterval: cfg.CheckInterval,
		compress:      cfg.Compress,
		periodStart:   time.Now(),
	}

	if err := s.openCurrent(); err != nil {
		return nil, err
	}
	s.nextIndex = s.discoverNextIndex()
	return s, nil
}

func (s *RotatingFileSink) currentPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s", s.prefix, s.ext))
}

func (s *RotatingFileSink) openCurrent() error {
	f, err := os.OpenFile(s.currentPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return WrapLoggerError(err, ErrCodeFileOpen, "failed to open rotating log file")
	}
	info, err := f.Stat()
	if err == nil {
		s.bytesWritten = info.Size()
	}
	s.file = f
	return nil
}

func (s *RotatingFileSink) discoverNextIndex() int {
	pattern := filepath.Join(s.dir, fmt.Sprintf("%s.*.%s*", s.prefix, s.ext))
	matches, _ := filepath.Glob(pattern)
	max := 0
	for _, m := range matches {
		base := filepath.Base(m)
		parts := strings.Split(strings.TrimSuffix(base, filepath.Ext(base)), ".")
		for _, p := range parts {
			if n, err := strconv.Atoi(p); err == nil && n > max {
				max = n
			}
		}
	}
	return max + 1
}

func (s *RotatingFileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.file.Write(p)
	s.bytesWritten += int64(n)
	s.writeCount++
	if err != nil {
		atomic.StoreInt32(&s.unhealthy, 1)
		return n, errors.Wrap(err, ErrCodeFileWrite, "failed to write rotating log file")
	}

	if s.shouldCheck() && s.triggerFires() {
		if rerr := s.rotate(); rerr != nil {
			atomic.StoreInt32(&s.unhealthy, 1)
			return n, rerr
		}
	}
	return n, nil
}

func (s *RotatingFileSink) shouldCheck() bool {
	return s.writeCount%s.checkInterval == 0
}

func (s *RotatingFileSink) triggerFires() bool {
	switch s.mode {
	case RotateBySize:
		return s.maxBytes > 0 && s.bytesWritten >= s.maxBytes
	case RotateDaily:
		return time.Now().YearDay() != s.periodStart.YearDay() || time.Now().Year() != s.periodStart.Year()
	case RotateHourly:
		now := time.Now()
		return now.Hour() != s.periodStart.Hour() || now.YearDay() != s.periodStart.YearDay()
	case RotateBySizeAndTime:
		return (s.maxBytes > 0 && s.bytesWritten >= s.maxBytes) || time.Now().YearDay() != s.periodStart.YearDay()
	default:
		return false
	}
}

func (s *RotatingFileSink) rotate() error {
	if err := s.file.Sync(); err != nil {
		return errors.Wrap(err, ErrCodeFileRotation, "failed to flush before rotation")
	}
	if err := s.file.Close(); err != nil {
		return errors.Wrap(err, ErrCodeFileRotation, "failed to close current file before rotation")
	}

	backupName := s.rotatedName()
	backupPath := filepath.Join(s.dir, backupName)
	if err := os.Rename(s.currentPath(), backupPath); err != nil {
		return WrapLoggerError(err, ErrCodeFileRotation, "failed to rename log file during rotation")
	}

	if s.compress {
		if err := compressFile(backupPath); err == nil {
			_ = os.Remove(backupPath)
		}
	}

	s.bytesWritten = 0
	s.periodStart = time.Now()
	if err := s.openCurrent(); err != nil {
		return err
	}
	atomic.StoreInt32(&s.unhealthy, 0)

	return s.pruneBackups()
}

func (s *RotatingFileSink) rotatedName() string {
	switch s.mode {
	case RotateDaily:
		name := fmt.Sprintf("%s.%s.%s", s.prefix, time.Now().Format("20060102"), s.ext)
		return name
	case RotateHourly:
		return fmt.Sprintf("%s.%s.%s", s.prefix, time.Now().Format("20060102_15"), s.ext)
	default:
		idx := s.nextIndex
		s.nextIndex++
		return fmt.Sprintf("%s.%05d.%s", s.prefix, idx, s.ext)
	}
}

// compressFile gzips path in place, writing path+".gz".
func compressFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

// pruneBackups enumerates backups by modification time descending, with a
// lexicographic-descending tie-break on equal timestamps, and deletes every
// backup beyond maxFiles.
func (s *RotatingFileSink) pruneBackups() error {
	pattern := filepath.Join(s.dir, fmt.Sprintf("%s.*.%s*", s.prefix, s.ext))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	backups := make([]backup, 0, len(matches))
	for _, m := range matches {
		info, serr := os.Stat(m)
		if serr != nil {
			continue
		}
		backups = append(backups, backup{path: m, modTime: info.ModTime()})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].modTime.Equal(backups[j].modTime) {
			return backups[i].path > backups[j].path
		}
		return backups[i].modTime.After(backups[j].modTime)
	})

	for i := s.maxFiles; i < len(backups); i++ {
		_ = os.Remove(backups[i].path)
	}
	return nil
}

func (s *RotatingFileSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Sync()
}

func (s *RotatingFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *RotatingFileSink) Capabilities() SinkCapability {
	return CapSynchronous | CapRotating
}

// Name returns "rotating_file:<dir>/<prefix>".
func (s *RotatingFileSink) Name() string {
	return "rotating_file:" + filepath.Join(s.dir, s.prefix)
}

// IsHealthy reports false once a write or rotation has failed against the
// current stream; a successful rotation clears it again.
func (s *RotatingFileSink) IsHealthy() bool {
	return atomic.LoadInt32(&s.unhealthy) == 0
}
