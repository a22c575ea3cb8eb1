// config_loader.go: YAML/JSON config loading, env overrides, hot reload
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/agilira/lumen/internal/zephyroslite"
)

// FileOutput is the file-config shape of an OutputConfig; string fields are
// parsed into their corresponding enums by ToConfig.
type FileOutput struct {
	Name            string `yaml:"name" json:"name"`
	Type            string `yaml:"type" json:"type"`
	Format          string `yaml:"format" json:"format"`
	Path            string `yaml:"path" json:"path"`
	Color           bool   `yaml:"color" json:"color"`
	RotationMode    string `yaml:"rotation_mode" json:"rotation_mode"`
	MaxBytes        int64  `yaml:"max_bytes" json:"max_bytes"`
	MaxFiles        int    `yaml:"max_files" json:"max_files"`
	CheckInterval   int64  `yaml:"check_interval" json:"check_interval"`
	Compress        bool   `yaml:"compress" json:"compress"`
	Network         string `yaml:"network" json:"network"`
	Address         string `yaml:"address" json:"address"`
	DialTimeoutMS   int    `yaml:"dial_timeout_ms" json:"dial_timeout_ms"`
	TemplatePattern string `yaml:"template_pattern" json:"template_pattern"`
	Async           bool   `yaml:"async" json:"async"`
	AsyncCapacity   int64  `yaml:"async_capacity" json:"async_capacity"`
	Buffered        bool   `yaml:"buffered" json:"buffered"`
	BufferSize      int    `yaml:"buffer_size" json:"buffer_size"`
	FlushIntervalMS int    `yaml:"flush_interval_ms" json:"flush_interval_ms"`
	MinLevel        string `yaml:"min_level" json:"min_level"`
}

// FileRoute is the file-config shape of a RouteConfig.
type FileRoute struct {
	Name            string   `yaml:"name" json:"name"`
	MinLevel        string   `yaml:"min_level" json:"min_level"`
	Writers         []string `yaml:"writers" json:"writers"`
	StopPropagation bool     `yaml:"stop_propagation" json:"stop_propagation"`
}

// FileConfig is the on-disk (YAML or JSON) shape of Config.
type FileConfig struct {
	Level            string       `yaml:"level" json:"level"`
	RingCapacity     int64        `yaml:"ring_capacity" json:"ring_capacity"`
	BatchSize        int64        `yaml:"batch_size" json:"batch_size"`
	Backpressure     string       `yaml:"backpressure" json:"backpressure"`
	EnableCaller     bool         `yaml:"enable_caller" json:"enable_caller"`
	StackTraceLevel  string       `yaml:"stack_trace_level" json:"stack_trace_level"`
	DisableTimestamp bool         `yaml:"disable_timestamp" json:"disable_timestamp"`
	CaptureContext   bool         `yaml:"capture_context" json:"capture_context"`
	EnableMetrics    bool         `yaml:"enable_metrics" json:"enable_metrics"`
	DefaultWriters   []string     `yaml:"default_writers" json:"default_writers"`
	Outputs          []FileOutput `yaml:"outputs" json:"outputs"`
	Routes           []FileRoute  `yaml:"routes" json:"routes"`
}

func parseBackpressure(s string) zephyroslite.BackpressurePolicy {
	switch strings.ToLower(s) {
	case "block", "block_on_full":
		return zephyroslite.BlockOnFull
	default:
		return zephyroslite.DropOnFull
	}
}

func parseOutputType(s string) OutputType {
	switch strings.ToLower(s) {
	case "stderr":
		return OutputStderr
	case "file":
		return OutputFile
	case "rotating":
		return OutputRotating
	case "network":
		return OutputNetwork
	case "encrypted":
		return OutputEncrypted
	default:
		return OutputConsole
	}
}

func parseFormatType(s string) FormatType {
	switch strings.ToLower(s) {
	case "logfmt":
		return FormatLogfmt
	case "timestamp", "console":
		return FormatTimestamp
	case "template":
		return FormatTemplate
	default:
		return FormatJSON
	}
}

func parseRotationMode(s string) RotationMode {
	switch strings.ToLower(s) {
	case "daily":
		return RotateDaily
	case "hourly":
		return RotateHourly
	case "size_and_time", "sizeandtime":
		return RotateBySizeAndTime
	default:
		return RotateBySize
	}
}

func parseLevelOr(s string, fallback Level) Level {
	if s == "" {
		return fallback
	}
	level, err := ParseLevel(s)
	if err != nil {
		return fallback
	}
	return level
}

// ToConfig converts fc into a buildable Config. Filters for outputs/routes
// are derived from MinLevel only; programmatic samplers, custom filters and
// custom predicates are not representable on disk and must be set on the
// returned Config's fields after loading.
func (fc FileConfig) ToConfig() Config {
	cfg := Config{
		Level:            parseLevelOr(fc.Level, InfoLevel),
		RingCapacity:     fc.RingCapacity,
		BatchSize:        fc.BatchSize,
		Backpressure:     parseBackpressure(fc.Backpressure),
		EnableCaller:     fc.EnableCaller,
		StackTraceLevel:  parseLevelOr(fc.StackTraceLevel, Off),
		DisableTimestamp: fc.DisableTimestamp,
		CaptureContext:   fc.CaptureContext,
		EnableMetrics:    fc.EnableMetrics,
		DefaultWriters:   fc.DefaultWriters,
	}

	for _, fo := range fc.Outputs {
		oc := OutputConfig{
			Name:            fo.Name,
			Type:            parseOutputType(fo.Type),
			Format:          parseFormatType(fo.Format),
			Color:           fo.Color,
			Path:            fo.Path,
			RotationMode:    parseRotationMode(fo.RotationMode),
			MaxBytes:        fo.MaxBytes,
			MaxFiles:        fo.MaxFiles,
			CheckInterval:   fo.CheckInterval,
			Compress:        fo.Compress,
			Network:         fo.Network,
			Address:         fo.Address,
			DialTimeout:     time.Duration(fo.DialTimeoutMS) * time.Millisecond,
			TemplatePattern: fo.TemplatePattern,
			Async:           fo.Async,
			AsyncCapacity:   fo.AsyncCapacity,
			Buffered:        fo.Buffered,
			BufferSize:      fo.BufferSize,
			FlushInterval:   time.Duration(fo.FlushIntervalMS) * time.Millisecond,
		}
		if fo.MinLevel != "" {
			if min, err := ParseLevel(fo.MinLevel); err == nil {
				oc.Filter = &LevelFilter{Min: min}
			}
		}
		cfg.Outputs = append(cfg.Outputs, oc)
	}

	for _, fr := range fc.Routes {
		rc := RouteConfig{Name: fr.Name, Writers: fr.Writers, StopPropagation: fr.StopPropagation}
		if fr.MinLevel != "" {
			if min, err := ParseLevel(fr.MinLevel); err == nil {
				rc.Filter = &LevelFilter{Min: min}
			}
		}
		cfg.Routes = append(cfg.Routes, rc)
	}

	return cfg
}

// LoadConfigFile reads path (YAML for .yaml/.yml, JSON otherwise) into a Config.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("lumen: failed to read config file: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("lumen: failed to parse YAML config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("lumen: failed to parse JSON config: %w", err)
		}
	}

	return fc.ToConfig(), nil
}

// ApplyEnvOverrides layers LOG_ENV and LOG_LEVEL environment variables on
// top of cfg. LOG_ENV selects a named preset's Level baseline ("development"
// or "production"), also filling RingCapacity when it is unset, before
// LOG_LEVEL, if set, overrides the level explicitly.
func ApplyEnvOverrides(cfg Config) Config {
	switch strings.ToLower(os.Getenv("LOG_ENV")) {
	case "development", "dev":
		cfg.Level = DebugLevel
		if cfg.RingCapacity == 0 {
			cfg.RingCapacity = 1024
		}
	case "production", "prod":
		cfg.Level = InfoLevel
		if cfg.RingCapacity == 0 {
			cfg.RingCapacity = 8192
		}
	}

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := ParseLevel(levelStr); err == nil {
			cfg.Level = level
		}
	}

	if capStr := os.Getenv("LOG_RING_CAPACITY"); capStr != "" {
		if n, err := strconv.ParseInt(capStr, 10, 64); err == nil && n > 0 {
			cfg.RingCapacity = n
		}
	}

	return cfg
}

// ConfigWatcher hot-reloads a running Logger's level from a config file
// whenever it changes on disk, the way a production deployment would pick
// up an operator's level change without a restart. It intentionally
// reloads only the level: rebuilding outputs live would mean swapping file
// descriptors and sockets under a running Collector, which is out of scope
// for a file watch.
type ConfigWatcher struct {
	path    string
	level   *AtomicLevel
	watcher *fsnotify.Watcher
	onError func(error)

	mu      sync.Mutex
	running int32
	done    chan struct{}
}

// NewConfigWatcher builds a watcher for path that will update level on change.
func NewConfigWatcher(path string, level *AtomicLevel, onError func(error)) (*ConfigWatcher, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("lumen: config file does not exist: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, WrapLoggerError(err, ErrCodeInvalidConfig, "failed to create config file watcher")
	}
	return &ConfigWatcher{path: path, level: level, watcher: w, onError: onError, done: make(chan struct{})}, nil
}

// Start begins watching the config file in a background goroutine.
func (w *ConfigWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if atomic.LoadInt32(&w.running) != 0 {
		return fmt.Errorf("lumen: config watcher already started")
	}

	if cfg, err := LoadConfigFile(w.path); err == nil {
		w.level.SetLevel(cfg.Level)
	}

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("lumen: failed to watch config directory: %w", err)
	}

	atomic.StoreInt32(&w.running, 1)
	go w.loop()
	return nil
}

func (w *ConfigWatcher) loop() {
	target := filepath.Clean(w.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadConfigFile(w.path)
			if err != nil {
				w.reportError(fmt.Errorf("lumen: failed to reload config from %s: %w", w.path, err))
				continue
			}
			w.level.SetLevel(cfg.Level)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		case <-w.done:
			return
		}
	}
}

func (w *ConfigWatcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

// Stop stops watching and releases the underlying fsnotify watcher.
func (w *ConfigWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if atomic.LoadInt32(&w.running) == 0 {
		return fmt.Errorf("lumen: config watcher not running")
	}
	close(w.done)
	atomic.StoreInt32(&w.running, 0)
	return w.watcher.Close()
}

// EnableDynamicLevel is a convenience wrapper combining NewConfigWatcher and Start.
func EnableDynamicLevel(logger *Logger, configPath string) (*ConfigWatcher, error) {
	watcher, err := NewConfigWatcher(configPath, &logger.level, func(err error) {
		handleError(WrapLoggerError(err, ErrCodeInvalidConfig, "config watcher error"))
	})
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(); err != nil {
		return nil, err
	}
	return watcher, nil
}
