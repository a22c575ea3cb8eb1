// config.go: declarative configuration for assembling a Logger
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agilira/lumen/internal/extsink"
	"github.com/agilira/lumen/internal/zephyroslite"
)

// OutputType selects which sink kind an OutputConfig builds.
type OutputType string

const (
	OutputConsole   OutputType = "console"
	OutputStderr    OutputType = "stderr"
	OutputFile      OutputType = "file"
	OutputRotating  OutputType = "rotating"
	OutputNetwork   OutputType = "network"
	OutputEncrypted OutputType = "encrypted"
)

// FormatType selects which Formatter an OutputConfig wraps its sink with.
type FormatType string

const (
	FormatJSON      FormatType = "json"
	FormatLogfmt    FormatType = "logfmt"
	FormatTimestamp FormatType = "timestamp"
	FormatTemplate  FormatType = "template"
)

// OutputConfig declares one named writer pipeline: a sink, optionally
// wrapped in async/buffered decorators, rendered through a formatter.
type OutputConfig struct {
	Name   string
	Type   OutputType
	Format FormatType

	// Console/Stderr
	Color bool

	// File/Rotating/Encrypted
	Path string

	// Rotating
	RotationMode  RotationMode
	MaxBytes      int64
	MaxFiles      int
	CheckInterval int64
	Compress      bool

	// Network
	Network     string // "tcp", "udp"
	Address     string
	DialTimeout time.Duration

	// Encrypted
	Algorithm EncryptionAlgorithm
	Key       []byte

	// Template format
	TemplatePattern string

	// Decorators
	Async          bool
	AsyncCapacity  int64
	AsyncPolicy    OverflowPolicyType // zero value (DropNewest) keeps the SPSC ring fast path
	AsyncAdaptive  *AdaptiveBackpressureConfig
	Buffered       bool
	BufferSize     int
	FlushInterval  time.Duration

	// Filter scopes this output to records it allows; nil means unfiltered.
	Filter Filter
}

// RouteConfig declares one routing rule.
type RouteConfig struct {
	Name            string
	Filter          Filter
	Writers         []string
	StopPropagation bool
}

// Config declaratively assembles a Logger: its ring buffer sizing, gate
// level, named outputs, and routing rules. Build wires these into a
// Collector, Router and Logger the way New would if called directly.
type Config struct {
	Level        Level
	RingCapacity int64
	BatchSize    int64
	Backpressure zephyroslite.BackpressurePolicy

	EnableCaller         bool
	EnableCallerFunction bool
	CallerSkip           int
	StackTraceLevel      Level
	DisableTimestamp     bool
	CaptureContext       bool

	Sampler Sampler

	// EnableMetrics builds a Metrics instance, registers it with reg (or
	// prometheus.DefaultRegisterer if MetricsRegisterer is nil), and wires
	// it into both the Logger and its Collector.
	EnableMetrics     bool
	MetricsRegisterer prometheus.Registerer

	Outputs        []OutputConfig
	Routes         []RouteConfig
	DefaultWriters []string
}

// Build assembles every configured output into a RecordWriter pipeline,
// registers it with a new Collector under its Name, wires the routing
// rules, and constructs the Logger.
func (c Config) Build() (*Logger, error) {
	router := NewRouter(c.DefaultWriters...)
	for _, rc := range c.Routes {
		router.AddRoute(Route{Name: rc.Name, Filter: rc.Filter, Writers: rc.Writers, StopPropagation: rc.StopPropagation})
	}

	collector := NewCollector(router)

	for _, oc := range c.Outputs {
		rw, err := buildOutput(oc)
		if err != nil {
			return nil, fmt.Errorf("lumen: building output %q: %w", oc.Name, err)
		}
		collector.AddWriter(oc.Name, rw)
	}

	var metrics *Metrics
	if c.EnableMetrics {
		metrics = NewMetrics()
		reg := c.MetricsRegisterer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		if err := metrics.Register(reg); err != nil {
			return nil, fmt.Errorf("lumen: registering metrics: %w", err)
		}
		collector.SetMetrics(metrics)
	}

	return New(LoggerConfig{
		Level:                c.Level,
		Collector:            collector,
		RingCapacity:         c.RingCapacity,
		BatchSize:            c.BatchSize,
		Backpressure:         c.Backpressure,
		Sampler:              c.Sampler,
		EnableCaller:         c.EnableCaller,
		EnableCallerFunction: c.EnableCallerFunction,
		CallerSkip:           c.CallerSkip,
		StackTraceLevel:      c.StackTraceLevel,
		DisableTimestamp:     c.DisableTimestamp,
		CaptureContext:       c.CaptureContext,
		Metrics:              metrics,
	})
}

func buildFormatter(oc OutputConfig) Formatter {
	switch oc.Format {
	case FormatLogfmt:
		return &LogfmtFormatter{}
	case FormatTimestamp:
		return &TimestampFormatter{Color: oc.Color}
	case FormatTemplate:
		return &TemplateFormatter{Pattern: oc.TemplatePattern}
	case FormatJSON:
		fallthrough
	default:
		return NewJSONFormatter()
	}
}

func buildOutput(oc OutputConfig) (RecordWriter, error) {
	sink, err := buildSink(oc)
	if err != nil {
		return nil, err
	}

	var ws WriteSyncer = sink
	if oc.Async {
		aw, err := NewAsyncWriter(ws, AsyncWriterConfig{
			Capacity: oc.AsyncCapacity,
			Policy:   oc.AsyncPolicy,
			Adaptive: oc.AsyncAdaptive,
		})
		if err != nil {
			return nil, err
		}
		ws = aw
	}
	if oc.Buffered {
		ws = NewBufferedWriter(ws, oc.BufferSize, oc.FlushInterval)
	}

	var rw RecordWriter = NewFormattedWriter(buildFormatter(oc), ws)
	if oc.Filter != nil {
		rw = NewFilteredWriter(oc.Filter, rw)
	}
	return rw, nil
}

func buildSink(oc OutputConfig) (Sink, error) {
	switch oc.Type {
	case OutputConsole:
		return NewStdoutSink(), nil
	case OutputStderr:
		return NewStderrSink(), nil
	case OutputFile:
		return NewFileSink(oc.Path)
	case OutputRotating:
		return NewRotatingFileSink(RotatingFileConfig{
			Directory:     dirOf(oc.Path),
			Prefix:        prefixOf(oc.Path),
			Extension:     extOf(oc.Path),
			Mode:          oc.RotationMode,
			MaxBytes:      oc.MaxBytes,
			MaxFiles:      oc.MaxFiles,
			CheckInterval: oc.CheckInterval,
			Compress:      oc.Compress,
		})
	case OutputEncrypted:
		return NewEncryptedFileSink(EncryptedFileConfig{Path: oc.Path, Algorithm: oc.Algorithm, Key: oc.Key})
	case OutputNetwork:
		return newNetworkSinkAdapter(oc)
	default:
		return buildExternalSink(oc)
	}
}

// buildExternalSink looks oc.Type up in the external sink provider
// registry, letting a package outside this module (an object-storage
// shipper, a message-queue forwarder) supply a sink without this module
// importing its SDK. Returns an error if no provider registered that name.
func buildExternalSink(oc OutputConfig) (Sink, error) {
	provider, ok := extsink.Lookup(string(oc.Type))
	if !ok {
		return nil, fmt.Errorf("lumen: unknown output type %q", oc.Type)
	}
	target := oc.Path
	if target == "" {
		target = oc.Address
	}
	built, err := provider.Create(target)
	if err != nil {
		return nil, fmt.Errorf("lumen: external sink provider %q failed: %w", provider.Name, err)
	}
	sink, ok := built.(Sink)
	if !ok {
		return nil, fmt.Errorf("lumen: external sink provider %q did not return a Sink", provider.Name)
	}
	return sink, nil
}

func dirOf(path string) string { return filepath.Dir(path) }

func prefixOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func extOf(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "log"
	}
	return ext
}

// newNetworkSinkAdapter builds a NetworkSink and adapts it to the Sink
// interface; NetworkSink's WriteRecord path is bypassed here because the
// output pipeline always renders through a Formatter uniformly.
func newNetworkSinkAdapter(oc OutputConfig) (Sink, error) {
	timeout := oc.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	network := oc.Network
	if network == "" {
		network = "tcp"
	}
	return NewNetworkSink(network, oc.Address, timeout)
}
