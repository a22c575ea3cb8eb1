// logger.go: core Logger built on the zephyroslite MPSC ring buffer
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/agilira/lumen/internal/bufferpool"
	"github.com/agilira/lumen/internal/zephyroslite"
)

// emergencyFormatter renders the compact line recorded into the emergency
// ring for every processed record; logfmt is used because it is the
// cheapest of the bundled formatters to produce and to eyeball after a
// crash.
var emergencyFormatter = NewLogfmtFormatter()

var funcNameCache sync.Map // map[uintptr]string, amortizes runtime.FuncForPC

// LoggerConfig configures a Logger.
type LoggerConfig struct {
	// Level gates which records are admitted to the ring at all.
	Level Level

	// Collector fans out admitted records to named writer pipelines via its
	// Router. Required.
	Collector *Collector

	// RingCapacity is the MPSC ring's slot count; must be a power of two.
	// Defaults to 4096.
	RingCapacity int64

	// BatchSize bounds how many records the consumer drains per cycle.
	// Defaults to 64.
	BatchSize int64

	// Backpressure selects drop-on-full or block-on-full semantics.
	Backpressure zephyroslite.BackpressurePolicy

	// Sampler, if set, runs before a record is admitted to the ring.
	Sampler Sampler

	// EnableCaller captures file/line/function for each record.
	EnableCaller bool

	// EnableCallerFunction controls whether function names are resolved;
	// only consulted when EnableCaller is true. Resolving function names
	// costs more than file/line alone on a cache miss.
	EnableCallerFunction bool

	// CallerSkip is the number of stack frames to skip past the logging
	// method itself when capturing caller info.
	CallerSkip int

	// StackTraceLevel enables stack-trace capture for records at or above
	// this level. Use Off to disable (the default). The zero value, Info, is
	// treated as unset and becomes Off, so capture cannot start at Info.
	StackTraceLevel Level

	// DisableTimestamp skips CachedTime() entirely for maximal throughput.
	DisableTimestamp bool

	// CaptureContext merges the calling goroutine's UnifiedContext into
	// every record's fields.
	CaptureContext bool

	// Metrics, if set, is incremented for gate/sample/drop decisions and
	// exposes the ring's approximate queue depth.
	Metrics *Metrics
}

// Logger is lumen's core high-throughput structured logger: an MPSC ring
// buffer in front of a single consumer goroutine that formats and routes
// each record through a Collector.
type Logger struct {
	level   AtomicLevel
	ring    *zephyroslite.ZephyrosLight[Record]
	collector *Collector
	sampler Sampler

	enableCaller         bool
	enableCallerFunction bool
	callerSkip           int
	stackTraceLevel      Level
	disableTimestamp     bool
	captureContext       bool
	metrics              *Metrics

	preFields []Field

	closed int32
	wg     sync.WaitGroup
}

// New builds a Logger per cfg and starts its consumer goroutine.
func New(cfg LoggerConfig) (*Logger, error) {
	if cfg.Collector == nil {
		return nil, NewLoggerError(ErrCodeInvalidConfig, "logger requires a Collector")
	}
	if cfg.RingCapacity <= 0 {
		cfg.RingCapacity = 4096
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.StackTraceLevel == 0 {
		cfg.StackTraceLevel = Off
	}
	if cfg.CallerSkip == 0 {
		cfg.CallerSkip = 3
	}

	l := &Logger{
		collector:            cfg.Collector,
		sampler:              cfg.Sampler,
		enableCaller:         cfg.EnableCaller,
		enableCallerFunction: cfg.EnableCallerFunction,
		callerSkip:           cfg.CallerSkip,
		stackTraceLevel:      cfg.StackTraceLevel,
		disableTimestamp:     cfg.DisableTimestamp,
		captureContext:       cfg.CaptureContext,
		metrics:              cfg.Metrics,
	}
	l.level.SetLevel(cfg.Level)

	ring, err := zephyroslite.NewBuilder[Record](cfg.RingCapacity).
		WithProcessor(l.process).
		WithBatchSize(cfg.BatchSize).
		WithBackpressurePolicy(cfg.Backpressure).
		Build()
	if err != nil {
		return nil, WrapLoggerError(err, ErrCodeRingInvalidCapacity, "failed to build logger ring buffer")
	}
	l.ring = ring

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.ring.LoopProcess()
	}()

	return l, nil
}

// process is the ring consumer's callback: it runs on the single consumer
// goroutine, so it may safely call into the collector synchronously without
// additional locking on the record itself.
func (l *Logger) process(r *Record) {
	if EmergencyFD() >= 0 {
		buf := bufferpool.Get()
		emergencyFormatter.Format(r, buf)
		recordEmergency(buf.Bytes())
		bufferpool.Put(buf)
	}
	if l.metrics != nil {
		l.metrics.setQueueDepth(float64(l.ring.Stats()["items_buffered"]))
	}
	l.collector.Dispatch(r)
}

// SetLevel atomically changes the minimum admitted level.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level)
}

// Level returns the current minimum admitted level.
func (l *Logger) Level() Level {
	return l.level.Level()
}

func (l *Logger) enabled(level Level) bool {
	return l.level.Enabled(level) && atomic.LoadInt32(&l.closed) == 0
}

// log is the hot path shared by every level-specific method.
func (l *Logger) log(level Level, message string, fields []Field) {
	if !l.enabled(level) {
		l.metrics.incGated()
		return
	}

	// Fatal records bypass sampling: a crash's last record must never be
	// the one a sampler happened to drop.
	if l.sampler != nil && level < Fatal {
		probe := Record{Level: level, Message: message}
		if !l.sampler.Allow(&probe) {
			l.metrics.incSampled()
			return
		}
	}

	var caller Caller
	if l.enableCaller {
		caller = l.getCaller()
	}

	var stackTrace string
	if l.stackTraceLevel != Off && level.Enabled(l.stackTraceLevel) {
		if stack := errors.CaptureStacktrace(l.callerSkip); stack != nil {
			stackTrace = stack.String()
		}
	}

	var ctxFields []Field
	var trace TraceContext
	if l.captureContext {
		ctxFields, trace = Context().Snapshot()
	}

	ok := l.ring.Write(func(entry *Record) {
		entry.reset()
		if !l.disableTimestamp {
			entry.Timestamp = timecache.CachedTime()
		}
		entry.Level = level
		entry.Message = message
		entry.Caller = caller
		entry.StackTrace = stackTrace
		entry.Trace = trace

		total := len(l.preFields) + len(fields) + len(ctxFields)
		if total == 0 {
			return
		}
		var dst []Field
		if total <= len(entry.fieldBuf) {
			dst = entry.fieldBuf[:total]
		} else {
			dst = make([]Field, total)
		}
		n := copy(dst, l.preFields)
		n += copy(dst[n:], fields)
		copy(dst[n:], ctxFields)
		entry.Fields = dst
	})

	if !ok {
		l.onDropped()
	}
}

// onDropped is called when the ring rejected a write under DropOnFull.
func (l *Logger) onDropped() {
	l.metrics.incDropped()
}

// Trace logs at Trace level.
func (l *Logger) Trace(message string, fields ...Field) { l.log(TraceLevel, message, fields) }

// Debug logs at Debug level.
func (l *Logger) Debug(message string, fields ...Field) { l.log(DebugLevel, message, fields) }

// Info logs at Info level.
func (l *Logger) Info(message string, fields ...Field) { l.log(InfoLevel, message, fields) }

// Warn logs at Warn level.
func (l *Logger) Warn(message string, fields ...Field) { l.log(WarnLevel, message, fields) }

// Error logs at Error level.
func (l *Logger) Error(message string, fields ...Field) { l.log(ErrorLevel, message, fields) }

// Fatal logs at Fatal level, flushes, then terminates the process.
func (l *Logger) Fatal(message string, fields ...Field) {
	l.log(FatalLevel, message, fields)
	_ = l.Flush()
	_ = l.Close()
	os.Exit(1)
}

// With returns a child Logger that always includes fields in addition to
// whatever is passed at each call site.
func (l *Logger) With(fields ...Field) *Logger {
	if len(fields) == 0 {
		return l
	}
	child := *l
	merged := make([]Field, 0, len(l.preFields)+len(fields))
	merged = append(merged, l.preFields...)
	merged = append(merged, fields...)
	child.preFields = merged
	return &child
}

// getCaller captures file/line/function for the logging call site,
// skipping callerSkip frames past getCaller itself.
func (l *Logger) getCaller() Caller {
	pc, file, line, ok := runtime.Caller(l.callerSkip)
	if !ok {
		return Caller{Valid: false}
	}
	c := Caller{File: file, Line: line, Valid: true}
	if l.enableCallerFunction && pc != 0 {
		if cached, found := funcNameCache.Load(pc); found {
			c.Function = cached.(string)
		} else if fn := runtime.FuncForPC(pc); fn != nil {
			name := fn.Name()
			funcNameCache.Store(pc, name)
			c.Function = name
		}
	}
	return c
}

// Flush blocks until every record currently in the ring has been processed.
func (l *Logger) Flush() error {
	if err := l.ring.Flush(); err != nil {
		return WrapLoggerError(err, ErrCodeFlushFailed, "failed to flush logger ring")
	}
	return nil
}

// Close stops admitting new records, drains the ring, and closes every
// writer pipeline registered with the Collector.
func (l *Logger) Close() error {
	if !atomic.CompareAndSwapInt32(&l.closed, 0, 1) {
		return nil
	}
	l.ring.Close()
	l.wg.Wait()
	return l.collector.Close()
}
