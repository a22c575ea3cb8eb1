// level.go: Logging level definitions and utilities for Lumen
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Level represents the severity level of a log record.
// Levels are ordered from least to most severe: Trace < Debug < Info < Warn < Error < Fatal.
//
// Performance notes:
// - Level is implemented as int32 so the hot-path gate check is a single comparison.
// - AtomicLevel wraps it for concurrent set_level/get_level without a mutex.
type Level int32

// Log levels in order of increasing severity.
const (
	Trace Level = iota - 2 // Trace: extremely verbose, typically compiled out in production
	Debug                  // Debug information, disabled in production by default
	Info                   // General informational messages
	Warn                   // Warning messages for potentially harmful situations
	Error                  // Error messages for failure conditions
	Fatal                  // Fatal level - Logger.Fatal logs the record, flushes and closes the logger, then exits

	// Off disables the gate entirely; no record at any level passes.
	Off Level = 127
)

// *Level aliases for the constants above, spelled out for call sites (e.g.
// LoggerConfig.Level, presets) that read more clearly with the suffix than
// the bare severity name.
const (
	TraceLevel = Trace
	DebugLevel = Debug
	InfoLevel  = Info
	WarnLevel  = Warn
	ErrorLevel = Error
	FatalLevel = Fatal
	OffLevel   = Off
)

var levelNamesMap = map[string]Level{
	"trace":   Trace,
	"debug":   Debug,
	"info":    Info,
	"warn":    Warn,
	"warning": Warn, // spec alias
	"error":   Error,
	"err":     Error, // alias
	"fatal":   Fatal,
	"off":     Off,
	"":        Info, // empty string defaults to Info
}

// String returns the lowercase string representation of the level.
func (l Level) String() string {
	switch l {
	case Trace:
		return "trace"
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	case Off:
		return "off"
	default:
		return "unknown"
	}
}

// Upper returns the uppercase string representation, used by the JSON and
// timestamp formatters which render levels upper-cased per the wire format.
func (l Level) Upper() string {
	return strings.ToUpper(l.String())
}

// Enabled reports whether this level passes a gate with the given minimum.
// This is the single comparison performed on every producer call's hot path.
func (l Level) Enabled(min Level) bool {
	return l >= min
}

// ParseLevel parses a string representation of a level, case-insensitively,
// accepting the spec's documented aliases (warning -> warn, err -> error).
func ParseLevel(s string) (Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if level, exists := levelNamesMap[normalized]; exists {
		return level, nil
	}
	return Info, fmt.Errorf("lumen: unknown level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	str := l.String()
	if str == "unknown" {
		return nil, fmt.Errorf("lumen: cannot marshal unknown level %d", l)
	}
	return []byte(str), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	if l == nil {
		return fmt.Errorf("lumen: cannot unmarshal into nil Level pointer")
	}
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return fmt.Errorf("lumen: failed to unmarshal level: %w", err)
	}
	*l = parsed
	return nil
}

// AtomicLevel provides atomic get/set of a Level for concurrent use by
// set_level/get_level and by every gate check on the hot path.
type AtomicLevel struct {
	level int32
}

// NewAtomicLevel creates an AtomicLevel initialized to the given level.
func NewAtomicLevel(level Level) *AtomicLevel {
	return &AtomicLevel{level: int32(level)}
}

// Level returns the current level.
func (al *AtomicLevel) Level() Level {
	return Level(atomic.LoadInt32(&al.level))
}

// SetLevel sets the level. Changes take effect on the next record evaluated,
// per the gate algorithm's relaxed-atomic-load contract.
func (al *AtomicLevel) SetLevel(level Level) {
	atomic.StoreInt32(&al.level, int32(level))
}

// Enabled checks if the given level clears the current minimum.
func (al *AtomicLevel) Enabled(level Level) bool {
	return level >= Level(atomic.LoadInt32(&al.level))
}

func (al *AtomicLevel) String() string {
	return al.Level().String()
}

// MarshalText implements encoding.TextMarshaler.
func (al *AtomicLevel) MarshalText() ([]byte, error) {
	return al.Level().MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (al *AtomicLevel) UnmarshalText(b []byte) error {
	var level Level
	if err := level.UnmarshalText(b); err != nil {
		return err
	}
	al.SetLevel(level)
	return nil
}

// LevelFlag adapts a *Level to the pflag/flag Value interface so it can be
// bound directly to a CLI flag in host tooling.
type LevelFlag struct {
	level *Level
}

// NewLevelFlag creates a LevelFlag bound to the given Level.
func NewLevelFlag(level *Level) *LevelFlag {
	return &LevelFlag{level: level}
}

func (lf *LevelFlag) String() string {
	if lf.level == nil {
		return Info.String()
	}
	return lf.level.String()
}

func (lf *LevelFlag) Set(s string) error {
	if lf.level == nil {
		return fmt.Errorf("lumen: cannot set level on nil LevelFlag")
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return fmt.Errorf("lumen: failed to set level flag: %w", err)
	}
	*lf.level = parsed
	return nil
}

func (lf *LevelFlag) Type() string {
	return "level"
}

// AllLevels returns every concrete level in ascending order of severity
// (excluding the Off sentinel, which is a gate value, not a record level).
func AllLevels() []Level {
	return []Level{Trace, Debug, Info, Warn, Error, Fatal}
}

// AllLevelNames returns the string names of AllLevels, for help text and
// config validation messages.
func AllLevelNames() []string {
	levels := AllLevels()
	names := make([]string, len(levels))
	for i, level := range levels {
		names[i] = level.String()
	}
	return names
}

// IsValidLevel reports whether level is one of the concrete predefined
// levels or the Off sentinel.
func IsValidLevel(level Level) bool {
	return (level >= Trace && level <= Fatal) || level == Off
}
