// bridge_logrus.go: adapts a *Logger into a logrus.Hook so applications
// that still emit through logrus can be routed through lumen's pipeline
// without a rewrite.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"github.com/sirupsen/logrus"
)

// LogrusBridge adapts logrus entries into lumen Fields and forwards them
// to the wrapped Logger. logrus pushes one entry per call through
// Hook.Fire, so the bridge is a push adapter rather than a reader goroutine
// polling an external source.
type LogrusBridge struct {
	logger *Logger
	levels []logrus.Level
}

// NewLogrusBridge wraps logger for use as a logrus.Hook. levels restricts
// which logrus levels are forwarded; pass nil to forward every level
// logrus itself would emit.
func NewLogrusBridge(logger *Logger, levels ...logrus.Level) *LogrusBridge {
	if len(levels) == 0 {
		levels = logrus.AllLevels
	}
	return &LogrusBridge{logger: logger, levels: levels}
}

// Levels implements logrus.Hook.
func (b *LogrusBridge) Levels() []logrus.Level {
	return b.levels
}

// Fire implements logrus.Hook, translating entry into a lumen record on
// the bridged Logger.
func (b *LogrusBridge) Fire(entry *logrus.Entry) error {
	fields := make([]Field, 0, len(entry.Data))
	for k, v := range entry.Data {
		fields = append(fields, fieldFromAny(k, v))
	}
	b.logger.log(logrusLevelToLumen(entry.Level), entry.Message, fields)
	return nil
}

func logrusLevelToLumen(l logrus.Level) Level {
	switch l {
	case logrus.TraceLevel:
		return Trace
	case logrus.DebugLevel:
		return Debug
	case logrus.InfoLevel:
		return Info
	case logrus.WarnLevel:
		return Warn
	case logrus.ErrorLevel:
		return Error
	case logrus.FatalLevel, logrus.PanicLevel:
		return Fatal
	default:
		return Info
	}
}
