// decorator_formatted.go: formatter-applying writer decorator
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import "github.com/agilira/lumen/internal/bufferpool"

// FormattedWriter renders a Record through Formatter and writes the result
// to Inner, borrowing its scratch buffer from the shared pool so repeated
// formatting on the hot path doesn't allocate.
type FormattedWriter struct {
	Formatter Formatter
	Inner     WriteSyncer
}

// NewFormattedWriter pairs a Formatter with the WriteSyncer it renders into.
func NewFormattedWriter(formatter Formatter, inner WriteSyncer) *FormattedWriter {
	return &FormattedWriter{Formatter: formatter, Inner: inner}
}

// WriteRecord formats r and forwards the bytes to Inner.
func (w *FormattedWriter) WriteRecord(r *Record) (int, error) {
	buf := bufferpool.Get()
	defer bufferpool.Put(buf)

	w.Formatter.Format(r, buf)
	return w.Inner.Write(buf.Bytes())
}

func (w *FormattedWriter) Write(p []byte) (int, error) {
	return w.Inner.Write(p)
}

func (w *FormattedWriter) Sync() error {
	return w.Inner.Sync()
}

// Close closes Inner if it implements io.Closer, propagating shutdown
// through the decorator chain to the async/buffered stage and the sink.
func (w *FormattedWriter) Close() error {
	if closer, ok := w.Inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Name returns "formatted(<formatter_name>)_<inner_name>".
func (w *FormattedWriter) Name() string {
	return "formatted(" + w.Formatter.Name() + ")_" + innerName(w.Inner)
}

// IsHealthy reports whether Inner is healthy, if it exposes a health check.
func (w *FormattedWriter) IsHealthy() bool {
	return innerHealthy(w.Inner)
}
