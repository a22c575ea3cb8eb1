// formatter_json.go: JSON formatter, one object per record
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"bytes"
	"strconv"
	"time"

	"github.com/agilira/go-timecache"
)

// JSONFormatter renders one NDJSON object per record. Keys follow the wire
// format: timestamp, level, thread_id, message, optional file/line/function,
// optional category/trace_id/span_id, then every structured field.
type JSONFormatter struct {
	// Pretty enables indented output; disabled by default for throughput.
	Pretty bool
}

// NewJSONFormatter creates a JSONFormatter with default (compact) settings.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Name() string { return "json" }

func (f *JSONFormatter) Format(r *Record, buf *bytes.Buffer) {
	buf.Grow(160)
	buf.WriteByte('{')

	buf.WriteString(`"timestamp":"`)
	f.writeTime(r.Timestamp, buf)
	buf.WriteByte('"')

	buf.WriteString(`,"level":"`)
	buf.WriteString(r.Level.Upper())
	buf.WriteByte('"')

	if r.ThreadID != "" {
		buf.WriteString(`,"thread_id":`)
		quoteJSONString(r.ThreadID, buf)
	}

	buf.WriteString(`,"message":`)
	quoteJSONString(r.Message, buf)

	if r.Caller.Valid {
		buf.WriteString(`,"file":`)
		quoteJSONString(r.Caller.File, buf)
		buf.WriteString(`,"line":`)
		buf.WriteString(strconv.Itoa(r.Caller.Line))
		if r.Caller.Function != "" {
			buf.WriteString(`,"function":`)
			quoteJSONString(r.Caller.Function, buf)
		}
	}

	if r.Category != "" {
		buf.WriteString(`,"category":`)
		quoteJSONString(r.Category, buf)
	}

	if r.Trace.Valid {
		buf.WriteString(`,"trace_id":`)
		quoteJSONString(r.Trace.TraceID, buf)
		buf.WriteString(`,"span_id":`)
		quoteJSONString(r.Trace.SpanID, buf)
		if r.Trace.ParentSpanID != "" {
			buf.WriteString(`,"parent_span_id":`)
			quoteJSONString(r.Trace.ParentSpanID, buf)
		}
	}

	if r.StackTrace != "" {
		buf.WriteString(`,"stack":`)
		quoteJSONString(r.StackTrace, buf)
	}

	for _, field := range r.Fields {
		buf.WriteByte(',')
		quoteJSONString(field.K, buf)
		buf.WriteByte(':')
		f.writeFieldValue(field, buf)
	}

	buf.WriteByte('}')
	buf.WriteByte('\n')
}

func (f *JSONFormatter) writeTime(t time.Time, buf *bytes.Buffer) {
	if cached := timecache.CachedTime(); t.Sub(cached).Abs() < 500*time.Microsecond {
		buf.WriteString(timecache.CachedTimeString())
		return
	}
	buf.WriteString(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

func (f *JSONFormatter) writeFieldValue(field Field, buf *bytes.Buffer) {
	switch field.T {
	case kindString:
		quoteJSONString(field.Str, buf)
	case kindInt64:
		buf.WriteString(strconv.FormatInt(field.I64, 10))
	case kindUint64:
		buf.WriteString(strconv.FormatUint(field.U64, 10))
	case kindFloat64:
		buf.WriteString(strconv.FormatFloat(field.F64, 'f', -1, 64))
	case kindBool:
		if field.I64 != 0 {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case kindDur:
		buf.WriteString(strconv.FormatInt(field.I64, 10))
	case kindTime:
		quoteJSONString(time.Unix(0, field.I64).UTC().Format(time.RFC3339Nano), buf)
	case kindBytes:
		buf.WriteByte('[')
		for i, b := range field.B {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Itoa(int(b)))
		}
		buf.WriteByte(']')
	case kindSecret:
		buf.WriteString(`"[REDACTED]"`)
	case kindError:
		if field.Obj == nil {
			buf.WriteString("null")
		} else if err, ok := field.Obj.(error); ok {
			quoteJSONString(err.Error(), buf)
		} else {
			quoteJSONString("unknown error", buf)
		}
	case kindStringer:
		if s, ok := field.Obj.(interface{ String() string }); ok {
			quoteJSONString(s.String(), buf)
		} else {
			buf.WriteString("null")
		}
	default:
		quoteJSONString(genericString(field.Obj), buf)
	}
}
