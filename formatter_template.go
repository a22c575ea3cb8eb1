// formatter_template.go: user-supplied placeholder template formatter
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"bytes"
	"strconv"
	"strings"
)

// TemplateFormatter renders a record through a user-supplied pattern with
// {placeholder} substitutions. Supported placeholders: timestamp,
// timestamp_local, level, level_lower, message, thread_id, file, filename,
// line, function, category, trace_id, span_id, and any structured field
// key. A placeholder may carry a minimum display width, {name:N}, which
// pads (space-fills) the substituted value; ANSI escape sequences are
// excluded from the width count.
type TemplateFormatter struct {
	Pattern string
}

// NewTemplateFormatter compiles a TemplateFormatter from pattern.
func NewTemplateFormatter(pattern string) *TemplateFormatter {
	return &TemplateFormatter{Pattern: pattern}
}

func (f *TemplateFormatter) Name() string { return "template" }

func (f *TemplateFormatter) Format(r *Record, buf *bytes.Buffer) {
	pattern := f.Pattern
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		if c != '{' {
			buf.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(pattern[i:], '}')
		if end < 0 {
			buf.WriteString(pattern[i:])
			break
		}
		end += i
		spec := pattern[i+1 : end]
		name, width := splitTemplateSpec(spec)
		value := f.resolvePlaceholder(name, r)
		writeTemplateValue(value, width, buf)
		i = end + 1
	}
	buf.WriteByte('\n')
}

func splitTemplateSpec(spec string) (name string, width int) {
	if idx := strings.IndexByte(spec, ':'); idx >= 0 {
		name = spec[:idx]
		width, _ = strconv.Atoi(spec[idx+1:])
		return name, width
	}
	return spec, 0
}

func (f *TemplateFormatter) resolvePlaceholder(name string, r *Record) string {
	switch name {
	case "timestamp":
		return r.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")
	case "timestamp_local":
		return r.Timestamp.Local().Format("2006-01-02 15:04:05.000")
	case "level":
		return r.Level.Upper()
	case "level_lower":
		return r.Level.String()
	case "message":
		return r.Message
	case "thread_id":
		return r.ThreadID
	case "file":
		return r.Caller.File
	case "filename":
		if idx := strings.LastIndexByte(r.Caller.File, '/'); idx >= 0 {
			return r.Caller.File[idx+1:]
		}
		return r.Caller.File
	case "line":
		if r.Caller.Valid {
			return strconv.Itoa(r.Caller.Line)
		}
		return ""
	case "function":
		return r.Caller.Function
	case "category":
		return r.Category
	case "trace_id":
		return r.Trace.TraceID
	case "span_id":
		return r.Trace.SpanID
	default:
		for _, field := range r.Fields {
			if field.K == name {
				return logfmtFieldValue(field)
			}
		}
		return ""
	}
}

func writeTemplateValue(value string, width int, buf *bytes.Buffer) {
	buf.WriteString(value)
	// Display width counts runes, skipping ANSI CSI sequences (ESC '['
	// parameters, then one final byte in 0x40..0x7E).
	visible := 0
	for i := 0; i < len(value); i++ {
		if value[i] == 0x1b && i+1 < len(value) && value[i+1] == '[' {
			for i += 2; i < len(value) && (value[i] < 0x40 || value[i] > 0x7e); i++ {
			}
			continue
		}
		if value[i]&0xc0 != 0x80 {
			visible++
		}
	}
	for ; visible < width; visible++ {
		buf.WriteByte(' ')
	}
}
