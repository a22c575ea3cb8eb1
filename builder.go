// builder.go: fluent structured-record builder
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

// RecordBuilder accumulates fields for a single record at a fixed level,
// deferring the actual log call until Emit. It performs no allocation
// beyond the field slice itself and does not touch the ring buffer until
// Emit is called.
type RecordBuilder struct {
	logger *Logger
	level  Level
	fields []Field
}

// Structured starts a RecordBuilder at level. The level check is deferred
// to Emit so building up fields for a disabled level costs only the slice
// growth, matching Logger.log's own gate.
func (l *Logger) Structured(level Level) *RecordBuilder {
	return &RecordBuilder{logger: l, level: level}
}

// Field appends f to the builder.
func (b *RecordBuilder) Field(f Field) *RecordBuilder {
	b.fields = append(b.fields, f)
	return b
}

// Fields appends every field in fs to the builder.
func (b *RecordBuilder) Fields(fs ...Field) *RecordBuilder {
	b.fields = append(b.fields, fs...)
	return b
}

// Str appends a string field.
func (b *RecordBuilder) Str(key, value string) *RecordBuilder { return b.Field(Str(key, value)) }

// Int appends an int field.
func (b *RecordBuilder) Int(key string, value int) *RecordBuilder { return b.Field(Int(key, value)) }

// Int64 appends an int64 field.
func (b *RecordBuilder) Int64(key string, value int64) *RecordBuilder {
	return b.Field(Int64(key, value))
}

// Float64 appends a float64 field.
func (b *RecordBuilder) Float64(key string, value float64) *RecordBuilder {
	return b.Field(Float64(key, value))
}

// Bool appends a bool field.
func (b *RecordBuilder) Bool(key string, value bool) *RecordBuilder {
	return b.Field(Bool(key, value))
}

// Err appends an error field under the conventional "error" key.
func (b *RecordBuilder) Err(err error) *RecordBuilder { return b.Field(ErrorField(err)) }

// Emit logs message at the builder's level with every accumulated field,
// going through Logger.log so sampling, caller capture and context
// injection all behave exactly as they do for the direct Info/Debug/...
// methods.
func (b *RecordBuilder) Emit(message string) {
	b.logger.log(b.level, message, b.fields)
}
