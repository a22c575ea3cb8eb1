// level_test.go: Level parsing, ordering, atomic gate, and pflag adapter
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelOrdering(t *testing.T) {
	assert.True(t, Trace < Debug)
	assert.True(t, Debug < Info)
	assert.True(t, Info < Warn)
	assert.True(t, Warn < Error)
	assert.True(t, Error < Fatal)
	assert.True(t, Fatal < Off)
}

func TestParseLevelAliases(t *testing.T) {
	cases := map[string]Level{
		"trace":   Trace,
		"DEBUG":   Debug,
		" info ":  Info,
		"warn":    Warn,
		"warning": Warn,
		"error":   Error,
		"err":     Error,
		"fatal":   Fatal,
		"off":     Off,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseLevelUnknownReturnsError(t *testing.T) {
	_, err := ParseLevel("nonsense")
	assert.Error(t, err)
}

func TestLevelTextMarshalRoundTrip(t *testing.T) {
	for _, l := range []Level{Trace, Debug, Info, Warn, Error, Fatal, Off} {
		text, err := l.MarshalText()
		require.NoError(t, err)

		var decoded Level
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, l, decoded)
	}
}

func TestAtomicLevelConcurrentGate(t *testing.T) {
	al := NewAtomicLevel(Info)
	assert.False(t, al.Enabled(Debug))
	assert.True(t, al.Enabled(Info))

	al.SetLevel(Error)
	assert.False(t, al.Enabled(Warn))
	assert.True(t, al.Enabled(Fatal))
}

func TestLevelFlagSetAndString(t *testing.T) {
	var l Level
	flag := NewLevelFlag(&l)

	assert.NoError(t, flag.Set("warn"))
	assert.Equal(t, Warn, l)
	assert.Equal(t, "warn", flag.String())

	assert.Error(t, flag.Set("garbage"))
}

func TestLevelFlagNilLevelErrors(t *testing.T) {
	flag := NewLevelFlag(nil)
	assert.Equal(t, "info", flag.String())
	assert.Error(t, flag.Set("warn"))
}
