// codec_test.go: round-trip and tamper-detection tests for the encrypted
// frame codec.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	for _, algo := range []Algorithm{AlgorithmAESGCM, AlgorithmAESCBC, AlgorithmChaCha20Poly1305} {
		t.Run(algo.String(), func(t *testing.T) {
			c, err := NewCipher(algo, key)
			require.NoError(t, err)

			plaintext := []byte(`{"level":"info","message":"hello encrypted world"}`)
			frame, err := c.Seal(plaintext)
			require.NoError(t, err)

			decodedAlgo, err := DecodeAlgorithm(frame)
			require.NoError(t, err)
			assert.Equal(t, algo, decodedAlgo)

			got, err := c.Open(frame)
			require.NoError(t, err)
			assert.Equal(t, plaintext, got)
		})
	}
}

func TestAEADCipherRejectsTamperedCiphertext(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	c, err := NewCipher(AlgorithmAESGCM, key)
	require.NoError(t, err)

	frame, err := c.Seal([]byte("sensitive"))
	require.NoError(t, err)

	frame[len(frame)-1] ^= 0xFF

	_, err = c.Open(frame)
	assert.Error(t, err)
}

func TestNewCipherRejectsWrongKeySize(t *testing.T) {
	_, err := NewCipher(AlgorithmAESGCM, []byte("too-short"))
	assert.Error(t, err)
}
