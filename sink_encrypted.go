// sink_encrypted.go: encrypted file sink wrapping internal/crypto framing
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/agilira/go-errors"
	"github.com/agilira/lumen/internal/crypto"
)

// EncryptionAlgorithm selects the encrypted sink's cipher.
type EncryptionAlgorithm = crypto.Algorithm

const (
	EncryptAESGCM           = crypto.AlgorithmAESGCM
	EncryptAESCBC           = crypto.AlgorithmAESCBC
	EncryptChaCha20Poly1305 = crypto.AlgorithmChaCha20Poly1305
)

// EncryptedFileConfig configures an EncryptedFileSink.
type EncryptedFileConfig struct {
	Path      string
	Algorithm EncryptionAlgorithm
	Key       []byte // 32 bytes
}

// EncryptedFileSink encrypts every write as one AEAD/CBC frame before
// appending it to the backing file. Each call to Write is treated as one
// record's worth of plaintext; frames go straight to the sink's own
// *os.File, which is never rotated.
type EncryptedFileSink struct {
	mu   sync.Mutex
	file *os.File
	path string

	cipher    unsafe.Pointer // *crypto.Cipher, swapped atomically on rotation
	unhealthy int32
}

// zeroBytes overwrites b in place; called on key material once it has been
// absorbed into a cipher's own expanded key schedule, so the caller's copy
// doesn't outlive its usefulness in memory.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// NewEncryptedFileSink opens cfg.Path for append and builds the configured
// cipher from cfg.Key. cfg.Key is zeroized in place once the cipher has
// absorbed it.
func NewEncryptedFileSink(cfg EncryptedFileConfig) (*EncryptedFileSink, error) {
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, WrapLoggerError(err, ErrCodeFileOpen, "failed to open encrypted log file")
	}
	c, err := crypto.NewCipher(cfg.Algorithm, cfg.Key)
	if err != nil {
		f.Close()
		return nil, WrapLoggerError(err, ErrCodeEncryptionFailed, "failed to initialize cipher")
	}
	zeroBytes(cfg.Key)
	s := &EncryptedFileSink{file: f, path: cfg.Path}
	atomic.StorePointer(&s.cipher, unsafe.Pointer(&c))
	return s, nil
}

func (s *EncryptedFileSink) currentCipher() crypto.Cipher {
	return *(*crypto.Cipher)(atomic.LoadPointer(&s.cipher))
}

// RotateKey swaps in a freshly built cipher for newKey, built with the same
// algorithm as the sink was created with; writes are held off only while
// the file is synced and the cipher pointer swapped. newKey is zeroized in place once
// the new cipher has absorbed it; go's crypto/aes and crypto/chacha20poly1305
// copy key bytes into their own expanded schedule on construction, but the
// retired cipher itself holds no exported way to zero what it already
// absorbed, so its key bytes are released to the garbage collector rather
// than wiped.
func (s *EncryptedFileSink) RotateKey(newKey []byte) error {
	algo := s.currentCipher().Algorithm()
	next, err := crypto.NewCipher(algo, newKey)
	if err != nil {
		atomic.StoreInt32(&s.unhealthy, 1)
		return WrapLoggerError(err, ErrCodeKeyRotation, "failed to build rotated cipher")
	}
	zeroBytes(newKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Sync(); err != nil {
		atomic.StoreInt32(&s.unhealthy, 1)
		return errors.Wrap(err, ErrCodeKeyRotation, "failed to flush before key rotation")
	}
	atomic.StorePointer(&s.cipher, unsafe.Pointer(&next))
	return nil
}

// Write encrypts p as a single frame and appends it. Write refuses once the
// sink is unhealthy (a prior seal or write failure), matching the
// encrypted sink's requirement to stop accepting records rather than write
// a frame it can no longer trust.
func (s *EncryptedFileSink) Write(p []byte) (int, error) {
	if atomic.LoadInt32(&s.unhealthy) == 1 {
		return 0, NewLoggerError(ErrCodeEncryptionFailed, "encrypted sink is unhealthy, refusing write")
	}

	frame, err := s.currentCipher().Seal(p)
	if err != nil {
		atomic.StoreInt32(&s.unhealthy, 1)
		return 0, WrapLoggerError(err, ErrCodeEncryptionFailed, "failed to seal record frame")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(frame); err != nil {
		atomic.StoreInt32(&s.unhealthy, 1)
		return 0, errors.Wrap(err, ErrCodeFileWrite, "failed to write encrypted frame")
	}
	return len(p), nil
}

func (s *EncryptedFileSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Sync(); err != nil {
		atomic.StoreInt32(&s.unhealthy, 1)
		return err
	}
	return nil
}

func (s *EncryptedFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *EncryptedFileSink) Capabilities() SinkCapability {
	return CapSynchronous | CapEncrypted
}

// Name returns "encrypted_file:<path>".
func (s *EncryptedFileSink) Name() string {
	return "encrypted_file:" + s.path
}

// IsHealthy reports false once a seal, write, sync, or key rotation has
// failed; per the key-failure requirement, it then refuses further writes.
func (s *EncryptedFileSink) IsHealthy() bool {
	return atomic.LoadInt32(&s.unhealthy) == 0
}
