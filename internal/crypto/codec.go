// Package crypto implements the encrypted sink's frame codec: AES-256-GCM,
// AES-256-CBC and ChaCha20-Poly1305, behind one small Cipher interface so
// the sink can swap algorithms without changing its write path.
//
// Frame layout (little-endian):
//
//	magic             uint32  0x454E4352 ("ENCR")
//	version           uint8
//	algorithm         uint8
//	reserved          uint16
//	original_length   uint32
//	encrypted_length  uint32
//	iv                [16]byte
//	tag               [16]byte
//	ciphertext        []byte
//
// AEAD modes (GCM, ChaCha20-Poly1305) use a nonce shorter than 16 bytes; it
// occupies the low bytes of the iv field and the remainder is zero. CBC has
// no authentication tag of its own, so the tag field is left zeroed and
// integrity relies on the outer sink framing instead.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm identifies the frame's cipher.
type Algorithm uint8

const (
	AlgorithmAESGCM Algorithm = iota + 1
	AlgorithmAESCBC
	AlgorithmChaCha20Poly1305
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmAESGCM:
		return "aes-256-gcm"
	case AlgorithmAESCBC:
		return "aes-256-cbc"
	case AlgorithmChaCha20Poly1305:
		return "chacha20-poly1305"
	default:
		return "unknown"
	}
}

const (
	frameMagic   uint32 = 0x454E4352
	frameVersion uint8  = 1
	ivSize              = 16
	tagSize             = 16
	headerSize          = 4 + 1 + 1 + 2 + 4 + 4 + ivSize + tagSize
)

// Cipher seals and opens record payloads into/from framed ciphertext.
type Cipher interface {
	Algorithm() Algorithm
	Seal(plaintext []byte) ([]byte, error)
	Open(frame []byte) ([]byte, error)
}

// NewCipher builds a Cipher for algo from a 32-byte key.
func NewCipher(algo Algorithm, key []byte) (Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("crypto: key must be 32 bytes, got %d", len(key))
	}
	switch algo {
	case AlgorithmAESGCM:
		return newAESGCMCipher(key)
	case AlgorithmAESCBC:
		return newAESCBCCipher(key)
	case AlgorithmChaCha20Poly1305:
		return newChaChaCipher(key)
	default:
		return nil, fmt.Errorf("crypto: unsupported algorithm %d", algo)
	}
}

// --- AES-256-GCM (preferred) ---

type aesGCMCipher struct {
	aead cipher.AEAD
}

func newAESGCMCipher(key []byte) (*aesGCMCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aesGCMCipher{aead: aead}, nil
}

func (c *aesGCMCipher) Algorithm() Algorithm { return AlgorithmAESGCM }

func (c *aesGCMCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	ct, tag := splitTag(sealed, c.aead.Overhead())
	return encodeFrame(AlgorithmAESGCM, nonce, tag, ct, len(plaintext)), nil
}

func (c *aesGCMCipher) Open(frame []byte) ([]byte, error) {
	hdr, iv, tag, ct, err := decodeFrame(frame, AlgorithmAESGCM)
	if err != nil {
		return nil, err
	}
	nonce := iv[:c.aead.NonceSize()]
	sealed := append(append([]byte(nil), ct...), tag...)
	pt, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, err
	}
	if uint32(len(pt)) != hdr.originalLength {
		return nil, fmt.Errorf("crypto: decoded length mismatch")
	}
	return pt, nil
}

// --- ChaCha20-Poly1305 ---

type chaChaCipher struct {
	aead cipher.AEAD
}

func newChaChaCipher(key []byte) (*chaChaCipher, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &chaChaCipher{aead: aead}, nil
}

func (c *chaChaCipher) Algorithm() Algorithm { return AlgorithmChaCha20Poly1305 }

func (c *chaChaCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	ct, tag := splitTag(sealed, c.aead.Overhead())
	return encodeFrame(AlgorithmChaCha20Poly1305, nonce, tag, ct, len(plaintext)), nil
}

func (c *chaChaCipher) Open(frame []byte) ([]byte, error) {
	hdr, iv, tag, ct, err := decodeFrame(frame, AlgorithmChaCha20Poly1305)
	if err != nil {
		return nil, err
	}
	nonce := iv[:c.aead.NonceSize()]
	sealed := append(append([]byte(nil), ct...), tag...)
	pt, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, err
	}
	if uint32(len(pt)) != hdr.originalLength {
		return nil, fmt.Errorf("crypto: decoded length mismatch")
	}
	return pt, nil
}

// --- AES-256-CBC ---

type aesCBCCipher struct {
	block cipher.Block
}

func newAESCBCCipher(key []byte) (*aesCBCCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &aesCBCCipher{block: block}, nil
}

func (c *aesCBCCipher) Algorithm() Algorithm { return AlgorithmAESCBC }

func (c *aesCBCCipher) Seal(plaintext []byte) ([]byte, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ct, padded)
	return encodeFrame(AlgorithmAESCBC, iv, make([]byte, tagSize), ct, len(plaintext)), nil
}

func (c *aesCBCCipher) Open(frame []byte) ([]byte, error) {
	hdr, iv, _, ct, err := decodeFrame(frame, AlgorithmAESCBC)
	if err != nil {
		return nil, err
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("crypto: invalid ciphertext length")
	}
	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(padded, ct)
	pt, err := pkcs7Unpad(padded)
	if err != nil {
		return nil, err
	}
	if uint32(len(pt)) != hdr.originalLength {
		return nil, fmt.Errorf("crypto: decoded length mismatch")
	}
	return pt, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("crypto: empty padded block")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("crypto: invalid padding")
	}
	return data[:len(data)-padLen], nil
}

// --- frame header ---

type frameHeader struct {
	algorithm       Algorithm
	originalLength  uint32
	encryptedLength uint32
}

func splitTag(sealed []byte, overhead int) (ciphertext, tag []byte) {
	n := len(sealed) - overhead
	return sealed[:n], sealed[n:]
}

func encodeFrame(algo Algorithm, iv, tag, ciphertext []byte, originalLen int) []byte {
	buf := make([]byte, headerSize+len(ciphertext))
	binary.LittleEndian.PutUint32(buf[0:4], frameMagic)
	buf[4] = frameVersion
	buf[5] = byte(algo)
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(originalLen))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(ciphertext)))
	ivField := buf[16 : 16+ivSize]
	copy(ivField, iv)
	tagField := buf[16+ivSize : 16+ivSize+tagSize]
	copy(tagField, tag)
	copy(buf[headerSize:], ciphertext)
	return buf
}

func decodeFrame(frame []byte, want Algorithm) (frameHeader, []byte, []byte, []byte, error) {
	if len(frame) < headerSize {
		return frameHeader{}, nil, nil, nil, fmt.Errorf("crypto: frame too short")
	}
	magic := binary.LittleEndian.Uint32(frame[0:4])
	if magic != frameMagic {
		return frameHeader{}, nil, nil, nil, fmt.Errorf("crypto: bad frame magic")
	}
	version := frame[4]
	if version != frameVersion {
		return frameHeader{}, nil, nil, nil, fmt.Errorf("crypto: unsupported frame version %d", version)
	}
	algo := Algorithm(frame[5])
	if algo != want {
		return frameHeader{}, nil, nil, nil, fmt.Errorf("crypto: frame algorithm %s does not match cipher %s", algo, want)
	}
	originalLen := binary.LittleEndian.Uint32(frame[8:12])
	encryptedLen := binary.LittleEndian.Uint32(frame[12:16])
	iv := frame[16 : 16+ivSize]
	tag := frame[16+ivSize : 16+ivSize+tagSize]
	ct := frame[headerSize:]
	if uint32(len(ct)) != encryptedLen {
		return frameHeader{}, nil, nil, nil, fmt.Errorf("crypto: encrypted length mismatch")
	}
	hdr := frameHeader{algorithm: algo, originalLength: originalLen, encryptedLength: encryptedLen}
	return hdr, iv, tag, ct, nil
}

// DecodeAlgorithm peeks a frame's algorithm byte without fully parsing it,
// used by the decryption CLI to pick the right Cipher before a key is known.
func DecodeAlgorithm(frame []byte) (Algorithm, error) {
	if len(frame) < headerSize {
		return 0, fmt.Errorf("crypto: frame too short")
	}
	if binary.LittleEndian.Uint32(frame[0:4]) != frameMagic {
		return 0, fmt.Errorf("crypto: bad frame magic")
	}
	return Algorithm(frame[5]), nil
}

// GenerateKey returns a random 32-byte key suitable for any Algorithm here.
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
