// main.go: lumen-decrypt reads an encrypted sink's frame stream and writes
// the decoded records back out in the clear.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agilira/lumen/internal/crypto"
)

const (
	frameHeaderSize = 4 + 1 + 1 + 2 + 4 + 4 + 16 + 16
	encryptedLenOff = 12
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
		keyHex     string
		keyFile    string
	)

	cmd := &cobra.Command{
		Use:   "lumen-decrypt",
		Short: "Decrypt a lumen encrypted file sink's frame stream",
		Long: `lumen-decrypt reads the concatenated encrypted frames written by an
EncryptedFileSink and writes the decoded plaintext records to stdout (or
an output file), auto-detecting each frame's algorithm from its header.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveKey(keyHex, keyFile)
			if err != nil {
				return err
			}
			return run(inputPath, outputPath, key)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "in", "i", "", "path to the encrypted log file (required)")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "path to write decrypted output (default: stdout)")
	cmd.Flags().StringVarP(&keyHex, "key", "k", "", "32-byte decryption key, hex-encoded")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "path to a file containing the hex-encoded key")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func resolveKey(keyHex, keyFile string) ([]byte, error) {
	if keyHex == "" && keyFile == "" {
		if envKey := os.Getenv("LUMEN_DECRYPT_KEY"); envKey != "" {
			keyHex = envKey
		}
	}
	if keyFile != "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		keyHex = string(trimNewline(data))
	}
	if keyHex == "" {
		return nil, fmt.Errorf("a decryption key is required: pass --key, --key-file, or set LUMEN_DECRYPT_KEY")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding hex key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func run(inputPath, outputPath string, key []byte) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	out := io.Writer(os.Stdout)
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}

	ciphers := make(map[crypto.Algorithm]crypto.Cipher)
	header := make([]byte, frameHeaderSize)

	for {
		if _, err := io.ReadFull(in, header); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading frame header: %w", err)
		}

		algo, err := crypto.DecodeAlgorithm(header)
		if err != nil {
			return fmt.Errorf("decoding frame header: %w", err)
		}

		encryptedLen := binary.LittleEndian.Uint32(header[encryptedLenOff : encryptedLenOff+4])
		frame := make([]byte, frameHeaderSize+int(encryptedLen))
		copy(frame, header)
		if _, err := io.ReadFull(in, frame[frameHeaderSize:]); err != nil {
			return fmt.Errorf("reading frame body: %w", err)
		}

		c, ok := ciphers[algo]
		if !ok {
			c, err = crypto.NewCipher(algo, key)
			if err != nil {
				return fmt.Errorf("building cipher for %s: %w", algo, err)
			}
			ciphers[algo] = c
		}

		plaintext, err := c.Open(frame)
		if err != nil {
			return fmt.Errorf("decrypting frame: %w", err)
		}
		if _, err := out.Write(plaintext); err != nil {
			return fmt.Errorf("writing plaintext: %w", err)
		}
	}
}
