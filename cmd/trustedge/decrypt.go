// TrustEdge
// Copyright (C) 2025 TrustEdge-Labs
//
// This file is part of TrustEdge.
//
// TrustEdge is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// TrustEdge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with TrustEdge. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trustedge-labs/trustedge-go/envelope"
	"github.com/trustedge-labs/trustedge-go/format"
	"github.com/trustedge-labs/trustedge-go/internal/logger"
	"github.com/trustedge-labs/trustedge-go/stream"
)

var decryptFlags struct {
	input            string
	out              string
	keys             keyFlags
	recipientPrivHex string
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt a chunked stream or sealed envelope",
	Long: `Decrypt reads --input, auto-detecting whether it holds a TRST
chunked stream (§6.1) or a sealed envelope (§6.3, no magic of its
own), and writes the recovered plaintext to --out.

A stream uses the same key-selection flags as encrypt; an envelope is
asymmetric and needs the recipient's raw Ed25519 private key via
--recipient-priv-hex instead, since the backend abstraction never
exposes raw key material (hardware-compatible by design).`,
	RunE: runDecrypt,
}

func init() {
	rootCmd.AddCommand(decryptCmd)

	f := decryptCmd.Flags()
	f.StringVar(&decryptFlags.input, "input", "", "Input file (required)")
	f.StringVar(&decryptFlags.out, "out", "", "Output plaintext file (required)")
	f.StringVar(&decryptFlags.keys.keyHex, "key-hex", "", "64 hex chars: 32-byte AEAD key")
	f.BoolVar(&decryptFlags.keys.useKeyring, "use-keyring", false, "Derive the AEAD key from the keyring passphrase + --salt-hex")
	f.StringVar(&decryptFlags.keys.saltHex, "salt-hex", "", "32 hex chars: PBKDF2 salt (with --use-keyring)")
	f.StringVar(&decryptFlags.keys.backendName, "backend", "", "Derive the AEAD key from a named key backend")
	f.StringVar(&decryptFlags.recipientPrivHex, "recipient-priv-hex", "", "64 hex chars: recipient Ed25519 private key seed (for a sealed envelope)")

	decryptCmd.MarkFlagRequired("input")
	decryptCmd.MarkFlagRequired("out")
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(decryptFlags.input)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if bytes.HasPrefix(raw, format.Magic[:]) {
		return decryptStream(raw, decryptFlags.keys, decryptFlags.out)
	}
	return decryptEnvelope(raw, decryptFlags.recipientPrivHex, decryptFlags.out)
}

func decryptStream(raw []byte, k keyFlags, outPath string) error {
	if k.selectedCount() != 1 {
		return fmt.Errorf("exactly one of --key-hex, --use-keyring, or --backend must be given")
	}

	r := bytes.NewReader(raw)
	preamble, err := format.ReadPreamble(r)
	if err != nil {
		return fmt.Errorf("reading preamble: %w", err)
	}

	aeadKey, err := resolveAEADKey(k, preamble.HeaderHash)
	if err != nil {
		return fmt.Errorf("resolving AEAD key: %w", err)
	}

	consumer, err := stream.NewConsumer(preamble.Header, aeadKey)
	if err != nil {
		return fmt.Errorf("constructing consumer: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	n := 0
	err = stream.ReadStream(r, consumer, func(plaintext []byte) error {
		n++
		_, werr := out.Write(plaintext)
		return werr
	})
	if err != nil {
		return fmt.Errorf("decrypting stream: %w", err)
	}

	logger.Info("stream decrypted",
		logger.String("input", decryptFlags.input),
		logger.String("out", outPath),
		logger.Int("records", n),
	)
	return nil
}

func decryptEnvelope(raw []byte, recipientPrivHex, outPath string) error {
	if recipientPrivHex == "" {
		return fmt.Errorf("--recipient-priv-hex is required to decrypt a sealed envelope")
	}
	seed, err := hex.DecodeString(recipientPrivHex)
	if err != nil || len(seed) != ed25519.SeedSize {
		return fmt.Errorf("--recipient-priv-hex must be %d hex-encoded bytes", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)

	env, err := envelope.Decode(raw)
	if err != nil {
		return fmt.Errorf("decoding envelope: %w", err)
	}
	if err := env.Verify(); err != nil {
		return fmt.Errorf("envelope verification failed: %w", err)
	}

	plaintext, err := envelope.Unseal(env, priv)
	if err != nil {
		return fmt.Errorf("unsealing envelope: %w", err)
	}

	if err := os.WriteFile(outPath, plaintext, 0o600); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	logger.Info("envelope decrypted",
		logger.String("input", decryptFlags.input),
		logger.String("out", outPath),
		logger.Int("bytes", len(plaintext)),
	)
	return nil
}
