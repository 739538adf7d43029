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
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trustedge-labs/trustedge-go/config"
	"github.com/trustedge-labs/trustedge-go/envelope"
	"github.com/trustedge-labs/trustedge-go/format"
	"github.com/trustedge-labs/trustedge-go/internal/logger"
	"github.com/trustedge-labs/trustedge-go/manifest"
	"github.com/trustedge-labs/trustedge-go/stream"
)

var encryptFlags struct {
	input        string
	out          string
	env          string
	chunk        uint32
	keys         keyFlags
	sign         string
	recipientPub string
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a file into a chunked authenticated stream",
	Long: `Encrypt reads --input, chunks it at --chunk bytes per record, and
writes a length-delimited TRST stream (signed manifest + AEAD record
per chunk) to --out.

Exactly one of --key-hex, --use-keyring (with --salt-hex), or --backend
selects the stream's symmetric key.

When --envelope is also given, the same plaintext is additionally
sealed as a hybrid public-key envelope (requires --recipient-pub) and
written to that path.`,
	RunE: runEncrypt,
}

func init() {
	rootCmd.AddCommand(encryptCmd)

	f := encryptCmd.Flags()
	f.StringVar(&encryptFlags.input, "input", "", "Input file (required)")
	f.StringVar(&encryptFlags.out, "out", "", "Output stream file (required)")
	f.StringVar(&encryptFlags.env, "envelope", "", "Also seal the input as a hybrid envelope at this path")
	f.Uint32Var(&encryptFlags.chunk, "chunk", 4096, "Plaintext chunk size in bytes")
	f.StringVar(&encryptFlags.keys.keyHex, "key-hex", "", "64 hex chars: 32-byte AEAD key")
	f.BoolVar(&encryptFlags.keys.useKeyring, "use-keyring", false, "Derive the AEAD key from the keyring passphrase + --salt-hex")
	f.StringVar(&encryptFlags.keys.saltHex, "salt-hex", "", "32 hex chars: PBKDF2 salt (with --use-keyring)")
	f.StringVar(&encryptFlags.keys.backendName, "backend", "", "Derive the AEAD key from a named key backend")
	f.StringVar(&encryptFlags.sign, "sign-backend", "", "Backend that holds the manifest-signing key (default: configured backend)")
	f.StringVar(&encryptFlags.recipientPub, "recipient-pub", "", "64 hex chars: recipient Ed25519 public key (with --envelope)")

	encryptCmd.MarkFlagRequired("input")
	encryptCmd.MarkFlagRequired("out")
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	k := encryptFlags.keys
	if k.selectedCount() != 1 {
		return fmt.Errorf("exactly one of --key-hex, --use-keyring, or --backend must be given")
	}

	in, err := os.Open(encryptFlags.input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	signer, err := resolveSigner(encryptFlags.sign)
	if err != nil {
		return fmt.Errorf("resolving signing key: %w", err)
	}

	header, err := buildHeader(encryptFlags.chunk, k)
	if err != nil {
		return err
	}
	headerHash, err := format.HeaderHash(header)
	if err != nil {
		return err
	}

	aeadKey, err := resolveAEADKey(k, headerHash)
	if err != nil {
		return fmt.Errorf("resolving AEAD key: %w", err)
	}

	mime := "application/octet-stream"
	producer, err := stream.NewProducer(in, header, headerHash, aeadKey, signer, manifest.DataTypeFile(&mime))
	if err != nil {
		return fmt.Errorf("constructing producer: %w", err)
	}

	out, err := os.Create(encryptFlags.out)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	if err := stream.WriteStream(out, producer); err != nil {
		return fmt.Errorf("writing stream: %w", err)
	}

	logger.Info("stream encrypted",
		logger.String("input", encryptFlags.input),
		logger.String("out", encryptFlags.out),
		logger.Int("chunk_size", int(encryptFlags.chunk)),
	)

	if encryptFlags.env != "" {
		if err := sealEnvelope(encryptFlags.input, encryptFlags.env, encryptFlags.recipientPub); err != nil {
			return fmt.Errorf("sealing envelope: %w", err)
		}
		logger.Info("envelope sealed", logger.String("envelope", encryptFlags.env))
	}

	return nil
}

// buildHeader constructs a fresh v2 StreamHeader: random nonce prefix,
// the configured device identity hash, a key id derived from the
// chosen key-selection method, and the KDF algorithm implied by it.
func buildHeader(chunkSize uint32, k keyFlags) (format.StreamHeader, error) {
	var noncePrefix [4]byte
	if _, err := rand.Read(noncePrefix[:]); err != nil {
		return format.StreamHeader{}, err
	}

	device := config.DeviceFromEnv()
	if cfg.Device != nil && (cfg.Device.ID != "" || cfg.Device.Salt != "") {
		device = *cfg.Device
	}

	kdf := format.KDFHKDF
	if k.useKeyring {
		kdf = format.KDFPBKDF2SHA256
	}

	keyID := defaultKeyID(keyLabel(k))

	return format.StreamHeader{
		Version:      format.VersionAgile,
		AEADAlg:      format.AEADAES256GCM,
		SigAlg:       format.SigEd25519,
		HashAlg:      format.HashBlake3,
		KDFAlg:       kdf,
		KeyID:        keyID,
		DeviceIDHash: device.Hash(),
		NoncePrefix:  noncePrefix,
		ChunkSize:    chunkSize,
	}, nil
}

func keyLabel(k keyFlags) string {
	switch {
	case k.keyHex != "":
		return "key-hex"
	case k.useKeyring:
		return "keyring"
	default:
		return k.backendName
	}
}

// sealEnvelope reads the whole input again and wraps it as a C7 hybrid
// sealed envelope for recipientPubHex, signed by a fresh ephemeral
// Ed25519 identity (the envelope's issuer key has no relationship to
// the stream's manifest-signing backend key).
func sealEnvelope(inputPath, envPath, recipientPubHex string) error {
	if recipientPubHex == "" {
		return fmt.Errorf("--recipient-pub is required with --envelope")
	}
	recipientPubBytes, err := hex.DecodeString(recipientPubHex)
	if err != nil || len(recipientPubBytes) != ed25519.PublicKeySize {
		return fmt.Errorf("--recipient-pub must be %d hex-encoded bytes", ed25519.PublicKeySize)
	}

	payload, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}

	issuerPub, issuerPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}

	env, err := envelope.Seal(payload, issuerPriv, issuerPub, ed25519.PublicKey(recipientPubBytes))
	if err != nil {
		return err
	}
	encoded, err := env.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(envPath), 0o700); err != nil && filepath.Dir(envPath) != "." {
		return err
	}
	return os.WriteFile(envPath, encoded, 0o600)
}
