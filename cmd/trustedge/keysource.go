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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/trustedge-labs/trustedge-go/backend"
	"github.com/trustedge-labs/trustedge-go/format"
)

const aeadKeyLen = 32

// keyFlags holds the encrypt/decrypt key-selection flags shared by
// both commands: exactly one of keyHex, useKeyring, or backendName
// must be satisfied (§6.4).
type keyFlags struct {
	keyHex      string
	useKeyring  bool
	saltHex     string
	backendName string
}

func (k keyFlags) selectedCount() int {
	n := 0
	if k.keyHex != "" {
		n++
	}
	if k.useKeyring {
		n++
	}
	if k.backendName != "" {
		n++
	}
	return n
}

// resolveAEADKey derives the stream/envelope symmetric key from
// whichever key-selection flag was given. headerHash binds a
// backend-derived key to this stream's identity so the same backend
// key never produces the same AEAD key across two different streams.
func resolveAEADKey(k keyFlags, headerHash [32]byte) ([]byte, error) {
	switch {
	case k.keyHex != "":
		key, err := hex.DecodeString(k.keyHex)
		if err != nil {
			return nil, fmt.Errorf("--key-hex: %w", err)
		}
		if len(key) != aeadKeyLen {
			return nil, fmt.Errorf("--key-hex: want %d bytes, got %d", aeadKeyLen, len(key))
		}
		return key, nil

	case k.useKeyring:
		if k.saltHex == "" {
			return nil, fmt.Errorf("--use-keyring requires --salt-hex")
		}
		salt, err := hex.DecodeString(k.saltHex)
		if err != nil {
			return nil, fmt.Errorf("--salt-hex: %w", err)
		}
		passphrase := passphraseFromKeyring()
		if passphrase == "" {
			return nil, fmt.Errorf("no passphrase available from %s (set it with set-passphrase)", cfg.Backend.PassphraseEnv)
		}
		return pbkdf2.Key([]byte(passphrase), salt, 600_000, aeadKeyLen, sha256.New), nil

	case k.backendName != "":
		b, err := resolveBackend(k.backendName)
		if err != nil {
			return nil, err
		}
		id := defaultKeyID(k.backendName)
		res, err := b.PerformOperation(id, backend.Op{Kind: backend.OpDeriveKey, Context: headerHash[:]})
		if err != nil {
			return nil, fmt.Errorf("backend %q does not support symmetric key derivation: %w", k.backendName, err)
		}
		if len(res.Bytes) < aeadKeyLen {
			return nil, fmt.Errorf("backend %q returned a derived key shorter than %d bytes", k.backendName, aeadKeyLen)
		}
		return res.Bytes[:aeadKeyLen], nil

	default:
		return nil, fmt.Errorf("exactly one of --key-hex, --use-keyring, or --backend must be given")
	}
}

// ensureSigningKey makes sure backend b holds an Ed25519 key under id,
// generating one on first use for backends that support it (the
// software HSM; a PIV token's slot is provisioned out of band and
// GenerateKeyPair is simply unsupported there).
func ensureSigningKey(b backend.Backend, id [16]byte) error {
	keys, err := b.ListKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k.KeyID == id {
			return nil
		}
	}
	if !b.SupportsOperation(backend.OpGenerateKeyPair) {
		return fmt.Errorf("backend %s has no key %x and cannot generate one", b.BackendInfo().Name, id)
	}
	_, err = b.PerformOperation(id, backend.Op{Kind: backend.OpGenerateKeyPair, AsymAlg: backend.AsymEd25519})
	return err
}

// backendSigner adapts a backend.Backend + key id to manifest.Signer.
type backendSigner struct {
	b  backend.Backend
	id [16]byte
}

func (s backendSigner) Sign(msg []byte) ([]byte, error) {
	res, err := s.b.PerformOperation(s.id, backend.Op{Kind: backend.OpSign, Data: msg, SigAlg: format.SigEd25519})
	if err != nil {
		return nil, err
	}
	return res.Bytes, nil
}

func (s backendSigner) PublicKeyBytes() []byte {
	res, err := s.b.PerformOperation(s.id, backend.Op{Kind: backend.OpGetPublicKey})
	if err != nil {
		return nil
	}
	return res.Bytes
}

// resolveSigner builds the manifest Signer for the named backend,
// generating its signing key on first use.
func resolveSigner(backendName string) (backendSigner, error) {
	if backendName == "" {
		backendName = cfg.Backend.Type
	}
	b, err := resolveBackend(backendName)
	if err != nil {
		return backendSigner{}, err
	}
	id := defaultKeyID(backendName)
	if err := ensureSigningKey(b, id); err != nil {
		return backendSigner{}, err
	}
	return backendSigner{b: b, id: id}, nil
}

func passphraseFromKeyring() string {
	envVar := cfg.Backend.PassphraseEnv
	if envVar == "" {
		envVar = "TRUSTEDGE_PASSPHRASE"
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if data, err := os.ReadFile(passphraseFilePath()); err == nil {
		return string(data)
	}
	return ""
}
