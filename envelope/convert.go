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

// Package envelope implements the C7 hybrid sealed envelope: an
// static/static Ed25519-to-X25519 Diffie-Hellman exchange whose
// output keys a chunked AEAD stream with per-chunk Ed25519-signed
// manifests.
package envelope

import (
	"crypto/ed25519"
	"crypto/sha512"
	"crypto/subtle"

	"filippo.io/edwards25519"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// ed25519PrivToX25519 performs the standard birational map from an
// Ed25519 private key's clamped SHA-512(seed) to the corresponding
// X25519 scalar (RFC 8032 §5.1.5).
func ed25519PrivToX25519(priv ed25519.PrivateKey) ([32]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return [32]byte{}, errs.New(errs.KindMalformedInput, "invalid ed25519 private key length")
	}
	seed := priv.Seed()
	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	var out [32]byte
	copy(out[:], h[:32])
	return out, nil
}

// ed25519PubToX25519 decompresses an Ed25519 public key's Edwards
// point and returns its Montgomery-form X25519 public key.
func ed25519PubToX25519(pub ed25519.PublicKey) ([32]byte, error) {
	if len(pub) != ed25519.PublicKeySize {
		return [32]byte{}, errs.New(errs.KindMalformedInput, "invalid ed25519 public key length")
	}
	p, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return [32]byte{}, errs.Wrap(errs.KindMalformedInput, "invalid ed25519 point", err)
	}
	var out [32]byte
	copy(out[:], p.BytesMontgomery())
	return out, nil
}

// rejectLowOrder guards against an all-zero X25519 shared secret,
// which results from a low-order or identity peer point.
func rejectLowOrder(shared []byte) error {
	var zero [32]byte
	if subtle.ConstantTimeCompare(shared, zero[:]) == 1 {
		return errs.New(errs.KindMalformedInput, "x25519 shared secret is the identity point")
	}
	return nil
}
