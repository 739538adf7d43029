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

package transport

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/sha512"
	"crypto/subtle"

	"filippo.io/edwards25519"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// ed25519PrivToX25519 and ed25519PubToX25519 mirror envelope's
// birational conversion helpers. The session protocol needs the same
// Ed25519-identity-to-X25519-ECDH conversion but is a separate
// package boundary (a client pins a server identity key independent
// of any envelope), so the handful of lines are kept local rather
// than exported cross-package.
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

func x25519(privScalar, pubPoint [32]byte) ([]byte, error) {
	curve := ecdh.X25519()
	priv, err := curve.NewPrivateKey(privScalar[:])
	if err != nil {
		return nil, errs.Wrap(errs.KindMalformedInput, "invalid x25519 scalar", err)
	}
	pub, err := curve.NewPublicKey(pubPoint[:])
	if err != nil {
		return nil, errs.Wrap(errs.KindMalformedInput, "invalid x25519 public point", err)
	}
	shared, err := priv.ECDH(pub)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "x25519 ecdh", err)
	}
	return shared, nil
}

func rejectLowOrder(shared []byte) error {
	var zero [32]byte
	if subtle.ConstantTimeCompare(shared, zero[:]) == 1 {
		return errs.New(errs.KindMalformedInput, "x25519 shared secret is the identity point")
	}
	return nil
}
