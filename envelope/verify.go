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

package envelope

import (
	"crypto/ed25519"

	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"lukechampine.com/blake3"
)

// Verify is a pure integrity check: it verifies every chunk manifest
// signature and the dense-sequence invariant (E1/E2) without ever
// attempting AEAD decryption, so an envelope can be audited without
// the recipient's private key.
func (e Envelope) Verify() error {
	if len(e.IssuerPub) != ed25519.PublicKeySize {
		return errs.New(errs.KindMalformedInput, "invalid issuer_pub length")
	}
	if err := verifySequence(e.Chunks); err != nil {
		return err
	}
	issuerPub := ed25519.PublicKey(e.IssuerPub)
	for _, c := range e.Chunks {
		if !domainVerify(issuerPub, c.SignedManifest, c.ManifestSig) {
			return errs.ErrSignatureFailed
		}
	}
	return nil
}

// Hash returns BLAKE3 of the envelope's canonical serialization. It is
// used as the chaining hash for higher-level transferable-claim
// workflows outside the core.
func (e Envelope) Hash() ([32]byte, error) {
	b, err := e.encode()
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(b), nil
}
