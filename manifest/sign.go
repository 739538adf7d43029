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

package manifest

import (
	"crypto/ed25519"

	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"lukechampine.com/blake3"
)

// ManifestDomain is the frozen domain-separation prefix for manifest
// signatures. Changing it is a wire-format break (§9).
const ManifestDomain = "trustedge.manifest.v1"

// Signer is satisfied by any backend.UniversalBackend-compatible
// signing key; kept minimal here to avoid a package-level dependency
// cycle with backend.
type Signer interface {
	Sign(message []byte) ([]byte, error)
	PublicKeyBytes() []byte
}

// SignManifest computes signer.Sign(domain || manifest_bytes) and
// returns the SignedManifest envelope.
func SignManifest(signer Signer, manifestBytes []byte) (SignedManifest, error) {
	sig, err := signer.Sign(domainPrefixed(manifestBytes))
	if err != nil {
		return SignedManifest{}, errs.Wrap(errs.KindSignatureFailed, "signing manifest", err)
	}
	return SignedManifest{
		ManifestBytes: manifestBytes,
		Sig:           sig,
		PubKey:        signer.PublicKeyBytes(),
	}, nil
}

// VerifyManifest applies the same domain prefix and checks the
// detached signature. A verification failure never distinguishes which
// byte mismatched.
func VerifyManifest(sm SignedManifest) error {
	if len(sm.PubKey) != ed25519.PublicKeySize {
		return errs.New(errs.KindSignatureFailed, "manifest verification failed")
	}
	msg := domainPrefixed(sm.ManifestBytes)
	if !ed25519.Verify(ed25519.PublicKey(sm.PubKey), msg, sm.Sig) {
		return errs.ErrSignatureFailed
	}
	return nil
}

func domainPrefixed(b []byte) []byte {
	out := make([]byte, 0, len(ManifestDomain)+len(b))
	out = append(out, []byte(ManifestDomain)...)
	out = append(out, b...)
	return out
}

// Hash returns BLAKE3 of arbitrary content; used both for pt_hash and
// for manifest_hash in the AAD tuple.
func Hash(b []byte) [32]byte {
	return blake3.Sum256(b)
}
