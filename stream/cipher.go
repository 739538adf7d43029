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

package stream

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"

	"github.com/trustedge-labs/trustedge-go/format"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"golang.org/x/crypto/chacha20poly1305"
	"lukechampine.com/blake3"
)

// TagLen is the AEAD authentication tag length used by every supported
// cipher (AES-256-GCM, ChaCha20-Poly1305).
const TagLen = 16

// NewAEAD constructs the cipher.AEAD for the given registry id. AES-256-SIV
// is a registered algorithm id but has no implementation wired in this
// build (see DESIGN.md); selecting it returns KindUnsupportedOperation
// rather than silently falling back to another cipher.
func NewAEAD(alg format.AEADAlgorithm, key []byte) (cipher.AEAD, error) {
	switch alg {
	case format.AEADAES256GCM:
		if len(key) != 32 {
			return nil, errs.New(errs.KindInvalidAlgorithm, "AES-256-GCM requires a 32-byte key")
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "aes.NewCipher", err)
		}
		return cipher.NewGCM(block)
	case format.AEADChaCha20Poly1305:
		if len(key) != chacha20poly1305.KeySize {
			return nil, errs.New(errs.KindInvalidAlgorithm, "ChaCha20-Poly1305 requires a 32-byte key")
		}
		return chacha20poly1305.New(key)
	case format.AEADAES256SIV:
		return nil, errs.Wrap(errs.KindUnsupportedOperation, "AES-256-SIV not wired in this build", nil)
	default:
		return nil, errs.Wrap(errs.KindInvalidAlgorithm, "aead_alg", nil)
	}
}

// HashWith computes the content hash used for pt_hash/manifest_hash
// under the stream's negotiated hash algorithm.
func HashWith(alg format.HashAlgorithm, b []byte) ([32]byte, error) {
	switch alg {
	case format.HashBlake3:
		return blake3.Sum256(b), nil
	case format.HashSHA256:
		return sha256.Sum256(b), nil
	default:
		return [32]byte{}, errs.Wrap(errs.KindInvalidAlgorithm, "hash_alg", nil)
	}
}
