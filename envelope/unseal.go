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
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"

	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"github.com/trustedge-labs/trustedge-go/manifest"
)

// Unseal implements §4.7 Unseal(envelope, recipient_sk): recompute the
// shared secret (commutativity guarantees the same value the sender
// derived), re-derive okm, reconstruct each chunk's nonce from its own
// stored sequence, decrypt, verify every manifest signature against
// envelope.IssuerPub, and reassemble. E1 (dense sequence) and E2
// (signature validity) are enforced before any plaintext is released.
func Unseal(env Envelope, recipientPriv ed25519.PrivateKey) ([]byte, error) {
	if len(env.IssuerPub) != ed25519.PublicKeySize {
		return nil, errs.New(errs.KindMalformedInput, "invalid issuer_pub length")
	}
	issuerPub := ed25519.PublicKey(env.IssuerPub)

	if err := verifySequence(env.Chunks); err != nil {
		return nil, err
	}
	for _, c := range env.Chunks {
		if !domainVerify(issuerPub, c.SignedManifest, c.ManifestSig) {
			return nil, errs.ErrSignatureFailed
		}
	}

	recipientX, err := ed25519PrivToX25519(recipientPriv)
	if err != nil {
		return nil, err
	}
	issuerX, err := ed25519PubToX25519(issuerPub)
	if err != nil {
		return nil, err
	}

	var out []byte
	if env.Version == VersionV1 {
		out, err = unsealV1(env, recipientX, issuerX)
	} else {
		out, err = unsealV2(env, recipientX, issuerX)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func unsealV2(env Envelope, recipientX, issuerX [32]byte) ([]byte, error) {
	shared, err := x25519(recipientX[:], issuerX[:])
	if err != nil {
		return nil, err
	}
	if err := rejectLowOrder(shared); err != nil {
		return nil, err
	}
	aeadKey, noncePrefix, err := deriveOKM(shared, env.HKDFSalt)
	if err != nil {
		return nil, err
	}
	defer zero(aeadKey)
	defer zero(noncePrefix)

	gcm, err := newGCM(aeadKey)
	if err != nil {
		return nil, err
	}

	return decryptChunks(env.Chunks, func(c Chunk) (cipher.AEAD, [12]byte) {
		return gcm, buildChunkNonce(noncePrefix, c.Seq, c.Last)
	})
}

func unsealV1(env Envelope, recipientX, issuerX [32]byte) ([]byte, error) {
	shared, err := x25519(recipientX[:], issuerX[:])
	if err != nil {
		return nil, err
	}
	if err := rejectLowOrder(shared); err != nil {
		return nil, err
	}

	var out []byte
	for _, c := range env.Chunks {
		aeadKey, noncePrefix, err := deriveOKM(shared, c.ChunkSalt)
		if err != nil {
			return nil, err
		}
		gcm, err := newGCM(aeadKey)
		zero(aeadKey)
		zero(noncePrefix)
		if err != nil {
			return nil, err
		}
		nonce := buildChunkNonce(noncePrefix, c.Seq, c.Last)
		pt, err := openChunk(gcm, nonce, c)
		if err != nil {
			return nil, err
		}
		out = append(out, pt...)
	}
	return out, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "aes.NewCipher", err)
	}
	return cipher.NewGCM(block)
}

func openChunk(gcm cipher.AEAD, nonce [12]byte, c Chunk) ([]byte, error) {
	manifestHash := manifest.Hash(c.SignedManifest)
	cm, err := decodeChunkManifest(c.SignedManifest)
	if err != nil {
		return nil, err
	}
	aad := manifest.BuildAAD(envelopeHeaderHash, uint64(c.Seq), nonce, manifestHash, cm.PtLen)
	pt, err := gcm.Open(nil, nonce[:], c.Ciphertext, aad[:])
	if err != nil {
		return nil, errs.ErrAeadFailed
	}
	if uint32(len(pt)) != cm.PtLen {
		return nil, errs.ErrChunkLenOutOfBounds
	}
	return pt, nil
}

func decryptChunks(chunks []Chunk, pick func(Chunk) (cipher.AEAD, [12]byte)) ([]byte, error) {
	var out []byte
	for _, c := range chunks {
		gcm, nonce := pick(c)
		pt, err := openChunk(gcm, nonce, c)
		if err != nil {
			return nil, err
		}
		out = append(out, pt...)
	}
	return out, nil
}

// verifySequence enforces the dense-sequence invariant (E1): chunks
// must be present for every index 0..N-1 with exactly one Last=true at
// the final index, before any decryption is attempted.
func verifySequence(chunks []Chunk) error {
	if len(chunks) == 0 {
		return errs.New(errs.KindMalformedInput, "envelope has no chunks")
	}
	for i, c := range chunks {
		if c.Seq != uint32(i) {
			return errs.New(errs.KindSequenceMismatch, "envelope chunk sequence is not dense")
		}
		isLast := i == len(chunks)-1
		if c.Last != isLast {
			return errs.New(errs.KindMalformedInput, "envelope last-chunk flag inconsistent with sequence")
		}
	}
	return nil
}
