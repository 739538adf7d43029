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
	"crypto/rand"
	"encoding/binary"
	"hash"
	"io"

	circldh "github.com/cloudflare/circl/dh/x25519"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"github.com/trustedge-labs/trustedge-go/manifest"
	"golang.org/x/crypto/hkdf"
	"lukechampine.com/blake3"
)

// envelopeManifestDomain separates envelope chunk-manifest signatures
// from stream-record manifest signatures (manifest.ManifestDomain),
// so a signature over one can never be replayed as the other.
const envelopeManifestDomain = "trustedge.envelope.v1"

// envelopeHeaderHash stands in for the stream pipeline's negotiated
// header_hash: an envelope carries no stream header, so its AAD binds
// a fixed identity instead, with hkdf_salt and issuer_pub carrying the
// actual per-envelope identity (§4.7).
var envelopeHeaderHash = blake3.Sum256([]byte("ENVELOPE_V1"))

func domainSign(priv ed25519.PrivateKey, msg []byte) []byte {
	prefixed := append([]byte(envelopeManifestDomain), msg...)
	return ed25519.Sign(priv, prefixed)
}

func domainVerify(pub ed25519.PublicKey, msg, sig []byte) bool {
	prefixed := append([]byte(envelopeManifestDomain), msg...)
	return ed25519.Verify(pub, prefixed, sig)
}

func deriveOKM(shared, salt []byte) (aeadKey, noncePrefix []byte, err error) {
	h := hkdf.New(blake3HashFunc, shared, salt, []byte(envelopeInfo))
	okm := make([]byte, 40)
	if _, err := io.ReadFull(h, okm); err != nil {
		return nil, nil, errs.Wrap(errs.KindInternal, "hkdf expand", err)
	}
	return okm[:32], okm[32:40], nil
}

// Seal implements §4.7 Seal(payload, sender_ed25519, recipient_ed25519)
// for format version 2.
func Seal(payload []byte, senderPriv ed25519.PrivateKey, senderPub ed25519.PublicKey, recipientPub ed25519.PublicKey) (Envelope, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return Envelope{}, errs.Wrap(errs.KindInternal, "drawing hkdf_salt", err)
	}

	senderX, err := ed25519PrivToX25519(senderPriv)
	if err != nil {
		return Envelope{}, err
	}
	recipientX, err := ed25519PubToX25519(recipientPub)
	if err != nil {
		return Envelope{}, err
	}
	shared, err := x25519(senderX[:], recipientX[:])
	if err != nil {
		return Envelope{}, err
	}
	if err := rejectLowOrder(shared); err != nil {
		return Envelope{}, err
	}

	aeadKey, noncePrefix, err := deriveOKM(shared, salt)
	if err != nil {
		return Envelope{}, err
	}
	defer zero(aeadKey)
	defer zero(noncePrefix)

	block, err := aes.NewCipher(aeadKey)
	if err != nil {
		return Envelope{}, errs.Wrap(errs.KindInternal, "aes.NewCipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Envelope{}, errs.Wrap(errs.KindInternal, "cipher.NewGCM", err)
	}

	numChunks := (len(payload) + chunkSize - 1) / chunkSize
	if numChunks == 0 {
		numChunks = 1
	}
	chunks := make([]Chunk, 0, numChunks)

	for i := 0; i < numChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		plaintext := payload[start:end]
		last := i == numChunks-1

		nonce := buildChunkNonce(noncePrefix, uint32(i), last)

		cm := chunkManifest{Seq: uint32(i), Last: last, PtLen: uint32(len(plaintext))}
		cmBytes, err := cm.encode()
		if err != nil {
			return Envelope{}, err
		}
		manifestHash := manifest.Hash(cmBytes)
		aad := manifest.BuildAAD(envelopeHeaderHash, uint64(i), nonce, manifestHash, uint32(len(plaintext)))

		ciphertext := gcm.Seal(nil, nonce[:], plaintext, aad[:])
		sig := domainSign(senderPriv, cmBytes)

		chunks = append(chunks, Chunk{
			Seq:            uint32(i),
			Last:           last,
			SignedManifest: cmBytes,
			ManifestSig:    sig,
			Ciphertext:     ciphertext,
		})
	}

	return Envelope{
		Version:   VersionV2,
		HKDFSalt:  salt,
		IssuerPub: append([]byte(nil), senderPub...),
		Chunks:    chunks,
	}, nil
}

func buildChunkNonce(prefix []byte, seq uint32, last bool) [12]byte {
	var nonce [12]byte
	copy(nonce[:8], prefix)
	var seqBuf [4]byte
	binary.BigEndian.PutUint32(seqBuf[:], seq)
	copy(nonce[8:11], seqBuf[1:4]) // low3(i)_be
	if last {
		nonce[11] = 0xFF
	} else {
		nonce[11] = 0x00
	}
	return nonce
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func blake3HashFunc() hash.Hash {
	return blake3.New(32, nil)
}

// x25519 computes the raw X25519 Diffie-Hellman output between a
// 32-byte scalar and a 32-byte Montgomery public point, via circl's
// constant-time implementation. circl's KeyExchange already reports
// failure on an all-zero (low-order identity) result, the same
// condition the callers' rejectLowOrder check tests afterwards, so the
// two checks overlap.
func x25519(privScalar, pubPoint []byte) ([]byte, error) {
	if len(privScalar) != circldh.Size || len(pubPoint) != circldh.Size {
		return nil, errs.New(errs.KindMalformedInput, "x25519 scalar/point must be 32 bytes")
	}
	var scalar, point, shared circldh.Key
	copy(scalar[:], privScalar)
	copy(point[:], pubPoint)
	if !circldh.KeyExchange(&shared, &scalar, &point) {
		return nil, errs.New(errs.KindMalformedInput, "x25519 shared secret is the identity point")
	}
	return shared[:], nil
}
