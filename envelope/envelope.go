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
	"github.com/fxamacker/cbor/v2"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

const (
	// VersionV2 carries a top-level hkdf_salt; VersionV1 envelopes carry
	// none and derive a fresh HKDF per chunk from a per-chunk salt
	// instead (§4.7 closing paragraph).
	VersionV2 = 2
	VersionV1 = 1

	envelopeInfo = "TRUSTEDGE_ENVELOPE_V1"
	chunkSize    = 64 * 1024
)

// Chunk is one AEAD-encrypted unit of a sealed envelope.
type Chunk struct {
	Seq            uint32 `cbor:"seq"`
	Last           bool   `cbor:"last"`
	SignedManifest []byte `cbor:"signed_manifest"`
	ManifestSig    []byte `cbor:"manifest_sig"`
	Ciphertext     []byte `cbor:"ciphertext"`
	ChunkSalt      []byte `cbor:"chunk_salt,omitempty"` // only populated for v1 envelopes
}

// Envelope is the sealed container: header-free (per §4.7, its
// identity is carried by hkdf_salt and issuer_pub, not a stream
// header), with the sender's signature verifiable per chunk.
type Envelope struct {
	Version   uint8   `cbor:"version"`
	HKDFSalt  []byte  `cbor:"hkdf_salt,omitempty"` // v2 only
	IssuerPub []byte  `cbor:"issuer_pub"`
	Chunks    []Chunk `cbor:"chunks"`
}

func (e Envelope) encode() ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	b, err := em.Marshal(e)
	if err != nil {
		return nil, errs.Wrap(errs.KindMalformedInput, "encoding envelope", err)
	}
	return b, nil
}

// Encode canonically serializes the envelope for storage or transport.
func (e Envelope) Encode() ([]byte, error) { return e.encode() }

// Decode is the inverse of Encode.
func Decode(b []byte) (Envelope, error) {
	var e Envelope
	if err := cbor.Unmarshal(b, &e); err != nil {
		return e, errs.Wrap(errs.KindMalformedInput, "decoding envelope", err)
	}
	return e, nil
}

// chunkManifest is the minimal per-chunk manifest the envelope signs:
// sequence and size only (§4.7 step 6), distinct from the stream
// pipeline's richer Manifest.
type chunkManifest struct {
	Seq   uint32 `cbor:"seq"`
	Last  bool   `cbor:"last"`
	PtLen uint32 `cbor:"pt_len"`
}

func (m chunkManifest) encode() ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(m)
}

func decodeChunkManifest(b []byte) (chunkManifest, error) {
	var m chunkManifest
	if err := cbor.Unmarshal(b, &m); err != nil {
		return m, errs.Wrap(errs.KindMalformedInput, "decoding chunk manifest", err)
	}
	return m, nil
}
