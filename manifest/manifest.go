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

// Package manifest implements the per-record Manifest/SignedManifest/
// Record types, their canonical CBOR encoding, and the fixed 88-byte
// AAD tuple bound into every AEAD record.
package manifest

import (
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// AudioFormat enumerates the sample formats DataTypeAudio may carry.
type AudioFormat struct {
	Kind string `cbor:"kind"` // "F32Le" | "I16Le" | "I24Le" | "Other"
	Name string `cbor:"name,omitempty"`
}

// DataType is the tagged union describing what a record's plaintext
// represents. Exactly one of the typed fields is populated, selected
// by Kind.
type DataType struct {
	Kind string `cbor:"kind"` // "File" | "Audio" | "Video" | "Sensor" | "Unknown"

	// File
	MimeType *string `cbor:"mime_type,omitempty"`

	// Audio
	SampleRate uint32      `cbor:"sample_rate,omitempty"`
	Channels   uint8       `cbor:"channels,omitempty"`
	Format     AudioFormat `cbor:"format,omitempty"`

	// Video (reuses Format for its pixel format name)
	Width  uint32 `cbor:"width,omitempty"`
	Height uint32 `cbor:"height,omitempty"`
	FPS    uint32 `cbor:"fps,omitempty"`

	// Sensor
	SensorType string `cbor:"sensor_type,omitempty"`
}

func DataTypeFile(mime *string) DataType { return DataType{Kind: "File", MimeType: mime} }
func DataTypeUnknown() DataType          { return DataType{Kind: "Unknown"} }

// Manifest is the per-record structured metadata that gets signed and
// bound into the record's AAD.
type Manifest struct {
	V          uint8    `cbor:"v"`
	TsMs       int64    `cbor:"ts_ms"`
	Seq        uint64   `cbor:"seq"`
	HeaderHash [32]byte `cbor:"header_hash"`
	PtHash     [32]byte `cbor:"pt_hash"`
	KeyID      [16]byte `cbor:"key_id"`
	AIUsed     bool     `cbor:"ai_used"`
	ModelIDs   []string `cbor:"model_ids,omitempty"`
	DataType   DataType `cbor:"data_type"`
	ChunkLen   uint32   `cbor:"chunk_len"`
}

// Encode canonically serializes the manifest. CBOR's deterministic
// encoding mode is used so hash(manifest_bytes) is stable.
func (m Manifest) Encode() ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	b, err := em.Marshal(m)
	if err != nil {
		return nil, errs.Wrap(errs.KindMalformedInput, "encoding manifest", err)
	}
	return b, nil
}

// DecodeManifest is the inverse of Encode.
func DecodeManifest(b []byte) (Manifest, error) {
	var m Manifest
	if err := cbor.Unmarshal(b, &m); err != nil {
		return m, errs.Wrap(errs.KindMalformedInput, "decoding manifest", err)
	}
	return m, nil
}

// SignedManifest pairs a serialized manifest with its detached
// signature and verifying public key.
type SignedManifest struct {
	ManifestBytes []byte `cbor:"manifest_bytes"`
	Sig           []byte `cbor:"sig"`
	PubKey        []byte `cbor:"pubkey"`
}

// Record is the atomic unit written to storage or wire.
type Record struct {
	Seq            uint64         `cbor:"seq"`
	Nonce          [12]byte       `cbor:"nonce"`
	SignedManifest SignedManifest `cbor:"signed_manifest"`
	Ciphertext     []byte         `cbor:"ciphertext"`
}

// Encode canonically serializes a Record for the wire/disk format.
func (r Record) Encode() ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	b, err := em.Marshal(r)
	if err != nil {
		return nil, errs.Wrap(errs.KindMalformedInput, "encoding record", err)
	}
	return b, nil
}

// DecodeRecord is the inverse of Record.Encode.
func DecodeRecord(b []byte) (Record, error) {
	var r Record
	if err := cbor.Unmarshal(b, &r); err != nil {
		return r, errs.Wrap(errs.KindMalformedInput, "decoding record", err)
	}
	return r, nil
}

// BuildManifest constructs a Manifest with the required invariants
// (M1 seq, M2 key_id, M3 chunk_len) pre-satisfied by construction.
func BuildManifest(seq uint64, headerHash [32]byte, keyID [16]byte, ptHash [32]byte, chunkLen int, dt DataType, now time.Time) Manifest {
	return Manifest{
		V:          1,
		TsMs:       now.UnixMilli(),
		Seq:        seq,
		HeaderHash: headerHash,
		PtHash:     ptHash,
		KeyID:      keyID,
		DataType:   dt,
		ChunkLen:   uint32(chunkLen),
	}
}
