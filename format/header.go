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

package format

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"lukechampine.com/blake3"
)

// Magic is the 4-byte file/stream identifier.
var Magic = [4]byte{'T', 'R', 'S', 'T'}

const (
	VersionLegacy = 1
	VersionAgile  = 2

	// MaxChunkSize is the hard ceiling on a stream's plaintext chunk
	// size (invariant H2).
	MaxChunkSize = 128 * 1024 * 1024

	// headerBodyLen is the serialized length of the v2 StreamHeader
	// body, per the on-wire layout below. The per-field widths named
	// in the format spec (1+1+1+1+1+3+16+32+4+4 = 64) leave two bytes
	// unaccounted for against the declared/tested 66-byte total; we
	// reconcile by widening `reserved` to 5 bytes so the wire length
	// matches the tested value exactly (see DESIGN.md).
	headerBodyLen  = 66
	reservedLen    = 5
	legacyBodyLen  = 58
	legacyReserved = 1
	keyIDLen       = 16
	deviceHashLen  = 32
	noncePrefixLen = 4
)

// StreamHeader is the decoded form of the v2 66-byte header body.
type StreamHeader struct {
	Version      uint8
	AEADAlg      AEADAlgorithm
	SigAlg       SignatureAlgorithm
	HashAlg      HashAlgorithm
	KDFAlg       KDFAlgorithm
	KeyID        [keyIDLen]byte
	DeviceIDHash [deviceHashLen]byte
	NoncePrefix  [noncePrefixLen]byte
	ChunkSize    uint32
}

// Validate enforces invariant H2 (0 < chunk_size <= MAX_CHUNK_SIZE).
func (h *StreamHeader) Validate() error {
	if h.ChunkSize == 0 || h.ChunkSize > MaxChunkSize {
		return errs.New(errs.KindMalformedInput, fmt.Sprintf("chunk_size %d out of bounds", h.ChunkSize))
	}
	return nil
}

// EncodeHeader serializes h to the fixed 66-byte v2 body.
func EncodeHeader(h StreamHeader) ([]byte, error) {
	if !validAEAD(uint8(h.AEADAlg)) {
		return nil, errs.Wrap(errs.KindInvalidAlgorithm, "aead_alg", fmt.Errorf("value %d", h.AEADAlg))
	}
	if !validSig(uint8(h.SigAlg)) {
		return nil, errs.Wrap(errs.KindInvalidAlgorithm, "sig_alg", fmt.Errorf("value %d", h.SigAlg))
	}
	if !validHash(uint8(h.HashAlg)) {
		return nil, errs.Wrap(errs.KindInvalidAlgorithm, "hash_alg", fmt.Errorf("value %d", h.HashAlg))
	}
	if !validKDF(uint8(h.KDFAlg)) {
		return nil, errs.Wrap(errs.KindInvalidAlgorithm, "kdf_alg", fmt.Errorf("value %d", h.KDFAlg))
	}

	buf := make([]byte, 0, headerBodyLen)
	buf = append(buf, h.Version, uint8(h.AEADAlg), uint8(h.SigAlg), uint8(h.HashAlg), uint8(h.KDFAlg))
	buf = append(buf, make([]byte, reservedLen)...)
	buf = append(buf, h.KeyID[:]...)
	buf = append(buf, h.DeviceIDHash[:]...)
	buf = append(buf, h.NoncePrefix[:]...)
	var sz [4]byte
	binary.BigEndian.PutUint32(sz[:], h.ChunkSize)
	buf = append(buf, sz[:]...)

	if len(buf) != headerBodyLen {
		return nil, errs.New(errs.KindInternal, "header encode length mismatch")
	}
	return buf, nil
}

// DecodeHeader parses the fixed 66-byte v2 body. Unknown algorithm IDs
// in any field reject the header with no fallback.
func DecodeHeader(b []byte) (StreamHeader, error) {
	var h StreamHeader
	if len(b) != headerBodyLen {
		return h, errs.New(errs.KindMalformedInput, fmt.Sprintf("header body length %d != %d", len(b), headerBodyLen))
	}
	h.Version = b[0]
	if !validAEAD(b[1]) {
		return h, errs.Wrap(errs.KindInvalidAlgorithm, "aead_alg", fmt.Errorf("value %d", b[1]))
	}
	if !validSig(b[2]) {
		return h, errs.Wrap(errs.KindInvalidAlgorithm, "sig_alg", fmt.Errorf("value %d", b[2]))
	}
	if !validHash(b[3]) {
		return h, errs.Wrap(errs.KindInvalidAlgorithm, "hash_alg", fmt.Errorf("value %d", b[3]))
	}
	if !validKDF(b[4]) {
		return h, errs.Wrap(errs.KindInvalidAlgorithm, "kdf_alg", fmt.Errorf("value %d", b[4]))
	}
	h.AEADAlg = AEADAlgorithm(b[1])
	h.SigAlg = SignatureAlgorithm(b[2])
	h.HashAlg = HashAlgorithm(b[3])
	h.KDFAlg = KDFAlgorithm(b[4])

	off := 5 + reservedLen
	copy(h.KeyID[:], b[off:off+keyIDLen])
	off += keyIDLen
	copy(h.DeviceIDHash[:], b[off:off+deviceHashLen])
	off += deviceHashLen
	copy(h.NoncePrefix[:], b[off:off+noncePrefixLen])
	off += noncePrefixLen
	h.ChunkSize = binary.BigEndian.Uint32(b[off : off+4])

	if err := h.Validate(); err != nil {
		return h, err
	}
	return h, nil
}

// HeaderHash returns BLAKE3 of the serialized 66-byte v2 header body.
// This is the value stored as header_hash and bound into every AAD
// and manifest for the life of the stream (invariant H1).
func HeaderHash(h StreamHeader) ([32]byte, error) {
	body, err := EncodeHeader(h)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(body), nil
}

// decodeLegacy parses a v1 58-byte body: alg(1) reserved(1) key_id(16)
// device_id_hash(32) nonce_prefix(4) chunk_size(4).
func decodeLegacy(b []byte) (StreamHeader, error) {
	var h StreamHeader
	if len(b) != legacyBodyLen {
		return h, errs.New(errs.KindMalformedInput, fmt.Sprintf("legacy header body length %d != %d", len(b), legacyBodyLen))
	}
	alg := b[0]
	if !validAEAD(alg) {
		return h, errs.Wrap(errs.KindInvalidAlgorithm, "alg", fmt.Errorf("value %d", alg))
	}
	h.Version = VersionLegacy
	h.AEADAlg = AEADAlgorithm(alg)
	off := 1 + legacyReserved
	copy(h.KeyID[:], b[off:off+keyIDLen])
	off += keyIDLen
	copy(h.DeviceIDHash[:], b[off:off+deviceHashLen])
	off += deviceHashLen
	copy(h.NoncePrefix[:], b[off:off+noncePrefixLen])
	off += noncePrefixLen
	h.ChunkSize = binary.BigEndian.Uint32(b[off : off+4])
	return h, nil
}

// MigrateV1ToV2 fills the agile algorithm fields with the registry
// defaults. It is a mechanical, read-only transformation: sig/hash/kdf
// become the defaults, aead_alg is copied over, and reserved encodes as
// zero. It does not compute header_hash; ReadPreamble recomputes that
// over the migrated header with HeaderHash.
func MigrateV1ToV2(h StreamHeader) StreamHeader {
	out := h
	out.Version = VersionAgile
	out.SigAlg = DefaultSigAlg
	out.HashAlg = DefaultHashAlg
	out.KDFAlg = DefaultKDFAlg
	return out
}

// Preamble is the fully parsed on-disk/on-wire stream preamble:
// magic, outer version byte, and the (possibly migrated) v2 header
// together with its header_hash.
type Preamble struct {
	Header     StreamHeader
	HeaderHash [32]byte
}

// WritePreamble writes "TRST" + version + length-delimited
// StreamHeader{v, header_bytes, header_hash} per §6.1. It always
// writes the agile (v2, 66-byte) body; legacy emission is not
// supported by new writers.
func WritePreamble(w io.Writer, h StreamHeader) (Preamble, error) {
	h.Version = VersionAgile
	body, err := EncodeHeader(h)
	if err != nil {
		return Preamble{}, err
	}
	hash, err := HeaderHash(h)
	if err != nil {
		return Preamble{}, err
	}

	payload := make([]byte, 0, 1+len(body)+32)
	payload = append(payload, h.Version)
	payload = append(payload, body...)
	payload = append(payload, hash[:]...)

	if _, err := w.Write(Magic[:]); err != nil {
		return Preamble{}, err
	}
	if _, err := w.Write([]byte{VersionAgile}); err != nil {
		return Preamble{}, err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return Preamble{}, err
	}
	if _, err := w.Write(payload); err != nil {
		return Preamble{}, err
	}
	return Preamble{Header: h, HeaderHash: hash}, nil
}

// ReadPreamble reads the magic, outer version, and the length-delimited
// header body. A v1 body is transparently migrated to v2 and its
// reported header_hash is recomputed over the migrated 66-byte form
// (property P10).
func ReadPreamble(r io.Reader) (Preamble, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Preamble{}, errs.Wrap(errs.KindMalformedInput, "reading magic", err)
	}
	if magic != Magic {
		return Preamble{}, errs.New(errs.KindMalformedInput, "bad magic")
	}
	var verByte [1]byte
	if _, err := io.ReadFull(r, verByte[:]); err != nil {
		return Preamble{}, errs.Wrap(errs.KindMalformedInput, "reading version", err)
	}
	outerVersion := verByte[0]
	if outerVersion != VersionLegacy && outerVersion != VersionAgile {
		return Preamble{}, errs.New(errs.KindMalformedInput, fmt.Sprintf("unsupported version %d", outerVersion))
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Preamble{}, errs.Wrap(errs.KindMalformedInput, "reading preamble length", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Preamble{}, errs.Wrap(errs.KindMalformedInput, "reading preamble body", err)
	}
	if len(payload) < 1 {
		return Preamble{}, errs.New(errs.KindMalformedInput, "empty preamble payload")
	}

	innerVersion := payload[0]
	rest := payload[1:]

	switch innerVersion {
	case VersionLegacy:
		if len(rest) != legacyBodyLen+32 {
			return Preamble{}, errs.New(errs.KindMalformedInput, "legacy preamble length mismatch")
		}
		body := rest[:legacyBodyLen]
		// The trailing 32 bytes of a v1 preamble are reserved for a
		// future header_hash slot; legacy writers leave them zero and
		// we do not trust them as authoritative.
		legacy, err := decodeLegacy(body)
		if err != nil {
			return Preamble{}, err
		}
		migrated := MigrateV1ToV2(legacy)
		hash, err := HeaderHash(migrated)
		if err != nil {
			return Preamble{}, err
		}
		return Preamble{Header: migrated, HeaderHash: hash}, nil

	case VersionAgile:
		if len(rest) != headerBodyLen+32 {
			return Preamble{}, errs.New(errs.KindMalformedInput, "v2 preamble length mismatch")
		}
		body := rest[:headerBodyLen]
		claimedHash := rest[headerBodyLen:]
		h, err := DecodeHeader(body)
		if err != nil {
			return Preamble{}, err
		}
		computed, err := HeaderHash(h)
		if err != nil {
			return Preamble{}, err
		}
		var claimed [32]byte
		copy(claimed[:], claimedHash)
		if claimed != computed {
			return Preamble{}, errs.New(errs.KindHeaderMismatch, "header_hash does not match serialized header")
		}
		return Preamble{Header: h, HeaderHash: computed}, nil

	default:
		return Preamble{}, errs.New(errs.KindMalformedInput, fmt.Sprintf("unsupported inner version %d", innerVersion))
	}
}
