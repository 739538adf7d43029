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
	"encoding/binary"
	"errors"
	"io"

	"github.com/trustedge-labs/trustedge-go/format"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"github.com/trustedge-labs/trustedge-go/manifest"
)

// RecordSummary is what Inspect reports for one record without ever
// attempting AEAD decryption.
type RecordSummary struct {
	Seq           uint64
	TsMs          int64
	ChunkLen      uint32
	CiphertextLen int
	DataTypeKind  string
	SigValid      bool
}

// StreamSummary is the result of a non-decrypting scan of a stream:
// the header plus one RecordSummary per record, stopping at the first
// structurally malformed record rather than panicking on it.
type StreamSummary struct {
	Header  format.StreamHeader
	Records []RecordSummary
}

// Inspect walks a stream's preamble and records, verifying manifest
// signatures but never opening the AEAD, so a stream can be audited
// without the symmetric key. This is a supplemental operation: it is
// not part of the authenticated decrypt path and its SigValid=false
// result must never be treated as proof of tampering by itself.
func Inspect(r io.Reader) (StreamSummary, error) {
	preamble, err := format.ReadPreamble(r)
	if err != nil {
		return StreamSummary{}, err
	}
	summary := StreamSummary{Header: preamble.Header}

	for {
		var lenBuf [4]byte
		_, err := io.ReadFull(r, lenBuf[:])
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		if err != nil {
			return summary, errs.Wrap(errs.KindMalformedInput, "reading record length", err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		encoded := make([]byte, n)
		if _, err := io.ReadFull(r, encoded); err != nil {
			return summary, errs.Wrap(errs.KindMalformedInput, "reading record body", err)
		}
		rec, err := manifest.DecodeRecord(encoded)
		if err != nil {
			return summary, err
		}
		m, err := manifest.DecodeManifest(rec.SignedManifest.ManifestBytes)
		if err != nil {
			return summary, err
		}
		sigValid := manifest.VerifyManifest(rec.SignedManifest) == nil
		summary.Records = append(summary.Records, RecordSummary{
			Seq:           rec.Seq,
			TsMs:          m.TsMs,
			ChunkLen:      m.ChunkLen,
			CiphertextLen: len(rec.Ciphertext),
			DataTypeKind:  m.DataType.Kind,
			SigValid:      sigValid,
		})
	}
}
