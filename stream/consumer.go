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
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"io"

	"github.com/trustedge-labs/trustedge-go/format"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"github.com/trustedge-labs/trustedge-go/manifest"
)

// Consumer validates and decrypts a sequence of Records produced
// against one locked stream identity. Any failure is fatal to the
// stream: partial output is never treated as authentic.
type Consumer struct {
	header           format.StreamHeader
	aead             cipher.AEAD
	expectedSeqNext  uint64
	lockedHeaderHash [32]byte
	locked           bool
	recordCount      int
	streamBytes      uint64
}

// NewConsumer constructs a Consumer bound to a stream header already
// read (and, for v1 streams, migrated) via format.ReadPreamble.
func NewConsumer(header format.StreamHeader, key []byte) (*Consumer, error) {
	if err := header.Validate(); err != nil {
		return nil, err
	}
	aead, err := NewAEAD(header.AEADAlg, key)
	if err != nil {
		return nil, err
	}
	return &Consumer{header: header, aead: aead, expectedSeqNext: 1}, nil
}

// Next verifies, authenticates, and decrypts one Record, returning its
// plaintext.
func (c *Consumer) Next(rec manifest.Record) ([]byte, error) {
	if c.recordCount >= MaxRecordsPerStream {
		return nil, errs.Wrap(errs.KindLimitExceeded, "record count", nil)
	}
	if len(rec.Ciphertext) > int(c.header.ChunkSize)+TagLen {
		return nil, errs.Wrap(errs.KindLimitExceeded, "ciphertext length", nil)
	}

	if err := manifest.VerifyManifest(rec.SignedManifest); err != nil {
		return nil, err
	}

	m, err := manifest.DecodeManifest(rec.SignedManifest.ManifestBytes)
	if err != nil {
		return nil, err
	}

	if rec.Seq != c.expectedSeqNext {
		return nil, errs.Wrap(errs.KindSequenceMismatch, "out-of-order or duplicate record", nil)
	}

	if !c.locked {
		c.lockedHeaderHash = m.HeaderHash
		c.locked = true
	} else if m.HeaderHash != c.lockedHeaderHash {
		// Renegotiation mid-stream is rejected (H1).
		return nil, errs.ErrHeaderMismatch
	}

	if err := manifest.CheckRecordInvariants(rec, m, c.lockedHeaderHash, c.header.KeyID, [4]byte(c.header.NoncePrefix), c.header.ChunkSize); err != nil {
		return nil, err
	}

	manifestHash := manifest.Hash(rec.SignedManifest.ManifestBytes)
	aad := manifest.BuildAAD(c.lockedHeaderHash, rec.Seq, rec.Nonce, manifestHash, m.ChunkLen)

	plaintext, err := c.aead.Open(nil, rec.Nonce[:], rec.Ciphertext, aad[:])
	if err != nil {
		return nil, errs.Wrap(errs.KindAeadFailed, "aead open failed", nil)
	}

	if uint32(len(plaintext)) != m.ChunkLen {
		return nil, errs.ErrChunkLenOutOfBounds
	}

	ptHash, err := HashWith(c.header.HashAlg, plaintext)
	if err != nil {
		return nil, err
	}
	if ptHash != m.PtHash {
		return nil, errs.Wrap(errs.KindAeadFailed, "plaintext hash mismatch", nil)
	}

	newStreamBytes := c.streamBytes + uint64(len(plaintext))
	if newStreamBytes > MaxStreamSizeBytes {
		return nil, errs.Wrap(errs.KindLimitExceeded, "stream size", nil)
	}
	c.streamBytes = newStreamBytes
	c.recordCount++
	c.expectedSeqNext++

	return plaintext, nil
}

// ReadStream drives a Consumer over a full length-delimited stream
// (preamble already consumed by the caller via format.ReadPreamble),
// calling emit for every decrypted chunk in order.
func ReadStream(r io.Reader, c *Consumer, emit func([]byte) error) error {
	for {
		var lenBuf [4]byte
		_, err := io.ReadFull(r, lenBuf[:])
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errs.Wrap(errs.KindMalformedInput, "reading record length", err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		encoded := make([]byte, n)
		if _, err := io.ReadFull(r, encoded); err != nil {
			return errs.Wrap(errs.KindMalformedInput, "reading record body", err)
		}
		rec, err := manifest.DecodeRecord(encoded)
		if err != nil {
			return err
		}
		plaintext, err := c.Next(rec)
		if err != nil {
			return err
		}
		if err := emit(plaintext); err != nil {
			return err
		}
	}
}
