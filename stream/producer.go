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

// Package stream implements the chunked producer/consumer pipeline:
// read plaintext, chunk it, bind each chunk to a signed manifest and
// AAD, AEAD-encrypt, and emit a Record; on the other side, verify and
// decrypt each Record back into plaintext while enforcing every
// stream-level invariant.
package stream

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"

	"github.com/trustedge-labs/trustedge-go/format"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"github.com/trustedge-labs/trustedge-go/manifest"
)

// Producer turns a plaintext reader into a sequence of authenticated
// Records bound to one stream header.
type Producer struct {
	r          io.Reader
	header     format.StreamHeader
	headerHash [32]byte
	aead       cipher.AEAD
	signer     manifest.Signer
	dataType   manifest.DataType
	seq        uint64
	now        func() time.Time
}

// NewProducer constructs a Producer. The header's nonce_prefix and
// key_id must already be populated by the caller (random-initialized
// per spec §4.3).
func NewProducer(r io.Reader, header format.StreamHeader, headerHash [32]byte, key []byte, signer manifest.Signer, dataType manifest.DataType) (*Producer, error) {
	if err := header.Validate(); err != nil {
		return nil, err
	}
	aead, err := NewAEAD(header.AEADAlg, key)
	if err != nil {
		return nil, err
	}
	return &Producer{
		r:          r,
		header:     header,
		headerHash: headerHash,
		aead:       aead,
		signer:     signer,
		dataType:   dataType,
		now:        time.Now,
	}, nil
}

// Next reads up to chunk_size bytes and emits the corresponding
// Record. It returns (Record{}, io.EOF) once the source is exhausted
// with no further bytes to chunk.
func (p *Producer) Next() (manifest.Record, error) {
	buf := make([]byte, p.header.ChunkSize)
	n, err := io.ReadFull(p.r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return manifest.Record{}, err
	}
	if n == 0 {
		return manifest.Record{}, io.EOF
	}
	plaintext := buf[:n]

	if p.seq == math.MaxUint64 {
		return manifest.Record{}, errs.New(errs.KindLimitExceeded, "sequence counter overflow")
	}
	p.seq++
	seq := p.seq

	var nonce [12]byte
	copy(nonce[:4], p.header.NoncePrefix[:])
	binary.BigEndian.PutUint64(nonce[4:], seq)

	ptHash, err := HashWith(p.header.HashAlg, plaintext)
	if err != nil {
		return manifest.Record{}, err
	}

	m := manifest.BuildManifest(seq, p.headerHash, p.header.KeyID, ptHash, len(plaintext), p.dataType, p.now())
	mb, err := m.Encode()
	if err != nil {
		return manifest.Record{}, err
	}
	sm, err := manifest.SignManifest(p.signer, mb)
	if err != nil {
		return manifest.Record{}, err
	}
	manifestHash := manifest.Hash(mb)

	aad := manifest.BuildAAD(p.headerHash, seq, nonce, manifestHash, uint32(len(plaintext)))
	ciphertext := p.aead.Seal(nil, nonce[:], plaintext, aad[:])

	return manifest.Record{
		Seq:            seq,
		Nonce:          nonce,
		SignedManifest: sm,
		Ciphertext:     ciphertext,
	}, nil
}

// WriteStream drives a Producer to completion, writing the preamble
// and every record to w as length-delimited frames (§6.1).
func WriteStream(w io.Writer, p *Producer) error {
	if _, err := format.WritePreamble(w, p.header); err != nil {
		return err
	}
	for {
		rec, err := p.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		encoded, err := rec.Encode()
		if err != nil {
			return err
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(encoded)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := w.Write(encoded); err != nil {
			return err
		}
	}
}
