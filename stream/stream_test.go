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
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustedge-labs/trustedge-go/format"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"github.com/trustedge-labs/trustedge-go/manifest"
)

type ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func (s ed25519Signer) Sign(msg []byte) ([]byte, error) { return ed25519.Sign(s.priv, msg), nil }
func (s ed25519Signer) PublicKeyBytes() []byte          { return s.pub }

func newTestSigner(t *testing.T) ed25519Signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return ed25519Signer{priv: priv, pub: pub}
}

func testHeader(t *testing.T, chunkSize uint32) format.StreamHeader {
	t.Helper()
	var keyID [16]byte
	var deviceHash [32]byte
	var noncePrefix [4]byte
	_, err := rand.Read(keyID[:])
	require.NoError(t, err)
	_, err = rand.Read(deviceHash[:])
	require.NoError(t, err)
	_, err = rand.Read(noncePrefix[:])
	require.NoError(t, err)
	return format.StreamHeader{
		Version:      format.VersionAgile,
		AEADAlg:      format.AEADAES256GCM,
		SigAlg:       format.SigEd25519,
		HashAlg:      format.HashBlake3,
		KDFAlg:       format.KDFPBKDF2SHA256,
		KeyID:        keyID,
		DeviceIDHash: deviceHash,
		NoncePrefix:  noncePrefix,
		ChunkSize:    chunkSize,
	}
}

// TestRoundTrip_P1 verifies that encrypting then decrypting a stream
// reproduces the exact original plaintext (property P1).
func TestRoundTrip_P1(t *testing.T) {
	header := testHeader(t, 16)
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	signer := newTestSigner(t)

	plaintext := bytes.Repeat([]byte("trustedge-stream-content-"), 10)

	headerHash, err := format.HeaderHash(header)
	require.NoError(t, err)

	producer, err := NewProducer(bytes.NewReader(plaintext), header, headerHash, key, signer, manifest.DataTypeUnknown())
	require.NoError(t, err)

	var wire bytes.Buffer
	require.NoError(t, WriteStream(&wire, producer))

	preamble, err := format.ReadPreamble(&wire)
	require.NoError(t, err)
	assert.Equal(t, headerHash, preamble.HeaderHash)

	consumer, err := NewConsumer(preamble.Header, key)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, ReadStream(&wire, consumer, func(chunk []byte) error {
		_, werr := out.Write(chunk)
		return werr
	}))

	assert.Equal(t, plaintext, out.Bytes())
}

// TestTamperDetection_S2 flips a bit in the second record's ciphertext
// and expects the consumer to reject it with AeadFailed at that record,
// never emitting it as plaintext (scenario S2).
func TestTamperDetection_S2(t *testing.T) {
	header := testHeader(t, 8)
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	signer := newTestSigner(t)

	plaintext := bytes.Repeat([]byte("X"), 8*3)

	headerHash, err := format.HeaderHash(header)
	require.NoError(t, err)

	producer, err := NewProducer(bytes.NewReader(plaintext), header, headerHash, key, signer, manifest.DataTypeUnknown())
	require.NoError(t, err)

	var wire bytes.Buffer
	require.NoError(t, WriteStream(&wire, producer))

	preamble, err := format.ReadPreamble(&wire)
	require.NoError(t, err)

	consumer, err := NewConsumer(preamble.Header, key)
	require.NoError(t, err)

	// Manually decode records, tamper with the second, and feed them
	// through the consumer one at a time.
	var records []manifest.Record
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(&wire, lenBuf[:]); err != nil {
			break
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		encoded := make([]byte, n)
		_, err := io.ReadFull(&wire, encoded)
		require.NoError(t, err)
		rec, err := manifest.DecodeRecord(encoded)
		require.NoError(t, err)
		records = append(records, rec)
	}
	require.Len(t, records, 3)

	records[1].Ciphertext[0] ^= 0xFF

	_, err = consumer.Next(records[0])
	require.NoError(t, err)

	_, err = consumer.Next(records[1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAeadFailed))
}

// TestRecordCountLimit_P11 verifies that a consumer which has already
// processed MaxRecordsPerStream records rejects the next one before
// attempting to decrypt it.
func TestRecordCountLimit_P11(t *testing.T) {
	header := testHeader(t, 4)
	consumer, err := NewConsumer(header, make([]byte, 32))
	require.NoError(t, err)
	consumer.recordCount = MaxRecordsPerStream

	_, err = consumer.Next(manifest.Record{Seq: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrLimitExceeded))
}

// TestOversizedCiphertextRejected verifies a record whose ciphertext
// exceeds chunk_size+tag is rejected before any cryptographic work.
func TestOversizedCiphertextRejected(t *testing.T) {
	header := testHeader(t, 4)
	consumer, err := NewConsumer(header, make([]byte, 32))
	require.NoError(t, err)

	rec := manifest.Record{Seq: 1, Ciphertext: make([]byte, int(header.ChunkSize)+TagLen+1)}
	_, err = consumer.Next(rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrLimitExceeded))
}
