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

package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkChunk_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	chunk := NetworkChunk{Sequence: 7, Nonce: []byte("0123456789ab"), Data: []byte("payload"), Manifest: []byte("m"), Timestamp: 42}
	require.NoError(t, WriteChunk(&buf, chunk, MaxLegacyFrameLen))

	got, err := ReadChunk(&buf, MaxLegacyFrameLen)
	require.NoError(t, err)
	assert.Equal(t, chunk, got)
}

func TestACK_PlainRoundTrip(t *testing.T) {
	ack, err := BuildACK(5, nil)
	require.NoError(t, err)
	assert.Equal(t, "ACK:5", ack)

	seq, err := VerifyACK(ack, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, seq)
}

func TestACK_SecureRoundTrip(t *testing.T) {
	sessionID := [16]byte{1, 2, 3}
	ack, err := BuildACK(9, &sessionID)
	require.NoError(t, err)

	seq, err := VerifyACK(ack, &sessionID)
	require.NoError(t, err)
	assert.EqualValues(t, 9, seq)
}

func TestACK_SecureRejectsWrongSession(t *testing.T) {
	sessionID := [16]byte{1, 2, 3}
	other := [16]byte{4, 5, 6}
	ack, err := BuildACK(9, &sessionID)
	require.NoError(t, err)

	_, err = VerifyACK(ack, &other)
	require.Error(t, err)
}

func TestWriteChunk_RejectsOverLimit(t *testing.T) {
	var buf bytes.Buffer
	chunk := NetworkChunk{Sequence: 1, Data: make([]byte, 100)}
	err := WriteChunk(&buf, chunk, 10)
	require.Error(t, err)
}
