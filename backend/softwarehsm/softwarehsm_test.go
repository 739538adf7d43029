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

package softwarehsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustedge-labs/trustedge-go/backend"
	"github.com/trustedge-labs/trustedge-go/format"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

func TestGenerateSignVerify_Ed25519(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	var id [16]byte
	id[0] = 0x01
	require.NoError(t, b.GenerateKeyPair(id, backend.AsymEd25519))

	sig, err := b.Sign(id, []byte("message"), format.SigEd25519)
	require.NoError(t, err)

	ok, err := b.Verify(id, []byte("message"), sig, format.SigEd25519)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Verify(id, []byte("tampered"), sig, format.SigEd25519)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncompatibleSignatureAlgorithm(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	var id [16]byte
	id[0] = 0x02
	require.NoError(t, b.GenerateKeyPair(id, backend.AsymEd25519))

	_, err = b.Sign(id, []byte("x"), format.SigEcdsaP256)
	require.ErrorIs(t, err, errs.ErrIncompatibleAlgorithm)
}

func TestListKeys_IncludesFingerprint(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	var id [16]byte
	id[0] = 0x03
	require.NoError(t, b.GenerateKeyPair(id, backend.AsymEd25519))

	keys, err := b.ListKeys()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, backend.Fingerprint(id[:]), keys[0].BackendData["fingerprint"])
}
