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

package piv

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttestationClaims_RoundTrip(t *testing.T) {
	var id [16]byte
	id[0] = 0x07
	claims := BuildAttestationClaims(id, SlotSignature, []byte("challenge-bytes"), time.Hour)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte("test-only-signing-key"))
	require.NoError(t, err)

	got, err := parseClaimsUnverified(signed)
	require.NoError(t, err)
	assert.Equal(t, claims.KeyID, got.KeyID)
	assert.Equal(t, claims.Slot, got.Slot)
	assert.Equal(t, claims.Challenge, got.Challenge)
}
