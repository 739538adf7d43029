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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTable_LazyExpirySweep(t *testing.T) {
	table := NewSessionTable()
	sess := &Session{ID: [16]byte{1}, ExpiresAt: time.Now().Add(-time.Second)}
	table.Put(sess)

	_, ok := table.Lookup(sess.ID)
	assert.False(t, ok, "expired session must be swept on lookup")

	_, ok = table.Lookup(sess.ID)
	assert.False(t, ok)
}

func TestSessionTable_LiveLookup(t *testing.T) {
	table := NewSessionTable()
	sess := &Session{ID: [16]byte{2}, ExpiresAt: time.Now().Add(time.Minute)}
	table.Put(sess)

	found, ok := table.Lookup(sess.ID)
	require.True(t, ok)
	assert.Equal(t, sess.ID, found.ID)
}

func TestActivityGuard_EnforcesCaps(t *testing.T) {
	guard := NewActivityGuard(ConnLimits{IdleTimeout: time.Minute, MaxChunks: 2, MaxBytes: 100})
	require.NoError(t, guard.Admit(40))
	require.NoError(t, guard.Admit(40))
	require.Error(t, guard.Admit(40)) // third chunk exceeds MaxChunks
}

func TestActivityGuard_EnforcesByteCap(t *testing.T) {
	guard := NewActivityGuard(ConnLimits{IdleTimeout: time.Minute, MaxChunks: 100, MaxBytes: 50})
	require.NoError(t, guard.Admit(30))
	require.Error(t, guard.Admit(30))
}
