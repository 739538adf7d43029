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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustedge-labs/trustedge-go/backend"
)

// newTestBackend builds a Backend with no live token, for exercising
// the pure bookkeeping paths (ListKeys, capability reporting, the
// retry-gate counter) that do not require a physical PIV card.
func newTestBackend() *Backend {
	var id [16]byte
	id[0] = 0xAB
	return &Backend{
		maxRetries: 3,
		state:      stateDisconnected,
		slotsByID:  map[[16]byte]SlotID{id: SlotSignature},
	}
}

func TestListKeys_IncludesFingerprint(t *testing.T) {
	b := newTestBackend()
	keys, err := b.ListKeys()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "9c", keys[0].BackendData["slot"])
	assert.Equal(t, backend.Fingerprint(keys[0].KeyID[:]), keys[0].BackendData["fingerprint"])
}

func TestBackendInfo_UnavailableWhenDisconnected(t *testing.T) {
	b := newTestBackend()
	info := b.BackendInfo()
	assert.False(t, info.Available)
}

func TestGetCapabilities_HardwareBacked(t *testing.T) {
	b := newTestBackend()
	caps := b.GetCapabilities()
	assert.True(t, caps.HardwareBacked)
	assert.False(t, caps.SupportsGeneration)
	assert.False(t, caps.SupportsAttestation)
}

func TestSign_FailsClosedWithoutToken(t *testing.T) {
	b := newTestBackend()
	var id [16]byte
	id[0] = 0xAB
	_, err := b.Sign(id, []byte("data"), 0)
	require.Error(t, err)
}

func TestRetryGate_StopsBeforeHardwareLockout(t *testing.T) {
	b := newTestBackend()
	b.state = stateConnected
	b.retries = b.maxRetries
	var id [16]byte
	id[0] = 0xAB
	_, err := b.signDigest(id, make([]byte, 32))
	require.Error(t, err)
}
