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

package envelope

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealUnseal_RoundTrip(t *testing.T) {
	senderPub, senderPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	recipientPub, recipientPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("envelope-payload-"), 10000) // spans multiple 64KiB chunks

	env, err := Seal(payload, senderPriv, senderPub, recipientPub)
	require.NoError(t, err)
	require.NoError(t, env.Verify())

	out, err := Unseal(env, recipientPriv)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestVerify_RejectsTamperedSignature(t *testing.T) {
	senderPub, senderPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	recipientPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	env, err := Seal([]byte("hello"), senderPriv, senderPub, recipientPub)
	require.NoError(t, err)

	env.Chunks[0].ManifestSig[0] ^= 0xFF
	require.Error(t, env.Verify())
}

func TestUnseal_WrongRecipientFails(t *testing.T) {
	senderPub, senderPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, recipientPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, wrongPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	env, err := Seal([]byte("secret"), senderPriv, senderPub, mustPub(recipientPriv))
	require.NoError(t, err)

	_, err = Unseal(env, wrongPriv)
	require.Error(t, err)
}

func mustPub(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}
