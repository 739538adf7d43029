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

package manifest

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func (s ed25519Signer) Sign(msg []byte) ([]byte, error) { return ed25519.Sign(s.priv, msg), nil }
func (s ed25519Signer) PublicKeyBytes() []byte          { return s.pub }

func TestBuildAAD_Deterministic(t *testing.T) {
	var hh [32]byte
	var nonce [12]byte
	var mh [32]byte
	a1 := BuildAAD(hh, 7, nonce, mh, 128)
	a2 := BuildAAD(hh, 7, nonce, mh, 128)
	assert.Equal(t, a1, a2)
	assert.Len(t, a1[:], AADLen)
}

func TestSignVerifyManifest_DomainSeparation(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer := ed25519Signer{priv: priv, pub: pub}

	m := BuildManifest(1, [32]byte{}, [16]byte{}, [32]byte{}, 10, DataTypeUnknown(), time.Unix(0, 0))
	mb, err := m.Encode()
	require.NoError(t, err)

	sm, err := SignManifest(signer, mb)
	require.NoError(t, err)
	require.NoError(t, VerifyManifest(sm))

	// P6: a signature over the domain-prefixed bytes does not verify
	// as a plain signature over the raw manifest bytes.
	assert.False(t, ed25519.Verify(pub, mb, sm.Sig))

	// And a plain signature over the raw bytes does not verify as a
	// manifest signature.
	rawSig := ed25519.Sign(priv, mb)
	badSM := SignedManifest{ManifestBytes: mb, Sig: rawSig, PubKey: pub}
	require.Error(t, VerifyManifest(badSM))
}

func TestRecordInvariants(t *testing.T) {
	hh := [32]byte{0xAB}
	keyID := [16]byte{0x01}
	noncePrefix := [4]byte{0x11, 0x22, 0x33, 0x44}

	var nonce [12]byte
	copy(nonce[:4], noncePrefix[:])
	nonce[11] = 5 // seq=5 big-endian suffix

	m := Manifest{Seq: 5, HeaderHash: hh, KeyID: keyID, ChunkLen: 100}
	rec := Record{Seq: 5, Nonce: nonce}

	require.NoError(t, CheckRecordInvariants(rec, m, hh, keyID, noncePrefix, 4096))

	badSeq := m
	badSeq.Seq = 6
	require.Error(t, CheckRecordInvariants(rec, badSeq, hh, keyID, noncePrefix, 4096))

	overLen := m
	overLen.ChunkLen = 999999
	require.Error(t, CheckRecordInvariants(rec, overLen, hh, keyID, noncePrefix, 4096))
}
