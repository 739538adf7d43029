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
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// AttestationClaims is the JWT-shaped claim set an AttestationProof
// carries: which key_id/slot the proof covers, the verifier-supplied
// challenge it answers, and the standard issued-at/expiry pair. The
// PIV backend's Attest operation is capability-gated to unsupported
// (§9 Open Question 2), but the wire shape is defined here so a future
// attestation-capable backend has a concrete, already-tested claim set
// to populate rather than inventing one at that point.
type AttestationClaims struct {
	jwt.RegisteredClaims
	KeyID     string `json:"key_id"`
	Slot      string `json:"slot"`
	Challenge string `json:"challenge"`
}

// BuildAttestationClaims assembles the claim set for a key_id/slot
// pair and challenge, ready to be signed into a JWT by a caller with
// an attestation-capable signer. It does not sign or return a token;
// it only shapes the claim set, since no backend in this build
// actually holds an attestation-capable key.
func BuildAttestationClaims(id [16]byte, slot SlotID, challenge []byte, validFor time.Duration) AttestationClaims {
	now := time.Now()
	return AttestationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validFor)),
		},
		KeyID:     hex.EncodeToString(id[:]),
		Slot:      string(slot),
		Challenge: hex.EncodeToString(challenge),
	}
}

// parseClaimsUnverified exists only to exercise the claim set's
// round-trip shape in tests; attestation signing/verification is not
// wired into any backend's runtime path in this build.
func parseClaimsUnverified(token string) (*AttestationClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &AttestationClaims{}
	_, _, err := parser.ParseUnverified(token, claims)
	if err != nil {
		return nil, errs.Wrap(errs.KindMalformedInput, "parsing attestation claims", err)
	}
	return claims, nil
}
