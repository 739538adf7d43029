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

// Package backend defines the UniversalBackend abstraction (C4): a
// single dispatch surface over signing, key agreement, hashing,
// key derivation, key generation, and attestation, implemented by the
// software HSM (softwarehsm) and hardware PIV (piv) backends.
package backend

import (
	"time"

	"github.com/mr-tron/base58"
	"github.com/trustedge-labs/trustedge-go/format"
)

// Fingerprint renders raw public-key or key-id bytes as a base58
// string, the compact human-readable form used in ListKeys output and
// CLI listings.
func Fingerprint(b []byte) string {
	return base58.Encode(b)
}

// AsymmetricAlgorithm is the closed registry of key-pair algorithms a
// backend may generate or hold.
type AsymmetricAlgorithm uint8

const (
	AsymEd25519 AsymmetricAlgorithm = iota + 1
	AsymEcdsaP256
	AsymRsa2048
	AsymRsa4096
)

func (a AsymmetricAlgorithm) String() string {
	switch a {
	case AsymEd25519:
		return "Ed25519"
	case AsymEcdsaP256:
		return "EcdsaP256"
	case AsymRsa2048:
		return "Rsa2048"
	case AsymRsa4096:
		return "Rsa4096"
	default:
		return "Unknown"
	}
}

// SignatureCompatible enforces the pairs Ed25519<->Ed25519 and
// EcdsaP256<->EcdsaP256. Rsa2048 and Rsa4096 keys are compatible with
// no signature id: format.SignatureAlgorithm has no RSA id, so they
// always return false.
func SignatureCompatible(asym AsymmetricAlgorithm, sig format.SignatureAlgorithm) bool {
	switch asym {
	case AsymEd25519:
		return sig == format.SigEd25519
	case AsymEcdsaP256:
		return sig == format.SigEcdsaP256
	case AsymRsa2048, AsymRsa4096:
		// The registry (format.SignatureAlgorithm) does not carry an RSA
		// id in this build; RSA asymmetric keys therefore have no
		// compatible signature id and always fail the compatibility
		// check rather than silently approving an unintended pairing.
		return false
	default:
		return false
	}
}

// KeyMetadata describes a key held by a backend without exposing key
// material.
type KeyMetadata struct {
	KeyID       [16]byte
	Description string
	CreatedAt   time.Time
	LastUsed    time.Time
	BackendData map[string]string
}

// Capabilities describes what a backend instance supports.
type Capabilities struct {
	SymmetricAlgorithms  []format.AEADAlgorithm
	AsymmetricAlgorithms []AsymmetricAlgorithm
	SignatureAlgorithms  []format.SignatureAlgorithm
	HashAlgorithms       []format.HashAlgorithm
	HardwareBacked       bool
	MaxKeySize           int
	SupportsDerivation   bool
	SupportsGeneration   bool
	SupportsAttestation  bool
}

// Info is the static self-description returned by BackendInfo.
type Info struct {
	Name               string
	Description        string
	Version            string
	Available          bool
	ConfigRequirements []string
}

// OpKind tags which operation a call to PerformOperation carries.
type OpKind int

const (
	OpSign OpKind = iota
	OpVerify
	OpEncrypt
	OpDecrypt
	OpHash
	OpDeriveKey
	OpGenerateKeyPair
	OpGetPublicKey
	OpAttest
)

// Op is the tagged-union request to PerformOperation. Only the fields
// relevant to Kind are populated; a backend ignores the rest.
type Op struct {
	Kind OpKind

	Data      []byte
	Sig       []byte
	SigAlg    format.SignatureAlgorithm
	SymAlg    format.AEADAlgorithm
	Nonce     []byte
	AAD       []byte
	HashAlg   format.HashAlgorithm
	Context   []byte // DeriveKey
	AsymAlg   AsymmetricAlgorithm
	Challenge []byte // Attest
}

// ResultKind tags which variant of Result a successful PerformOperation
// call returned.
type ResultKind int

const (
	ResultSigned ResultKind = iota
	ResultVerification
	ResultCiphertext
	ResultPlaintext
	ResultPublicKey
	ResultKeyPair
	ResultHash
	ResultDerivedKey
	ResultAttestationProof
)

// Result is the tagged-union response from PerformOperation.
type Result struct {
	Kind ResultKind

	Bytes        []byte
	Verified     bool
	PublicKeyID  string
	PrivateKeyID string
}

// Backend is implemented by every key-bearing backend: softwarehsm and
// piv today, with the registry open to further implementations.
type Backend interface {
	PerformOperation(keyID [16]byte, op Op) (Result, error)
	SupportsOperation(op OpKind) bool
	GetCapabilities() Capabilities
	BackendInfo() Info
	ListKeys() ([]KeyMetadata, error)
}
