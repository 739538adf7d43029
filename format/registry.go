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

// Package format implements the TrustEdge algorithm registry and the
// on-disk/on-wire stream header (preamble), per the stream header
// layout: 4-byte magic, 1-byte version, then 58 (v1) or 66 (v2) bytes.
package format

import (
	"fmt"
)

// AEADAlgorithm is the closed registry of supported AEAD ciphers.
type AEADAlgorithm uint8

const (
	AEADAES256GCM        AEADAlgorithm = 1
	AEADChaCha20Poly1305 AEADAlgorithm = 2
	AEADAES256SIV        AEADAlgorithm = 3
)

func (a AEADAlgorithm) String() string {
	switch a {
	case AEADAES256GCM:
		return "AES-256-GCM"
	case AEADChaCha20Poly1305:
		return "ChaCha20-Poly1305"
	case AEADAES256SIV:
		return "AES-256-SIV"
	default:
		return fmt.Sprintf("AEAD(%d)", uint8(a))
	}
}

// SignatureAlgorithm is the closed registry of manifest/challenge signature schemes.
type SignatureAlgorithm uint8

const (
	SigEd25519   SignatureAlgorithm = 1
	SigEcdsaP256 SignatureAlgorithm = 2
)

func (s SignatureAlgorithm) String() string {
	switch s {
	case SigEd25519:
		return "Ed25519"
	case SigEcdsaP256:
		return "ECDSA-P256"
	default:
		return fmt.Sprintf("Sig(%d)", uint8(s))
	}
}

// HashAlgorithm is the closed registry of content-hash functions.
type HashAlgorithm uint8

const (
	HashBlake3 HashAlgorithm = 1
	HashSHA256 HashAlgorithm = 2
)

func (h HashAlgorithm) String() string {
	switch h {
	case HashBlake3:
		return "BLAKE3"
	case HashSHA256:
		return "SHA-256"
	default:
		return fmt.Sprintf("Hash(%d)", uint8(h))
	}
}

// KDFAlgorithm is the closed registry of passphrase/key-derivation functions.
type KDFAlgorithm uint8

const (
	KDFPBKDF2SHA256 KDFAlgorithm = 1
	KDFArgon2id     KDFAlgorithm = 2
	KDFScrypt       KDFAlgorithm = 3
	KDFHKDF         KDFAlgorithm = 4
)

func (k KDFAlgorithm) String() string {
	switch k {
	case KDFPBKDF2SHA256:
		return "PBKDF2-SHA256"
	case KDFArgon2id:
		return "Argon2id"
	case KDFScrypt:
		return "scrypt"
	case KDFHKDF:
		return "HKDF"
	default:
		return fmt.Sprintf("KDF(%d)", uint8(k))
	}
}

// Registry defaults applied when migrating a v1 header to v2 (§4.1).
const (
	DefaultSigAlg  = SigEd25519
	DefaultHashAlg = HashBlake3
	DefaultKDFAlg  = KDFPBKDF2SHA256
)

func validAEAD(v uint8) bool {
	switch AEADAlgorithm(v) {
	case AEADAES256GCM, AEADChaCha20Poly1305, AEADAES256SIV:
		return true
	}
	return false
}

func validSig(v uint8) bool {
	switch SignatureAlgorithm(v) {
	case SigEd25519, SigEcdsaP256:
		return true
	}
	return false
}

func validHash(v uint8) bool {
	switch HashAlgorithm(v) {
	case HashBlake3, HashSHA256:
		return true
	}
	return false
}

func validKDF(v uint8) bool {
	switch KDFAlgorithm(v) {
	case KDFPBKDF2SHA256, KDFArgon2id, KDFScrypt, KDFHKDF:
		return true
	}
	return false
}
