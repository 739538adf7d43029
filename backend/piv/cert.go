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
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// tokenSigner adapts Backend.Sign to crypto.Signer so x509.CreateCertificate
// can delegate the certificate signature back to the token instead of
// ever handling a private key in software.
type tokenSigner struct {
	b      *Backend
	id     [16]byte
	public crypto.PublicKey
}

func (s tokenSigner) Public() crypto.PublicKey { return s.public }

func (s tokenSigner) Sign(_ io.Reader, digest []byte, _ crypto.SignerOpts) ([]byte, error) {
	// x509.CreateCertificate has already hashed the tbsCertificate;
	// go through signDigest directly so it isn't hashed a second time.
	return s.b.signDigest(s.id, digest)
}

// SelfSignedCertificate builds a self-signed X.509 certificate for the
// key in the given slot, with the certificate signature itself
// produced by the token (never by a software key). No rcgen-style
// builder is present in the dependency set this build draws from, so
// this composes the core Sign operation with the standard library's
// x509.CreateCertificate directly (see DESIGN.md).
func (b *Backend) SelfSignedCertificate(id [16]byte, subject pkix.Name, validFor time.Duration) ([]byte, error) {
	pubDER, err := b.GetPublicKey(id)
	if err != nil {
		return nil, err
	}
	pub, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return nil, errs.Wrap(errs.KindHardwareError, "parsing slot public key", err)
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok || ecdsaPub.Curve != elliptic.P256() {
		return nil, errs.Wrap(errs.KindUnsupportedOperation, "self-signed certificate requires a P-256 slot key", nil)
	}

	serial := uuid.New()
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          new(big.Int).SetBytes(serial[:]),
		Subject:               subject,
		NotBefore:             now,
		NotAfter:              now.Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	signer := tokenSigner{b: b, id: id, public: ecdsaPub}
	der, err := x509.CreateCertificate(rand.Reader, template, template, ecdsaPub, signer)
	if err != nil {
		return nil, errs.Wrap(errs.KindHardwareError, "creating self-signed certificate", err)
	}
	return der, nil
}
