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

// Package softwarehsm implements the C5 software HSM backend: a
// directory holding <key_id>_private.key / <key_id>_public.key pairs
// and a metadata.json index, rewritten on every generate or
// use-counter update. It is not hardware-backed.
package softwarehsm

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/trustedge-labs/trustedge-go/backend"
	"github.com/trustedge-labs/trustedge-go/format"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"lukechampine.com/blake3"
)

const name = "software-hsm"

// RegisterWithDir wires a software-hsm factory into the process-wide
// backend registry, rooted at dir. The registry's zero-argument
// Factory signature has no room for a directory parameter, so the
// caller (cmd/trustedge's startup wiring) supplies it here rather than
// this package registering itself from init().
func RegisterWithDir(dir string) {
	backend.Register(name, func() (backend.Backend, error) {
		return New(dir)
	})
}

type keyRecord struct {
	Description string            `json:"description"`
	Algorithm   string            `json:"algorithm"`
	CreatedAt   time.Time         `json:"created_at"`
	LastUsed    time.Time         `json:"last_used"`
	BackendData map[string]string `json:"backend_data,omitempty"`
}

type metadataFile struct {
	Keys map[string]keyRecord `json:"keys"`
}

// Backend is the disk-backed software HSM.
type Backend struct {
	dir string
	mu  sync.Mutex
}

// New constructs a Backend rooted at dir, creating it if absent.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "creating software-hsm directory", err)
	}
	return &Backend{dir: dir}, nil
}

func (b *Backend) metadataPath() string { return filepath.Join(b.dir, "metadata.json") }

func (b *Backend) loadMetadata() (metadataFile, error) {
	raw, err := os.ReadFile(b.metadataPath())
	if os.IsNotExist(err) {
		return metadataFile{Keys: map[string]keyRecord{}}, nil
	}
	if err != nil {
		return metadataFile{}, errs.Wrap(errs.KindInternal, "reading metadata.json", err)
	}
	var m metadataFile
	if err := json.Unmarshal(raw, &m); err != nil {
		return metadataFile{}, errs.Wrap(errs.KindMalformedInput, "parsing metadata.json", err)
	}
	if m.Keys == nil {
		m.Keys = map[string]keyRecord{}
	}
	return m, nil
}

func (b *Backend) saveMetadata(m metadataFile) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindInternal, "encoding metadata.json", err)
	}
	tmp := b.metadataPath() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errs.Wrap(errs.KindInternal, "writing metadata.json", err)
	}
	if err := os.Rename(tmp, b.metadataPath()); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.KindInternal, "replacing metadata.json", err)
	}
	return nil
}

func keyIDHex(id [16]byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 32)
	for i, c := range id {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xF]
	}
	return string(out)
}

func (b *Backend) privatePath(id [16]byte) string {
	return filepath.Join(b.dir, keyIDHex(id)+"_private.key")
}

func (b *Backend) publicPath(id [16]byte) string {
	return filepath.Join(b.dir, keyIDHex(id)+"_public.key")
}

// GenerateKeyPair writes the raw private scalar and raw public key for
// the given algorithm (Ed25519: 32/32 bytes; EcdsaP256: 32/65 bytes),
// overwriting any existing key with the same id (documented behavior).
func (b *Backend) GenerateKeyPair(id [16]byte, alg backend.AsymmetricAlgorithm) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var priv, pub []byte
	switch alg {
	case backend.AsymEd25519:
		pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return errs.Wrap(errs.KindInternal, "generating ed25519 key", err)
		}
		priv = []byte(privKey.Seed())
		pub = []byte(pubKey)
	case backend.AsymEcdsaP256:
		sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return errs.Wrap(errs.KindInternal, "generating p256 key", err)
		}
		priv = sk.D.FillBytes(make([]byte, 32))
		pub = elliptic.Marshal(elliptic.P256(), sk.X, sk.Y)
	default:
		return errs.Wrap(errs.KindInvalidAlgorithm, "unsupported asymmetric algorithm for software-hsm", nil)
	}

	if err := os.WriteFile(b.privatePath(id), priv, 0o600); err != nil {
		return errs.Wrap(errs.KindInternal, "writing private key", err)
	}
	if err := os.WriteFile(b.publicPath(id), pub, 0o644); err != nil {
		return errs.Wrap(errs.KindInternal, "writing public key", err)
	}

	m, err := b.loadMetadata()
	if err != nil {
		return err
	}
	now := time.Now()
	m.Keys[keyIDHex(id)] = keyRecord{
		Algorithm: alg.String(),
		CreatedAt: now,
		LastUsed:  now,
	}
	return b.saveMetadata(m)
}

func (b *Backend) touchLastUsed(id [16]byte) error {
	m, err := b.loadMetadata()
	if err != nil {
		return err
	}
	rec, ok := m.Keys[keyIDHex(id)]
	if !ok {
		return errs.ErrKeyNotFound
	}
	rec.LastUsed = time.Now()
	m.Keys[keyIDHex(id)] = rec
	return b.saveMetadata(m)
}

func (b *Backend) loadAlgorithm(id [16]byte) (backend.AsymmetricAlgorithm, error) {
	m, err := b.loadMetadata()
	if err != nil {
		return 0, err
	}
	rec, ok := m.Keys[keyIDHex(id)]
	if !ok {
		return 0, errs.ErrKeyNotFound
	}
	switch rec.Algorithm {
	case backend.AsymEd25519.String():
		return backend.AsymEd25519, nil
	case backend.AsymEcdsaP256.String():
		return backend.AsymEcdsaP256, nil
	default:
		return 0, errs.Wrap(errs.KindInvalidAlgorithm, "unknown stored algorithm "+rec.Algorithm, nil)
	}
}

func (b *Backend) loadPrivate(id [16]byte) ([]byte, error) {
	raw, err := os.ReadFile(b.privatePath(id))
	if os.IsNotExist(err) {
		return nil, errs.ErrKeyNotFound
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "reading private key", err)
	}
	return raw, nil
}

func (b *Backend) loadPublic(id [16]byte) ([]byte, error) {
	raw, err := os.ReadFile(b.publicPath(id))
	if os.IsNotExist(err) {
		return nil, errs.ErrKeyNotFound
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "reading public key", err)
	}
	return raw, nil
}

// Sign produces a signature in the algorithm's canonical encoding:
// Ed25519 raw 64-byte, P-256 ASN.1 DER over the SHA-256 digest.
func (b *Backend) Sign(id [16]byte, data []byte, sigAlg format.SignatureAlgorithm) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	alg, err := b.loadAlgorithm(id)
	if err != nil {
		return nil, err
	}
	if !backend.SignatureCompatible(alg, sigAlg) {
		return nil, errs.ErrIncompatibleAlgorithm
	}
	rawPriv, err := b.loadPrivate(id)
	if err != nil {
		return nil, err
	}
	// locked outside the Go heap and wiped as soon as signing is done,
	// rather than left for the GC to collect on its own schedule.
	priv := memguard.NewBufferFromBytes(rawPriv)
	defer priv.Destroy()

	var sig []byte
	switch alg {
	case backend.AsymEd25519:
		if priv.Size() != ed25519.SeedSize {
			return nil, errs.New(errs.KindMalformedInput, "invalid ed25519 private key length")
		}
		sig = ed25519.Sign(ed25519.NewKeyFromSeed(priv.Bytes()), data)
	case backend.AsymEcdsaP256:
		if priv.Size() != 32 {
			return nil, errs.New(errs.KindMalformedInput, "invalid p256 private key length")
		}
		curve := elliptic.P256()
		d := new(big.Int).SetBytes(priv.Bytes())
		sk := &ecdsa.PrivateKey{D: d, PublicKey: ecdsa.PublicKey{Curve: curve}}
		sk.PublicKey.X, sk.PublicKey.Y = curve.ScalarBaseMult(priv.Bytes())
		digest := sha256.Sum256(data)
		sig, err = ecdsa.SignASN1(rand.Reader, sk, digest[:])
		if err != nil {
			return nil, errs.Wrap(errs.KindSignatureFailed, "p256 sign", err)
		}
	}

	_ = b.touchLastUsed(id)
	return sig, nil
}

// Verify is the inverse of Sign. Length mismatches on keys or
// signatures are reported as InvalidLength-flavored MalformedInput
// errors rather than a bare false.
func (b *Backend) Verify(id [16]byte, data, sig []byte, sigAlg format.SignatureAlgorithm) (bool, error) {
	alg, err := b.loadAlgorithm(id)
	if err != nil {
		return false, err
	}
	if !backend.SignatureCompatible(alg, sigAlg) {
		return false, errs.ErrIncompatibleAlgorithm
	}
	pub, err := b.loadPublic(id)
	if err != nil {
		return false, err
	}

	switch alg {
	case backend.AsymEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return false, errs.New(errs.KindMalformedInput, "invalid ed25519 public key length")
		}
		if len(sig) != ed25519.SignatureSize {
			return false, errs.New(errs.KindMalformedInput, "invalid ed25519 signature length")
		}
		return ed25519.Verify(ed25519.PublicKey(pub), data, sig), nil
	case backend.AsymEcdsaP256:
		curve := elliptic.P256()
		x, y := elliptic.Unmarshal(curve, pub)
		if x == nil {
			return false, errs.New(errs.KindMalformedInput, "invalid p256 public key encoding")
		}
		pk := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
		digest := sha256.Sum256(data)
		return ecdsa.VerifyASN1(pk, digest[:], sig), nil
	default:
		return false, errs.ErrInvalidAlgorithm
	}
}

// PerformOperation dispatches a generic backend.Op to the concrete
// method implementing it, per the C4 contract.
func (b *Backend) PerformOperation(id [16]byte, op backend.Op) (backend.Result, error) {
	switch op.Kind {
	case backend.OpSign:
		sig, err := b.Sign(id, op.Data, op.SigAlg)
		if err != nil {
			return backend.Result{}, err
		}
		return backend.Result{Kind: backend.ResultSigned, Bytes: sig}, nil
	case backend.OpVerify:
		ok, err := b.Verify(id, op.Data, op.Sig, op.SigAlg)
		if err != nil {
			return backend.Result{}, err
		}
		return backend.Result{Kind: backend.ResultVerification, Verified: ok}, nil
	case backend.OpHash:
		h, err := b.Hash(op.Data, op.HashAlg)
		if err != nil {
			return backend.Result{}, err
		}
		return backend.Result{Kind: backend.ResultHash, Bytes: h[:]}, nil
	case backend.OpGetPublicKey:
		pub, err := b.loadPublic(id)
		if err != nil {
			return backend.Result{}, err
		}
		return backend.Result{Kind: backend.ResultPublicKey, Bytes: pub}, nil
	case backend.OpGenerateKeyPair:
		if err := b.GenerateKeyPair(id, op.AsymAlg); err != nil {
			return backend.Result{}, err
		}
		pub, err := b.loadPublic(id)
		if err != nil {
			return backend.Result{}, err
		}
		return backend.Result{Kind: backend.ResultKeyPair, Bytes: pub, PrivateKeyID: keyIDHex(id)}, nil
	case backend.OpEncrypt, backend.OpDecrypt, backend.OpDeriveKey, backend.OpAttest:
		return backend.Result{}, errs.ErrUnsupportedOperation
	default:
		return backend.Result{}, errs.ErrUnsupportedOperation
	}
}

// SupportsOperation reports the subset of OpKind this backend handles.
func (b *Backend) SupportsOperation(op backend.OpKind) bool {
	switch op {
	case backend.OpSign, backend.OpVerify, backend.OpHash, backend.OpGetPublicKey, backend.OpGenerateKeyPair:
		return true
	default:
		return false
	}
}

// Hash computes a pure digest with no key lookup involved.
func (b *Backend) Hash(data []byte, alg format.HashAlgorithm) ([32]byte, error) {
	switch alg {
	case format.HashBlake3:
		return blake3.Sum256(data), nil
	case format.HashSHA256:
		return sha256.Sum256(data), nil
	default:
		return [32]byte{}, errs.ErrInvalidAlgorithm
	}
}

// GetCapabilities reports this backend as not hardware-backed, per
// §4.5.
func (b *Backend) GetCapabilities() backend.Capabilities {
	return backend.Capabilities{
		SymmetricAlgorithms:  []format.AEADAlgorithm{format.AEADAES256GCM, format.AEADChaCha20Poly1305},
		AsymmetricAlgorithms: []backend.AsymmetricAlgorithm{backend.AsymEd25519, backend.AsymEcdsaP256},
		SignatureAlgorithms:  []format.SignatureAlgorithm{format.SigEd25519, format.SigEcdsaP256},
		HashAlgorithms:       []format.HashAlgorithm{format.HashBlake3, format.HashSHA256},
		HardwareBacked:       false,
		MaxKeySize:           256,
		SupportsDerivation:   false,
		SupportsGeneration:   true,
		SupportsAttestation:  false,
	}
}

// BackendInfo self-describes the backend.
func (b *Backend) BackendInfo() backend.Info {
	return backend.Info{
		Name:        name,
		Description: "disk-backed software key store",
		Version:     "1",
		Available:   true,
	}
}

// ListKeys returns metadata for every key in the directory.
func (b *Backend) ListKeys() ([]backend.KeyMetadata, error) {
	m, err := b.loadMetadata()
	if err != nil {
		return nil, err
	}
	out := make([]backend.KeyMetadata, 0, len(m.Keys))
	for hexID, rec := range m.Keys {
		var id [16]byte
		decodeHex(hexID, id[:])
		data := rec.BackendData
		if data == nil {
			data = make(map[string]string, 1)
		}
		data["fingerprint"] = backend.Fingerprint(id[:])
		out = append(out, backend.KeyMetadata{
			KeyID:       id,
			Description: rec.Description,
			CreatedAt:   rec.CreatedAt,
			LastUsed:    rec.LastUsed,
			BackendData: data,
		})
	}
	return out, nil
}

func decodeHex(s string, out []byte) {
	for i := range out {
		hi := hexVal(s[i*2])
		lo := hexVal(s[i*2+1])
		out[i] = hi<<4 | lo
	}
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}
