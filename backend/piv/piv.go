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

// Package piv implements the C6 hardware PIV backend: a fail-closed
// driver over a connected PIV token via github.com/go-piv/piv-go/v2.
// No operation here ever returns a software-derived key or signature;
// if the token is absent every key-bearing operation fails.
package piv

import (
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"sync"

	gopiv "github.com/go-piv/piv-go/v2/piv"

	"github.com/trustedge-labs/trustedge-go/backend"
	"github.com/trustedge-labs/trustedge-go/format"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

const name = "piv"

// connState mirrors the §4.6 state machine: Disconnected, Connected,
// PinLocked.
type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	statePinLocked
)

// SlotID is the closed set of PIV slots this backend recognizes.
type SlotID string

const (
	SlotAuthentication     SlotID = "9a"
	SlotSignature          SlotID = "9c"
	SlotKeyManagement      SlotID = "9d"
	SlotCardAuthentication SlotID = "9e"
)

func resolveSlot(id SlotID) (gopiv.Slot, error) {
	switch id {
	case SlotAuthentication:
		return gopiv.SlotAuthentication, nil
	case SlotSignature:
		return gopiv.SlotSignature, nil
	case SlotKeyManagement:
		return gopiv.SlotKeyManagement, nil
	case SlotCardAuthentication:
		return gopiv.SlotCardAuthentication, nil
	default:
		return gopiv.Slot{}, errs.ErrKeyNotFound
	}
}

// Backend drives a single connected PIV token. key_id is mapped to a
// slot by Config at construction time (the token itself only knows
// about its four fixed slots, not 16-byte key ids).
type Backend struct {
	mu         sync.Mutex
	card       string
	pin        string
	maxRetries int
	retries    int
	state      connState
	yk         *gopiv.YubiKey
	slotsByID  map[[16]byte]SlotID
}

// Config names the card reader, PIN, retry ceiling, and key_id→slot
// mapping this backend instance drives.
type Config struct {
	Card       string
	PIN        string
	MaxRetries int
	Slots      map[[16]byte]SlotID
}

// New opens the named PIV card. Opening failure leaves the backend in
// Disconnected state rather than returning an error, per the §4.6
// state diagram — callers observe this via BackendInfo().Available.
func New(cfg Config) *Backend {
	b := &Backend{
		card:       cfg.Card,
		pin:        cfg.PIN,
		maxRetries: cfg.MaxRetries,
		slotsByID:  cfg.Slots,
		state:      stateDisconnected,
	}
	if b.maxRetries == 0 {
		b.maxRetries = 3
	}
	yk, err := gopiv.Open(cfg.Card)
	if err == nil {
		b.yk = yk
		b.state = stateConnected
	}
	return b
}

// Close releases the token handle.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.yk == nil {
		return nil
	}
	err := b.yk.Close()
	b.yk = nil
	b.state = stateDisconnected
	return err
}

func (b *Backend) slotFor(id [16]byte) (gopiv.Slot, error) {
	sid, ok := b.slotsByID[id]
	if !ok {
		return gopiv.Slot{}, errs.ErrKeyNotFound
	}
	return resolveSlot(sid)
}

// Sign implements the §4.6 signing contract: require Connected, hash
// with SHA-256 (the token signs digests, not raw data), gate on the
// PIN retry ceiling without calling the token once exhausted, verify
// PIN, then submit the digest.
func (b *Backend) Sign(id [16]byte, data []byte, sigAlg format.SignatureAlgorithm) ([]byte, error) {
	digest := sha256.Sum256(data)
	return b.signDigest(id, digest[:])
}

// signDigest is the shared PIN-gated path to the token: it requires
// Connected, enforces the retry ceiling without calling the token once
// exhausted, verifies the PIN, and submits the already-computed
// digest. Sign hashes its input first; SelfSignedCertificate (cert.go)
// calls this directly with the digest x509.CreateCertificate already
// computed, so the tbsCertificate is never hashed twice.
func (b *Backend) signDigest(id [16]byte, digest []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != stateConnected {
		return nil, errs.Wrap(errs.KindHardwareError, "not connected", nil)
	}
	slot, err := b.slotFor(id)
	if err != nil {
		return nil, err
	}

	if b.retries >= b.maxRetries {
		b.state = statePinLocked
		return nil, errs.Wrap(errs.KindHardwareError, "PIN retry limit", nil)
	}

	cert, err := b.yk.Certificate(slot)
	if err != nil {
		return nil, errs.Wrap(errs.KindHardwareError, "reading slot certificate", err)
	}

	auth := gopiv.KeyAuth{PIN: b.pin}
	priv, err := b.yk.PrivateKey(slot, cert.PublicKey, auth)
	if err != nil {
		b.retries++
		return nil, errs.Wrap(errs.KindHardwareError, "PIN verification failed", err)
	}
	b.retries = 0

	signer, ok := priv.(crypto.Signer)
	if !ok {
		return nil, errs.Wrap(errs.KindHardwareError, "slot key does not implement crypto.Signer", nil)
	}

	sig, err := signer.Sign(rand.Reader, digest, crypto.SHA256)
	if err != nil {
		return nil, errs.Wrap(errs.KindSignatureFailed, "token sign", err)
	}
	return sig, nil
}

// GetPublicKey reads the on-card certificate's SubjectPublicKeyInfo as
// DER.
func (b *Backend) GetPublicKey(id [16]byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != stateConnected {
		return nil, errs.Wrap(errs.KindHardwareError, "not connected", nil)
	}
	slot, err := b.slotFor(id)
	if err != nil {
		return nil, err
	}
	cert, err := b.yk.Certificate(slot)
	if err != nil {
		return nil, errs.Wrap(errs.KindHardwareError, "reading slot certificate", err)
	}
	der, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return nil, errs.Wrap(errs.KindHardwareError, "marshaling public key", err)
	}
	return der, nil
}

// PerformOperation dispatches to the hardware-backed operations this
// token supports; GenerateKeyPair and Attest are advertised as
// unsupported, per §4.6.
func (b *Backend) PerformOperation(id [16]byte, op backend.Op) (backend.Result, error) {
	switch op.Kind {
	case backend.OpSign:
		sig, err := b.Sign(id, op.Data, op.SigAlg)
		if err != nil {
			return backend.Result{}, err
		}
		return backend.Result{Kind: backend.ResultSigned, Bytes: sig}, nil
	case backend.OpGetPublicKey:
		pub, err := b.GetPublicKey(id)
		if err != nil {
			return backend.Result{}, err
		}
		return backend.Result{Kind: backend.ResultPublicKey, Bytes: pub}, nil
	case backend.OpGenerateKeyPair, backend.OpAttest:
		return backend.Result{}, errs.ErrUnsupportedOperation
	default:
		return backend.Result{}, errs.ErrUnsupportedOperation
	}
}

// SupportsOperation reports Sign and GetPublicKey only.
func (b *Backend) SupportsOperation(op backend.OpKind) bool {
	switch op {
	case backend.OpSign, backend.OpGetPublicKey:
		return true
	default:
		return false
	}
}

// GetCapabilities reports this backend as hardware-backed with no
// generation or attestation support in the current driver.
func (b *Backend) GetCapabilities() backend.Capabilities {
	return backend.Capabilities{
		SignatureAlgorithms: []format.SignatureAlgorithm{format.SigEcdsaP256},
		HardwareBacked:      true,
		SupportsDerivation:  false,
		SupportsGeneration:  false,
		SupportsAttestation: false,
	}
}

// BackendInfo reports Available based on whether the token is
// currently connected.
func (b *Backend) BackendInfo() backend.Info {
	b.mu.Lock()
	defer b.mu.Unlock()
	return backend.Info{
		Name:               name,
		Description:        "hardware PIV token (fail-closed)",
		Version:            "1",
		Available:          b.state == stateConnected,
		ConfigRequirements: []string{"card reader name", "PIN"},
	}
}

// ListKeys reports the configured key_id→slot bindings; it does not
// probe the token (slot occupancy is verified at Sign/GetPublicKey
// time instead).
func (b *Backend) ListKeys() ([]backend.KeyMetadata, error) {
	out := make([]backend.KeyMetadata, 0, len(b.slotsByID))
	for id, slot := range b.slotsByID {
		out = append(out, backend.KeyMetadata{
			KeyID:       id,
			Description: "PIV slot " + string(slot),
			BackendData: map[string]string{"slot": string(slot), "fingerprint": backend.Fingerprint(id[:])},
		})
	}
	return out, nil
}
