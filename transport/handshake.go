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
	"crypto/ed25519"
	"io"
	"time"

	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

const certDomain = "trustedge.servercert.v1"
const confirmDomain = "trustedge.serverconfirm.v1"

// ServerCertificate is a minimal self-signed identity assertion: the
// server's long-lived Ed25519 public key plus a signature the server
// makes over its own key. Self-consistency alone proves nothing; the
// client's pinned_pubkey comparison is the actual trust anchor.
type ServerCertificate struct {
	PubKey  [32]byte `cbor:"pubkey"`
	SelfSig []byte   `cbor:"self_sig"`
}

func signServerCertificate(priv ed25519.PrivateKey, pub [32]byte) []byte {
	msg := append([]byte(certDomain), pub[:]...)
	return ed25519.Sign(priv, msg)
}

func (c ServerCertificate) selfConsistent() bool {
	msg := append([]byte(certDomain), c.PubKey[:]...)
	return ed25519.Verify(ed25519.PublicKey(c.PubKey[:]), msg, c.SelfSig)
}

type clientHello struct {
	Banner string `cbor:"banner"`
}

type serverChallenge struct {
	Challenge  []byte            `cbor:"challenge"`
	ServerCert ServerCertificate `cbor:"server_cert"`
	Timestamp  int64             `cbor:"ts"`
}

type clientAuth struct {
	ClientPub [32]byte `cbor:"client_pk"`
	Sig       []byte   `cbor:"sig"`
	Identity  string   `cbor:"identity,omitempty"`
	Timestamp int64    `cbor:"ts"`
}

type serverConfirm struct {
	SessionID [16]byte `cbor:"session_id"`
	ExpiresAt int64    `cbor:"expires_at"`
	Sig       []byte   `cbor:"sig"`
}

// AuthErrorReason distinguishes why the server rejected a handshake.
// The distilled spec names only a single AuthError{string}; the
// original implementation's auth path carries a reason enum so a
// programmatic caller can react without string-matching, while the
// message remains the human-facing diagnostic.
type AuthErrorReason byte

const (
	ReasonBadSignature AuthErrorReason = iota + 1
	ReasonStaleTimestamp
	ReasonUnknownClient
	ReasonKeyAgreementFailed
)

type authError struct {
	Reason  AuthErrorReason `cbor:"reason"`
	Message string          `cbor:"message"`
}

func reasonString(r AuthErrorReason) string {
	switch r {
	case ReasonBadSignature:
		return "bad_signature"
	case ReasonStaleTimestamp:
		return "stale_timestamp"
	case ReasonUnknownClient:
		return "unknown_client"
	case ReasonKeyAgreementFailed:
		return "key_agreement_failed"
	default:
		return "unknown"
	}
}

func kindForAuthErrorReason(r AuthErrorReason) errs.Kind {
	switch r {
	case ReasonBadSignature:
		return errs.KindSignatureFailed
	case ReasonStaleTimestamp:
		return errs.KindTimeout
	case ReasonUnknownClient:
		return errs.KindKeyNotFound
	case ReasonKeyAgreementFailed:
		return errs.KindMalformedInput
	default:
		return errs.KindInternal
	}
}

func signClientAuth(priv ed25519.PrivateKey, challenge []byte) []byte {
	return ed25519.Sign(priv, challenge)
}

func verifyClientAuth(pub [32]byte, challenge, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), challenge, sig)
}

func signServerConfirm(priv ed25519.PrivateKey, sessionID [16]byte, clientPub [32]byte, expiresAt int64) []byte {
	msg := confirmMessage(sessionID, clientPub, expiresAt)
	return ed25519.Sign(priv, msg)
}

func verifyServerConfirm(pub [32]byte, sessionID [16]byte, clientPub [32]byte, expiresAt int64, sig []byte) bool {
	msg := confirmMessage(sessionID, clientPub, expiresAt)
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}

func confirmMessage(sessionID [16]byte, clientPub [32]byte, expiresAt int64) []byte {
	msg := make([]byte, 0, len(confirmDomain)+16+32+8)
	msg = append(msg, confirmDomain...)
	msg = append(msg, sessionID[:]...)
	msg = append(msg, clientPub[:]...)
	var expBuf [8]byte
	putInt64(expBuf[:], expiresAt)
	msg = append(msg, expBuf[:]...)
	return msg
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

// ClientIdentity is the client's long-lived Ed25519 keypair used to
// authenticate ClientAuth, plus the server identity it pins.
type ClientIdentity struct {
	Priv         ed25519.PrivateKey
	Pub          [32]byte
	PinnedServer [32]byte
	Identity     string
}

// ServerIdentity is the server's long-lived Ed25519 keypair, whose
// public half is asserted by ServerCertificate.
type ServerIdentity struct {
	Priv ed25519.PrivateKey
	Pub  [32]byte
}

// DialHandshake drives the client side of the 5-message handshake
// over rw (e.g. a net.Conn), returning the derived Session.
func DialHandshake(rw io.ReadWriter, banner string, id ClientIdentity) (*Session, error) {
	if err := WriteFrame(rw, MsgClientHello, clientHello{Banner: banner}); err != nil {
		return nil, err
	}

	msgID, payload, err := ReadFrame(rw)
	if err != nil {
		return nil, err
	}
	if msgID != MsgServerChallenge {
		return nil, errs.New(errs.KindMalformedInput, "expected ServerChallenge")
	}
	var sc serverChallenge
	if err := DecodePayload(payload, &sc); err != nil {
		return nil, err
	}

	if !sc.ServerCert.selfConsistent() {
		return nil, errs.New(errs.KindPinningFailed, "server certificate self-signature invalid")
	}
	if sc.ServerCert.PubKey != id.PinnedServer {
		return nil, errs.New(errs.KindPinningFailed, "server certificate does not match pinned key")
	}

	sig := signClientAuth(id.Priv, sc.Challenge)
	now := time.Now().Unix()
	if err := WriteFrame(rw, MsgClientAuth, clientAuth{
		ClientPub: id.Pub,
		Sig:       sig,
		Identity:  id.Identity,
		Timestamp: now,
	}); err != nil {
		return nil, err
	}

	msgID, payload, err = ReadFrame(rw)
	if err != nil {
		return nil, err
	}
	if msgID == MsgAuthError {
		var ae authError
		if err := DecodePayload(payload, &ae); err != nil {
			return nil, err
		}
		return nil, errs.New(kindForAuthErrorReason(ae.Reason), "server rejected handshake ("+reasonString(ae.Reason)+"): "+ae.Message)
	}
	if msgID != MsgServerConfirm {
		return nil, errs.New(errs.KindMalformedInput, "expected ServerConfirm")
	}
	var confirm serverConfirm
	if err := DecodePayload(payload, &confirm); err != nil {
		return nil, err
	}
	if !verifyServerConfirm(sc.ServerCert.PubKey, confirm.SessionID, id.Pub, confirm.ExpiresAt, confirm.Sig) {
		return nil, errs.ErrSignatureFailed
	}

	myX, err := ed25519PrivToX25519(id.Priv)
	if err != nil {
		return nil, err
	}
	theirX, err := ed25519PubToX25519(ed25519.PublicKey(sc.ServerCert.PubKey[:]))
	if err != nil {
		return nil, err
	}
	shared, err := x25519(myX, theirX)
	if err != nil {
		return nil, err
	}
	if err := rejectLowOrder(shared); err != nil {
		return nil, err
	}

	key := deriveSessionKey(shared, sc.Challenge, id.Pub, sc.ServerCert.PubKey)
	return &Session{
		ID:         confirm.SessionID,
		PeerPub:    sc.ServerCert.PubKey,
		ExpiresAt:  time.Unix(confirm.ExpiresAt, 0),
		SessionKey: key,
	}, nil
}

// AcceptHandshake drives the server side of the 5-message handshake
// over rw, registering the derived Session in table and returning it.
// On any verification failure it sends AuthError and returns the
// error; no session key is derived or stored in that case.
func AcceptHandshake(rw io.ReadWriter, id ServerIdentity, table *SessionTable) (*Session, error) {
	msgID, payload, err := ReadFrame(rw)
	if err != nil {
		return nil, err
	}
	if msgID != MsgClientHello {
		return nil, errs.New(errs.KindMalformedInput, "expected ClientHello")
	}
	var hello clientHello
	if err := DecodePayload(payload, &hello); err != nil {
		return nil, err
	}

	challenge, err := randomBytes(32)
	if err != nil {
		return nil, err
	}
	cert := ServerCertificate{PubKey: id.Pub, SelfSig: signServerCertificate(id.Priv, id.Pub)}
	if err := WriteFrame(rw, MsgServerChallenge, serverChallenge{
		Challenge:  challenge,
		ServerCert: cert,
		Timestamp:  time.Now().Unix(),
	}); err != nil {
		return nil, err
	}

	msgID, payload, err = ReadFrame(rw)
	if err != nil {
		return nil, err
	}
	if msgID != MsgClientAuth {
		return nil, errs.New(errs.KindMalformedInput, "expected ClientAuth")
	}
	var auth clientAuth
	if err := DecodePayload(payload, &auth); err != nil {
		return nil, err
	}

	if err := verifyTimestamp(time.Unix(auth.Timestamp, 0), time.Now()); err != nil {
		sendAuthError(rw, ReasonStaleTimestamp, "timestamp outside freshness window")
		return nil, err
	}
	if !verifyClientAuth(auth.ClientPub, challenge, auth.Sig) {
		sendAuthError(rw, ReasonBadSignature, "invalid client signature")
		return nil, errs.ErrSignatureFailed
	}

	myX, err := ed25519PrivToX25519(id.Priv)
	if err != nil {
		sendAuthError(rw, ReasonKeyAgreementFailed, "internal error")
		return nil, err
	}
	theirX, err := ed25519PubToX25519(ed25519.PublicKey(auth.ClientPub[:]))
	if err != nil {
		sendAuthError(rw, ReasonUnknownClient, "invalid client public key")
		return nil, err
	}
	shared, err := x25519(myX, theirX)
	if err != nil {
		sendAuthError(rw, ReasonKeyAgreementFailed, "key agreement failed")
		return nil, err
	}
	if err := rejectLowOrder(shared); err != nil {
		sendAuthError(rw, ReasonKeyAgreementFailed, "key agreement failed")
		return nil, err
	}

	sessionID, err := newSessionID()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(DefaultSessionTTL)
	sig := signServerConfirm(id.Priv, sessionID, auth.ClientPub, expiresAt.Unix())
	if err := WriteFrame(rw, MsgServerConfirm, serverConfirm{
		SessionID: sessionID,
		ExpiresAt: expiresAt.Unix(),
		Sig:       sig,
	}); err != nil {
		return nil, err
	}

	key := deriveSessionKey(shared, challenge, id.Pub, auth.ClientPub)
	sess := &Session{ID: sessionID, PeerPub: auth.ClientPub, ExpiresAt: expiresAt, SessionKey: key}
	table.Put(sess)
	return sess, nil
}

func sendAuthError(rw io.ReadWriter, reason AuthErrorReason, message string) {
	_ = WriteFrame(rw, MsgAuthError, authError{Reason: reason, Message: message})
}
