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
	"bytes"
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"lukechampine.com/blake3"
)

// sessionKeyContext is the BLAKE3 derive_key context string for C8
// session-key derivation (§4.8), distinct from any manifest or
// envelope domain-separation string.
const sessionKeyContext = "TRUSTEDGE_SESSION_KEY_V1"

// DefaultSessionTTL is the absolute lifetime of a derived session
// (§5): 30 minutes from ServerConfirm, regardless of activity.
const DefaultSessionTTL = 30 * time.Minute

// Session is the handshake's output (§3.6): identity, expiry, and a
// symmetric key that the caller zeroizes on drop or expiry sweep.
type Session struct {
	ID         [16]byte
	PeerPub    [32]byte
	ExpiresAt  time.Time
	SessionKey [32]byte
}

// Zero wipes the session key in place; callers must call this before
// releasing a Session.
func (s *Session) Zero() {
	for i := range s.SessionKey {
		s.SessionKey[i] = 0
	}
}

func (s *Session) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// sort2 returns (a, b) reordered so the lexicographically smaller
// public key comes first, so both handshake peers feed the KDF the
// same byte sequence regardless of which side is "my" key.
func sort2(a, b [32]byte) ([32]byte, [32]byte) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// deriveSessionKey implements §4.8's session-key derivation:
// kdf_input = shared || challenge || sort2(my_pk, their_pk), then
// BLAKE3-derive_key(sessionKeyContext, kdf_input).
func deriveSessionKey(shared, challenge []byte, myPub, theirPub [32]byte) [32]byte {
	first, second := sort2(myPub, theirPub)
	kdfInput := make([]byte, 0, len(shared)+len(challenge)+64)
	kdfInput = append(kdfInput, shared...)
	kdfInput = append(kdfInput, challenge...)
	kdfInput = append(kdfInput, first[:]...)
	kdfInput = append(kdfInput, second[:]...)

	var out [32]byte
	blake3.DeriveKey(out[:], sessionKeyContext, kdfInput)
	return out
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "drawing random bytes", err)
	}
	return b, nil
}

// SessionTable is the server-side session_id -> Session index (§3.6,
// §5): mutated only by the owning server task, never shared across
// tasks, with lazy expiry sweep performed on lookup rather than a
// background ticker.
type SessionTable struct {
	mu       sync.Mutex
	sessions map[[16]byte]*Session
}

// NewSessionTable constructs an empty session table.
func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[[16]byte]*Session)}
}

// Put inserts a freshly derived session under its own ID (drawn by
// newSessionID during the handshake).
func (t *SessionTable) Put(sess *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[sess.ID] = sess
}

// Lookup returns the live session for id, sweeping it (and zeroizing
// its key) if its TTL has lapsed. A background sweep is explicitly
// not run; expiry is enforced lazily at lookup time per §5.
func (t *SessionTable) Lookup(id [16]byte) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[id]
	if !ok {
		return nil, false
	}
	if sess.expired(time.Now()) {
		sess.Zero()
		delete(t.sessions, id)
		return nil, false
	}
	return sess, true
}

// Drop removes and zeroizes a session explicitly, e.g. on connection
// close.
func (t *SessionTable) Drop(id [16]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sess, ok := t.sessions[id]; ok {
		sess.Zero()
		delete(t.sessions, id)
	}
}

// newSessionID draws a random 16-byte session_id (§4.8: "session_id ←
// random[16]"), using uuid v4's random-bits generation rather than a
// raw rand.Read so session ids are valid RFC 4122 UUIDs callers can
// log and index by.
func newSessionID() ([16]byte, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return [16]byte{}, errs.Wrap(errs.KindInternal, "drawing session_id", err)
	}
	return [16]byte(u), nil
}

// verifyTimestamp enforces the |ts - now| <= 300s freshness window
// applied to ClientAuth.Timestamp by the server.
func verifyTimestamp(ts time.Time, now time.Time) error {
	delta := now.Sub(ts)
	if delta < 0 {
		delta = -delta
	}
	if delta > 300*time.Second {
		return errs.New(errs.KindTimeout, "client timestamp outside freshness window")
	}
	return nil
}
