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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
	"lukechampine.com/blake3"
)

// MaxLegacyFrameLen bounds NetworkChunk frames on the legacy transport
// (§6.2); the hardened transport raises this ceiling.
const MaxLegacyFrameLen = 8192

// MaxHardenedFrameLen bounds NetworkChunk frames on the hardened
// transport.
const MaxHardenedFrameLen = 16 * 1024 * 1024

// NetworkChunk is the post-handshake data-chunk wire shape (§6.2),
// distinct from the handshake's frame/message envelope.
type NetworkChunk struct {
	Sequence  uint64 `cbor:"sequence"`
	Nonce     []byte `cbor:"nonce"`
	Data      []byte `cbor:"data"`
	Manifest  []byte `cbor:"manifest"`
	Timestamp int64  `cbor:"timestamp"`
}

// WriteChunk writes one length-prefixed NetworkChunk, enforcing
// maxFrame (MaxLegacyFrameLen on the legacy transport, MaxHardenedFrameLen
// on the hardened one).
func WriteChunk(w io.Writer, chunk NetworkChunk, maxFrame int) error {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return err
	}
	body, err := em.Marshal(chunk)
	if err != nil {
		return errs.Wrap(errs.KindMalformedInput, "encoding network chunk", err)
	}
	if len(body) > maxFrame {
		return errs.New(errs.KindLimitExceeded, "network chunk exceeds max frame size")
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errs.Wrap(errs.KindMalformedInput, "writing chunk length", err)
	}
	if _, err := w.Write(body); err != nil {
		return errs.Wrap(errs.KindMalformedInput, "writing chunk body", err)
	}
	return nil
}

// ReadChunk reads one length-prefixed NetworkChunk, rejecting a length
// over maxFrame before reading the body.
func ReadChunk(r io.Reader, maxFrame int) (NetworkChunk, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return NetworkChunk{}, errs.Wrap(errs.KindMalformedInput, "reading chunk length", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if int(n) > maxFrame {
		return NetworkChunk{}, errs.New(errs.KindLimitExceeded, "network chunk exceeds max frame size")
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return NetworkChunk{}, errs.Wrap(errs.KindMalformedInput, "reading chunk body", err)
	}
	var chunk NetworkChunk
	if err := cbor.Unmarshal(body, &chunk); err != nil {
		return NetworkChunk{}, errs.Wrap(errs.KindMalformedInput, "decoding network chunk", err)
	}
	return chunk, nil
}

// BuildACK renders a plain "ACK:<seq>" acknowledgement, or, when
// sessionID is non-nil, a secure "ACK:<seq>:MAC:<hex>" form where MAC
// is the first 8 bytes of BLAKE3-keyed(sessionID||sessionID, "ACK:<seq>")
// (§6.2).
func BuildACK(seq uint64, sessionID *[16]byte) (string, error) {
	plain := fmt.Sprintf("ACK:%d", seq)
	if sessionID == nil {
		return plain, nil
	}
	mac, err := ackMAC(*sessionID, plain)
	if err != nil {
		return "", err
	}
	return plain + ":MAC:" + hex.EncodeToString(mac), nil
}

// VerifyACK parses an ACK string and, when sessionID is non-nil,
// verifies its MAC. It returns the acknowledged sequence number.
func VerifyACK(ack string, sessionID *[16]byte) (uint64, error) {
	parts := strings.Split(ack, ":")
	if len(parts) < 2 || parts[0] != "ACK" {
		return 0, errs.New(errs.KindMalformedInput, "malformed ACK")
	}
	var seq uint64
	if _, err := fmt.Sscanf(parts[1], "%d", &seq); err != nil {
		return 0, errs.Wrap(errs.KindMalformedInput, "malformed ACK sequence", err)
	}
	if sessionID == nil {
		if len(parts) != 2 {
			return 0, errs.New(errs.KindMalformedInput, "unexpected MAC on unsecured ACK")
		}
		return seq, nil
	}
	if len(parts) != 4 || parts[2] != "MAC" {
		return 0, errs.New(errs.KindMalformedInput, "secure ACK missing MAC")
	}
	gotMAC, err := hex.DecodeString(parts[3])
	if err != nil {
		return 0, errs.Wrap(errs.KindMalformedInput, "invalid ACK MAC hex", err)
	}
	wantMAC, err := ackMAC(*sessionID, fmt.Sprintf("ACK:%d", seq))
	if err != nil {
		return 0, err
	}
	if len(gotMAC) != len(wantMAC) || !hmacEqual(gotMAC, wantMAC) {
		return 0, errs.ErrAeadFailed
	}
	return seq, nil
}

func ackMAC(sessionID [16]byte, plain string) ([]byte, error) {
	key := make([]byte, 32)
	copy(key[:16], sessionID[:])
	copy(key[16:], sessionID[:])
	h, err := blake3.New(32, key)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "blake3 keyed init", err)
	}
	if _, err := h.Write([]byte(plain)); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "blake3 keyed write", err)
	}
	sum := h.Sum(nil)
	return sum[:8], nil
}

func hmacEqual(a, b []byte) bool {
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
