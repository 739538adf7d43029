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

// Package transport implements the C8 mutual-auth session protocol: a
// 5-message challenge/response handshake over a reliable byte stream,
// pinned-key server authentication, static-key X25519 ECDH, and a
// BLAKE3-derived session key.
package transport

import (
	"encoding/binary"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// MaxFrameLen is the hard ceiling on a handshake frame body (§4.8).
const MaxFrameLen = 8192

// MsgID tags the five handshake messages (ids 1..=5).
type MsgID uint8

const (
	MsgClientHello MsgID = iota + 1
	MsgServerChallenge
	MsgClientAuth
	MsgServerConfirm
	MsgAuthError
)

// WriteFrame writes `u32_le length || body` where body is the
// canonical CBOR encoding of msg, tagged with its MsgID.
func WriteFrame(w io.Writer, id MsgID, msg any) error {
	body, err := encodeFrameBody(id, msg)
	if err != nil {
		return err
	}
	if len(body) > MaxFrameLen {
		return errs.New(errs.KindLimitExceeded, "handshake frame exceeds 8 KiB")
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errs.Wrap(errs.KindMalformedInput, "writing frame length", err)
	}
	if _, err := w.Write(body); err != nil {
		return errs.Wrap(errs.KindMalformedInput, "writing frame body", err)
	}
	return nil
}

// ReadFrame reads one `u32_le length || body` frame, rejecting any
// length over MaxFrameLen before allocating or reading the body.
func ReadFrame(r io.Reader) (MsgID, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, errs.Wrap(errs.KindMalformedInput, "reading frame length", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxFrameLen {
		return 0, nil, errs.New(errs.KindLimitExceeded, "handshake frame exceeds 8 KiB")
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, errs.Wrap(errs.KindMalformedInput, "reading frame body", err)
	}
	if len(body) < 1 {
		return 0, nil, errs.New(errs.KindMalformedInput, "empty frame body")
	}
	return MsgID(body[0]), body[1:], nil
}

func encodeFrameBody(id MsgID, msg any) ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	payload, err := em.Marshal(msg)
	if err != nil {
		return nil, errs.Wrap(errs.KindMalformedInput, "encoding frame payload", err)
	}
	out := make([]byte, 0, 1+len(payload))
	out = append(out, byte(id))
	out = append(out, payload...)
	return out, nil
}

// DecodePayload CBOR-decodes a frame's raw payload bytes (as returned
// by ReadFrame) into dst.
func DecodePayload(payload []byte, dst any) error {
	if err := cbor.Unmarshal(payload, dst); err != nil {
		return errs.Wrap(errs.KindMalformedInput, "decoding frame payload", err)
	}
	return nil
}
