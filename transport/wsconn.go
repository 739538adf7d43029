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
	"io"

	"github.com/gorilla/websocket"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// WSConn adapts a *websocket.Conn to io.ReadWriter so the handshake
// and NetworkChunk framing in this package run unmodified over a
// websocket-framed duplex instead of a raw TCP byte stream. Write
// sends one binary message per call (so WriteFrame's length prefix and
// body travel as two messages), and Read drains messages in order into
// the caller's buffer, so frame boundaries need not match message
// boundaries.
type WSConn struct {
	conn    *websocket.Conn
	pending io.Reader
}

// NewWSConn wraps an established websocket connection.
func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (c *WSConn) Write(p []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, errs.Wrap(errs.KindMalformedInput, "websocket write", err)
	}
	return len(p), nil
}

func (c *WSConn) Read(p []byte) (int, error) {
	for c.pending == nil {
		msgType, r, err := c.conn.NextReader()
		if err != nil {
			return 0, errs.Wrap(errs.KindMalformedInput, "websocket read", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		c.pending = r
	}
	n, err := c.pending.Read(p)
	if err == io.EOF {
		c.pending = nil
		if n == 0 {
			return c.Read(p)
		}
		err = nil
	}
	return n, err
}

// Close closes the underlying websocket connection.
func (c *WSConn) Close() error {
	return c.conn.Close()
}
