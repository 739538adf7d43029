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
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWSConn_CarriesHandshakeFrame(t *testing.T) {
	upgrader := websocket.Upgrader{}
	serverDone := make(chan error, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			serverDone <- err
			return
		}
		ws := NewWSConn(conn)
		id, payload, err := ReadFrame(ws)
		if err != nil {
			serverDone <- err
			return
		}
		if id != MsgClientHello {
			serverDone <- errors.New("unexpected message id")
			return
		}
		var hello clientHello
		if err := DecodePayload(payload, &hello); err != nil {
			serverDone <- err
			return
		}
		serverDone <- nil
		conn.Close()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer clientConn.Close()

	ws := NewWSConn(clientConn)
	require.NoError(t, WriteFrame(ws, MsgClientHello, clientHello{Banner: "hi"}))

	require.NoError(t, <-serverDone)
}
