// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2019, 2020 Bernd Fix  >Y<
//
// gnunet-go is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// gnunet-go is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package transport

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/Peanutt42/client-server/message"
)

func waitForEvent(t *testing.T, poll func() (interface{}, bool)) interface{} {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, ok := poll(); ok {
			return v
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for event")
	return nil
}

func TestTCPAcceptAndExchange(t *testing.T) {
	srv, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer srv.Close()

	addr := srv.ln.Addr().String()
	cli, err := DialTCP(addr)
	if err != nil {
		t.Fatalf("dial: %s", err)
	}
	defer cli.Close()

	ev := waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() }).(ServerEvent)
	if ev.Kind != ServerNewClient {
		t.Fatalf("expected ServerNewClient, got %v", ev.Kind)
	}
	id := ev.Id

	if err := cli.Send([]byte("hello")); err != nil {
		t.Fatalf("send: %s", err)
	}
	ev = waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() }).(ServerEvent)
	if ev.Kind != ServerPacket || !bytes.Equal(ev.Payload, []byte("hello")) {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if err := srv.SendTo(id, []byte("world")); err != nil {
		t.Fatalf("send to: %s", err)
	}
	cev := waitForEvent(t, func() (interface{}, bool) { return cli.PollEvent() }).(ClientEvent)
	if cev.Kind != ClientPacket || !bytes.Equal(cev.Payload, []byte("world")) {
		t.Fatalf("unexpected client event: %+v", cev)
	}
}

func TestTCPDisconnectNotifiesServer(t *testing.T) {
	srv, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer srv.Close()

	cli, err := DialTCP(srv.ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %s", err)
	}
	waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() })
	cli.Close()

	ev := waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() }).(ServerEvent)
	if ev.Kind != ServerClientDisconnected {
		t.Fatalf("expected ServerClientDisconnected, got %v", ev.Kind)
	}
}

func TestTCPMalformedFrameDoesNotDisconnectPeer(t *testing.T) {
	srv, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer srv.Close()

	// Dial directly instead of through DialTCP so a bogus length prefix can
	// be written onto the wire without the client-side codec in the way.
	conn, err := net.Dial("tcp", srv.ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %s", err)
	}
	defer conn.Close()

	ev := waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() }).(ServerEvent)
	if ev.Kind != ServerNewClient {
		t.Fatalf("expected ServerNewClient, got %v", ev.Kind)
	}
	id := ev.Id

	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint32(hdr, message.MaxMsgSize+1)
	if _, err := conn.Write(hdr); err != nil {
		t.Fatalf("write malformed header: %s", err)
	}

	ev = waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() }).(ServerEvent)
	if ev.Kind != ServerReadError {
		t.Fatalf("expected ServerReadError, got %v", ev.Kind)
	}

	if err := srv.SendTo(id, []byte("still here")); err != nil {
		t.Fatalf("expected peer to remain connected after a malformed frame, send failed: %s", err)
	}
}

func TestTCPSendToUnknownClient(t *testing.T) {
	srv, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer srv.Close()

	if err := srv.SendTo(ClientId(9999), []byte("x")); err != ErrUnknownClient {
		t.Fatalf("expected ErrUnknownClient, got %v", err)
	}
}
