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
	"testing"
)

func TestUDPFirstSightAndExchange(t *testing.T) {
	srv, err := ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer srv.Close()

	cli, err := DialUDP(srv.conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %s", err)
	}
	defer cli.Close()

	if err := cli.Send([]byte("hi")); err != nil {
		t.Fatalf("send: %s", err)
	}

	ev := waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() }).(ServerEvent)
	if ev.Kind != ServerNewClient {
		t.Fatalf("expected ServerNewClient, got %v", ev.Kind)
	}
	id := ev.Id

	ev = waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() }).(ServerEvent)
	if ev.Kind != ServerPacket || !bytes.Equal(ev.Payload, []byte("hi")) {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if err := srv.SendTo(id, []byte("ack")); err != nil {
		t.Fatalf("send to: %s", err)
	}
	cev := waitForEvent(t, func() (interface{}, bool) { return cli.PollEvent() }).(ClientEvent)
	if cev.Kind != ClientPacket || !bytes.Equal(cev.Payload, []byte("ack")) {
		t.Fatalf("unexpected client event: %+v", cev)
	}
}

func TestUDPDisconnectSentinel(t *testing.T) {
	srv, err := ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer srv.Close()

	cli, err := DialUDP(srv.conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %s", err)
	}
	cli.Send([]byte("x"))
	waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() }) // NewClient
	waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() }) // Packet

	cli.Close()
	ev := waitForEvent(t, func() (interface{}, bool) { return srv.PollEvent() }).(ServerEvent)
	if ev.Kind != ServerClientDisconnected {
		t.Fatalf("expected ServerClientDisconnected, got %v", ev.Kind)
	}
}
