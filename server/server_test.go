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

package server

import (
	"errors"
	"testing"
	"time"

	"github.com/Peanutt42/client-server/client"
	"github.com/Peanutt42/client-server/message"
	"github.com/Peanutt42/client-server/transport"
)

func pump(srv *Server, clients ...*client.Client) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		srv.Update()
		for _, c := range clients {
			c.Update()
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestServerAssignsClientIdOnConnect(t *testing.T) {
	tr, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	srv := New(tr)
	defer srv.Close()

	addr := tr.ListenAddr()
	c := client.Connect(addr, client.TCP)
	defer c.Close()

	var connected client.AppPacket
	gotPacket := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		srv.Update()
		c.Update()
		if p, ok := c.PollPacket(); ok {
			connected = p
			gotPacket = true
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !gotPacket {
		t.Fatal("timed out waiting for a packet from the server")
	}
	if connected.Kind != client.PacketConnected {
		t.Fatalf("expected PacketConnected, got %+v", connected)
	}
}

func TestExistingClientNotifiedOfNewClient(t *testing.T) {
	tr, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	srv := New(tr)
	defer srv.Close()

	addr := tr.ListenAddr()
	a := client.Connect(addr, client.TCP)
	defer a.Close()
	pump(srv, a)
	drain(a)

	if _, ok := a.Id(); !ok {
		t.Fatal("a never got a client id")
	}

	b := client.Connect(addr, client.TCP)
	defer b.Close()
	pump(srv, a, b)

	idB, ok := b.Id()
	if !ok {
		t.Fatal("b never got a client id")
	}

	sawNewClient := false
	for {
		p, ok := a.PollPacket()
		if !ok {
			break
		}
		if p.Kind == client.PacketNewClientConnected && p.From == idB {
			sawNewClient = true
		}
	}
	if !sawNewClient {
		t.Fatal("a should have been notified that b joined")
	}
}

func TestBroadcastReachesOtherClientsOnly(t *testing.T) {
	tr, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	srv := New(tr)
	defer srv.Close()

	addr := tr.ListenAddr()
	a := client.Connect(addr, client.TCP)
	b := client.Connect(addr, client.TCP)
	defer a.Close()
	defer b.Close()

	pump(srv, a, b)
	drain(a)
	drain(b)

	if err := a.SendToAll([]byte("hi all")); err != nil {
		t.Fatalf("send: %s", err)
	}
	pump(srv, a, b)

	found := false
	for {
		p, ok := b.PollPacket()
		if !ok {
			break
		}
		if p.Kind == client.PacketClientMessage && string(p.Payload) == "hi all" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected b to receive a's broadcast")
	}

	for {
		p, ok := a.PollPacket()
		if !ok {
			break
		}
		if p.Kind == client.PacketClientMessage {
			t.Fatal("sender should not receive its own broadcast")
		}
	}
}

func TestKickNotifiesRemainingClients(t *testing.T) {
	tr, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	srv := New(tr)
	defer srv.Close()

	addr := tr.ListenAddr()
	a := client.Connect(addr, client.TCP)
	b := client.Connect(addr, client.TCP)
	defer a.Close()
	defer b.Close()

	pump(srv, a, b)
	drain(a)
	drain(b)

	idA, ok := a.Id()
	if !ok {
		t.Fatal("a never got a client id")
	}
	if err := srv.Kick(idA); err != nil {
		t.Fatalf("kick: %s", err)
	}
	pump(srv, a, b)

	sawKicked := false
	for {
		p, ok := a.PollPacket()
		if !ok {
			break
		}
		if p.Kind == client.PacketYouWereKicked {
			// Terminal and sticky: PollPacket keeps returning it.
			sawKicked = true
			break
		}
	}
	if !sawKicked {
		t.Fatal("a should have seen PacketYouWereKicked")
	}

	sawNotice := false
	for {
		p, ok := b.PollPacket()
		if !ok {
			break
		}
		if p.Kind == client.PacketClientKicked && p.From == idA {
			sawNotice = true
		}
	}
	if !sawNotice {
		t.Fatal("b should have been notified that a was kicked")
	}
}

func drain(c *client.Client) {
	for {
		if _, ok := c.PollPacket(); !ok {
			return
		}
	}
}

func TestGetPingWithoutIntervalErrors(t *testing.T) {
	tr, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	srv := New(tr)
	defer srv.Close()

	addr := tr.ListenAddr()
	c := client.Connect(addr, client.TCP)
	defer c.Close()
	pump(srv, c)

	id, ok := c.Id()
	if !ok {
		t.Fatal("client never connected")
	}
	if _, err := srv.GetPing(id); err != ErrNoPingIntervalSet {
		t.Fatalf("expected ErrNoPingIntervalSet, got %v", err)
	}
}

func TestSendToInvalidClientID(t *testing.T) {
	tr, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	srv := New(tr)
	defer srv.Close()

	if err := srv.SendTo(transport.ClientId(424242), []byte("x")); err != ErrInvalidClientID {
		t.Fatalf("expected ErrInvalidClientID, got %v", err)
	}
}

func TestAcceptErrorReachesErrorLog(t *testing.T) {
	tr, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	srv := New(tr)
	defer srv.Close()

	underlying := errors.New("accept: too many open files")
	srv.handleEvent(transport.ServerEvent{Kind: transport.ServerAcceptError, Err: underlying})

	log := srv.DrainErrorLog()
	if len(log) != 1 {
		t.Fatalf("expected one logged error, got %d", len(log))
	}
	if !errors.Is(log[0], ErrAcceptingConnection) {
		t.Fatalf("expected error to wrap ErrAcceptingConnection, got %v", log[0])
	}
}

func TestBroadcastAllRejectsOversizedPayload(t *testing.T) {
	tr, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	srv := New(tr)
	defer srv.Close()

	huge := make([]byte, message.MaxMessageSize+1)
	if err := srv.BroadcastAll(huge); err != message.ErrPayloadTooLarge {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}
