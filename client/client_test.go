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

package client

import (
	"testing"

	"github.com/Peanutt42/client-server/message"
)

func TestConnectionRefusedIsSticky(t *testing.T) {
	// Nothing listens on this port.
	c := Connect("127.0.0.1:1", TCP)

	p1, ok := c.PollPacket()
	if !ok || p1.Kind != PacketConnectionRefused {
		t.Fatalf("expected PacketConnectionRefused, got %+v ok=%v", p1, ok)
	}
	p2, ok := c.PollPacket()
	if !ok || p2.Kind != PacketConnectionRefused {
		t.Fatal("expected ConnectionRefused to remain sticky across repeated polls")
	}
}

func TestUpdateIsNoopAfterTerminal(t *testing.T) {
	c := Connect("127.0.0.1:1", TCP)
	c.PollPacket()
	// Update must not panic or block once terminal, even though there is
	// no transport to poll.
	c.Update()
	c.Update()
}

func TestSendWithoutConnectionFails(t *testing.T) {
	c := &Client{}
	if err := c.SendToServer([]byte("x")); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSendToAllRejectsOversizedPayload(t *testing.T) {
	c := &Client{}
	huge := make([]byte, message.MaxMessageSize+1)
	if err := c.SendToAll(huge); err != message.ErrPayloadTooLarge {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}
