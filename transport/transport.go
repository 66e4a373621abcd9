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

// Package transport implements the stream, datagram and simulator carriers
// that move raw envelope bytes between a server and its peers. Transports
// know nothing about the wire codec in package message beyond treating its
// output as an opaque byte slice; they only manage connections, framing and
// delivery ordering.
package transport

import (
	"net"

	"github.com/Peanutt42/client-server/message"
)

// ClientId is the server-assigned identity of a peer.
type ClientId = message.ClientId

//----------------------------------------------------------------------
// Client-side events
//----------------------------------------------------------------------

// ClientEventKind enumerates the events a ClientTransport can surface.
// Connection establishment itself is not a transport-level event: a
// successful TCP dial or the first UDP send produces no events of their
// own, and the client runtime learns its assigned ClientId from the first
// ClientPacket (a ConnectResponse envelope) like any other payload. A
// connected UDP socket has no handshake, so a refused connection can only
// be discovered later, as an ECONNREFUSED on a read or write.
type ClientEventKind int

const (
	// ClientConnectionRefused reports a reader observing ECONNREFUSED.
	// Terminal. For TCP this typically means a failed Dial never got this
	// far; for UDP it is the asynchronous ICMP port-unreachable that
	// surfaces once the peer tries to read after the remote port rejected
	// a prior write.
	ClientConnectionRefused ClientEventKind = iota
	// ClientServerDisconnected reports the server going away. Terminal.
	ClientServerDisconnected
	// ClientPacket carries one inbound frame of raw bytes.
	ClientPacket
	// ClientReadError reports a non-fatal failure receiving from the
	// server (e.g. a malformed frame). Not terminal: the reader keeps
	// running.
	ClientReadError
)

// ClientEvent is a single event surfaced by a ClientTransport's PollEvent.
type ClientEvent struct {
	Kind    ClientEventKind
	Payload []byte // valid for ClientPacket
	Err     error  // valid for ClientReadError
}

// ClientTransport is the uniform surface the client runtime drives,
// regardless of whether the underlying carrier is a stream, a datagram
// socket or a simulator wrapping either.
type ClientTransport interface {
	// PollEvent returns the next queued event without blocking. The
	// second return value is false when no event is currently queued.
	PollEvent() (ClientEvent, bool)
	// Send transmits payload to the server.
	Send(payload []byte) error
	// Close releases the transport's resources and stops its goroutines.
	Close() error
}

//----------------------------------------------------------------------
// Server-side events
//----------------------------------------------------------------------

// ServerEventKind enumerates the events a ServerTransport can surface.
type ServerEventKind int

const (
	// ServerNewClient reports a newly accepted or first-seen peer.
	ServerNewClient ServerEventKind = iota
	// ServerClientDisconnected reports a peer going away.
	ServerClientDisconnected
	// ServerPacket carries one inbound frame of raw bytes from a peer.
	ServerPacket
	// ServerAcceptError reports a non-fatal failure accepting a new
	// connection (stream) or receiving on the shared socket (datagram),
	// surfaced so the hosting application can observe it instead of it
	// only reaching the transport's own log output.
	ServerAcceptError
	// ServerReadError reports a non-fatal failure receiving from an
	// already-known peer (e.g. a malformed frame). Not terminal: that
	// peer's reader keeps running.
	ServerReadError
)

// ServerEvent is a single event surfaced by a ServerTransport's PollEvent.
type ServerEvent struct {
	Kind    ServerEventKind
	Id      ClientId
	Addr    net.Addr // valid for ServerNewClient
	Payload []byte   // valid for ServerPacket
	Err     error    // valid for ServerAcceptError and ServerReadError
}

// ServerTransport is the uniform surface the server runtime drives.
type ServerTransport interface {
	// PollEvent returns the next queued event without blocking.
	PollEvent() (ServerEvent, bool)
	// SendTo transmits payload to the named peer.
	SendTo(id ClientId, payload []byte) error
	// Address returns the peer's address, if still known.
	Address(id ClientId) (net.Addr, bool)
	// Close releases the transport's resources and stops its goroutines.
	Close() error
}
