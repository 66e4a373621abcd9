// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2019-2022 Bernd Fix  >Y<
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

package message

//----------------------------------------------------------------------
// Client -> server envelopes
//----------------------------------------------------------------------

// BroadcastMessage asks the server to relay Payload to every connected
// client (optionally excluding the sender; the server decides that from
// context, not from a wire flag).
type BroadcastMessage struct {
	MessageHeader
	Payload []byte `size:"*"`
}

// NewBroadcastMessage builds a BroadcastMessage envelope.
func NewBroadcastMessage(payload []byte) *BroadcastMessage {
	m := &BroadcastMessage{Payload: payload}
	m.MsgType = DiscBroadcastMessage
	m.MsgSize = uint16(3 + len(payload))
	return m
}

// Header implements Envelope.
func (m *BroadcastMessage) Header() *MessageHeader { return &m.MessageHeader }

// PersonalMessage asks the server to relay Payload to exactly one other
// client, identified by Target.
type PersonalMessage struct {
	MessageHeader
	Target  ClientId `order:"big"`
	Payload []byte   `size:"*"`
}

// NewPersonalMessage builds a PersonalMessage envelope.
func NewPersonalMessage(target ClientId, payload []byte) *PersonalMessage {
	m := &PersonalMessage{Target: target, Payload: payload}
	m.MsgType = DiscPersonalMessage
	m.MsgSize = uint16(3 + 8 + len(payload))
	return m
}

// Header implements Envelope.
func (m *PersonalMessage) Header() *MessageHeader { return &m.MessageHeader }

// ServerMessage sends Payload to the server itself, not to other clients.
type ServerMessage struct {
	MessageHeader
	Payload []byte `size:"*"`
}

// NewServerMessage builds a ServerMessage envelope.
func NewServerMessage(payload []byte) *ServerMessage {
	m := &ServerMessage{Payload: payload}
	m.MsgType = DiscServerMessage
	m.MsgSize = uint16(3 + len(payload))
	return m
}

// Header implements Envelope.
func (m *ServerMessage) Header() *MessageHeader { return &m.MessageHeader }

// PingResponse answers an outstanding Ping, letting the server complete its
// round-trip-time measurement.
type PingResponse struct {
	MessageHeader
	Nonce uint64 `order:"big"`
}

// NewPingResponse builds a PingResponse envelope.
func NewPingResponse(nonce uint64) *PingResponse {
	m := &PingResponse{Nonce: nonce}
	m.MsgType = DiscPingResponse
	m.MsgSize = 3 + 8
	return m
}

// Header implements Envelope.
func (m *PingResponse) Header() *MessageHeader { return &m.MessageHeader }

//----------------------------------------------------------------------
// Server -> client envelopes
//----------------------------------------------------------------------

// ConnectResponse is the very first message a newly accepted client
// receives, telling it the ClientId the server assigned.
type ConnectResponse struct {
	MessageHeader
	Id ClientId `order:"big"`
}

// NewConnectResponse builds a ConnectResponse envelope.
func NewConnectResponse(id ClientId) *ConnectResponse {
	m := &ConnectResponse{Id: id}
	m.MsgType = DiscConnectResponse
	m.MsgSize = 3 + 8
	return m
}

// Header implements Envelope.
func (m *ConnectResponse) Header() *MessageHeader { return &m.MessageHeader }

// NewClientConnected notifies existing clients that a new peer joined.
type NewClientConnected struct {
	MessageHeader
	Id ClientId `order:"big"`
}

// NewNewClientConnected builds a NewClientConnected envelope.
func NewNewClientConnected(id ClientId) *NewClientConnected {
	m := &NewClientConnected{Id: id}
	m.MsgType = DiscNewClientConnected
	m.MsgSize = 3 + 8
	return m
}

// Header implements Envelope.
func (m *NewClientConnected) Header() *MessageHeader { return &m.MessageHeader }

// ClientDisconnected notifies existing clients that a peer left normally.
type ClientDisconnected struct {
	MessageHeader
	Id ClientId `order:"big"`
}

// NewClientDisconnected builds a ClientDisconnected envelope.
func NewClientDisconnected(id ClientId) *ClientDisconnected {
	m := &ClientDisconnected{Id: id}
	m.MsgType = DiscClientDisconnected
	m.MsgSize = 3 + 8
	return m
}

// Header implements Envelope.
func (m *ClientDisconnected) Header() *MessageHeader { return &m.MessageHeader }

// ClientKicked notifies existing clients that a peer was administratively
// removed.
type ClientKicked struct {
	MessageHeader
	Id ClientId `order:"big"`
}

// NewClientKicked builds a ClientKicked envelope.
func NewClientKicked(id ClientId) *ClientKicked {
	m := &ClientKicked{Id: id}
	m.MsgType = DiscClientKicked
	m.MsgSize = 3 + 8
	return m
}

// Header implements Envelope.
func (m *ClientKicked) Header() *MessageHeader { return &m.MessageHeader }

// YouWereKicked is delivered to the kicked client itself when the server
// drops it from its registry. The server does not close the underlying
// connection.
type YouWereKicked struct {
	MessageHeader
}

// NewYouWereKicked builds a YouWereKicked envelope.
func NewYouWereKicked() *YouWereKicked {
	m := &YouWereKicked{}
	m.MsgType = DiscYouWereKicked
	m.MsgSize = 3
	return m
}

// Header implements Envelope.
func (m *YouWereKicked) Header() *MessageHeader { return &m.MessageHeader }

// ClientToClient relays a PersonalMessage or BroadcastMessage from From to
// its recipient(s).
type ClientToClient struct {
	MessageHeader
	From    ClientId `order:"big"`
	Payload []byte   `size:"*"`
}

// NewClientToClient builds a ClientToClient envelope.
func NewClientToClient(from ClientId, payload []byte) *ClientToClient {
	m := &ClientToClient{From: from, Payload: payload}
	m.MsgType = DiscClientToClient
	m.MsgSize = uint16(3 + 8 + len(payload))
	return m
}

// Header implements Envelope.
func (m *ClientToClient) Header() *MessageHeader { return &m.MessageHeader }

// ServerToClient delivers a message the server originated itself (not
// relayed from another client).
type ServerToClient struct {
	MessageHeader
	Payload []byte `size:"*"`
}

// NewServerToClient builds a ServerToClient envelope.
func NewServerToClient(payload []byte) *ServerToClient {
	m := &ServerToClient{Payload: payload}
	m.MsgType = DiscServerToClient
	m.MsgSize = uint16(3 + len(payload))
	return m
}

// Header implements Envelope.
func (m *ServerToClient) Header() *MessageHeader { return &m.MessageHeader }

// Ping carries a nonce the client must echo back in a PingResponse so the
// server can measure round-trip time.
type Ping struct {
	MessageHeader
	Nonce uint64 `order:"big"`
}

// NewPing builds a Ping envelope.
func NewPing(nonce uint64) *Ping {
	m := &Ping{Nonce: nonce}
	m.MsgType = DiscPing
	m.MsgSize = 3 + 8
	return m
}

// Header implements Envelope.
func (m *Ping) Header() *MessageHeader { return &m.MessageHeader }
