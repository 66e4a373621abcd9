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

// Package client implements the peer-side runtime that sits on top of a
// transport.ClientTransport: connection bookkeeping, message decoding and
// the sticky terminal-event semantics applications rely on to notice a
// server going away exactly once per poll loop iteration, forever.
package client

import (
	"fmt"
	"sync"

	"github.com/Peanutt42/client-server/message"
	"github.com/Peanutt42/client-server/transport"

	"github.com/bfix/gospel/logger"
)

// Kind selects which carrier Connect dials.
type Kind int

const (
	// TCP dials a stream transport.
	TCP Kind = iota
	// UDP dials a datagram transport.
	UDP
)

// PacketKind enumerates what an AppPacket represents.
type PacketKind int

const (
	// PacketConnected reports the server accepted us and assigned From.
	PacketConnected PacketKind = iota
	// PacketConnectionRefused reports a failed connection attempt. Terminal.
	PacketConnectionRefused
	// PacketServerDisconnected reports the server going away. Terminal.
	PacketServerDisconnected
	// PacketNewClientConnected reports another peer joining.
	PacketNewClientConnected
	// PacketClientDisconnected reports another peer leaving.
	PacketClientDisconnected
	// PacketClientKicked reports another peer being kicked.
	PacketClientKicked
	// PacketYouWereKicked reports this client being kicked. Terminal.
	PacketYouWereKicked
	// PacketClientMessage carries a payload relayed from another peer.
	PacketClientMessage
	// PacketServerMessage carries a payload the server originated itself.
	PacketServerMessage
)

// AppPacket is a single event the hosting application retrieves via
// PollPacket.
type AppPacket struct {
	Kind    PacketKind
	From    transport.ClientId
	Payload []byte
}

// Client wraps a transport.ClientTransport with the connection/message
// lifecycle described by the library's public API.
type Client struct {
	mu sync.Mutex
	tr transport.ClientTransport

	id        transport.ClientId
	connected bool

	packets  chan AppPacket
	errorLog []error
	terminal *AppPacket
}

// New wraps an already-established transport.ClientTransport, for callers
// that build their own transport stack (e.g. layering a simulator on top
// of a dialed connection) instead of using Connect.
func New(tr transport.ClientTransport) *Client {
	return &Client{packets: make(chan AppPacket, 256), tr: tr}
}

// Connect dials addr over the named carrier. It never returns an error: a
// failed dial is reported as a PacketConnectionRefused the caller observes
// through PollPacket, matching the sticky terminal-event model uniformly
// for every failure mode.
func Connect(addr string, kind Kind) *Client {
	c := &Client{packets: make(chan AppPacket, 256)}

	var tr transport.ClientTransport
	var err error
	switch kind {
	case TCP:
		tr, err = transport.DialTCP(addr)
	case UDP:
		tr, err = transport.DialUDP(addr)
	default:
		err = fmt.Errorf("unknown transport kind %d", kind)
	}
	if err != nil {
		logger.Printf(logger.WARN, "[client] connect to %s failed: %s\n", addr, err)
		c.terminal = &AppPacket{Kind: PacketConnectionRefused}
		return c
	}
	c.tr = tr
	return c
}

// Update drains all currently queued transport events and turns them into
// application packets. The hosting application calls this from its own
// loop; once a terminal event has been recorded, Update becomes a no-op.
func (c *Client) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminal != nil || c.tr == nil {
		return
	}
	for {
		ev, ok := c.tr.PollEvent()
		if !ok {
			break
		}
		if c.handleEvent(ev) {
			return
		}
	}
}

// handleEvent processes one transport event, returning true if it set a
// terminal state (in which case the caller should stop draining).
func (c *Client) handleEvent(ev transport.ClientEvent) bool {
	switch ev.Kind {
	case transport.ClientConnectionRefused:
		c.setTerminal(AppPacket{Kind: PacketConnectionRefused})
		return true
	case transport.ClientServerDisconnected:
		c.setTerminal(AppPacket{Kind: PacketServerDisconnected})
		return true
	case transport.ClientPacket:
		return c.handlePacket(ev.Payload)
	case transport.ClientReadError:
		c.logError(&ReadError{Err: ev.Err})
	}
	return false
}

func (c *Client) handlePacket(raw []byte) bool {
	env, err := message.Decode(raw, message.SideClient)
	if err != nil {
		c.logError(&ReadError{Err: ErrDeserializePacket})
		return false
	}
	switch m := env.(type) {
	case *message.ConnectResponse:
		c.id = m.Id
		c.connected = true
		c.deliver(AppPacket{Kind: PacketConnected, From: m.Id})

	case *message.NewClientConnected:
		c.deliver(AppPacket{Kind: PacketNewClientConnected, From: m.Id})

	case *message.ClientDisconnected:
		c.deliver(AppPacket{Kind: PacketClientDisconnected, From: m.Id})

	case *message.ClientKicked:
		c.deliver(AppPacket{Kind: PacketClientKicked, From: m.Id})

	case *message.YouWereKicked:
		c.setTerminal(AppPacket{Kind: PacketYouWereKicked})
		return true

	case *message.ClientToClient:
		c.deliver(AppPacket{Kind: PacketClientMessage, From: m.From, Payload: m.Payload})

	case *message.ServerToClient:
		c.deliver(AppPacket{Kind: PacketServerMessage, Payload: m.Payload})

	case *message.Ping:
		if err := c.sendEnvelope(message.NewPingResponse(m.Nonce)); err != nil {
			c.logError(&SendError{Err: err})
		}

	default:
		logger.Printf(logger.WARN, "[client] unexpected envelope: %T\n", m)
	}
	return false
}

func (c *Client) deliver(p AppPacket) {
	select {
	case c.packets <- p:
	default:
		logger.Printf(logger.ERROR, "[client] app packet queue full, dropping %v\n", p.Kind)
	}
}

func (c *Client) setTerminal(p AppPacket) {
	if c.terminal != nil {
		return
	}
	c.terminal = &p
	c.deliver(p)
}

func (c *Client) logError(err error) {
	c.errorLog = append(c.errorLog, err)
	logger.Printf(logger.ERROR, "[client] %s\n", err)
}

func (c *Client) sendEnvelope(env message.Envelope) error {
	body, err := message.Encode(env)
	if err != nil {
		return ErrSerializePacket
	}
	return c.tr.Send(body)
}

//----------------------------------------------------------------------
// Public API
//----------------------------------------------------------------------

// PollPacket returns the next application packet without blocking. Once a
// terminal packet (ConnectionRefused, ServerDisconnected, YouWereKicked)
// has been observed, every subsequent call keeps returning it.
func (c *Client) PollPacket() (AppPacket, bool) {
	select {
	case p := <-c.packets:
		return p, true
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminal != nil {
		return *c.terminal, true
	}
	return AppPacket{}, false
}

// DrainErrorLog returns and clears all errors accumulated since the last
// call.
func (c *Client) DrainErrorLog() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	log := c.errorLog
	c.errorLog = nil
	return log
}

// Id returns the ClientId the server assigned, if the handshake has
// completed.
func (c *Client) Id() (transport.ClientId, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.connected
}

// SendToServer sends payload to the server itself.
func (c *Client) SendToServer(payload []byte) error {
	if len(payload) > message.MaxMessageSize {
		return message.ErrPayloadTooLarge
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr == nil {
		return ErrNotConnected
	}
	if err := c.sendEnvelope(message.NewServerMessage(payload)); err != nil {
		return &SendError{Err: err}
	}
	return nil
}

// SendTo asks the server to relay payload to exactly one other peer.
func (c *Client) SendTo(target transport.ClientId, payload []byte) error {
	if len(payload) > message.MaxMessageSize {
		return message.ErrPayloadTooLarge
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr == nil {
		return ErrNotConnected
	}
	if err := c.sendEnvelope(message.NewPersonalMessage(target, payload)); err != nil {
		return &SendError{Err: err}
	}
	return nil
}

// SendToAll asks the server to relay payload to every other connected peer.
func (c *Client) SendToAll(payload []byte) error {
	if len(payload) > message.MaxMessageSize {
		return message.ErrPayloadTooLarge
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr == nil {
		return ErrNotConnected
	}
	if err := c.sendEnvelope(message.NewBroadcastMessage(payload)); err != nil {
		return &SendError{Err: err}
	}
	return nil
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr == nil {
		return nil
	}
	return c.tr.Close()
}
