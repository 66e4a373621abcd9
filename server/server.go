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

// Package server implements the peer registry, ping scheduler and relay
// logic that sits on top of a transport.ServerTransport.
package server

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/Peanutt42/client-server/message"
	"github.com/Peanutt42/client-server/transport"

	"github.com/bfix/gospel/logger"
)

// PacketKind enumerates what an AppPacket represents.
type PacketKind int

const (
	// PacketNewClient reports a peer that just joined.
	PacketNewClient PacketKind = iota
	// PacketClientDisconnected reports a peer that left.
	PacketClientDisconnected
	// PacketMessage carries a payload addressed to the server itself
	// (ServerMessage) or a broadcast the server is also being shown
	// (BroadcastMessage).
	PacketMessage
)

// AppPacket is a single event the hosting application can retrieve via
// PollPacket.
type AppPacket struct {
	Kind    PacketKind
	From    transport.ClientId
	Payload []byte
}

// PeerRecord is the server's per-peer bookkeeping.
type PeerRecord struct {
	Id             transport.ClientId
	Addr           net.Addr
	PingEnabled    bool
	PingInFlight   bool
	PingNonce      uint64
	LastPingSentAt time.Time
	LastRoundTrip  time.Duration
}

// Server multiplexes peers over a single transport.ServerTransport behind
// one coarse lock, matching the concurrency model of the rest of this
// library: many goroutines may feed events into the transport, and the
// registry is only read or changed while holding mu, by Update and by the
// public API methods.
type Server struct {
	mu   sync.Mutex
	tr   transport.ServerTransport
	side message.Side

	peers map[transport.ClientId]*PeerRecord

	packets  chan AppPacket
	errorLog []error

	pingEnabled  bool
	pingInterval time.Duration
	pingRand     *rand.Rand
}

// New wraps tr with a peer registry and relay logic.
func New(tr transport.ServerTransport) *Server {
	return &Server{
		tr:      tr,
		side:    message.SideServer,
		peers:   make(map[transport.ClientId]*PeerRecord),
		packets: make(chan AppPacket, 256),
		// fixed seed: every Server produces the same nonce sequence, and
		// there is no exported way to reseed it.
		pingRand: rand.New(rand.NewSource(1)),
	}
}

// Update drains all currently queued transport events, decodes them,
// updates the peer registry and relays messages. It also sends a Ping to
// any peer due for one. The hosting application is expected to call
// Update from its own loop; nothing here spawns a background ticker.
func (s *Server) Update() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		ev, ok := s.tr.PollEvent()
		if !ok {
			break
		}
		s.handleEvent(ev)
	}

	if s.pingEnabled {
		s.sendDuePings()
	}
}

func (s *Server) handleEvent(ev transport.ServerEvent) {
	switch ev.Kind {
	case transport.ServerNewClient:
		s.peers[ev.Id] = &PeerRecord{Id: ev.Id, Addr: ev.Addr, PingEnabled: s.pingEnabled}
		if err := s.sendEnvelope(ev.Id, message.NewConnectResponse(ev.Id)); err != nil {
			s.logError(&SendError{Peer: ev.Id, Err: err})
		}
		s.announceNewClient(ev.Id)
		s.deliver(AppPacket{Kind: PacketNewClient, From: ev.Id})

	case transport.ServerClientDisconnected:
		delete(s.peers, ev.Id)
		for other := range s.peers {
			if err := s.sendEnvelope(other, message.NewClientDisconnected(ev.Id)); err != nil {
				s.logError(&SendError{Peer: other, Err: err})
			}
		}
		s.deliver(AppPacket{Kind: PacketClientDisconnected, From: ev.Id})

	case transport.ServerPacket:
		s.handlePacket(ev.Id, ev.Payload)

	case transport.ServerAcceptError:
		s.logError(fmt.Errorf("%w: %s", ErrAcceptingConnection, ev.Err))

	case transport.ServerReadError:
		s.logError(&ReadError{Peer: ev.Id, Err: ev.Err})
	}
}

func (s *Server) handlePacket(from transport.ClientId, raw []byte) {
	env, err := message.Decode(raw, s.side)
	if err != nil {
		s.logError(&ReadError{Peer: from, Err: ErrDeserializePacket})
		return
	}
	switch m := env.(type) {
	case *message.BroadcastMessage:
		s.relayToAllExcept(from, m.Payload)
		s.deliver(AppPacket{Kind: PacketMessage, From: from, Payload: m.Payload})

	case *message.PersonalMessage:
		if err := s.sendEnvelope(m.Target, message.NewClientToClient(from, m.Payload)); err != nil {
			s.logError(&SendError{Peer: m.Target, Err: err})
		}

	case *message.ServerMessage:
		s.deliver(AppPacket{Kind: PacketMessage, From: from, Payload: m.Payload})

	case *message.PingResponse:
		s.recordPong(from, m.Nonce)

	default:
		logger.Printf(logger.WARN, "[server] unexpected envelope from %d: %T\n", from, m)
	}
}

func (s *Server) deliver(p AppPacket) {
	select {
	case s.packets <- p:
	default:
		logger.Printf(logger.ERROR, "[server] app packet queue full, dropping %v from %d\n", p.Kind, p.From)
	}
}

func (s *Server) logError(err error) {
	s.errorLog = append(s.errorLog, err)
	logger.Printf(logger.ERROR, "[server] %s\n", err)
}

func (s *Server) sendEnvelope(id transport.ClientId, env message.Envelope) error {
	body, err := message.Encode(env)
	if err != nil {
		return ErrSerializePacket
	}
	return s.tr.SendTo(id, body)
}

func (s *Server) relayToAllExcept(except transport.ClientId, payload []byte) {
	for id := range s.peers {
		if id == except {
			continue
		}
		if err := s.sendEnvelope(id, message.NewClientToClient(except, payload)); err != nil {
			s.logError(&SendError{Peer: id, Err: err})
		}
	}
}

// announceNewClient tells every peer except the one that just joined about
// its arrival, completing the accept handshake alongside the ConnectResponse
// sent to the new peer itself.
func (s *Server) announceNewClient(id transport.ClientId) {
	for other := range s.peers {
		if other == id {
			continue
		}
		if err := s.sendEnvelope(other, message.NewNewClientConnected(id)); err != nil {
			s.logError(&SendError{Peer: other, Err: err})
		}
	}
}

//----------------------------------------------------------------------
// Ping scheduler
//----------------------------------------------------------------------

func (s *Server) sendDuePings() {
	now := time.Now()
	for id, rec := range s.peers {
		if !rec.PingEnabled {
			continue
		}
		if rec.PingInFlight {
			if now.Sub(rec.LastPingSentAt) < message.PingTimeout {
				continue
			}
			// The peer never answered within the timeout; stop waiting on
			// it so the schedule can move on to a fresh ping.
			logger.Printf(logger.WARN, "[server] ping to %d timed out\n", id)
			rec.PingInFlight = false
		}
		if !rec.LastPingSentAt.IsZero() && now.Sub(rec.LastPingSentAt) < s.pingInterval {
			continue
		}
		nonce := s.pingRand.Uint64()
		if err := s.sendEnvelope(id, message.NewPing(nonce)); err != nil {
			s.logError(&SendError{Peer: id, Err: err})
			continue
		}
		rec.PingNonce = nonce
		rec.PingInFlight = true
		rec.LastPingSentAt = now
	}
}

func (s *Server) recordPong(id transport.ClientId, nonce uint64) {
	rec, ok := s.peers[id]
	if !ok || rec.LastPingSentAt.IsZero() || rec.PingNonce != nonce {
		return
	}
	// A reply arriving after the scheduler already gave up on it (see
	// PingTimeout above) still updates the RTT estimate, as long as no newer
	// Ping has replaced its nonce; when pingInterval <= PingTimeout,
	// sendDuePings sends that newer Ping in the same pass that gives up.
	// Halve the measured round trip: the time we can actually attribute to
	// "distance" to this peer is one leg, not the full out-and-back trip.
	rec.LastRoundTrip = time.Since(rec.LastPingSentAt) / 2
	rec.PingInFlight = false
}

//----------------------------------------------------------------------
// Public API
//----------------------------------------------------------------------

// PollPacket returns the next application packet without blocking.
func (s *Server) PollPacket() (AppPacket, bool) {
	select {
	case p := <-s.packets:
		return p, true
	default:
		return AppPacket{}, false
	}
}

// DrainErrorLog returns and clears all errors accumulated since the last
// call.
func (s *Server) DrainErrorLog() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.errorLog
	s.errorLog = nil
	return log
}

// BroadcastAll sends payload, wrapped as a ServerToClient envelope, to
// every connected peer.
func (s *Server) BroadcastAll(payload []byte) error {
	if len(payload) > message.MaxMessageSize {
		return message.ErrPayloadTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.peers {
		if err := s.sendEnvelope(id, message.NewServerToClient(payload)); err != nil {
			s.logError(&SendError{Peer: id, Err: err})
		}
	}
	return nil
}

// Broadcast sends payload to every peer except the one named.
func (s *Server) Broadcast(except transport.ClientId, payload []byte) error {
	if len(payload) > message.MaxMessageSize {
		return message.ErrPayloadTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.peers {
		if id == except {
			continue
		}
		if err := s.sendEnvelope(id, message.NewServerToClient(payload)); err != nil {
			s.logError(&SendError{Peer: id, Err: err})
		}
	}
	return nil
}

// SendTo sends payload to exactly one peer.
func (s *Server) SendTo(id transport.ClientId, payload []byte) error {
	if len(payload) > message.MaxMessageSize {
		return message.ErrPayloadTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[id]; !ok {
		return ErrInvalidClientID
	}
	if err := s.sendEnvelope(id, message.NewServerToClient(payload)); err != nil {
		return &SendError{Peer: id, Err: err}
	}
	return nil
}

// Kick tells a peer it is being disconnected, notifies the remaining
// peers, and drops the peer from the registry.
func (s *Server) Kick(id transport.ClientId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[id]; !ok {
		return ErrInvalidClientID
	}
	_ = s.sendEnvelope(id, message.NewYouWereKicked())
	delete(s.peers, id)
	for other := range s.peers {
		if err := s.sendEnvelope(other, message.NewClientKicked(id)); err != nil {
			s.logError(&SendError{Peer: other, Err: err})
		}
	}
	return nil
}

// GetClientAddress returns the transport address of a connected peer.
func (s *Server) GetClientAddress(id transport.ClientId) (net.Addr, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.peers[id]
	if !ok {
		return nil, false
	}
	return rec.Addr, true
}

// ListClients returns the ids of all currently connected peers.
func (s *Server) ListClients() []transport.ClientId {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]transport.ClientId, 0, len(s.peers))
	for id := range s.peers {
		ids = append(ids, id)
	}
	return ids
}

// SetPingInterval enables ping for all peers (existing and future) at the
// given cadence.
func (s *Server) SetPingInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingEnabled = true
	s.pingInterval = d
	for _, rec := range s.peers {
		rec.PingEnabled = true
	}
}

// DisablePing turns the ping scheduler off for all peers.
func (s *Server) DisablePing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingEnabled = false
	for _, rec := range s.peers {
		rec.PingEnabled = false
	}
}

// GetPing returns the most recent round-trip estimate for a peer.
func (s *Server) GetPing(id transport.ClientId) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.peers[id]
	if !ok {
		return 0, ErrInvalidClientID
	}
	if !s.pingEnabled || !rec.PingEnabled {
		return 0, ErrNoPingIntervalSet
	}
	return rec.LastRoundTrip, nil
}

// Close shuts down the underlying transport.
func (s *Server) Close() error {
	return s.tr.Close()
}
