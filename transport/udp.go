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
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Peanutt42/client-server/message"

	"github.com/bfix/gospel/logger"
	"github.com/cespare/xxhash/v2"
)

// udpDisconnectSentinel is a one-byte, in-band control datagram a UDP
// client sends on an explicit Close so the server learns the peer is gone;
// the server has no read timeout of its own. It can never collide with
// a real envelope, which is always at least a 3-byte header.
const udpDisconnectSentinel = 0x00

// ClientIdForAddr derives the deterministic ClientId used for a datagram
// peer: a hash of its address, since UDP has no explicit accept step to
// hand out a counter value from.
func ClientIdForAddr(addr net.Addr) ClientId {
	return ClientId(xxhash.Sum64String(addr.String()))
}

//----------------------------------------------------------------------
// Server side
//----------------------------------------------------------------------

// UdpServerTransport multiplexes datagram peers behind a single socket. A
// peer is recognized the first time a datagram arrives from its address;
// there is no explicit accept.
type UdpServerTransport struct {
	conn   *net.UDPConn
	events chan ServerEvent

	mu    sync.Mutex
	peers map[ClientId]*net.UDPAddr

	closed int32
}

// ListenUDP starts receiving datagrams on addr.
func ListenUDP(addr string) (*UdpServerTransport, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp: %w", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	t := &UdpServerTransport{
		conn:   conn,
		events: make(chan ServerEvent, 256),
		peers:  make(map[ClientId]*net.UDPAddr),
	}
	go t.receiveLoop()
	return t, nil
}

func (t *UdpServerTransport) receiveLoop() {
	buf := make([]byte, message.MaxMsgSize)
	for {
		n, raddr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if atomic.LoadInt32(&t.closed) == 1 {
				return
			}
			logger.Printf(logger.WARN, "[transport] udp read failed: %s\n", err)
			t.events <- ServerEvent{Kind: ServerAcceptError, Err: err}
			continue
		}
		id := ClientIdForAddr(raddr)

		t.mu.Lock()
		_, known := t.peers[id]
		if !known {
			t.peers[id] = raddr
		}
		t.mu.Unlock()

		if !known {
			t.events <- ServerEvent{Kind: ServerNewClient, Id: id, Addr: raddr}
		}

		if n == 1 && buf[0] == udpDisconnectSentinel {
			t.mu.Lock()
			delete(t.peers, id)
			t.mu.Unlock()
			t.events <- ServerEvent{Kind: ServerClientDisconnected, Id: id}
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		t.events <- ServerEvent{Kind: ServerPacket, Id: id, Payload: payload}
	}
}

// PollEvent implements ServerTransport.
func (t *UdpServerTransport) PollEvent() (ServerEvent, bool) {
	select {
	case ev := <-t.events:
		return ev, true
	default:
		return ServerEvent{}, false
	}
}

// SendTo implements ServerTransport.
func (t *UdpServerTransport) SendTo(id ClientId, payload []byte) error {
	t.mu.Lock()
	addr, ok := t.peers[id]
	t.mu.Unlock()
	if !ok {
		return ErrUnknownClient
	}
	if len(payload) > message.MaxMsgSize {
		return message.ErrMsgTooLarge
	}
	if _, err := t.conn.WriteToUDP(payload, addr); err != nil {
		return fmt.Errorf("send to %d: %w", id, err)
	}
	return nil
}

// Address implements ServerTransport.
func (t *UdpServerTransport) Address(id ClientId) (net.Addr, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	addr, ok := t.peers[id]
	return addr, ok
}

// Close implements ServerTransport.
func (t *UdpServerTransport) Close() error {
	atomic.StoreInt32(&t.closed, 1)
	return t.conn.Close()
}

//----------------------------------------------------------------------
// Client side
//----------------------------------------------------------------------

// UdpClientTransport is the datagram-carrier half of a client connection.
// The socket is connected to the server's address purely to filter stray
// datagrams from unrelated peers; UDP itself remains connectionless.
type UdpClientTransport struct {
	conn   *net.UDPConn
	events chan ClientEvent
	closed int32
}

// DialUDP "connects" a UDP socket to a server address.
func DialUDP(addr string) (*UdpClientTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	t := &UdpClientTransport{
		conn:   conn,
		events: make(chan ClientEvent, 256),
	}
	go t.receiveLoop()
	return t, nil
}

func (t *UdpClientTransport) receiveLoop() {
	buf := make([]byte, message.MaxMsgSize)
	for {
		n, err := t.conn.Read(buf)
		if err != nil {
			if atomic.LoadInt32(&t.closed) == 0 {
				kind := ClientServerDisconnected
				if isConnectionRefused(err) {
					kind = ClientConnectionRefused
				}
				t.events <- ClientEvent{Kind: kind}
			}
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		t.events <- ClientEvent{Kind: ClientPacket, Payload: payload}
	}
}

// PollEvent implements ClientTransport.
func (t *UdpClientTransport) PollEvent() (ClientEvent, bool) {
	select {
	case ev := <-t.events:
		return ev, true
	default:
		return ClientEvent{}, false
	}
}

// Send implements ClientTransport.
func (t *UdpClientTransport) Send(payload []byte) error {
	if len(payload) > message.MaxMsgSize {
		return message.ErrMsgTooLarge
	}
	if _, err := t.conn.Write(payload); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close implements ClientTransport.
func (t *UdpClientTransport) Close() error {
	atomic.StoreInt32(&t.closed, 1)
	// Best-effort disconnect notice so the server does not have to wait
	// to notice the peer is gone; loss of this datagram is tolerated, see
	// the "stuck" record design note.
	_, _ = t.conn.Write([]byte{udpDisconnectSentinel})
	return t.conn.Close()
}
