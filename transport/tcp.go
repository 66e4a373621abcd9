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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Peanutt42/client-server/message"

	"github.com/bfix/gospel/logger"
)

// Errors returned by the stream transport.
var (
	ErrUnknownClient  = errors.New("unknown client id")
	ErrTransportClosed = errors.New("transport closed")
)

//----------------------------------------------------------------------
// Wire framing
//
// A single net.Read/Write on a stream socket carries no guarantee of
// matching a single envelope boundary, so every frame is prefixed with its
// length as a 4-byte little-endian uint32.
//----------------------------------------------------------------------

func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > message.MaxMsgSize {
		return message.ErrMsgTooLarge
	}
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint32(hdr, uint32(len(payload)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(hdr)
	if size > message.MaxMsgSize {
		return nil, message.ErrMsgTooLarge
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

//----------------------------------------------------------------------
// Server side
//----------------------------------------------------------------------

// TcpServerTransport accepts stream connections, spawning one reader
// goroutine per peer. ClientId assignment is a monotonic counter, since
// acceptance is an explicit, ordered event.
type TcpServerTransport struct {
	ln     net.Listener
	events chan ServerEvent

	mu     sync.Mutex
	conns  map[ClientId]net.Conn
	nextID uint64

	closed int32
}

// ListenTCP starts accepting stream connections on addr.
func ListenTCP(addr string) (*TcpServerTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp: %w", err)
	}
	t := &TcpServerTransport{
		ln:     ln,
		events: make(chan ServerEvent, 256),
		conns:  make(map[ClientId]net.Conn),
	}
	go t.acceptLoop()
	return t, nil
}

func (t *TcpServerTransport) acceptLoop() {
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			if atomic.LoadInt32(&t.closed) == 1 {
				return
			}
			if isWSANotInitialised(err) {
				// Windows occasionally reports WSANOTINITIALISED (10093) on
				// the first Accept after the network stack finishes
				// spinning up; it is not a fatal listener failure.
				logger.Printf(logger.WARN, "[transport] winsock not ready yet, retrying accept\n")
				continue
			}
			logger.Printf(logger.ERROR, "[transport] accept failed: %s\n", err)
			t.events <- ServerEvent{Kind: ServerAcceptError, Err: err}
			continue
		}
		id := ClientId(atomic.AddUint64(&t.nextID, 1))
		t.mu.Lock()
		t.conns[id] = conn
		t.mu.Unlock()
		t.events <- ServerEvent{Kind: ServerNewClient, Id: id, Addr: conn.RemoteAddr()}
		go t.readLoop(id, conn)
	}
}

func (t *TcpServerTransport) readLoop(id ClientId, conn net.Conn) {
	for {
		payload, err := readFrame(conn)
		if err != nil {
			if atomic.LoadInt32(&t.closed) == 1 {
				return
			}
			if !isDisconnectError(err) {
				t.events <- ServerEvent{Kind: ServerReadError, Id: id, Err: err}
				continue
			}
			t.mu.Lock()
			delete(t.conns, id)
			t.mu.Unlock()
			t.events <- ServerEvent{Kind: ServerClientDisconnected, Id: id}
			return
		}
		t.events <- ServerEvent{Kind: ServerPacket, Id: id, Payload: payload}
	}
}

// PollEvent implements ServerTransport.
func (t *TcpServerTransport) PollEvent() (ServerEvent, bool) {
	select {
	case ev := <-t.events:
		return ev, true
	default:
		return ServerEvent{}, false
	}
}

// SendTo implements ServerTransport.
func (t *TcpServerTransport) SendTo(id ClientId, payload []byte) error {
	t.mu.Lock()
	conn, ok := t.conns[id]
	t.mu.Unlock()
	if !ok {
		return ErrUnknownClient
	}
	if err := writeFrame(conn, payload); err != nil {
		return fmt.Errorf("send to %d: %w", id, err)
	}
	return nil
}

// Address implements ServerTransport.
func (t *TcpServerTransport) Address(id ClientId) (net.Addr, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	conn, ok := t.conns[id]
	if !ok {
		return nil, false
	}
	return conn.RemoteAddr(), true
}

// ListenAddr returns the address this transport is bound to, useful when
// the caller asked to listen on port 0 and needs to discover the port the
// OS actually chose.
func (t *TcpServerTransport) ListenAddr() string {
	return t.ln.Addr().String()
}

// Close implements ServerTransport.
func (t *TcpServerTransport) Close() error {
	atomic.StoreInt32(&t.closed, 1)
	err := t.ln.Close()
	t.mu.Lock()
	for _, conn := range t.conns {
		conn.Close()
	}
	t.mu.Unlock()
	return err
}

//----------------------------------------------------------------------
// Client side
//----------------------------------------------------------------------

// TcpClientTransport is the stream-carrier half of a client connection.
type TcpClientTransport struct {
	conn   net.Conn
	events chan ClientEvent
	closed int32
}

// DialTCP connects to a stream server. A failed dial is returned directly
// as an error; the client runtime is responsible for turning that into a
// ConnectionRefused event at its own API surface.
func DialTCP(addr string) (*TcpClientTransport, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp: %w", err)
	}
	t := &TcpClientTransport{
		conn:   conn,
		events: make(chan ClientEvent, 256),
	}
	go t.readLoop()
	return t, nil
}

func (t *TcpClientTransport) readLoop() {
	for {
		payload, err := readFrame(t.conn)
		if err != nil {
			if atomic.LoadInt32(&t.closed) == 1 {
				return
			}
			if !isDisconnectError(err) {
				t.events <- ClientEvent{Kind: ClientReadError, Err: err}
				continue
			}
			kind := ClientServerDisconnected
			if isConnectionRefused(err) {
				kind = ClientConnectionRefused
			}
			t.events <- ClientEvent{Kind: kind}
			return
		}
		t.events <- ClientEvent{Kind: ClientPacket, Payload: payload}
	}
}

// PollEvent implements ClientTransport.
func (t *TcpClientTransport) PollEvent() (ClientEvent, bool) {
	select {
	case ev := <-t.events:
		return ev, true
	default:
		return ClientEvent{}, false
	}
}

// Send implements ClientTransport.
func (t *TcpClientTransport) Send(payload []byte) error {
	if err := writeFrame(t.conn, payload); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close implements ClientTransport.
func (t *TcpClientTransport) Close() error {
	atomic.StoreInt32(&t.closed, 1)
	return t.conn.Close()
}
