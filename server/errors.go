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
	"fmt"

	"github.com/Peanutt42/client-server/transport"
)

// Sentinel errors returned by package server.
var (
	ErrInvalidClientID     = errors.New("invalid client id")
	ErrNoPingIntervalSet   = errors.New("ping is not enabled on this server")
	ErrSerializePacket     = errors.New("failed to serialize packet")
	ErrDeserializePacket   = errors.New("failed to deserialize packet")
	ErrAcceptingConnection = errors.New("failed to accept connection")
)

// SendError wraps a transport failure encountered while sending to a
// specific peer, keeping the peer's id alongside the underlying cause.
type SendError struct {
	Peer transport.ClientId
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to client %d failed: %s", e.Peer, e.Err)
}

// Unwrap exposes the underlying transport error for errors.Is/As.
func (e *SendError) Unwrap() error { return e.Err }

// ReadError wraps a transport failure encountered while reading from a
// specific peer.
type ReadError struct {
	Peer transport.ClientId
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read from client %d failed: %s", e.Peer, e.Err)
}

// Unwrap exposes the underlying transport error for errors.Is/As.
func (e *ReadError) Unwrap() error { return e.Err }
