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
	"errors"
	"fmt"
)

// Sentinel errors returned by package client.
var (
	ErrNotConnected      = errors.New("client is not connected")
	ErrSerializePacket   = errors.New("failed to serialize packet")
	ErrDeserializePacket = errors.New("failed to deserialize packet")
)

// SendError wraps a transport failure encountered while sending.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return fmt.Sprintf("send failed: %s", e.Err) }

// Unwrap exposes the underlying transport error for errors.Is/As.
func (e *SendError) Unwrap() error { return e.Err }

// ReadError wraps a non-fatal transport failure encountered while receiving
// from the server (e.g. a malformed frame). It does not mean the connection
// is gone; compare to ServerDisconnected/ConnectionRefused for that.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read failed: %s", e.Err) }

// Unwrap exposes the underlying transport error for errors.Is/As.
func (e *ReadError) Unwrap() error { return e.Err }
