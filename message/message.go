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

package message

import (
	"errors"
	"fmt"

	"github.com/bfix/gospel/data"
)

// Error codes
var (
	ErrMsgHeaderTooSmall = errors.New("message header too small")
	ErrMsgTooLarge       = errors.New("message exceeds maximum size")
	ErrPayloadTooLarge   = errors.New("payload exceeds MaxMessageSize")
)

// ClientId identifies a peer from the server's point of view. Stream peers
// are numbered by a monotonic counter as they are accepted; datagram peers
// are identified by hashing their source address.
type ClientId uint64

// Envelope is implemented by every client->server and server->client
// message variant.
type Envelope interface {
	Header() *MessageHeader
}

// MessageHeader encapsulates the common part of every envelope: which
// concrete type follows, and how many body bytes to expect.
type MessageHeader struct {
	MsgType Discriminant
	MsgSize uint16 `order:"big"`
}

// GetMsgHeader returns the header of a message from a byte array (as the
// serialized form).
func GetMsgHeader(b []byte) (mh *MessageHeader, err error) {
	if b == nil || len(b) < 3 {
		return nil, ErrMsgHeaderTooSmall
	}
	mh = new(MessageHeader)
	err = data.Unmarshal(mh, b[:3])
	return
}

// Side distinguishes which discriminant namespace a frame belongs to, since
// client->server and server->client envelopes are decoded by different
// peers sharing the same wire codec.
type Side int

const (
	// SideServer decodes client->server envelopes.
	SideServer Side = iota
	// SideClient decodes server->client envelopes.
	SideClient
)

// Encode serializes an envelope to its wire representation.
func Encode(env Envelope) ([]byte, error) {
	body, err := data.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	if len(body) > MaxMsgSize {
		return nil, ErrMsgTooLarge
	}
	return body, nil
}

// Decode reconstructs an envelope from raw bytes, dispatching on the
// leading discriminant byte.
func Decode(b []byte, side Side) (Envelope, error) {
	hdr, err := GetMsgHeader(b)
	if err != nil {
		return nil, err
	}
	env, err := NewEmptyEnvelope(hdr.MsgType, side)
	if err != nil {
		return nil, err
	}
	if err := data.Unmarshal(env, b); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}
