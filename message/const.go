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

import "time"

// Size limits for application payloads and raw transport frames. These
// mirror the ceilings the original implementation enforces: payloads handed
// to the client/server API are capped well below a UDP datagram's maximum
// so a single AppPacket never needs fragmenting across either transport.
const (
	MaxMessageSize = 1024  // largest payload accepted from the application
	MaxMsgSize     = 65507 // largest frame a UDP socket can carry
)

// Discriminant is the first byte of every envelope on the wire, identifying
// which concrete type follows.
type Discriminant uint8

// Client -> server envelope discriminants.
const (
	DiscBroadcastMessage Discriminant = iota + 1
	DiscPersonalMessage
	DiscServerMessage
	DiscPingResponse
)

// Server -> client envelope discriminants.
const (
	DiscConnectResponse Discriminant = iota + 64
	DiscNewClientConnected
	DiscClientDisconnected
	DiscClientKicked
	DiscYouWereKicked
	DiscClientToClient
	DiscServerToClient
	DiscPing
)

// Time constants for the ping/liveness service.
var (
	// DefaultPingInterval is used when a server enables ping without
	// specifying its own cadence.
	DefaultPingInterval = 15 * time.Second

	// PingTimeout bounds how long a server waits for a PingResponse
	// before it considers the outstanding round-trip abandoned. A late
	// reply still updates the RTT estimate until a newer Ping replaces the
	// outstanding nonce; it is simply no longer "in flight" from the
	// scheduler's point of view.
	PingTimeout = 30 * time.Second
)
