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

import "fmt"

// NewEmptyEnvelope creates a new, empty envelope object for the given
// discriminant so it can be handed to data.Unmarshal. Which switch is
// consulted depends on which side is decoding: a server only ever reads
// client->server envelopes, a client only ever reads server->client ones.
func NewEmptyEnvelope(msgType Discriminant, side Side) (Envelope, error) {
	switch side {
	case SideServer:
		switch msgType {
		case DiscBroadcastMessage:
			return new(BroadcastMessage), nil
		case DiscPersonalMessage:
			return new(PersonalMessage), nil
		case DiscServerMessage:
			return new(ServerMessage), nil
		case DiscPingResponse:
			return new(PingResponse), nil
		}
	case SideClient:
		switch msgType {
		case DiscConnectResponse:
			return new(ConnectResponse), nil
		case DiscNewClientConnected:
			return new(NewClientConnected), nil
		case DiscClientDisconnected:
			return new(ClientDisconnected), nil
		case DiscClientKicked:
			return new(ClientKicked), nil
		case DiscYouWereKicked:
			return new(YouWereKicked), nil
		case DiscClientToClient:
			return new(ClientToClient), nil
		case DiscServerToClient:
			return new(ServerToClient), nil
		case DiscPing:
			return new(Ping), nil
		}
	}
	return nil, fmt.Errorf("unknown envelope discriminant %d", msgType)
}
