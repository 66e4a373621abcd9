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

// simulator-demo drives a loopback TCP server/client pair through a
// SimulatorServerTransport and a SimulatorClientTransport so lossy, jittery
// network conditions can be exercised without any real network impairment.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/Peanutt42/client-server/client"
	"github.com/Peanutt42/client-server/server"
	"github.com/Peanutt42/client-server/transport"

	"github.com/bfix/gospel/logger"
)

func main() {
	var (
		listen  string
		loss    float64
		minJitr time.Duration
		maxJitr time.Duration
		seed    int64
		logLvl  int
	)
	flag.StringVar(&listen, "l", "127.0.0.1:9100", "address to listen on")
	flag.Float64Var(&loss, "loss", 0.1, "packet loss probability")
	flag.DurationVar(&minJitr, "min-delay", 5*time.Millisecond, "minimum injected delay")
	flag.DurationVar(&maxJitr, "max-delay", 50*time.Millisecond, "maximum injected delay")
	flag.Int64Var(&seed, "seed", 42, "deterministic RNG seed")
	flag.IntVar(&logLvl, "L", logger.INFO, "log level")
	flag.Parse()
	logger.SetLogLevel(logLvl)

	profile := func() transport.FaultProfile {
		return transport.FaultProfile{
			LossProbability: loss,
			MinDelay:        minJitr,
			MaxDelay:        maxJitr,
			Rand:            rand.New(rand.NewSource(seed)),
		}
	}

	rawServer, err := transport.ListenTCP(listen)
	if err != nil {
		logger.Printf(logger.ERROR, "[simulator-demo] listen failed: %s\n", err)
		return
	}
	simServer := transport.NewSimulatorServerTransport(rawServer, profile())
	srv := server.New(simServer)
	defer srv.Close()

	rawClient, err := transport.DialTCP(listen)
	if err != nil {
		logger.Printf(logger.ERROR, "[simulator-demo] dial failed: %s\n", err)
		return
	}
	simClient := transport.NewSimulatorClientTransport(rawClient, profile())
	c := client.New(simClient)
	defer c.Close()

	for i := 0; i < 20; i++ {
		srv.Update()
		c.Update()
		if err := c.SendToServer([]byte(fmt.Sprintf("ping %d", i))); err != nil {
			logger.Printf(logger.WARN, "[simulator-demo] send failed: %s\n", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)
	srv.Update()
	for {
		p, ok := srv.PollPacket()
		if !ok {
			break
		}
		if p.Kind == server.PacketMessage {
			fmt.Printf("server received: %s\n", string(p.Payload))
		}
	}
}
