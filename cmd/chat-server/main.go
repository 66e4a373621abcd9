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

package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Peanutt42/client-server/admin"
	"github.com/Peanutt42/client-server/config"
	"github.com/Peanutt42/client-server/message"
	"github.com/Peanutt42/client-server/server"
	"github.com/Peanutt42/client-server/transport"

	"github.com/bfix/gospel/logger"
)

func main() {
	defer func() {
		logger.Println(logger.INFO, "[chat-server] Bye.")
		logger.Flush()
	}()

	var (
		cfgFile  string
		listen   string
		kind     string
		logLevel int
	)
	flag.StringVar(&cfgFile, "c", "", "configuration file (overrides -l/-k)")
	flag.StringVar(&listen, "l", "127.0.0.1:9000", "address to listen on")
	flag.StringVar(&kind, "k", "tcp", "transport: tcp or udp")
	flag.IntVar(&logLevel, "L", logger.INFO, "log level")
	flag.Parse()
	logger.SetLogLevel(logLevel)

	adminListen := ""
	pingInterval := message.DefaultPingInterval

	if cfgFile != "" {
		if err := config.ParseConfig(cfgFile); err != nil {
			logger.Printf(logger.ERROR, "[chat-server] invalid configuration: %s\n", err)
			return
		}
		listen = config.Cfg.Server.Listen
		kind = config.Cfg.Server.Transport
		adminListen = config.Cfg.Server.AdminListen
		if d, ok, err := config.Cfg.Server.PingIntervalDuration(); err == nil && ok {
			pingInterval = d
		} else if err == nil {
			// An empty pingInterval leaves ping disabled.
			pingInterval = 0
		}
	}

	var tr transport.ServerTransport
	var err error
	switch kind {
	case "tcp":
		tr, err = transport.ListenTCP(listen)
	case "udp":
		tr, err = transport.ListenUDP(listen)
	default:
		logger.Printf(logger.ERROR, "[chat-server] unknown transport %q\n", kind)
		return
	}
	if err != nil {
		logger.Printf(logger.ERROR, "[chat-server] listen failed: %s\n", err)
		return
	}

	if config.Cfg != nil && config.Cfg.Server.Simulated() {
		profile, err := faultProfileFromConfig(config.Cfg.Server)
		if err != nil {
			logger.Printf(logger.ERROR, "[chat-server] invalid fault profile: %s\n", err)
			tr.Close()
			return
		}
		tr = transport.NewSimulatorServerTransport(tr, profile)
		logger.Printf(logger.INFO, "[chat-server] fault injection enabled: %+v\n", profile)
	}

	srv := server.New(tr)
	defer srv.Close()
	if pingInterval > 0 {
		srv.SetPingInterval(pingInterval)
	}
	logger.Printf(logger.INFO, "[chat-server] listening on %s (%s)\n", listen, kind)

	var adminSrv *admin.Server
	if adminListen != "" {
		adminSrv = admin.New(adminListen, srv)
		go func() {
			if err := adminSrv.ListenAndServe(); err != nil {
				logger.Printf(logger.WARN, "[chat-server] admin surface stopped: %s\n", err)
			}
		}()
		defer adminSrv.Close()
	}

	// "/kick <id>" on stdin, mirroring the interactive control surface a
	// single-process deployment relies on.
	cmds := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			cmds <- scanner.Text()
		}
	}()

	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

loop:
	for {
		select {
		case sig := <-sigCh:
			logger.Printf(logger.INFO, "[chat-server] terminating on signal %s\n", sig)
			break loop

		case line := <-cmds:
			handleCommand(srv, line)

		case <-tick.C:
			srv.Update()
			for {
				p, ok := srv.PollPacket()
				if !ok {
					break
				}
				handlePacket(p)
			}
			for _, err := range srv.DrainErrorLog() {
				logger.Printf(logger.WARN, "[chat-server] %s\n", err)
			}
		}
	}
}

// faultProfileFromConfig turns a ServerConfig's string-form delay bounds
// into a transport.FaultProfile, seeded from process-global randomness.
func faultProfileFromConfig(c *config.ServerConfig) (transport.FaultProfile, error) {
	var minD, maxD time.Duration
	var err error
	if c.MinDelay != "" {
		if minD, err = time.ParseDuration(c.MinDelay); err != nil {
			return transport.FaultProfile{}, fmt.Errorf("minDelay: %w", err)
		}
	}
	if c.MaxDelay != "" {
		if maxD, err = time.ParseDuration(c.MaxDelay); err != nil {
			return transport.FaultProfile{}, fmt.Errorf("maxDelay: %w", err)
		}
	}
	return transport.FaultProfile{
		LossProbability: c.LossProbability,
		MinDelay:        minD,
		MaxDelay:        maxD,
		Rand:            rand.New(rand.NewSource(rand.Int63())),
	}, nil
}

func handlePacket(p server.AppPacket) {
	switch p.Kind {
	case server.PacketNewClient:
		fmt.Printf("client %d connected\n", p.From)
	case server.PacketClientDisconnected:
		fmt.Printf("client %d disconnected\n", p.From)
	case server.PacketMessage:
		fmt.Printf("client %d: %s\n", p.From, string(p.Payload))
	}
}

func handleCommand(srv *server.Server, line string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/kick ") {
		return
	}
	idStr := strings.TrimPrefix(line, "/kick ")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		fmt.Printf("invalid client id %q\n", idStr)
		return
	}
	if err := srv.Kick(transport.ClientId(id)); err != nil {
		fmt.Printf("kick failed: %s\n", err)
	}
}
