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
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Peanutt42/client-server/client"
	"github.com/Peanutt42/client-server/config"

	"github.com/bfix/gospel/logger"
)

func main() {
	defer func() {
		logger.Println(logger.INFO, "[chat-client] Bye.")
		logger.Flush()
	}()

	var (
		cfgFile  string
		endpoint string
		kind     string
		logLevel int
	)
	flag.StringVar(&cfgFile, "c", "", "configuration file (overrides -e/-k)")
	flag.StringVar(&endpoint, "e", "127.0.0.1:9000", "server address")
	flag.StringVar(&kind, "k", "tcp", "transport: tcp or udp")
	flag.IntVar(&logLevel, "L", logger.INFO, "log level")
	flag.Parse()
	logger.SetLogLevel(logLevel)

	if cfgFile != "" {
		if err := config.ParseConfig(cfgFile); err != nil {
			logger.Printf(logger.ERROR, "[chat-client] invalid configuration: %s\n", err)
			return
		}
		endpoint = config.Cfg.Client.Endpoint
		kind = config.Cfg.Client.Transport
	}

	tk := client.TCP
	if kind == "udp" {
		tk = client.UDP
	}
	c := client.Connect(endpoint, tk)
	defer c.Close()

	lines := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
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
			logger.Printf(logger.INFO, "[chat-client] terminating on signal %s\n", sig)
			break loop

		case line := <-lines:
			if strings.HasPrefix(line, "/exit") {
				break loop
			}
			if err := handleLine(c, line); err != nil {
				fmt.Printf("send failed: %s\n", err)
			}

		case <-tick.C:
			c.Update()
			terminated := false
			for {
				p, ok := c.PollPacket()
				if !ok {
					break
				}
				terminated = handleAppPacket(p) || terminated
			}
			for _, err := range c.DrainErrorLog() {
				logger.Printf(logger.WARN, "[chat-client] %s\n", err)
			}
			if terminated {
				break loop
			}
		}
	}
}

func handleLine(c *client.Client, line string) error {
	if strings.HasPrefix(line, "/server ") {
		return c.SendToServer([]byte(strings.TrimPrefix(line, "/server ")))
	}
	return c.SendToAll([]byte(line))
}

// handleAppPacket prints an incoming packet and reports whether it was a
// terminal event the main loop should exit on.
func handleAppPacket(p client.AppPacket) bool {
	switch p.Kind {
	case client.PacketConnected:
		fmt.Printf("connected as client %d\n", p.From)
	case client.PacketConnectionRefused:
		fmt.Println("connection refused")
		return true
	case client.PacketServerDisconnected:
		fmt.Println("server disconnected")
		return true
	case client.PacketYouWereKicked:
		fmt.Println("you were kicked")
		return true
	case client.PacketNewClientConnected:
		fmt.Printf("client %d joined\n", p.From)
	case client.PacketClientDisconnected:
		fmt.Printf("client %d left\n", p.From)
	case client.PacketClientKicked:
		fmt.Printf("client %d was kicked\n", p.From)
	case client.PacketClientMessage:
		fmt.Printf("%d: %s\n", p.From, string(p.Payload))
	case client.PacketServerMessage:
		fmt.Printf("server: %s\n", string(p.Payload))
	}
	return false
}
