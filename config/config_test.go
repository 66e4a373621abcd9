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

package config

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/bfix/gospel/logger"
)

func TestConfigRead(t *testing.T) {
	logger.SetLogLevel(logger.WARN)

	data, err := os.ReadFile("./client-server-config.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := ParseConfigBytes(data, true); err != nil {
		t.Fatal(err)
	}
	if Cfg.Server.Listen != "127.0.0.1:9000" {
		t.Fatalf("unexpected listen address after substitution: %q", Cfg.Server.Listen)
	}
	if _, err = json.Marshal(Cfg); err != nil {
		t.Fatal(err)
	}
}

func TestPingIntervalDuration(t *testing.T) {
	sc := &ServerConfig{PingInterval: "15s"}
	d, ok, err := sc.PingIntervalDuration()
	if err != nil || !ok || d.Seconds() != 15 {
		t.Fatalf("got d=%s ok=%v err=%v", d, ok, err)
	}

	sc2 := &ServerConfig{}
	if _, ok, _ := sc2.PingIntervalDuration(); ok {
		t.Fatal("expected ping to be unconfigured")
	}
}

func TestSimulated(t *testing.T) {
	if (&ServerConfig{}).Simulated() {
		t.Fatal("zero-value config should not be simulated")
	}
	if !(&ServerConfig{LossProbability: 0.1}).Simulated() {
		t.Fatal("nonzero loss probability should enable simulation")
	}
	if !(&ServerConfig{MinDelay: "5ms"}).Simulated() {
		t.Fatal("a configured delay bound should enable simulation")
	}
}

func TestSubstString(t *testing.T) {
	env := map[string]string{"HOST": "127.0.0.1", "PORT": "9000"}
	got := substString("${HOST}:${PORT}", env)
	if got != "127.0.0.1:9000" {
		t.Fatalf("got %q", got)
	}
}
