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
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/bfix/gospel/logger"
)

///////////////////////////////////////////////////////////////////////
// Server configuration

// ServerConfig configures a listening Server and its ping scheduler.
type ServerConfig struct {
	Listen          string  `json:"listen"`          // "host:port" to bind
	Transport       string  `json:"transport"`       // "tcp" or "udp"
	PingInterval    string  `json:"pingInterval"`    // e.g. "15s"; empty disables ping
	AdminListen     string  `json:"adminListen"`     // "host:port" for the HTTP admin surface; empty disables it
	LossProbability float64 `json:"lossProbability"` // simulator drop probability; see Simulated
	MinDelay        string  `json:"minDelay"`        // simulator delay lower bound
	MaxDelay        string  `json:"maxDelay"`        // simulator delay upper bound
}

// PingIntervalDuration parses PingInterval, returning ok=false if ping is
// not configured.
func (c *ServerConfig) PingIntervalDuration() (d time.Duration, ok bool, err error) {
	if c.PingInterval == "" {
		return 0, false, nil
	}
	d, err = time.ParseDuration(c.PingInterval)
	return d, err == nil, err
}

// Simulated reports whether this server should wrap its transport in a
// fault-injecting simulator.
func (c *ServerConfig) Simulated() bool {
	return c.LossProbability > 0 || c.MinDelay != "" || c.MaxDelay != ""
}

///////////////////////////////////////////////////////////////////////
// Client configuration

// ClientConfig configures an outbound connection.
type ClientConfig struct {
	Endpoint  string `json:"endpoint"`  // "host:port" to dial
	Transport string `json:"transport"` // "tcp" or "udp"
}

///////////////////////////////////////////////////////////////////////

// Environment settings, substituted into every string field below.
type Environ map[string]string

// Config is the aggregated configuration for a client-server deployment.
type Config struct {
	Env    Environ       `json:"environ"`
	Server *ServerConfig `json:"server"`
	Client *ClientConfig `json:"client"`
}

// Cfg is the global configuration, set by a successful ParseConfig.
var Cfg *Config

// ParseConfig reads a JSON-encoded configuration file and maps it to Cfg,
// applying ${VAR} environment substitutions.
func ParseConfig(fileName string) error {
	file, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return ParseConfigBytes(file, true)
}

// ParseConfigBytes unmarshals a JSON configuration from memory into Cfg.
// When apply is true, ${VAR} substitutions are applied using the parsed
// Environ block.
func ParseConfigBytes(data []byte, apply bool) error {
	cfg := new(Config)
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	Cfg = cfg
	if apply {
		applySubstitutions(Cfg, Cfg.Env)
	}
	return nil
}

var rx = regexp.MustCompile(`\$\{([^\}]*)\}`)

// substString substitutes ${VAR} occurrences in s with values from env.
func substString(s string, env map[string]string) string {
	matches := rx.FindAllStringSubmatch(s, -1)
	for _, m := range matches {
		if len(m[1]) == 0 {
			continue
		}
		subst, ok := env[m[1]]
		if !ok {
			continue
		}
		s = strings.ReplaceAll(s, "${"+m[1]+"}", subst)
	}
	return s
}

// applySubstitutions walks a configuration struct by reflection, applying
// string substitutions to every string field it finds.
func applySubstitutions(x interface{}, env map[string]string) {
	var process func(v reflect.Value)
	process = func(v reflect.Value) {
		for i := 0; i < v.NumField(); i++ {
			fld := v.Field(i)
			if !fld.CanSet() {
				continue
			}
			switch fld.Kind() {
			case reflect.String:
				s := fld.Interface().(string)
				for {
					s1 := substString(s, env)
					if s1 == s {
						break
					}
					logger.Printf(logger.DBG, "[config] %s --> %s\n", s, s1)
					fld.SetString(s1)
					s = s1
				}

			case reflect.Struct:
				process(fld)

			case reflect.Ptr:
				e := fld.Elem()
				if e.IsValid() {
					process(e)
				}
			}
		}
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Ptr:
		e := v.Elem()
		if e.IsValid() {
			process(e)
		} else {
			logger.Printf(logger.ERROR, "[config] 'nil' pointer encountered\n")
		}
	case reflect.Struct:
		process(v)
	}
}
