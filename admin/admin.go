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

// Package admin exposes a read/kick HTTP surface over a running
// server.Server, for operators who run the server as a daemon instead of
// driving it from an interactive process with its own stdin.
package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Peanutt42/client-server/server"
	"github.com/Peanutt42/client-server/transport"

	"github.com/bfix/gospel/logger"
	"github.com/gorilla/mux"
)

// clientInfo is the JSON shape returned by GET /clients.
type clientInfo struct {
	Id      uint64 `json:"id"`
	Address string `json:"address,omitempty"`
	PingMs  int64  `json:"ping_ms,omitempty"`
}

// Server is the HTTP admin surface for a running server.Server.
type Server struct {
	srv *server.Server
	httpSrv *http.Server
}

// New builds an admin HTTP server bound to addr, backed by srv.
func New(addr string, srv *server.Server) *Server {
	r := mux.NewRouter()
	a := &Server{srv: srv}
	r.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/clients", a.handleListClients).Methods(http.MethodGet)
	r.HandleFunc("/clients/{id}/kick", a.handleKick).Methods(http.MethodPost)
	a.httpSrv = &http.Server{Addr: addr, Handler: r}
	return a
}

// ListenAndServe starts the admin HTTP surface. It blocks until the server
// stops, matching net/http's own convention.
func (a *Server) ListenAndServe() error {
	logger.Printf(logger.INFO, "[admin] listening on %s\n", a.httpSrv.Addr)
	return a.httpSrv.ListenAndServe()
}

// Close shuts the admin HTTP surface down.
func (a *Server) Close() error {
	return a.httpSrv.Close()
}

func (a *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	ids := a.srv.ListClients()
	out := make([]clientInfo, 0, len(ids))
	for _, id := range ids {
		info := clientInfo{Id: uint64(id)}
		if addr, ok := a.srv.GetClientAddress(id); ok {
			info.Address = addr.String()
		}
		if rtt, err := a.srv.GetPing(id); err == nil {
			info.PingMs = rtt.Milliseconds()
		}
		out = append(out, info)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (a *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return
	}
	if err := a.srv.Kick(transport.ClientId(id)); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
