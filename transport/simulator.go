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

package transport

import (
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/bfix/gospel/logger"
)

// FaultProfile parameterizes the simulator's loss and latency behavior. A
// zero-value FaultProfile is a perfect, zero-delay transport.
type FaultProfile struct {
	LossProbability float64       // in [0, 1]; drawn independently per frame
	MinDelay        time.Duration // added uniformly between Min and Max
	MaxDelay        time.Duration
	Rand            *rand.Rand // nil uses a process-global source
}

func (f *FaultProfile) float64() float64 {
	if f.Rand != nil {
		return f.Rand.Float64()
	}
	return rand.Float64()
}

func (f *FaultProfile) int63n(n int64) int64 {
	if f.Rand != nil {
		return f.Rand.Int63n(n)
	}
	return rand.Int63n(n)
}

func (f *FaultProfile) drop() bool {
	if f.LossProbability <= 0 {
		return false
	}
	return f.float64() < f.LossProbability
}

func (f *FaultProfile) delay() time.Duration {
	if f.MaxDelay <= f.MinDelay {
		return f.MinDelay
	}
	span := f.MaxDelay - f.MinDelay
	return f.MinDelay + time.Duration(f.int63n(int64(span)))
}

// pendingFrame is a unit of delayed work: deliver at (or after) deadline,
// in the order it was enqueued.
type pendingFrame struct {
	deadline time.Time
	send     func() error
}

// delayQueue runs enqueued frames in FIFO order once their deadline has
// passed, on a single dedicated goroutine, so reordering never happens
// even though arrival times are randomized.
type delayQueue struct {
	mu     sync.Mutex
	items  []pendingFrame
	notify chan struct{}
	done   chan struct{}
}

func newDelayQueue() *delayQueue {
	q := &delayQueue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *delayQueue) push(f pendingFrame) {
	q.mu.Lock()
	q.items = append(q.items, f)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *delayQueue) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		q.mu.Lock()
		var wait time.Duration
		if len(q.items) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(q.items[0].deadline)
			if wait < 0 {
				wait = 0
			}
		}
		q.mu.Unlock()

		timer.Reset(wait)
		select {
		case <-q.done:
			return
		case <-q.notify:
			continue
		case <-timer.C:
		}

		q.mu.Lock()
		var ready []pendingFrame
		now := time.Now()
		i := 0
		for i < len(q.items) && !q.items[i].deadline.After(now) {
			i++
		}
		ready, q.items = q.items[:i], q.items[i:]
		q.mu.Unlock()

		for _, f := range ready {
			if err := f.send(); err != nil {
				logger.Printf(logger.WARN, "[simulator] delayed send failed: %s\n", err)
			}
		}
	}
}

func (q *delayQueue) close() {
	close(q.done)
}

//----------------------------------------------------------------------
// Client-side simulator
//----------------------------------------------------------------------

// SimulatorClientTransport wraps a ClientTransport, dropping and delaying
// outbound frames according to a FaultProfile. Inbound delivery is left to
// the wrapped transport; this models loss and jitter introduced by the
// local peer's own uplink.
type SimulatorClientTransport struct {
	inner   ClientTransport
	profile FaultProfile
	queue   *delayQueue
}

// NewSimulatorClientTransport wraps inner with the given fault profile.
func NewSimulatorClientTransport(inner ClientTransport, profile FaultProfile) *SimulatorClientTransport {
	return &SimulatorClientTransport{inner: inner, profile: profile, queue: newDelayQueue()}
}

// PollEvent implements ClientTransport.
func (s *SimulatorClientTransport) PollEvent() (ClientEvent, bool) { return s.inner.PollEvent() }

// Send implements ClientTransport, applying loss and delay.
func (s *SimulatorClientTransport) Send(payload []byte) error {
	if s.profile.drop() {
		return nil
	}
	body := append([]byte(nil), payload...)
	s.queue.push(pendingFrame{
		deadline: time.Now().Add(s.profile.delay()),
		send:     func() error { return s.inner.Send(body) },
	})
	return nil
}

// Close implements ClientTransport.
func (s *SimulatorClientTransport) Close() error {
	s.queue.close()
	return s.inner.Close()
}

//----------------------------------------------------------------------
// Server-side simulator
//----------------------------------------------------------------------

// SimulatorServerTransport wraps a ServerTransport the same way
// SimulatorClientTransport wraps a client, applying loss and delay to
// outbound sends.
type SimulatorServerTransport struct {
	inner   ServerTransport
	profile FaultProfile
	queue   *delayQueue
}

// NewSimulatorServerTransport wraps inner with the given fault profile.
func NewSimulatorServerTransport(inner ServerTransport, profile FaultProfile) *SimulatorServerTransport {
	return &SimulatorServerTransport{inner: inner, profile: profile, queue: newDelayQueue()}
}

// PollEvent implements ServerTransport.
func (s *SimulatorServerTransport) PollEvent() (ServerEvent, bool) { return s.inner.PollEvent() }

// SendTo implements ServerTransport, applying loss and delay.
func (s *SimulatorServerTransport) SendTo(id ClientId, payload []byte) error {
	if s.profile.drop() {
		return nil
	}
	body := append([]byte(nil), payload...)
	s.queue.push(pendingFrame{
		deadline: time.Now().Add(s.profile.delay()),
		send:     func() error { return s.inner.SendTo(id, body) },
	})
	return nil
}

// Address implements ServerTransport.
func (s *SimulatorServerTransport) Address(id ClientId) (net.Addr, bool) {
	return s.inner.Address(id)
}

// Close implements ServerTransport.
func (s *SimulatorServerTransport) Close() error {
	s.queue.close()
	return s.inner.Close()
}
