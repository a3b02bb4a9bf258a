// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package ceremonytest is an in-memory multi-party message router for
// ceremony simulation tests, generalising the ceremony library's
// test/utils.go SharedPartyUpdater pattern: instead of fanning a channel of
// tss.Message out to every LocalParty's UpdateFromBytes, Router fans a
// ceremony.Message out to every registered ceremony.Runner's Update,
// honouring broadcast vs. private routing the way a real p2p transport
// would (spec.md §6).
package ceremonytest

import (
	"sync"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/party"
)

// Router delivers every outbound ceremony.Message from any registered
// runner's out channel to the correct set of recipients' Update methods.
// Pump delivers one message at a time, synchronously, on the goroutine that
// calls it, so messages from a given sender reach every recipient in
// send-order (spec.md §5 "Messages for a given ceremony from a given sender
// are delivered in send-order").
type Router struct {
	mtx     sync.Mutex
	runners map[string]ceremony.Runner // party Id -> runner
	errs    chan *ceremony.Error
}

// NewRouter constructs an empty Router. Register runners via Register
// before any of them starts emitting messages on its out channel.
func NewRouter() *Router {
	return &Router{
		runners: make(map[string]ceremony.Runner),
		errs:    make(chan *ceremony.Error, 256),
	}
}

// Register associates a runner with its owning party's Id so future
// messages addressed to it (directly, or via broadcast) are delivered.
func (r *Router) Register(pid *party.ID, runner ceremony.Runner) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.runners[pid.Id] = runner
}

// Pump reads from out until it is closed, delivering each message to every
// recipient implied by its routing (all registered runners other than the
// sender for a broadcast, or the explicit To list for a private message).
// Call this once per simulated transport link, typically once globally
// since every stage shares the same out channel in these tests.
func (r *Router) Pump(out <-chan ceremony.Message) {
	for msg := range out {
		r.deliver(msg)
	}
}

func (r *Router) deliver(msg ceremony.Message) {
	r.mtx.Lock()
	recipients := r.recipientsLocked(msg)
	r.mtx.Unlock()

	for _, runner := range recipients {
		if _, err := runner.(interface {
			Update(ceremony.Message) (bool, *ceremony.Error)
		}).Update(msg); err != nil {
			select {
			case r.errs <- err:
			default:
			}
		}
	}
}

func (r *Router) recipientsLocked(msg ceremony.Message) []ceremony.Runner {
	if msg.IsBroadcast() {
		out := make([]ceremony.Runner, 0, len(r.runners))
		for id, runner := range r.runners {
			if id == msg.GetFrom().Id {
				continue
			}
			out = append(out, runner)
		}
		return out
	}
	out := make([]ceremony.Runner, 0, len(msg.GetTo()))
	for _, to := range msg.GetTo() {
		if runner, ok := r.runners[to.Id]; ok {
			out = append(out, runner)
		}
	}
	return out
}

// Errs returns the channel of mid-ceremony errors observed while pumping,
// for a test to drain and assert against (e.g. expected blame sets).
func (r *Router) Errs() <-chan *ceremony.Error { return r.errs }
