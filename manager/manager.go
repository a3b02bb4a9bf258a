// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package manager multiplexes many concurrent ceremonies (spec.md §4.5),
// generalising the ceremony library's single-party test harnesses (which
// construct one LocalParty directly) into a long-lived component that
// validates ceremony requests, creates runners on demand, and routes
// incoming p2p messages to the right one.
package manager

import (
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/party"
)

var log = logging.Logger("manager")

// MaxBufferedMessagesPerCeremony bounds how many messages the manager will
// hold for a ceremony id that has no runner yet (a p2p message may outrace
// the local Request call that creates the runner).
const MaxBufferedMessagesPerCeremony = 64

// RejectReason classifies why the manager refused a ceremony request
// (spec.md §4.5 "Rejected requests are reported with a concrete
// CeremonyFailureReason").
type RejectReason string

const (
	ReasonStaleCeremonyID          RejectReason = "stale_ceremony_id"
	ReasonDuplicateCeremonyID      RejectReason = "duplicate_ceremony_id"
	ReasonRequesterNotParticipant  RejectReason = "requester_not_participant"
	ReasonInsufficientParticipants RejectReason = "insufficient_participants"
	ReasonConstructionFailed       RejectReason = "construction_failed"
)

// RequestError is returned when the manager refuses a ceremony request.
type RequestError struct {
	Reason     RejectReason
	CeremonyID uint64
	Err        error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("manager: ceremony %d rejected (%s): %v", e.CeremonyID, e.Reason, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Runner is the subset of a concrete keygen/signing LocalRunner the
// manager needs: the shared ceremony.Runner lifecycle methods plus the two
// methods that are only declared on the concrete types (Authorise, Update),
// since ceremony.Runner itself doesn't declare them (see ceremony/runner.go).
type Runner interface {
	ceremony.Runner
	Authorise(prepare ...func(ceremony.Stage) *ceremony.Error) *ceremony.Error
	Update(msg ceremony.Message) (bool, *ceremony.Error)
}

// CeremonyRequest is what a local operator submits to start a ceremony
// (spec.md §4.5): a ceremony id, the requester's identity, the proposed
// participant set and the threshold it must satisfy.
type CeremonyRequest struct {
	ID           uint64
	Requester    *party.ID
	Participants party.SortedIDs
	Threshold    int
}

// Factory builds the concrete Runner for an accepted request. Supplied by
// the caller rather than baked into the manager, since the manager has no
// opinion on whether a request is for keygen or signing, which scheme, etc.
type Factory func(CeremonyRequest) (Runner, error)

// Manager holds the ceremony_id -> runner mapping behind a single mutex
// (spec.md §5 "Locks": critical sections are short — insert/remove/lookup;
// all in-ceremony state lives inside the runner itself, whose own internal
// loop needs no further locking).
type Manager struct {
	mtx            sync.Mutex
	latestObserved uint64
	ceremonies     map[uint64]Runner
	pending        map[uint64][]ceremony.Message
}

func NewManager() *Manager {
	return &Manager{
		ceremonies: make(map[uint64]Runner),
		pending:    make(map[uint64][]ceremony.Message),
	}
}

// Request validates and, if accepted, creates and authorises a new runner
// for req (spec.md §4.5): the ceremony id must exceed every id previously
// observed and must not already have a runner, the requester must belong
// to the proposed participant set, and that set must satisfy the
// threshold. Any message that arrived for this id before the runner
// existed is replayed into it immediately.
func (m *Manager) Request(req CeremonyRequest, build Factory) (Runner, *RequestError) {
	m.mtx.Lock()
	if _, exists := m.ceremonies[req.ID]; exists {
		m.mtx.Unlock()
		return nil, &RequestError{Reason: ReasonDuplicateCeremonyID, CeremonyID: req.ID,
			Err: fmt.Errorf("ceremony id %d already has a runner", req.ID)}
	}
	if req.ID <= m.latestObserved {
		m.mtx.Unlock()
		return nil, &RequestError{Reason: ReasonStaleCeremonyID, CeremonyID: req.ID,
			Err: fmt.Errorf("ceremony id %d is not greater than the latest observed id %d", req.ID, m.latestObserved)}
	}
	if req.Requester == nil || req.Participants.FindByKey(req.Requester.KeyInt()) == nil {
		m.mtx.Unlock()
		return nil, &RequestError{Reason: ReasonRequesterNotParticipant, CeremonyID: req.ID,
			Err: fmt.Errorf("requester %s is not a member of the proposed participant set", req.Requester)}
	}
	if len(req.Participants) < req.Threshold+1 {
		m.mtx.Unlock()
		return nil, &RequestError{Reason: ReasonInsufficientParticipants, CeremonyID: req.ID,
			Err: fmt.Errorf("participant set of %d does not satisfy threshold %d", len(req.Participants), req.Threshold)}
	}

	runner, err := build(req)
	if err != nil {
		m.mtx.Unlock()
		return nil, &RequestError{Reason: ReasonConstructionFailed, CeremonyID: req.ID, Err: err}
	}

	m.ceremonies[req.ID] = runner
	m.latestObserved = req.ID
	buffered := m.pending[req.ID]
	delete(m.pending, req.ID)
	m.mtx.Unlock()

	log.Infof("manager: ceremony %d authorised for requester %s, %d participants", req.ID, req.Requester, len(req.Participants))
	if aerr := runner.Authorise(); aerr != nil {
		return nil, &RequestError{Reason: ReasonConstructionFailed, CeremonyID: req.ID, Err: aerr}
	}

	for _, msg := range buffered {
		if _, uerr := runner.Update(msg); uerr != nil {
			log.Warnf("manager: replaying buffered message for ceremony %d failed: %v", req.ID, uerr)
		}
	}
	return runner, nil
}

// Deliver routes an incoming p2p message to its ceremony's runner
// (spec.md §4.5 "Incoming p2p messages carry (ceremony_id, payload)"). If
// no runner exists yet for id, the message is buffered (bounded) until a
// matching Request arrives.
func (m *Manager) Deliver(id uint64, msg ceremony.Message) (bool, *ceremony.Error) {
	m.mtx.Lock()
	runner, ok := m.ceremonies[id]
	if !ok {
		if len(m.pending[id]) >= MaxBufferedMessagesPerCeremony {
			m.mtx.Unlock()
			return false, ceremony.NewError(
				fmt.Errorf("ceremony %d has no runner yet and its pre-authorisation buffer is full", id),
				"manager", 0, nil, msg.GetFrom())
		}
		m.pending[id] = append(m.pending[id], msg)
		m.mtx.Unlock()
		return true, nil
	}
	m.mtx.Unlock()
	return runner.Update(msg)
}

// Lookup returns the runner for id, if one exists.
func (m *Manager) Lookup(id uint64) (Runner, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	r, ok := m.ceremonies[id]
	return r, ok
}

// Prune drops every runner that has reached a terminal state (Completed or
// Failed), bounding the map's growth across the process lifetime. Callers
// are expected to have already consumed a runner's outcome (via its end
// channel) before a sweep removes it.
func (m *Manager) Prune() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	removed := 0
	for id, r := range m.ceremonies {
		switch r.State() {
		case ceremony.Completed, ceremony.Failed:
			delete(m.ceremonies, id)
			removed++
		}
	}
	return removed
}

// LatestObserved returns the highest ceremony id accepted so far.
func (m *Manager) LatestObserved() uint64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.latestObserved
}
