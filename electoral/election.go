// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package electoral implements the election lifecycle, vote storage shapes
// and consensus reduction spec.md §4.7 describes: a validator set votes on
// per-election properties, a system-specific hook decides when enough votes
// agree, and a finalisation hook consumes the result. Absent from the
// ceremony library (an off-chain signing library has no on-chain voting
// concept); the shape here follows the same "explicit state struct, plain
// map, no hidden goroutines" discipline the keygen/signing packages use for
// their own round-local state.
package electoral

import (
	"crypto/sha256"
	"reflect"
	"sync"

	logging "github.com/ipfs/go-log"
)

var log = logging.Logger("electoral")

// ElectionIdentifier names an election slot: ID is the synchronous
// identifier shared by every validator, Extra is bumped by Refresh to
// invalidate stale votes while keeping the same slot (spec.md GLOSSARY
// "Election").
type ElectionIdentifier struct {
	ID    uint32
	Extra uint32
}

// VoteRecord is what an Election stores per validator: the hash of the
// properties the vote was cast against (so a Refresh-bumped election can
// tell a stale vote from a fresh one) plus the vote itself.
type VoteRecord[V any] struct {
	PropertiesHash [32]byte
	Vote           V
}

// HashProperties is the default PropertiesHash source: gob-encode-free,
// callers normally pass a caller-computed digest of whatever fields the
// vote was generated against. Exposed so hook implementations can reuse it
// instead of hand-rolling a hash.
func HashProperties(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// Election is a single election slot: its properties (what to vote on),
// its system-specific state, and the votes gathered so far, keyed by
// validator id.
type Election[P any, S any, V any] struct {
	Identifier ElectionIdentifier
	Properties P
	State      S

	mtx   sync.Mutex
	votes map[string]VoteRecord[V]
}

// NewElection creates an election in its initial state with no votes.
func NewElection[P any, S any, V any](id ElectionIdentifier, properties P, state S) *Election[P, S, V] {
	return &Election[P, S, V]{
		Identifier: id,
		Properties: properties,
		State:      state,
		votes:      make(map[string]VoteRecord[V]),
	}
}

// Vote records validator's vote against propertiesHash. A vote recorded
// against a stale hash (properties changed since, e.g. by a Refresh) is the
// caller's responsibility to filter out at consensus time — Vote itself
// just stores whatever it's given, matching how the underlying pallet
// storage has no way to refuse a vote at write time either.
func (e *Election[P, S, V]) Vote(validator string, propertiesHash [32]byte, vote V) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.votes[validator] = VoteRecord[V]{PropertiesHash: propertiesHash, Vote: vote}
}

// Votes returns a snapshot of the votes gathered so far, as a set of
// validator identities plus their VoteRecord.
func (e *Election[P, S, V]) Votes() map[string]VoteRecord[V] {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	out := make(map[string]VoteRecord[V], len(e.votes))
	for k, v := range e.votes {
		out[k] = v
	}
	return out
}

// Refresh bumps the election's Extra discriminator, invalidating every vote
// recorded against the old (identifier, extra) pair while keeping the slot
// (spec.md GLOSSARY "Identifier extras allow refreshing an election").
func (e *Election[P, S, V]) Refresh(properties P, state S) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.Identifier.Extra++
	e.Properties = properties
	e.State = state
	e.votes = make(map[string]VoteRecord[V])
}

// Hooks is the capability set an electoral system implements (spec.md
// §4.7): deciding whether/when a validator should vote, generating the
// properties a vote is cast against, reducing gathered votes to a
// consensus, and consuming that consensus at finalisation.
type Hooks[P any, S any, V any, C any] interface {
	IsVoteDesired(e *Election[P, S, V], validator string) bool
	IsVoteNeeded(e *Election[P, S, V], validator string) bool
	GenerateVoteProperties(e *Election[P, S, V]) P
	// CheckConsensus reduces the gathered votes (plus the previous
	// consensus, if any) to a new consensus value. A nil return means no
	// consensus yet.
	CheckConsensus(e *Election[P, S, V], previous *C, authorities int) (*C, error)
	// OnFinalize consumes consensus, mutates election/system state, and
	// reports whether the election should be deleted or refreshed.
	OnFinalize(e *Election[P, S, V], consensus *C) (refresh bool, deleteElection bool)
}

// System runs the election lifecycle (spec.md §4.7 "Election lifecycle")
// for every election sharing one Hooks implementation: gather votes, check
// consensus, finalise, in that fixed order, once per host-chain
// finalisation (spec.md §5 "Electoral finalisation... is strictly
// sequential per block").
type System[P any, S any, V any, C any] struct {
	mtx        sync.Mutex
	hooks      Hooks[P, S, V, C]
	elections  map[ElectionIdentifier]*Election[P, S, V]
	consensus  map[ElectionIdentifier]*C
	authorities int
	nextID     uint32
}

func NewSystem[P any, S any, V any, C any](hooks Hooks[P, S, V, C], authorities int) *System[P, S, V, C] {
	return &System[P, S, V, C]{
		hooks:       hooks,
		elections:   make(map[ElectionIdentifier]*Election[P, S, V]),
		consensus:   make(map[ElectionIdentifier]*C),
		authorities: authorities,
	}
}

// Open creates a new election and returns its identifier.
func (s *System[P, S, V, C]) Open(properties P, state S) ElectionIdentifier {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	id := ElectionIdentifier{ID: s.nextID}
	s.nextID++
	s.elections[id] = NewElection[P, S, V](id, properties, state)
	return id
}

// Election returns the election for id, if it's still open.
func (s *System[P, S, V, C]) Election(id ElectionIdentifier) (*Election[P, S, V], bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	e, ok := s.elections[id]
	return e, ok
}

// Finalize runs the three-step lifecycle (spec.md §4.7) against every open
// election: check_consensus, then on_finalize if a (new) consensus exists.
// An election's on_finalize may ask to be deleted or refreshed. OnFinalize
// is skipped only when CheckConsensus returns a result equal (by
// reflect.DeepEqual, since C is only known to this package as a generic
// parameter) to the one already stored for id. A different result for the
// same id is delivered to OnFinalize again, and a refresh clears the stored
// result, so the next consensus for that id is delivered as well.
func (s *System[P, S, V, C]) Finalize() error {
	s.mtx.Lock()
	ids := make([]ElectionIdentifier, 0, len(s.elections))
	for id := range s.elections {
		ids = append(ids, id)
	}
	s.mtx.Unlock()

	for _, id := range ids {
		s.mtx.Lock()
		e, ok := s.elections[id]
		prev := s.consensus[id]
		s.mtx.Unlock()
		if !ok {
			continue
		}

		next, err := s.hooks.CheckConsensus(e, prev, s.authorities)
		if err != nil {
			return err
		}
		if next == nil {
			continue
		}
		if prev != nil && reflect.DeepEqual(*prev, *next) {
			continue
		}

		refresh, del := s.hooks.OnFinalize(e, next)

		s.mtx.Lock()
		s.consensus[id] = next
		if del {
			delete(s.elections, id)
			delete(s.consensus, id)
		} else if refresh {
			delete(s.consensus, id)
		}
		s.mtx.Unlock()
	}
	return nil
}

// Constituent is the narrow surface a composite electoral system needs
// from each tupled system: run one finalisation pass.
type Constituent interface {
	Finalize() error
}

// Composite tuples several electoral systems sharing one validator set and
// finalisation point (spec.md §4.7 "A composite electoral system tuples
// several systems under one pallet instance"). Its finalisation runs each
// constituent in the fixed order they were registered.
type Composite struct {
	constituents []Constituent
}

func NewComposite(constituents ...Constituent) *Composite {
	return &Composite{constituents: constituents}
}

func (c *Composite) Finalize() error {
	for i, constituent := range c.constituents {
		if err := constituent.Finalize(); err != nil {
			log.Errorf("electoral: composite constituent %d finalisation failed: %v", i, err)
			return err
		}
	}
	return nil
}
