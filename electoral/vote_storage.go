// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package electoral

import "sync"

// VoteStorage captures the three shapes spec.md GLOSSARY "Vote storage"
// names. Each stores the same logical (validator -> vote) mapping but
// trades memory for lookup cost differently; callers pick the shape that
// fits the vote payload's size and redundancy.

// IdentityVotes is the simplest shape: each validator's vote is kept
// verbatim, no deduplication.
type IdentityVotes[V any] struct {
	mtx   sync.Mutex
	votes map[string]V
}

func NewIdentityVotes[V any]() *IdentityVotes[V] {
	return &IdentityVotes[V]{votes: make(map[string]V)}
}

func (s *IdentityVotes[V]) Set(validator string, vote V) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.votes[validator] = vote
}

func (s *IdentityVotes[V]) All() map[string]V {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	out := make(map[string]V, len(s.votes))
	for k, v := range s.votes {
		out[k] = v
	}
	return out
}

// BitmapVotes shares one storage entry among every validator who cast an
// identical vote, membership encoded as a bitmap indexed by authority
// position — cheap when most validators agree, as they do in the common
// case of a deposit amount everyone observed correctly.
type BitmapVotes[V comparable] struct {
	mtx       sync.Mutex
	authority []string          // authority position -> validator id
	entries   map[V]uint64      // vote value -> membership bitmap (<=64 authorities)
}

func NewBitmapVotes[V comparable](authorities []string) *BitmapVotes[V] {
	return &BitmapVotes[V]{authority: authorities, entries: make(map[V]uint64)}
}

// Set records validator's vote. position must be the validator's index
// into the authority set (0-63); panics if position is out of range, since
// the bitmap shape is only defined for authority sets small enough to fit
// a uint64 membership mask.
func (s *BitmapVotes[V]) Set(position int, vote V) {
	if position < 0 || position >= 64 {
		panic("electoral: bitmap vote storage supports at most 64 authorities")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for v, mask := range s.entries {
		if v == vote {
			continue
		}
		s.entries[v] = mask &^ (uint64(1) << uint(position))
	}
	s.entries[vote] |= uint64(1) << uint(position)
}

// All expands the bitmap back into a per-validator map.
func (s *BitmapVotes[V]) All() map[string]V {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	out := make(map[string]V)
	for vote, mask := range s.entries {
		for pos := 0; pos < len(s.authority); pos++ {
			if mask&(uint64(1)<<uint(pos)) != 0 {
				out[s.authority[pos]] = vote
			}
		}
	}
	return out
}

// SharedDataRef is a content-hash reference into a SharedDataStore, used by
// the shared-data-reference vote shape to deduplicate large payloads
// (spec.md GLOSSARY "large vote payloads are deduplicated by content
// hash").
type SharedDataRef [32]byte

// SharedDataStore reference-counts large vote payloads by content hash
// (spec.md GLOSSARY "reference-counted lifetime"). A payload is evicted
// once its reference count drops to zero, not before — `lifetime` is
// enforced by callers invoking Release exactly once per Put, mirroring the
// pallet's per-election vote removal driving the refcount down.
type SharedDataStore[D any] struct {
	mtx    sync.Mutex
	hashFn func(D) SharedDataRef
	data   map[SharedDataRef]D
	refs   map[SharedDataRef]int
}

func NewSharedDataStore[D any](hashFn func(D) SharedDataRef) *SharedDataStore[D] {
	return &SharedDataStore[D]{
		hashFn: hashFn,
		data:   make(map[SharedDataRef]D),
		refs:   make(map[SharedDataRef]int),
	}
}

// Put stores payload if not already present and increments its refcount,
// returning the reference a vote should carry instead of the payload
// itself.
func (s *SharedDataStore[D]) Put(payload D) SharedDataRef {
	ref := s.hashFn(payload)
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.data[ref]; !ok {
		s.data[ref] = payload
	}
	s.refs[ref]++
	return ref
}

// Get resolves ref back to its payload.
func (s *SharedDataStore[D]) Get(ref SharedDataRef) (D, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	d, ok := s.data[ref]
	return d, ok
}

// Release drops one reference to ref, evicting the payload once the count
// reaches zero.
func (s *SharedDataStore[D]) Release(ref SharedDataRef) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.refs[ref] <= 1 {
		delete(s.refs, ref)
		delete(s.data, ref)
		return
	}
	s.refs[ref]--
}

// RefCount reports how many votes currently reference ref.
func (s *SharedDataStore[D]) RefCount(ref SharedDataRef) int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.refs[ref]
}
