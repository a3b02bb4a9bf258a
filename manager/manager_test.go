// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/party"
)

type fakeStage struct {
	done bool
}

func (s *fakeStage) StageNumber() int                      { return 1 }
func (s *fakeStage) Start() *ceremony.Error                { s.done = true; return nil }
func (s *fakeStage) CanAccept(msg ceremony.Message) bool    { return true }
func (s *fakeStage) Update() (bool, *ceremony.Error)        { return true, nil }
func (s *fakeStage) CanProceed() bool                       { return s.done }
func (s *fakeStage) NextStage() ceremony.Stage              { return nil }
func (s *fakeStage) WaitingFor() []*party.ID                { return nil }
func (s *fakeStage) Params() *party.Params                  { return nil }
func (s *fakeStage) WrapError(err error, c ...*party.ID) *ceremony.Error {
	return ceremony.NewError(err, "fake", 1, nil, c...)
}

// fakeRunner is a minimal manager.Runner double whose single stage lets it
// reach Completed on the first message delivered after Authorise, enough to
// exercise Manager's bookkeeping without depending on a real keygen/signing
// ceremony.
type fakeRunner struct {
	ceremony.BaseRunner
	id party.ID
}

var _ Runner = (*fakeRunner)(nil)

func newFakeRunner() *fakeRunner {
	r := &fakeRunner{id: party.ID{Id: "self", Key: []byte{1}, Index: 0}}
	r.FirstStg = &fakeStage{}
	return r
}

func (r *fakeRunner) PartyID() *party.ID { return &r.id }
func (r *fakeRunner) WrapError(err error, c ...*party.ID) *ceremony.Error {
	return r.BaseRunner.WrapError(err, c...)
}
func (r *fakeRunner) Authorise(prepare ...func(ceremony.Stage) *ceremony.Error) *ceremony.Error {
	return ceremony.BaseAuthorise(r, "fake", 0, prepare...)
}
func (r *fakeRunner) Update(msg ceremony.Message) (bool, *ceremony.Error) {
	return ceremony.BaseUpdate(r, msg, "fake")
}
func (r *fakeRunner) StoreMessage(msg ceremony.Message) (bool, *ceremony.Error) { return true, nil }

func testParticipants() party.SortedIDs {
	return party.SortedIDs{
		{Id: "a", Key: []byte{1}, Index: 0},
		{Id: "b", Key: []byte{2}, Index: 1},
		{Id: "c", Key: []byte{3}, Index: 2},
	}
}

func TestManagerAcceptsValidRequest(t *testing.T) {
	m := NewManager()
	participants := testParticipants()
	req := CeremonyRequest{ID: 1, Requester: participants[0], Participants: participants, Threshold: 1}

	runner, rerr := m.Request(req, func(CeremonyRequest) (Runner, error) { return newFakeRunner(), nil })
	require.Nil(t, rerr)
	require.NotNil(t, runner)
	assert.Equal(t, uint64(1), m.LatestObserved())
}

func TestManagerRejectsStaleID(t *testing.T) {
	m := NewManager()
	participants := testParticipants()
	req := CeremonyRequest{ID: 5, Requester: participants[0], Participants: participants, Threshold: 1}
	_, rerr := m.Request(req, func(CeremonyRequest) (Runner, error) { return newFakeRunner(), nil })
	require.Nil(t, rerr)

	_, rerr = m.Request(CeremonyRequest{ID: 5, Requester: participants[0], Participants: participants, Threshold: 1},
		func(CeremonyRequest) (Runner, error) { return newFakeRunner(), nil })
	require.NotNil(t, rerr)
	assert.Equal(t, ReasonDuplicateCeremonyID, rerr.Reason)

	_, rerr = m.Request(CeremonyRequest{ID: 3, Requester: participants[0], Participants: participants, Threshold: 1},
		func(CeremonyRequest) (Runner, error) { return newFakeRunner(), nil })
	require.NotNil(t, rerr)
	assert.Equal(t, ReasonStaleCeremonyID, rerr.Reason)
}

func TestManagerRejectsNonParticipantRequester(t *testing.T) {
	m := NewManager()
	participants := testParticipants()
	outsider := &party.ID{Id: "z", Key: []byte{99}, Index: 9}
	req := CeremonyRequest{ID: 1, Requester: outsider, Participants: participants, Threshold: 1}
	_, rerr := m.Request(req, func(CeremonyRequest) (Runner, error) { return newFakeRunner(), nil })
	require.NotNil(t, rerr)
	assert.Equal(t, ReasonRequesterNotParticipant, rerr.Reason)
}

func TestManagerRejectsInsufficientParticipants(t *testing.T) {
	m := NewManager()
	participants := testParticipants()
	req := CeremonyRequest{ID: 1, Requester: participants[0], Participants: participants, Threshold: 5}
	_, rerr := m.Request(req, func(CeremonyRequest) (Runner, error) { return newFakeRunner(), nil })
	require.NotNil(t, rerr)
	assert.Equal(t, ReasonInsufficientParticipants, rerr.Reason)
}

func TestManagerBuffersMessagesBeforeRunnerExists(t *testing.T) {
	m := NewManager()
	from := &party.ID{Id: "a", Key: []byte{1}, Index: 0}
	msg, err := ceremony.NewMessage(ceremony.Routing{From: from, IsBroadcast: true}, "fake.Msg", stubContent{})
	require.NoError(t, err)

	ok, cerr := m.Deliver(7, msg)
	require.True(t, ok)
	require.Nil(t, cerr)

	participants := testParticipants()
	req := CeremonyRequest{ID: 7, Requester: participants[0], Participants: participants, Threshold: 1}
	_, rerr := m.Request(req, func(CeremonyRequest) (Runner, error) { return newFakeRunner(), nil })
	require.Nil(t, rerr)
}

type stubContent struct{}

func (stubContent) ValidateBasic() bool { return true }

func TestManagerPrune(t *testing.T) {
	m := NewManager()
	participants := testParticipants()
	req := CeremonyRequest{ID: 1, Requester: participants[0], Participants: participants, Threshold: 1}
	_, rerr := m.Request(req, func(CeremonyRequest) (Runner, error) { return newFakeRunner(), nil })
	require.Nil(t, rerr)

	from := participants[0]
	msg, err := ceremony.NewMessage(ceremony.Routing{From: from, IsBroadcast: true}, "fake.Msg", stubContent{})
	require.NoError(t, err)
	ok, cerr := m.Deliver(1, msg)
	require.True(t, ok)
	require.Nil(t, cerr)

	runner, ok := m.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, ceremony.Completed, runner.State())

	assert.Equal(t, 1, m.Prune())
	_, ok = m.Lookup(1)
	assert.False(t, ok)
}
