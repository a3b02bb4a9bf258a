// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ceremony

import (
	"encoding/gob"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chainbridge-relay/engine/party"
)

func init() {
	gob.Register(stubContent{})
}

// stubStage is a minimal Stage double that completes once every sender in
// need has stored a message, used to drive BaseRunner's state machine
// without a real keygen/signing protocol.
type stubStage struct {
	num      int
	need     map[string]bool
	received map[string]bool
	next     *stubStage
	params   *party.Params
}

func newStubStage(num int, params *party.Params, need ...string) *stubStage {
	s := &stubStage{num: num, params: params, need: make(map[string]bool), received: make(map[string]bool)}
	for _, id := range need {
		s.need[id] = true
	}
	return s
}

func (s *stubStage) Params() *party.Params     { return s.params }
func (s *stubStage) Start() *Error             { return nil }
func (s *stubStage) Update() (bool, *Error)    { return true, nil }
func (s *stubStage) CanAccept(msg Message) bool { return true }
func (s *stubStage) StageNumber() int          { return s.num }
func (s *stubStage) WrapError(err error, c ...*party.ID) *Error {
	return NewError(err, "stub", s.num, nil, c...)
}

func (s *stubStage) CanProceed() bool {
	for id := range s.need {
		if !s.received[id] {
			return false
		}
	}
	return true
}

func (s *stubStage) NextStage() Stage {
	if s.next == nil {
		return nil
	}
	return s.next
}

func (s *stubStage) WaitingFor() []*party.ID {
	var out []*party.ID
	for id := range s.need {
		if !s.received[id] {
			out = append(out, &party.ID{Id: id})
		}
	}
	return out
}

// stubRunner is a minimal Runner double embedding BaseRunner, wired to a
// stubStage chain so StoreMessage can record arrivals against the current
// stage's need set.
type stubRunner struct {
	BaseRunner
	id *party.ID
}

func newStubRunner(id *party.ID, first *stubStage) *stubRunner {
	r := &stubRunner{id: id}
	r.FirstStg = first
	return r
}

func (r *stubRunner) PartyID() *party.ID { return r.id }

func (r *stubRunner) Authorise(timeout time.Duration) *Error {
	return BaseAuthorise(r, "stub", timeout)
}

func (r *stubRunner) Update(msg Message) (bool, *Error) {
	return BaseUpdate(r, msg, "stub")
}

func (r *stubRunner) StoreMessage(msg Message) (bool, *Error) {
	cur, ok := r.stage().(*stubStage)
	if !ok {
		return false, r.WrapError(nil)
	}
	cur.received[msg.GetFrom().Id] = true
	return true, nil
}

func stubContentMsg(t *testing.T, from *party.ID) Message {
	t.Helper()
	msg, err := NewMessage(Routing{From: from, IsBroadcast: true}, "stub.Msg", stubContent{})
	require.NoError(t, err)
	return msg
}

type stubContent struct{}

func (stubContent) ValidateBasic() bool { return true }

func TestBaseUpdateBuffersBeforeAuthorise(t *testing.T) {
	self := &party.ID{Id: "self", Key: []byte{1}, Index: 0}
	stage := newStubStage(1, nil, "a", "b")
	r := newStubRunner(self, stage)

	from := &party.ID{Id: "a", Key: []byte{2}, Index: 1}
	msg := stubContentMsg(t, from)

	ok, err := r.Update(msg)
	require.True(t, ok)
	require.Nil(t, err)
	require.Equal(t, Unauthorised, r.State())

	// The stage must not have observed the message yet: buffering happens
	// strictly before StoreMessage is ever called.
	require.False(t, stage.received["a"])

	require.Nil(t, r.Authorise(time.Hour))
	// Replay on authorise must have delivered the buffered message.
	require.True(t, stage.received["a"])
	// Still waiting on "b", so the ceremony has not completed.
	require.Equal(t, Authorised, r.State())
}

func TestBaseUpdateRejectsOverflowingSenderBuffer(t *testing.T) {
	self := &party.ID{Id: "self", Key: []byte{1}, Index: 0}
	stage := newStubStage(1, nil, "a", "b")
	r := newStubRunner(self, stage)
	from := &party.ID{Id: "a", Key: []byte{2}, Index: 1}

	for i := 0; i < MaxBufferedMessagesPerSender; i++ {
		ok, err := r.Update(stubContentMsg(t, from))
		require.True(t, ok)
		require.Nil(t, err)
	}

	ok, err := r.Update(stubContentMsg(t, from))
	require.False(t, ok)
	require.NotNil(t, err)
}

func TestBaseUpdateDrainsCompletedStageChain(t *testing.T) {
	self := &party.ID{Id: "self", Key: []byte{1}, Index: 0}
	second := newStubStage(2, nil, "b")
	first := newStubStage(1, nil, "a")
	first.next = second
	r := newStubRunner(self, first)
	require.Nil(t, r.Authorise(time.Hour))

	fromA := &party.ID{Id: "a", Key: []byte{2}, Index: 1}
	fromB := &party.ID{Id: "b", Key: []byte{3}, Index: 2}

	ok, err := r.Update(stubContentMsg(t, fromA))
	require.True(t, ok)
	require.Nil(t, err)
	require.Equal(t, Authorised, r.State())

	ok, err = r.Update(stubContentMsg(t, fromB))
	require.True(t, ok)
	require.Nil(t, err)
	require.Equal(t, Completed, r.State())
}

func TestCheckTimeoutBlamesWaitingForParticipants(t *testing.T) {
	self := &party.ID{Id: "self", Key: []byte{1}, Index: 0}
	stage := newStubStage(1, nil, "a", "b")
	r := newStubRunner(self, stage)
	require.Nil(t, r.Authorise(time.Hour))

	fromA := &party.ID{Id: "a", Key: []byte{2}, Index: 1}
	ok, err := r.Update(stubContentMsg(t, fromA))
	require.True(t, ok)
	require.Nil(t, err)

	require.Nil(t, CheckTimeout(r, time.Now()))

	cerr := CheckTimeout(r, time.Now().Add(2*time.Hour))
	require.NotNil(t, cerr)
	require.Equal(t, ReasonTimeout, cerr.Reason())
	require.Len(t, cerr.Culprits(), 1)
	require.Equal(t, "b", cerr.Culprits()[0].Id)
	require.Equal(t, Failed, r.State())
}

func TestMessageWireRoundTrip(t *testing.T) {
	from := &party.ID{Id: "a", Key: []byte{2}, Index: 1}
	to := &party.ID{Id: "b", Key: []byte{3}, Index: 2}
	msg, err := NewMessage(Routing{From: from, To: []*party.ID{to}, IsBroadcast: false}, "stub.Msg", stubContent{})
	require.NoError(t, err)

	wire, routing, err := msg.WireBytes()
	require.NoError(t, err)
	require.Equal(t, from.Id, routing.From.Id)

	parsed, err := ParseMessage(wire)
	require.NoError(t, err)
	require.Equal(t, "stub.Msg", parsed.Type())
	require.Equal(t, from.Id, parsed.GetFrom().Id)
	require.False(t, parsed.IsBroadcast())
	require.Len(t, parsed.GetTo(), 1)
	require.Equal(t, to.Id, parsed.GetTo()[0].Id)
}
