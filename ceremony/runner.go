// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ceremony

import (
	"errors"
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log"

	"github.com/chainbridge-relay/engine/party"
)

var log = logging.Logger("ceremony")

// State is the ceremony lifecycle state (spec.md §4.5): a ceremony starts
// Unauthorised (messages may arrive and are buffered, but no stage runs
// until the local operator signs off on the participant set), transitions
// to Authorised once Authorise is called, and ends Completed or Failed. The
// teacher's BaseParty had no such gate; every party started running its
// first round immediately on construction.
type State int

const (
	Unauthorised State = iota
	Authorised
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Unauthorised:
		return "unauthorised"
	case Authorised:
		return "authorised"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MaxBufferedMessagesPerSender bounds how many early messages a single
// sender may have buffered while a Runner is Unauthorised, so a malicious or
// confused peer flooding messages before authorisation cannot exhaust
// memory (spec.md §4.5).
const MaxBufferedMessagesPerSender = 4

// Runner drives a ceremony through its Stage chain, generalising the
// ceremony library's Party/BaseParty (tss/party.go). Concrete runners
// (keygen, signing) embed BaseRunner for the shared lifecycle plumbing and
// implement StoreMessage themselves, the same split the teacher used
// between BaseParty and each protocol's LocalParty.
type Runner interface {
	WaitingFor() []*party.ID
	ValidateMessage(msg Message) (bool, *Error)
	StoreMessage(msg Message) (bool, *Error)
	FirstStage() Stage
	WrapError(err error, culprits ...*party.ID) *Error
	PartyID() *party.ID
	State() State
	String() string

	// Private lifecycle methods, exported only within this package via
	// BaseRunner's promoted methods.
	setStage(Stage) *Error
	stage() Stage
	advance()
	setState(State)
	currentState() State
	lock()
	unlock()
	deadlineFields() (*time.Time, *map[string][]Message)
}

// BaseRunner implements the shared Runner lifecycle plumbing; embed it in a
// concrete keygen/signing runner the way the teacher's protocol LocalParty
// types embedded BaseParty.
type BaseRunner struct {
	mtx      sync.Mutex
	state    State
	stg      Stage
	FirstStg Stage

	deadline time.Time
	buffered map[string][]Message // sender id -> buffered messages, pre-authorisation
}

func (r *BaseRunner) FirstStage() Stage { return r.FirstStg }

func (r *BaseRunner) PartyID() *party.ID {
	if r.stg != nil {
		return r.stg.Params().PartyID()
	}
	return r.FirstStg.Params().PartyID()
}

func (r *BaseRunner) WaitingFor() []*party.ID {
	r.lock()
	defer r.unlock()
	if r.stg == nil {
		return nil
	}
	return r.stg.WaitingFor()
}

func (r *BaseRunner) State() State {
	r.lock()
	defer r.unlock()
	return r.state
}

func (r *BaseRunner) WrapError(err error, culprits ...*party.ID) *Error {
	if r.stg == nil {
		return NewError(err, "", 0, r.PartyID(), culprits...)
	}
	return r.stg.WrapError(err, culprits...)
}

func (r *BaseRunner) ValidateMessage(msg Message) (bool, *Error) {
	if msg == nil || msg.Content() == nil {
		return false, r.WrapError(fmt.Errorf("received nil message"))
	}
	if msg.GetFrom() == nil || !msg.GetFrom().ValidateBasic() {
		return false, r.WrapError(fmt.Errorf("received message with an invalid sender: %+v", msg.GetFrom()))
	}
	if !msg.ValidateBasic() {
		return false, r.WrapError(fmt.Errorf("message failed ValidateBasic: %s", msg), msg.GetFrom())
	}
	return true, nil
}

func (r *BaseRunner) String() string {
	if r.stg == nil {
		return fmt.Sprintf("ceremony %s: %s", r.state, r.PartyID())
	}
	return fmt.Sprintf("ceremony %s: stage %d, %s", r.state, r.stg.StageNumber(), r.PartyID())
}

// ----- private lifecycle methods, satisfying the Runner interface -----

func (r *BaseRunner) setStage(stg Stage) *Error {
	r.stg = stg
	return nil
}
func (r *BaseRunner) stage() Stage     { return r.stg }
func (r *BaseRunner) advance()         { r.stg = r.stg.NextStage() }
func (r *BaseRunner) setState(s State) { r.state = s }
func (r *BaseRunner) lock()            { r.mtx.Lock() }
func (r *BaseRunner) unlock()          { r.mtx.Unlock() }

func (r *BaseRunner) deadlineFields() (*time.Time, *map[string][]Message) {
	return &r.deadline, &r.buffered
}

// currentState reads the state without locking, for callers that already
// hold the runner's mutex.
func (r *BaseRunner) currentState() State { return r.state }

// BaseAuthorise starts the ceremony: it must be called exactly once per
// Runner. It arms a single deadline, stageTimeout from now; later stages do
// not re-arm it, so it bounds the ceremony as a whole. Messages a faster
// peer sent before authorisation are then replayed, each sender's in arrival
// order; the order across different senders is not defined.
func BaseAuthorise(r Runner, task string, stageTimeout time.Duration, prepare ...func(Stage) *Error) *Error {
	r.lock()
	if r.currentState() != Unauthorised {
		r.unlock()
		return r.WrapError(errors.New("Authorise called more than once, or ceremony already finished"))
	}
	if err := r.setStage(r.FirstStage()); err != nil {
		r.unlock()
		return err
	}
	deadline, buffered := r.deadlineFields()
	*deadline = time.Now().Add(stageTimeout)
	r.setState(Authorised)
	if len(prepare) > 1 {
		r.unlock()
		return r.WrapError(errors.New("too many prepare functions given to Authorise(); 1 allowed"))
	}
	if len(prepare) == 1 {
		if err := prepare[0](r.stage()); err != nil {
			r.setState(Failed)
			r.unlock()
			return err
		}
	}
	log.Infof("party %s: %s stage %d authorised", r.PartyID(), task, r.stage().StageNumber())
	startErr := r.stage().Start()
	toReplay := *buffered
	*buffered = nil
	r.unlock()
	if startErr != nil {
		failRunner(r)
		return startErr
	}
	for _, msgs := range toReplay {
		for _, msg := range msgs {
			if _, err := BaseUpdate(r, msg, task); err != nil {
				return err
			}
		}
	}
	return nil
}

// BaseUpdate feeds a message into a running ceremony, generalising the
// ceremony library's BaseUpdate (tss/party.go): it validates and stores the
// message via the concrete Runner's StoreMessage, then drains the stage
// chain for as long as the current stage reports CanProceed. Draining
// (not just a single advance) matters because a transition-only stage,
// one with no message of its own, like a pure completeness gate, can find
// its own CanProceed already satisfied the moment its Start() runs, purely
// from data the stage that triggered the advance already deposited.
// Nothing new will ever arrive to re-trigger a second check, so
// advancement has to loop here instead of waiting on a future message.
// Before Authorise has been called, valid messages are buffered (bounded
// per sender) instead of rejected, since a faster peer may legitimately
// reach the first stage before the local operator authorises the ceremony.
func BaseUpdate(r Runner, msg Message, task string) (ok bool, err *Error) {
	if _, err := r.ValidateMessage(msg); err != nil {
		return false, err
	}

	r.lock()
	defer r.unlock()

	if r.currentState() == Unauthorised {
		_, buffered := r.deadlineFields()
		sender := msg.GetFrom().Id
		if *buffered == nil {
			*buffered = make(map[string][]Message)
		}
		if len((*buffered)[sender]) >= MaxBufferedMessagesPerSender {
			return false, r.WrapError(fmt.Errorf("sender %s exceeded the pre-authorisation message buffer", sender), msg.GetFrom())
		}
		(*buffered)[sender] = append((*buffered)[sender], msg)
		return true, nil
	}
	if r.currentState() != Authorised {
		return false, r.WrapError(fmt.Errorf("ceremony is not accepting updates in state %s", r.currentState()))
	}

	log.Debugf("party %s received message: %s", r.PartyID(), msg)
	stored, serr := r.StoreMessage(msg)
	if serr != nil || !stored {
		return false, serr
	}
	if _, uerr := r.stage().Update(); uerr != nil {
		r.setState(Failed)
		return false, uerr
	}

	for r.stage() != nil && r.stage().CanProceed() {
		r.advance()
		next := r.stage()
		if next == nil {
			r.setState(Completed)
			log.Infof("party %s: %s finished", r.PartyID(), task)
			return true, nil
		}
		if serr := next.Start(); serr != nil {
			r.setState(Failed)
			return false, serr
		}
		log.Infof("party %s: %s stage %d started", r.PartyID(), task, next.StageNumber())
	}
	return true, nil
}

func failRunner(r Runner) {
	r.lock()
	r.setState(Failed)
	r.unlock()
}

// CheckTimeout reports a timeout Error if the deadline armed by BaseAuthorise
// has elapsed while the current stage still cannot proceed, attributing
// blame to whichever participants the stage is still WaitingFor (spec.md
// §4.5). Callers poll this on a ticker since stage advancement is driven by
// message arrival, not a clock.
func CheckTimeout(r Runner, now time.Time) *Error {
	r.lock()
	defer r.unlock()
	if r.currentState() != Authorised || r.stage() == nil {
		return nil
	}
	deadline, _ := r.deadlineFields()
	if now.Before(*deadline) || r.stage().CanProceed() {
		return nil
	}
	culprits := r.stage().WaitingFor()
	r.setState(Failed)
	return r.stage().WrapError(errors.New("stage timed out waiting for messages"), culprits...).WithReason(ReasonTimeout)
}
