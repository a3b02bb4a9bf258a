// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ceremony

import "github.com/chainbridge-relay/engine/party"

// Stage is one broadcast round of a ceremony, generalised from the ceremony
// library's tss.Round interface (tss/round.go). A Runner advances through a
// linked list of Stages the same way the teacher's BaseParty advances
// through Rounds, but gates the first Start() behind Authorise (spec.md
// §4.5's Unauthorised -> Authorised transition), which the teacher's
// always-on model didn't have.
type Stage interface {
	Params() *party.Params
	Start() *Error
	Update() (bool, *Error)
	StageNumber() int
	CanAccept(msg Message) bool
	CanProceed() bool
	NextStage() Stage
	WaitingFor() []*party.ID
	WrapError(err error, culprits ...*party.ID) *Error
}
