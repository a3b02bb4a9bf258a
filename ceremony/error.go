// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ceremony

import (
	"fmt"

	"github.com/chainbridge-relay/engine/party"
)

// FailureReason classifies why a ceremony aborted, carried alongside the
// culprit set an observer reports on-chain (spec.md §4.7). Every reason is
// defined here; the stage-specific packages (keygen, signing) attach one of
// them to an Error via WithReason.
type FailureReason string

const (
	ReasonUnknown                     FailureReason = "unknown"
	ReasonTimeout                     FailureReason = "timeout"
	ReasonInvalidZKP                  FailureReason = "invalid_zkp"
	ReasonInvalidHashCommitment       FailureReason = "invalid_hash_commitment"
	ReasonInsufficientMessages        FailureReason = "insufficient_messages"
	ReasonInconsistentBroadcast       FailureReason = "inconsistent_broadcast"
	ReasonHighDegreeCoefficientIsZero FailureReason = "high_degree_coefficient_is_zero"
	ReasonInvalidShare                FailureReason = "invalid_share"
	ReasonInvalidLocalSig             FailureReason = "invalid_local_sig"
	ReasonIncompatiblePubKey          FailureReason = "incompatible_pub_key"
	ReasonResharingCommitmentMismatch FailureReason = "resharing_commitment_mismatch"
)

// Error is a ceremony-stage failure with enough attribution to let the
// caller blame specific participants, generalised from the ceremony
// library's tss.Error (v2/tss/error.go) with an added FailureReason.
type Error struct {
	cause    error
	reason   FailureReason
	task     string
	stage    int
	victim   *party.ID
	culprits []*party.ID
}

func NewError(err error, task string, stage int, victim *party.ID, culprits ...*party.ID) *Error {
	return &Error{cause: err, reason: ReasonUnknown, task: task, stage: stage, victim: victim, culprits: culprits}
}

func (e *Error) WithReason(reason FailureReason) *Error {
	e.reason = reason
	return e
}

func (e *Error) Unwrap() error         { return e.cause }
func (e *Error) Cause() error          { return e.cause }
func (e *Error) Reason() FailureReason { return e.reason }
func (e *Error) Task() string          { return e.task }
func (e *Error) Stage() int            { return e.stage }
func (e *Error) Victim() *party.ID     { return e.victim }
func (e *Error) Culprits() []*party.ID { return e.culprits }

func (e *Error) Error() string {
	if e == nil || e.cause == nil {
		return "ceremony: nil error"
	}
	if len(e.culprits) > 0 {
		return fmt.Sprintf("task %s, party %v, stage %d, reason %s, culprits %v: %s",
			e.task, e.victim, e.stage, e.reason, e.culprits, e.cause.Error())
	}
	return fmt.Sprintf("task %s, party %v, stage %d, reason %s: %s",
		e.task, e.victim, e.stage, e.reason, e.cause.Error())
}
