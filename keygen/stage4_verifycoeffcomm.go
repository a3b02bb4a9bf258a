// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"fmt"
	"math/big"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/party"
)

// stage4VerifyCoeffComm waits for every decommitment to have passed the
// hash-commitment and Schnorr-proof checks applied at message-store time
// (see local_runner.go's StoreMessage), rejects any polynomial whose
// high-degree coefficient is the identity point (that would silently lower
// the polynomial's effective degree below the stated threshold, weakening
// the ceremony below what it advertises), then re-broadcasts the hash
// commitments once more so an equivocating decommit, not just an
// equivocating commitment, is caught (spec.md §4.3 stage 4).
type stage4VerifyCoeffComm struct {
	*base
}

var _ ceremony.Stage = (*stage4VerifyCoeffComm)(nil)

func (s *stage4VerifyCoeffComm) StageNumber() int { return 4 }

func (s *stage4VerifyCoeffComm) Start() *ceremony.Error {
	threshold := s.params.Threshold()
	for idx, vs := range s.temp.vs {
		top := vs[len(vs)-1]
		if top.IsIdentity() {
			for _, pid := range s.params.Parties().IDs() {
				if pid.Index == idx {
					return s.WrapError(fmt.Errorf("party %d published a zero high-degree coefficient", idx), pid).
						WithReason(ceremony.ReasonHighDegreeCoefficientIsZero)
				}
			}
		}
		if len(vs) != threshold+1 {
			return s.WrapError(fmt.Errorf("party %d published a commitment vector of the wrong degree", idx)).
				WithReason(ceremony.ReasonInvalidHashCommitment)
		}
	}

	if s.reshare != nil {
		if cerr := s.checkResharingCommitments(); cerr != nil {
			return cerr
		}
	}

	ourView := make(map[int]*big.Int, len(s.temp.hashCommits))
	for idx, h := range s.temp.hashCommits {
		ourView[idx] = h
	}
	msg, err := ceremony.NewMessage(ceremony.Routing{From: s.params.PartyID(), IsBroadcast: true},
		"keygen.EchoCoeffCommitMessage", &EchoCoeffCommitMessage{Values: ourView})
	if err != nil {
		return s.WrapError(err)
	}
	s.out <- msg

	if s.temp.coeffEchoesFrom == nil {
		s.temp.coeffEchoesFrom = make(map[int]bool, s.params.PartyCount())
	}
	s.temp.coeffEchoesFrom[s.params.PartyID().Index] = true
	return nil
}

func (s *stage4VerifyCoeffComm) CanAccept(msg ceremony.Message) bool {
	_, ok := msg.Content().(*EchoCoeffCommitMessage)
	return ok && msg.IsBroadcast()
}

func (s *stage4VerifyCoeffComm) Update() (bool, *ceremony.Error) { return true, nil }

func (s *stage4VerifyCoeffComm) CanProceed() bool {
	return len(s.temp.coeffEchoesFrom) == s.params.PartyCount()
}

func (s *stage4VerifyCoeffComm) NextStage() ceremony.Stage {
	return &stage5SecretShare{base: s.base}
}

// checkResharingCommitments verifies that every sharing party's revealed
// a_0 commitment equals lambda_i * Y_i^old, the public share it already
// committed to under the existing key (spec.md §4.3 "Commitment validation
// additionally checks that each sharing party's first commitment matches
// the previously-known scaled public share"). A sharing party that deviates
// here is trying to fold in a different secret than the one it actually
// holds, which the hash-commitment/Schnorr-proof checks in StoreMessage
// cannot catch on their own since they only prove self-consistency, not
// consistency with a prior ceremony.
func (s *stage4VerifyCoeffComm) checkResharingCommitments() *ceremony.Error {
	for _, sharer := range s.reshare.Sharers {
		vs, ok := s.temp.vs[sharer.Index]
		if !ok {
			continue // missing sender is handled by the stage's completeness gate
		}
		pub, ok := s.reshare.OldPublicShares[sharer.Id]
		if !ok {
			continue
		}
		lambda, ok := s.reshare.OldLagrange[sharer.Id]
		if !ok {
			continue
		}
		expected := pub.ScalarMult(lambda)
		if !vs[0].Equals(expected) {
			return s.WrapError(fmt.Errorf("sharing party %s revealed a commitment inconsistent with its existing public share", sharer), sharer).
				WithReason(ceremony.ReasonResharingCommitmentMismatch)
		}
	}
	return nil
}

func (s *stage4VerifyCoeffComm) WaitingFor() []*party.ID {
	var missing []*party.ID
	for _, pid := range s.params.Parties().IDs() {
		if !s.temp.coeffEchoesFrom[pid.Index] {
			missing = append(missing, pid)
		}
	}
	return missing
}
