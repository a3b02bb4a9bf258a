// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"math/big"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/party"
)

// stage2VerifyHash re-broadcasts every hash commitment this party received
// in stage1, so that a sender who equivocated, telling two recipients two
// different commitments for what was supposed to be the same broadcast,
// gets caught here rather than only being caught indirectly much later
// (spec.md §4.3 stage 2). A hash commitment's binding property defends
// against a sender changing its mind after the fact; it does nothing to
// guarantee every recipient heard the same thing in the first place, which
// is what this echo round checks.
type stage2VerifyHash struct {
	*base
}

var _ ceremony.Stage = (*stage2VerifyHash)(nil)

func (s *stage2VerifyHash) StageNumber() int { return 2 }

func (s *stage2VerifyHash) Start() *ceremony.Error {
	ourView := make(map[int]*big.Int, len(s.temp.hashCommits))
	for idx, h := range s.temp.hashCommits {
		ourView[idx] = h
	}

	msg, err := ceremony.NewMessage(ceremony.Routing{From: s.params.PartyID(), IsBroadcast: true},
		"keygen.EchoHashCommitsMessage", &EchoHashCommitsMessage{Values: ourView})
	if err != nil {
		return s.WrapError(err)
	}
	s.out <- msg

	if s.temp.hashEchoesFrom == nil {
		s.temp.hashEchoesFrom = make(map[int]bool, s.params.PartyCount())
	}
	s.temp.hashEchoesFrom[s.params.PartyID().Index] = true
	return nil
}

func (s *stage2VerifyHash) CanAccept(msg ceremony.Message) bool {
	_, ok := msg.Content().(*EchoHashCommitsMessage)
	return ok && msg.IsBroadcast()
}

func (s *stage2VerifyHash) Update() (bool, *ceremony.Error) { return true, nil }

func (s *stage2VerifyHash) CanProceed() bool {
	return len(s.temp.hashEchoesFrom) == s.params.PartyCount()
}

func (s *stage2VerifyHash) NextStage() ceremony.Stage {
	return &stage3CoeffComm{base: s.base}
}

func (s *stage2VerifyHash) WaitingFor() []*party.ID {
	var missing []*party.ID
	for _, pid := range s.params.Parties().IDs() {
		if !s.temp.hashEchoesFrom[pid.Index] {
			missing = append(missing, pid)
		}
	}
	return missing
}
