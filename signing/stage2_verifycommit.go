// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package signing

import (
	"math/big"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/party"
)

// stage2VerifyCommit re-broadcasts every nonce commitment this party
// received in stage1, catching a sender who told two recipients two
// different commitments for what was supposed to be the same broadcast
// (spec.md §4.4 stage 2).
type stage2VerifyCommit struct {
	*base
}

var _ ceremony.Stage = (*stage2VerifyCommit)(nil)

func (s *stage2VerifyCommit) StageNumber() int { return 2 }

func (s *stage2VerifyCommit) Start() *ceremony.Error {
	dView := make(map[int][]*big.Int, len(s.temp.commits))
	eView := make(map[int][]*big.Int, len(s.temp.commits))
	for idx, c := range s.temp.commits {
		dFlat, err := crypto.FlattenPoints([]*crypto.Point{c.D})
		if err != nil {
			return s.WrapError(err)
		}
		eFlat, err := crypto.FlattenPoints([]*crypto.Point{c.E})
		if err != nil {
			return s.WrapError(err)
		}
		dView[idx] = dFlat
		eView[idx] = eFlat
	}

	msg, err := ceremony.NewMessage(ceremony.Routing{From: s.params.PartyID(), IsBroadcast: true},
		"signing.EchoCommitMessage", &EchoCommitMessage{DFlat: dView, EFlat: eView})
	if err != nil {
		return s.WrapError(err)
	}
	s.out <- msg

	if s.temp.commitEchoesFrom == nil {
		s.temp.commitEchoesFrom = make(map[int]bool, s.params.PartyCount())
	}
	s.temp.commitEchoesFrom[s.params.PartyID().Index] = true
	return nil
}

func (s *stage2VerifyCommit) CanAccept(msg ceremony.Message) bool {
	_, ok := msg.Content().(*EchoCommitMessage)
	return ok && msg.IsBroadcast()
}

func (s *stage2VerifyCommit) Update() (bool, *ceremony.Error) { return true, nil }

func (s *stage2VerifyCommit) CanProceed() bool {
	return len(s.temp.commitEchoesFrom) == s.params.PartyCount()
}

func (s *stage2VerifyCommit) NextStage() ceremony.Stage {
	return &stage3LocalSig{base: s.base}
}

func (s *stage2VerifyCommit) WaitingFor() []*party.ID {
	var missing []*party.ID
	for _, pid := range s.params.Parties().IDs() {
		if !s.temp.commitEchoesFrom[pid.Index] {
			missing = append(missing, pid)
		}
	}
	return missing
}
