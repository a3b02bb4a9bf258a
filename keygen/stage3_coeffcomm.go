// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/crypto/schnorr"
	"github.com/chainbridge-relay/engine/crypto/vss"
	"github.com/chainbridge-relay/engine/party"
)

// stage3CoeffComm decommits the round-1 hash commitment: it broadcasts the
// polynomial commitment vector, the Schnorr proof, and the blinding factor
// the receiver needs to re-derive and check the stage1 hash.
type stage3CoeffComm struct {
	*base
}

var _ ceremony.Stage = (*stage3CoeffComm)(nil)

func (s *stage3CoeffComm) StageNumber() int { return 3 }

func (s *stage3CoeffComm) Start() *ceremony.Error {
	d := s.temp.ourDecommit
	vsFlat, err := crypto.FlattenPoints(d.vs)
	if err != nil {
		return s.WrapError(err)
	}

	msg, err := ceremony.NewMessage(ceremony.Routing{From: s.params.PartyID(), IsBroadcast: true},
		"keygen.CoeffCommitMessage", &CoeffCommitMessage{
			Blinding: d.blinding,
			VsFlat:   vsFlat,
			ProofA:   d.proof.Alpha.Bytes(),
			ProofT:   d.proof.T,
		})
	if err != nil {
		return s.WrapError(err)
	}
	s.out <- msg

	ourIdx := s.params.PartyID().Index
	if s.temp.vs == nil {
		s.temp.vs = make(map[int]vss.Vs, s.params.PartyCount())
	}
	if s.temp.proofs == nil {
		s.temp.proofs = make(map[int]*schnorr.ZKProof, s.params.PartyCount())
	}
	s.temp.vs[ourIdx] = d.vs
	s.temp.proofs[ourIdx] = d.proof
	return nil
}

func (s *stage3CoeffComm) CanAccept(msg ceremony.Message) bool {
	_, ok := msg.Content().(*CoeffCommitMessage)
	return ok && msg.IsBroadcast()
}

func (s *stage3CoeffComm) Update() (bool, *ceremony.Error) { return true, nil }

func (s *stage3CoeffComm) CanProceed() bool {
	return len(s.temp.vs) == s.params.PartyCount()
}

func (s *stage3CoeffComm) NextStage() ceremony.Stage {
	return &stage4VerifyCoeffComm{base: s.base}
}

func (s *stage3CoeffComm) WaitingFor() []*party.ID {
	return missingFrom(s.params, s.temp.vs)
}
