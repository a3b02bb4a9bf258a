// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package signing

import (
	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/common"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/party"
)

// stage1Commit samples this party's two FROST nonces and broadcasts their
// public commitments (spec.md §4.4 stage 1). Two nonces, rather than one,
// are needed so the binding value computed in stage3 can mix every signer's
// pair into a single non-malleable per-signer coefficient.
type stage1Commit struct {
	*base
}

var _ ceremony.Stage = (*stage1Commit)(nil)

func (s *stage1Commit) StageNumber() int { return 1 }

func (s *stage1Commit) Start() *ceremony.Error {
	scheme, ok := crypto.GetScheme(s.data.SchemeName)
	if !ok {
		return s.WrapError(errUnknownScheme)
	}

	q := scheme.Order()
	d := common.GetRandomPositiveInt(q)
	e := common.GetRandomPositiveInt(q)
	s.temp.d, s.temp.e = d, e

	bigD := scheme.ScalarBaseMult(d)
	bigE := scheme.ScalarBaseMult(e)

	dFlat, err := crypto.FlattenPoints([]*crypto.Point{bigD})
	if err != nil {
		return s.WrapError(err)
	}
	eFlat, err := crypto.FlattenPoints([]*crypto.Point{bigE})
	if err != nil {
		return s.WrapError(err)
	}

	msg, err := ceremony.NewMessage(ceremony.Routing{From: s.params.PartyID(), IsBroadcast: true},
		"signing.CommitMessage", &CommitMessage{DFlat: dFlat, EFlat: eFlat})
	if err != nil {
		return s.WrapError(err)
	}
	s.out <- msg

	if s.temp.commits == nil {
		s.temp.commits = make(map[int]*commitPair, s.params.PartyCount())
	}
	s.temp.commits[s.params.PartyID().Index] = &commitPair{D: bigD, E: bigE}
	return nil
}

func (s *stage1Commit) CanAccept(msg ceremony.Message) bool {
	_, ok := msg.Content().(*CommitMessage)
	return ok && msg.IsBroadcast()
}

func (s *stage1Commit) Update() (bool, *ceremony.Error) { return true, nil }

func (s *stage1Commit) CanProceed() bool {
	return len(s.temp.commits) == s.params.PartyCount()
}

func (s *stage1Commit) NextStage() ceremony.Stage {
	return &stage2VerifyCommit{base: s.base}
}

func (s *stage1Commit) WaitingFor() []*party.ID {
	return missingFrom(s.params, s.temp.commits)
}
