// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"math/big"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/crypto/vss"
	"github.com/chainbridge-relay/engine/party"
)

// stage5SecretShare privately sends each other party its evaluation of this
// party's polynomial, f_i(j). Unlike the first four stages, these messages
// are not broadcast: a share only ever needs to reach its one intended
// recipient (spec.md §4.3).
type stage5SecretShare struct {
	*base
}

var _ ceremony.Stage = (*stage5SecretShare)(nil)

func (s *stage5SecretShare) StageNumber() int { return 5 }

func (s *stage5SecretShare) Start() *ceremony.Error {
	ourIdx := s.params.PartyID().Index
	for _, pid := range s.params.Parties().IDs() {
		fOfJ := s.temp.poly.Evaluate(big.NewInt(int64(pid.Index)))
		if pid.Index == ourIdx {
			if s.temp.shares == nil {
				s.temp.shares = make(map[int]*vss.Share, s.params.PartyCount())
			}
			s.temp.shares[ourIdx] = &vss.Share{Threshold: s.params.Threshold(), ID: big.NewInt(int64(ourIdx)), Share: fOfJ}
			continue
		}
		msg, err := ceremony.NewMessage(ceremony.Routing{From: s.params.PartyID(), To: []*party.ID{pid}},
			"keygen.SecretShareMessage", &SecretShareMessage{Share: fOfJ})
		if err != nil {
			return s.WrapError(err)
		}
		s.out <- msg
	}
	return nil
}

func (s *stage5SecretShare) CanAccept(msg ceremony.Message) bool {
	_, ok := msg.Content().(*SecretShareMessage)
	return ok && !msg.IsBroadcast()
}

func (s *stage5SecretShare) Update() (bool, *ceremony.Error) { return true, nil }

func (s *stage5SecretShare) CanProceed() bool {
	return len(s.temp.shares) == s.params.PartyCount()
}

func (s *stage5SecretShare) NextStage() ceremony.Stage {
	return &stage6Complaints{base: s.base}
}

func (s *stage5SecretShare) WaitingFor() []*party.ID {
	return missingFrom(s.params, s.temp.shares)
}
