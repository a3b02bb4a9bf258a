// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"sort"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/party"
)

// stage6Complaints checks every received secret share against the sender's
// published commitment vector (Feldman's non-interactive verifiability) and
// broadcasts the list of senders whose share failed, possibly empty
// (spec.md §4.3). A party never needs to reveal why a share failed, only
// who sent it.
type stage6Complaints struct {
	*base
	accused []int
	done    bool
}

var _ ceremony.Stage = (*stage6Complaints)(nil)

func (s *stage6Complaints) StageNumber() int { return 6 }

func (s *stage6Complaints) Start() *ceremony.Error {
	scheme, ok := crypto.GetScheme(s.data.SchemeName)
	if !ok {
		return s.WrapError(errUnknownScheme)
	}

	var accused []int
	for idx, share := range s.temp.shares {
		vs, known := s.temp.vs[idx]
		if !known || !share.Verify(scheme, s.params.Threshold(), vs) {
			accused = append(accused, idx)
		}
	}
	sort.Ints(accused)
	s.accused = accused

	msg, err := ceremony.NewMessage(ceremony.Routing{From: s.params.PartyID(), IsBroadcast: true},
		"keygen.ComplaintsMessage", &ComplaintsMessage{Accused: accused})
	if err != nil {
		return s.WrapError(err)
	}
	s.out <- msg

	if s.temp.complaints == nil {
		s.temp.complaints = make(map[int][]int, s.params.PartyCount())
	}
	s.temp.complaints[s.params.PartyID().Index] = accused
	return nil
}

func (s *stage6Complaints) CanAccept(msg ceremony.Message) bool {
	_, ok := msg.Content().(*ComplaintsMessage)
	return ok && msg.IsBroadcast()
}

func (s *stage6Complaints) Update() (bool, *ceremony.Error) { return true, nil }

func (s *stage6Complaints) CanProceed() bool {
	return len(s.temp.complaints) == s.params.PartyCount()
}

func (s *stage6Complaints) NextStage() ceremony.Stage {
	return &stage7VerifyComplaints{base: s.base}
}

func (s *stage6Complaints) WaitingFor() []*party.ID {
	return missingFrom(s.params, s.temp.complaints)
}
