// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package signing

import (
	"math/big"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/common"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/party"
)

// stage4VerifyLocalSig re-broadcasts every local signature share this party
// received in stage3, the equivocation check for the final round; once
// every echo is in (every z_i having already passed StoreMessage's
// per-share verification), it sums the shares into the final aggregated
// signature and hands the result off on the end channel (spec.md §4.4
// stage 4). There is no separate fifth stage: aggregation happens as soon
// as the echo round completes, in Update rather than Start, since Start
// runs once on stage entry, before any echoes have arrived.
type stage4VerifyLocalSig struct {
	*base
	done bool
}

var _ ceremony.Stage = (*stage4VerifyLocalSig)(nil)

func (s *stage4VerifyLocalSig) StageNumber() int { return 4 }

func (s *stage4VerifyLocalSig) Start() *ceremony.Error {
	ourView := make(map[int]*big.Int, len(s.temp.zs))
	for idx, z := range s.temp.zs {
		ourView[idx] = z
	}

	msg, err := ceremony.NewMessage(ceremony.Routing{From: s.params.PartyID(), IsBroadcast: true},
		"signing.EchoLocalSigMessage", &EchoLocalSigMessage{Values: ourView})
	if err != nil {
		return s.WrapError(err)
	}
	s.out <- msg

	if s.temp.sigEchoesFrom == nil {
		s.temp.sigEchoesFrom = make(map[int]bool, s.params.PartyCount())
	}
	s.temp.sigEchoesFrom[s.params.PartyID().Index] = true
	return nil
}

func (s *stage4VerifyLocalSig) CanAccept(msg ceremony.Message) bool {
	_, ok := msg.Content().(*EchoLocalSigMessage)
	return ok && msg.IsBroadcast()
}

func (s *stage4VerifyLocalSig) Update() (bool, *ceremony.Error) {
	if s.done || len(s.temp.sigEchoesFrom) != s.params.PartyCount() {
		return true, nil
	}

	scheme, ok := crypto.GetScheme(s.data.SchemeName)
	if !ok {
		return false, s.WrapError(errUnknownScheme)
	}
	modQ := common.ModInt(scheme.Order())
	z := big.NewInt(0)
	for _, zi := range s.temp.zs {
		z = modQ.Add(z, zi)
	}

	s.data.Payload = s.payload
	s.data.R = s.temp.groupComm
	s.data.Z = z
	s.end <- s.data
	s.done = true
	return true, nil
}

func (s *stage4VerifyLocalSig) CanProceed() bool { return s.done }

// NextStage returns nil: BaseUpdate treats a nil next stage as ceremony
// completion (see ceremony/runner.go's BaseUpdate).
func (s *stage4VerifyLocalSig) NextStage() ceremony.Stage { return nil }

func (s *stage4VerifyLocalSig) WaitingFor() []*party.ID {
	var missing []*party.ID
	for _, pid := range s.params.Parties().IDs() {
		if !s.temp.sigEchoesFrom[pid.Index] {
			missing = append(missing, pid)
		}
	}
	return missing
}
