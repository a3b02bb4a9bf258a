// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"math/big"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/common"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/crypto/commitments"
	"github.com/chainbridge-relay/engine/crypto/schnorr"
	"github.com/chainbridge-relay/engine/crypto/vss"
	"github.com/chainbridge-relay/engine/party"
)

// stage1HashComm samples this party's secret-sharing polynomial and
// broadcasts a hiding commitment to its coefficient commitments and Schnorr
// proof, so no later-speaking party can bias their own polynomial after
// seeing others' (spec.md §4.3).
type stage1HashComm struct {
	*base
}

var _ ceremony.Stage = (*stage1HashComm)(nil)

func (s *stage1HashComm) StageNumber() int { return 1 }

func (s *stage1HashComm) Start() *ceremony.Error {
	scheme, ok := crypto.GetScheme(s.data.SchemeName)
	if !ok {
		return s.WrapError(errUnknownScheme)
	}

	secret := s.initialSecret(scheme)
	threshold := s.params.Threshold()
	poly := crypto.SamplePolynomial(scheme, threshold, secret)
	s.temp.poly = poly

	idx := big.NewInt(int64(s.params.PartyID().Index))
	a0X := poly.Commitments()[0]
	proof, err := schnorr.NewZKProof(scheme, poly.Coefficient(0), a0X, idx, s.ctx)
	if err != nil {
		return s.WrapError(err)
	}

	vsFlat, err := crypto.FlattenPoints(vss.Vs(poly.Commitments()))
	if err != nil {
		return s.WrapError(err)
	}
	blinding := common.MustGetRandomInt(commitments.HashLength)
	parts := append([]*big.Int{blinding, proof.T}, vsFlat...)
	cmt := blake2bCommitmentOf(parts)

	s.temp.ourDecommit = &ourDecommitment{blinding: blinding, vs: vss.Vs(poly.Commitments()), proof: proof}

	msg, err := ceremony.NewMessage(ceremony.Routing{From: s.params.PartyID(), IsBroadcast: true},
		"keygen.HashCommitMessage", &HashCommitMessage{Commitment: cmt})
	if err != nil {
		return s.WrapError(err)
	}
	s.out <- msg

	if s.temp.hashCommits == nil {
		s.temp.hashCommits = make(map[int]*big.Int, s.params.PartyCount())
	}
	s.temp.hashCommits[s.params.PartyID().Index] = cmt
	return nil
}

func (s *stage1HashComm) CanAccept(msg ceremony.Message) bool {
	_, ok := msg.Content().(*HashCommitMessage)
	return ok && msg.IsBroadcast()
}

func (s *stage1HashComm) Update() (bool, *ceremony.Error) {
	return true, nil
}

func (s *stage1HashComm) CanProceed() bool {
	return len(s.temp.hashCommits) == s.params.PartyCount()
}

func (s *stage1HashComm) NextStage() ceremony.Stage {
	return &stage2VerifyHash{base: s.base}
}

func (s *stage1HashComm) WaitingFor() []*party.ID {
	return missingFrom(s.params, s.temp.hashCommits)
}

// initialSecret picks this party's polynomial constant term a_0: a fresh
// random secret for genesis keygen, or per spec.md §4.3 "Resharing" the
// Lagrange-scaled old share (sharing parties) or zero (receiving parties)
// so that summing every a_0 across the committee reproduces the existing
// aggregate key rather than a brand new one.
func (s *stage1HashComm) initialSecret(scheme crypto.Scheme) *big.Int {
	if s.reshare == nil {
		return common.GetRandomPositiveInt(scheme.Order())
	}
	switch s.reshare.Role {
	case ReshareRoleReceiving:
		return big.NewInt(0)
	default: // ReshareRoleSharing
		ourID := s.params.PartyID().Id
		lambda := s.reshare.OldLagrange[ourID]
		modQ := common.ModInt(scheme.Order())
		return modQ.Mul(lambda, s.reshare.OldShare)
	}
}

func blake2bCommitmentOf(parts []*big.Int) *big.Int {
	bz := make([][]byte, len(parts))
	for i, p := range parts {
		bz[i] = p.Bytes()
	}
	return new(big.Int).SetBytes(common.Blake2b256(bz...))
}
