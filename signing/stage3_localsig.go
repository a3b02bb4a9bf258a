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

// stage3LocalSig computes this party's signature share. It first derives
// every signer's binding value rho_j, the group nonce commitment
// R = sum_j (D_j + rho_j*E_j) and the Schnorr challenge c = H(R, Y, payload)
// from the (now-verified-unanimous) stage1/2 commitments, storing them in
// temp so StoreMessage can immediately verify any other signer's z_j as it
// arrives, then broadcasts its own z_i = d_i + rho_i*e_i + lambda_i*x_i*c
// (spec.md §4.4 stage 3).
type stage3LocalSig struct {
	*base
}

var _ ceremony.Stage = (*stage3LocalSig)(nil)

func (s *stage3LocalSig) StageNumber() int { return 3 }

func (s *stage3LocalSig) Start() *ceremony.Error {
	scheme, ok := crypto.GetScheme(s.data.SchemeName)
	if !ok {
		return s.WrapError(errUnknownScheme)
	}

	signerIdxs := s.signerIndexes()

	rho := make(map[int]*big.Int, len(s.temp.commits))
	modQ := common.ModInt(scheme.Order())
	r := crypto.Infinity(scheme.Curve())
	for idx := range s.temp.commits {
		rho[idx] = bindingValue(scheme, big.NewInt(int64(idx)), s.payload, s.temp.commits, signerIdxs)
	}
	for _, idxBig := range signerIdxs {
		idx := int(idxBig.Int64())
		c := s.temp.commits[idx]
		term, err := c.D.Add(c.E.ScalarMult(rho[idx]))
		if err != nil {
			return s.WrapError(err)
		}
		var addErr error
		r, addErr = r.Add(term)
		if addErr != nil {
			return s.WrapError(addErr)
		}
	}
	s.temp.rho = rho
	s.temp.groupComm = r

	c := schnorrChallenge(scheme, r, s.keyData.PubKey, s.payload)
	s.temp.challenge = c

	ownIdx := s.params.PartyID().Index
	lambda, err := crypto.LagrangeCoefficient(scheme, big.NewInt(int64(ownIdx)), signerIdxs)
	if err != nil {
		return s.WrapError(err)
	}

	z := modQ.Add(s.temp.d, modQ.Mul(rho[ownIdx], s.temp.e))
	z = modQ.Add(z, modQ.Mul(modQ.Mul(lambda, s.keyData.Xi), c))

	common.Zeroize(s.temp.d)
	common.Zeroize(s.temp.e)

	msg, err2 := ceremony.NewMessage(ceremony.Routing{From: s.params.PartyID(), IsBroadcast: true},
		"signing.LocalSigMessage", &LocalSigMessage{Z: z})
	if err2 != nil {
		return s.WrapError(err2)
	}
	s.out <- msg

	if s.temp.zs == nil {
		s.temp.zs = make(map[int]*big.Int, s.params.PartyCount())
	}
	s.temp.zs[ownIdx] = z
	return nil
}

func (s *stage3LocalSig) CanAccept(msg ceremony.Message) bool {
	_, ok := msg.Content().(*LocalSigMessage)
	return ok && msg.IsBroadcast()
}

func (s *stage3LocalSig) Update() (bool, *ceremony.Error) { return true, nil }

func (s *stage3LocalSig) CanProceed() bool {
	return len(s.temp.zs) == s.params.PartyCount()
}

func (s *stage3LocalSig) NextStage() ceremony.Stage {
	return &stage4VerifyLocalSig{base: s.base}
}

func (s *stage3LocalSig) WaitingFor() []*party.ID {
	return missingFrom(s.params, s.temp.zs)
}
