// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package signing

import (
	"fmt"
	"math/big"
	"time"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/common"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/keygen"
	"github.com/chainbridge-relay/engine/party"
)

// StageTimeout is the deadline Authorise arms for the signing ceremony
// (spec.md §4.5). It is armed once and not re-armed as later stages start,
// so it bounds all four stages together before CheckTimeout declares the
// ceremony failed. It is shorter than keygen's since FROST signing does no
// per-receiver share verification fan-out.
const StageTimeout = 15 * time.Second

// LocalRunner drives one party's four-stage FROST signing ceremony
// (spec.md §4.4) against a key produced by a prior keygen ceremony. Like
// keygen's LocalRunner, all cryptographic verification of an incoming
// message lives in StoreMessage; stage structs only gate completeness.
type LocalRunner struct {
	ceremony.BaseRunner
	*base
}

var _ ceremony.Runner = (*LocalRunner)(nil)

// NewLocalRunner constructs a runner that signs payload using keyData,
// against the signing subset given by params.Parties() (which must number
// at least keyData.Threshold+1, spec.md §8 "n = t+1 boundary"). ctx binds
// every binding-value hash to this ceremony.
func NewLocalRunner(params *party.Params, keyData *keygen.KeygenResult, payload []byte, ctx []byte, out chan<- ceremony.Message, end chan<- *SigningResult) (*LocalRunner, error) {
	scheme, ok := crypto.GetScheme(keyData.SchemeName)
	if !ok {
		return nil, fmt.Errorf("signing: unregistered scheme %q", keyData.SchemeName)
	}
	if params.PartyCount() < keyData.Threshold+1 {
		return nil, fmt.Errorf("signing: signing subset of %d parties is below the threshold of %d+1", params.PartyCount(), keyData.Threshold)
	}
	b := &base{
		params:  params,
		ctx:     ctx,
		keyData: keyData,
		payload: scheme.PreparePayload(payload),
		temp:    &localTempData{},
		data: &SigningResult{
			SchemeName: keyData.SchemeName,
		},
		out: out,
		end: end,
	}
	r := &LocalRunner{base: b}
	r.FirstStg = &stage1Commit{base: b}
	return r, nil
}

// Authorise arms the ceremony's first stage.
func (r *LocalRunner) Authorise(prepare ...func(ceremony.Stage) *ceremony.Error) *ceremony.Error {
	return ceremony.BaseAuthorise(r, "signing", StageTimeout, prepare...)
}

// Update feeds a received message into the ceremony.
func (r *LocalRunner) Update(msg ceremony.Message) (bool, *ceremony.Error) {
	return ceremony.BaseUpdate(r, msg, "signing")
}

func (r *LocalRunner) WrapError(err error, culprits ...*party.ID) *ceremony.Error {
	return r.BaseRunner.WrapError(err, culprits...)
}

// StoreMessage records an incoming message's content into temp, performing
// every cryptographic check that must happen before a stage can treat the
// message as received.
func (r *LocalRunner) StoreMessage(msg ceremony.Message) (bool, *ceremony.Error) {
	from := msg.GetFrom()
	fromIdx := from.Index

	scheme, ok := crypto.GetScheme(r.data.SchemeName)
	if !ok {
		return false, r.WrapError(errUnknownScheme)
	}

	switch content := msg.Content().(type) {

	case *CommitMessage:
		if _, dup := r.temp.commits[fromIdx]; dup {
			return false, nil
		}
		d, err := crypto.UnflattenPoints(scheme.Curve(), content.DFlat, false)
		if err != nil {
			return false, r.WrapError(fmt.Errorf("party %d published a malformed D commitment: %w", fromIdx, err), from).
				WithReason(ceremony.ReasonInvalidZKP)
		}
		e, err := crypto.UnflattenPoints(scheme.Curve(), content.EFlat, false)
		if err != nil {
			return false, r.WrapError(fmt.Errorf("party %d published a malformed E commitment: %w", fromIdx, err), from).
				WithReason(ceremony.ReasonInvalidZKP)
		}
		if d[0].IsIdentity() || e[0].IsIdentity() {
			return false, r.WrapError(fmt.Errorf("party %d published an identity nonce commitment", fromIdx), from).
				WithReason(ceremony.ReasonInvalidZKP)
		}
		if r.temp.commits == nil {
			r.temp.commits = make(map[int]*commitPair, r.params.PartyCount())
		}
		r.temp.commits[fromIdx] = &commitPair{D: d[0], E: e[0]}
		return true, nil

	case *EchoCommitMessage:
		if r.temp.commitEchoesFrom[fromIdx] {
			return false, nil
		}
		if err := checkCommitEchoUnanimous(r, content, from); err != nil {
			return false, err
		}
		if r.temp.commitEchoesFrom == nil {
			r.temp.commitEchoesFrom = make(map[int]bool, r.params.PartyCount())
		}
		r.temp.commitEchoesFrom[fromIdx] = true
		return true, nil

	case *LocalSigMessage:
		if _, dup := r.temp.zs[fromIdx]; dup {
			return false, nil
		}
		if fromIdx != r.params.PartyID().Index {
			if err := r.verifyLocalSig(scheme, fromIdx, content.Z); err != nil {
				return false, err
			}
		}
		if r.temp.zs == nil {
			r.temp.zs = make(map[int]*big.Int, r.params.PartyCount())
		}
		r.temp.zs[fromIdx] = content.Z
		return true, nil

	case *EchoLocalSigMessage:
		if r.temp.sigEchoesFrom[fromIdx] {
			return false, nil
		}
		for idx, z := range content.Values {
			ours, known := r.temp.zs[idx]
			if !known || ours.Cmp(z) != 0 {
				culprits := []*party.ID{from}
				if culprit := idFor(r.params, idx); culprit != nil {
					culprits = append(culprits, culprit)
				}
				return false, r.WrapError(fmt.Errorf("party %s reported a different local signature for party %d than we received", from, idx), culprits...).
					WithReason(ceremony.ReasonInconsistentBroadcast)
			}
		}
		if r.temp.sigEchoesFrom == nil {
			r.temp.sigEchoesFrom = make(map[int]bool, r.params.PartyCount())
		}
		r.temp.sigEchoesFrom[fromIdx] = true
		return true, nil

	default:
		return false, r.WrapError(fmt.Errorf("unexpected message content type %T", content))
	}
}

// verifyLocalSig checks G*z_j ?= D_j + rho_j*E_j + lambda_j*Y_j*c against
// the binding values, group commitment and challenge computed during
// stage3's Start() (spec.md §4.4 stage 3 verification).
func (r *LocalRunner) verifyLocalSig(scheme crypto.Scheme, fromIdx int, z *big.Int) *ceremony.Error {
	culprit := idFor(r.params, fromIdx)
	c, known := r.temp.commits[fromIdx]
	if !known || r.temp.challenge == nil {
		return r.WrapError(fmt.Errorf("received local signature from party %d before stage3 state was ready", fromIdx), culprit).
			WithReason(ceremony.ReasonInvalidLocalSig)
	}
	rho, known := r.temp.rho[fromIdx]
	if !known {
		return r.WrapError(fmt.Errorf("no binding value computed for party %d", fromIdx), culprit).
			WithReason(ceremony.ReasonInvalidLocalSig)
	}
	yj, known := r.keyData.BigXj[fromIdx]
	if !known {
		return r.WrapError(fmt.Errorf("no public key share on record for party %d", fromIdx), culprit).
			WithReason(ceremony.ReasonInvalidLocalSig)
	}
	modQ := common.ModInt(scheme.Order())
	lambda, err := crypto.LagrangeCoefficient(scheme, big.NewInt(int64(fromIdx)), r.signerIndexes())
	if err != nil {
		return r.WrapError(err, culprit).WithReason(ceremony.ReasonInvalidLocalSig)
	}

	lhs := scheme.ScalarBaseMult(z)

	rhsTerm, err := c.D.Add(c.E.ScalarMult(rho))
	if err != nil {
		return r.WrapError(err, culprit).WithReason(ceremony.ReasonInvalidLocalSig)
	}
	rhsTerm, err = rhsTerm.Add(yj.ScalarMult(modQ.Mul(lambda, r.temp.challenge)))
	if err != nil {
		return r.WrapError(err, culprit).WithReason(ceremony.ReasonInvalidLocalSig)
	}

	if !lhs.Equals(rhsTerm) {
		return r.WrapError(fmt.Errorf("party %d's local signature share failed to verify", fromIdx), culprit).
			WithReason(ceremony.ReasonInvalidLocalSig)
	}
	return nil
}

func checkCommitEchoUnanimous(r *LocalRunner, content *EchoCommitMessage, echoer *party.ID) *ceremony.Error {
	for idx, dFlat := range content.DFlat {
		c, known := r.temp.commits[idx]
		if !known {
			continue
		}
		scheme, _ := crypto.GetScheme(r.data.SchemeName)
		d, err := crypto.UnflattenPoints(scheme.Curve(), dFlat, false)
		if err != nil || !d[0].Equals(c.D) {
			return mismatchErr(r, echoer, idx)
		}
		e, err := crypto.UnflattenPoints(scheme.Curve(), content.EFlat[idx], false)
		if err != nil || !e[0].Equals(c.E) {
			return mismatchErr(r, echoer, idx)
		}
	}
	return nil
}

func mismatchErr(r *LocalRunner, echoer *party.ID, idx int) *ceremony.Error {
	culprits := []*party.ID{echoer}
	if culprit := idFor(r.params, idx); culprit != nil {
		culprits = append(culprits, culprit)
	}
	return r.WrapError(fmt.Errorf("party %s reported a different nonce commitment for party %d than we received", echoer, idx), culprits...).
		WithReason(ceremony.ReasonInconsistentBroadcast)
}
