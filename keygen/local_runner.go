// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"fmt"
	"math/big"
	"time"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/crypto/schnorr"
	"github.com/chainbridge-relay/engine/crypto/vss"
	"github.com/chainbridge-relay/engine/party"
)

// StageTimeout is the deadline Authorise arms for the DKG (spec.md §4.5).
// It is armed once and not re-armed as later stages start, so it bounds all
// seven stages together before CheckTimeout declares the ceremony failed.
const StageTimeout = 30 * time.Second

// LocalRunner drives one party's seven-stage DKG (spec.md §4.3) through to a
// KeygenResult, generalising the ceremony library's LocalParty
// (keygen/local_party.go). StoreMessage is where the teacher's per-round
// ProcessMessage handlers lived: it is the single place every incoming
// hash-commitment and Schnorr proof is checked. The stage types themselves
// (stage1..stage7) gate completeness and polynomial shape; beyond that,
// stage4 cross-checks a resharing party's a_0 commitment and stage6 checks
// each received secret share against its sender's commitments.
type LocalRunner struct {
	ceremony.BaseRunner
	*base
}

var _ ceremony.Runner = (*LocalRunner)(nil)

// NewLocalRunner constructs a runner for a genesis (non-resharing) keygen
// ceremony against the named scheme. ctx binds every Schnorr proof to this
// ceremony so a proof collected here can never be replayed into another
// ceremony or misattributed to a different participant (spec.md §3).
func NewLocalRunner(params *party.Params, schemeName crypto.SchemeName, ctx []byte, out chan<- ceremony.Message, end chan<- *KeygenResult) (*LocalRunner, error) {
	if _, ok := crypto.GetScheme(schemeName); !ok {
		return nil, fmt.Errorf("keygen: unregistered scheme %q", schemeName)
	}
	b := &base{
		params: params,
		ctx:    ctx,
		temp:   &localTempData{},
		data: &KeygenResult{
			SchemeName: schemeName,
			Threshold:  params.Threshold(),
			PartyIDs:   params.Parties().IDs(),
		},
		out: out,
		end: end,
	}
	r := &LocalRunner{base: b}
	r.FirstStg = &stage1HashComm{base: b}
	return r, nil
}

// Authorise arms the ceremony's first stage, the point at which the local
// operator confirms the participant set and the ceremony starts accepting
// messages (spec.md §4.5).
func (r *LocalRunner) Authorise(prepare ...func(ceremony.Stage) *ceremony.Error) *ceremony.Error {
	return ceremony.BaseAuthorise(r, "keygen", StageTimeout, prepare...)
}

// Update feeds a received message into the ceremony.
func (r *LocalRunner) Update(msg ceremony.Message) (bool, *ceremony.Error) {
	return ceremony.BaseUpdate(r, msg, "keygen")
}

// WrapError disambiguates the WrapError promoted from both BaseRunner (which
// attributes to the current stage) and base (which attributes to the local
// party directly); the stage-aware version is the more informative one.
func (r *LocalRunner) WrapError(err error, culprits ...*party.ID) *ceremony.Error {
	return r.BaseRunner.WrapError(err, culprits...)
}

// StoreMessage records an incoming message's content into temp, performing
// every cryptographic check that must happen before a stage can treat the
// message as received: the hash-commitment recheck and Schnorr proof
// verification for CoeffCommitMessage in particular, mirroring the
// validation the teacher's round_2.go/round_3.go ProcessMessage handlers
// performed inline.
func (r *LocalRunner) StoreMessage(msg ceremony.Message) (bool, *ceremony.Error) {
	from := msg.GetFrom()
	fromIdx := from.Index

	scheme, ok := crypto.GetScheme(r.data.SchemeName)
	if !ok {
		return false, r.WrapError(errUnknownScheme)
	}

	switch content := msg.Content().(type) {

	case *HashCommitMessage:
		if r.temp.hashCommits == nil {
			r.temp.hashCommits = make(map[int]*big.Int, r.params.PartyCount())
		}
		if _, dup := r.temp.hashCommits[fromIdx]; dup {
			return false, nil
		}
		r.temp.hashCommits[fromIdx] = content.Commitment
		return true, nil

	case *CoeffCommitMessage:
		if _, dup := r.temp.vs[fromIdx]; dup {
			return false, nil
		}
		expected, known := r.temp.hashCommits[fromIdx]
		if !known {
			return false, r.WrapError(fmt.Errorf("party %d decommitted before broadcasting a hash commitment", fromIdx), from).
				WithReason(ceremony.ReasonInconsistentBroadcast)
		}

		parts := append([]*big.Int{content.Blinding, content.ProofT}, content.VsFlat...)
		if blake2bCommitmentOf(parts).Cmp(expected) != 0 {
			return false, r.WrapError(fmt.Errorf("party %d's decommitment does not match its stage1 hash commitment", fromIdx), from).
				WithReason(ceremony.ReasonInvalidHashCommitment)
		}

		points, err := crypto.UnflattenPoints(scheme.Curve(), content.VsFlat, false)
		if err != nil {
			return false, r.WrapError(fmt.Errorf("party %d published a malformed commitment vector: %w", fromIdx, err), from).
				WithReason(ceremony.ReasonInvalidHashCommitment)
		}
		alpha, err := crypto.PointFromBytes(scheme.Curve(), content.ProofA)
		if err != nil {
			return false, r.WrapError(fmt.Errorf("party %d published a malformed Schnorr proof: %w", fromIdx, err), from).
				WithReason(ceremony.ReasonInvalidZKP)
		}
		proof := &schnorr.ZKProof{Alpha: alpha, T: content.ProofT}
		if !proof.Verify(scheme, points[0], big.NewInt(int64(fromIdx)), r.ctx) {
			return false, r.WrapError(fmt.Errorf("party %d's Schnorr proof of knowledge of a_0 failed to verify", fromIdx), from).
				WithReason(ceremony.ReasonInvalidZKP)
		}

		if r.temp.vs == nil {
			r.temp.vs = make(map[int]vss.Vs, r.params.PartyCount())
		}
		if r.temp.proofs == nil {
			r.temp.proofs = make(map[int]*schnorr.ZKProof, r.params.PartyCount())
		}
		r.temp.vs[fromIdx] = vss.Vs(points)
		r.temp.proofs[fromIdx] = proof
		return true, nil

	case *SecretShareMessage:
		if r.temp.shares == nil {
			r.temp.shares = make(map[int]*vss.Share, r.params.PartyCount())
		}
		if _, dup := r.temp.shares[fromIdx]; dup {
			return false, nil
		}
		r.temp.shares[fromIdx] = &vss.Share{
			Threshold: r.params.Threshold(),
			ID:        big.NewInt(int64(r.params.PartyID().Index)),
			Share:     content.Share,
		}
		return true, nil

	case *ComplaintsMessage:
		if r.temp.complaints == nil {
			r.temp.complaints = make(map[int][]int, r.params.PartyCount())
		}
		if _, dup := r.temp.complaints[fromIdx]; dup {
			return false, nil
		}
		r.temp.complaints[fromIdx] = content.Accused
		return true, nil

	case *EchoHashCommitsMessage:
		if r.temp.hashEchoesFrom[fromIdx] {
			return false, nil
		}
		if err := checkEchoUnanimous(r, content.Values, from); err != nil {
			return false, err
		}
		if r.temp.hashEchoesFrom == nil {
			r.temp.hashEchoesFrom = make(map[int]bool, r.params.PartyCount())
		}
		r.temp.hashEchoesFrom[fromIdx] = true
		return true, nil

	case *EchoCoeffCommitMessage:
		if r.temp.coeffEchoesFrom[fromIdx] {
			return false, nil
		}
		if err := checkEchoUnanimous(r, content.Values, from); err != nil {
			return false, err
		}
		if r.temp.coeffEchoesFrom == nil {
			r.temp.coeffEchoesFrom = make(map[int]bool, r.params.PartyCount())
		}
		r.temp.coeffEchoesFrom[fromIdx] = true
		return true, nil

	default:
		return false, r.WrapError(fmt.Errorf("unexpected message content type %T", content))
	}
}

// checkEchoUnanimous compares an echoer's reported view of every sender's
// hash commitment against our own, blaming whichever sender the echoer
// disagrees with us about. A stage2/stage4 echo round exists precisely to
// surface this: a malicious sender can tell two recipients two different
// values for what claims to be the same broadcast, and the hash-commitment
// binding alone never detects that divergence (spec.md §4.3 stages 2, 4).
func checkEchoUnanimous(r *LocalRunner, view map[int]*big.Int, echoer *party.ID) *ceremony.Error {
	for idx, v := range view {
		ours, known := r.temp.hashCommits[idx]
		if !known || ours.Cmp(v) != 0 {
			var culprit *party.ID
			for _, pid := range r.params.Parties().IDs() {
				if pid.Index == idx {
					culprit = pid
					break
				}
			}
			culprits := []*party.ID{echoer}
			if culprit != nil {
				culprits = append(culprits, culprit)
			}
			return r.WrapError(fmt.Errorf("party %s reported a different hash commitment for party %d than we received", echoer, idx), culprits...).
				WithReason(ceremony.ReasonInconsistentBroadcast)
		}
	}
	return nil
}
