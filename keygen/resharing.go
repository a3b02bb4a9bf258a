// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/party"
)

// ReshareRole distinguishes the two roles a participant plays in a
// resharing ceremony (spec.md §4.3 "Resharing"): a Sharing party already
// holds a share of the existing key and folds it into the new polynomial's
// constant term; a Receiving party holds no prior share and contributes
// zero, only picking up a fresh share of the same aggregate secret.
type ReshareRole int

const (
	ReshareRoleSharing ReshareRole = iota
	ReshareRoleReceiving
)

// ErrIncompatibleKey marks a resharing ceremony's aggregate public key as
// having failed the scheme's on-chain compatibility predicate. Per spec.md
// §9's Open Question, genesis keygen recovers by re-rolling with fresh
// randomness; a resharing ceremony instead surfaces this as a distinct,
// non-auto-retried outcome and leaves recovery to the surrounding
// key-rotation state machine, which this package does not implement.
var ErrIncompatibleKey = errors.New("keygen: resharing produced a public key incompatible with the scheme")

// ResharingContext carries everything a LocalRunner needs to run its stage1
// differently for a resharing ceremony, and everything stage4 needs to
// cross-check a sharing party's revealed commitment against the share it
// already publicly committed to under the prior key (spec.md §4.3
// "Commitment validation additionally checks...").
type ResharingContext struct {
	// Role is this local party's role in the ceremony.
	Role ReshareRole

	// OldShare is this party's secret share of the existing key. Required
	// (non-nil) when Role == ReshareRoleSharing; ignored otherwise.
	OldShare *big.Int

	// Sharers lists every participant (by their ID in the *combined*
	// old+new ceremony context) who is contributing an existing share,
	// i.e. every party whose Role is ReshareRoleSharing across the whole
	// committee, not just locally.
	Sharers party.SortedIDs

	// OldPublicShares maps a sharer's stable Id to its public key share
	// G*x_i under the *old* key, taken from the old ceremony's
	// KeygenResult.BigXj. Known to every resharing participant because
	// BigXj was published at the end of the prior ceremony.
	OldPublicShares map[string]*crypto.Point

	// OldLagrange maps a sharer's stable Id to its Lagrange coefficient
	// within the subset of old-committee members performing this reshare,
	// i.e. lambda_i in "a_0^(i) = lambda_i * x_i^old" (spec.md §4.3).
	OldLagrange map[string]*big.Int
}

// DeriveOldShareContext computes the OldPublicShares/OldLagrange maps a
// ResharingContext needs from a completed prior KeygenResult and the set of
// sharers (identified by their IDs in the new, combined ceremony context).
// Sharer identity is matched by the stable Id field, since a party's
// numeric Index is reassigned per-ceremony by party.SortIDs and a
// resharing ceremony's combined old+new context will usually not preserve
// the old ceremony's index assignment.
func DeriveOldShareContext(scheme crypto.Scheme, oldResult *KeygenResult, sharers party.SortedIDs) (map[string]*crypto.Point, map[string]*big.Int, error) {
	oldIdxByID := make(map[string]int, len(oldResult.PartyIDs))
	for _, pid := range oldResult.PartyIDs {
		oldIdxByID[pid.Id] = pid.Index
	}

	oldIdx := make([]*big.Int, 0, len(sharers))
	sharerOldIdx := make(map[string]*big.Int, len(sharers))
	for _, s := range sharers {
		oi, ok := oldIdxByID[s.Id]
		if !ok {
			return nil, nil, fmt.Errorf("keygen: resharing sharer %s was not a member of the prior keygen ceremony", s.Id)
		}
		b := big.NewInt(int64(oi))
		oldIdx = append(oldIdx, b)
		sharerOldIdx[s.Id] = b
	}

	lambdas, err := crypto.LagrangeCoefficients(scheme, oldIdx)
	if err != nil {
		return nil, nil, err
	}

	pubShares := make(map[string]*crypto.Point, len(sharers))
	lambdaByID := make(map[string]*big.Int, len(sharers))
	for _, s := range sharers {
		oi := oldIdxByID[s.Id]
		pubShares[s.Id] = oldResult.BigXj[oi]
		lambdaByID[s.Id] = lambdas[sharerOldIdx[s.Id].String()]
	}
	return pubShares, lambdaByID, nil
}

// NewResharingLocalRunner constructs a resharing ceremony runner. params
// must be built over the *combined* old+new committee context (every
// sharing and every receiving party together), with Threshold set to the
// new committee's threshold; this lets the existing seven-stage pipeline
// run unmodified except for stage1's secret selection and stage4's
// sharing-party cross-check, both gated on base.reshare being non-nil.
func NewResharingLocalRunner(params *party.Params, schemeName crypto.SchemeName, ctx []byte, resharing *ResharingContext, out chan<- ceremony.Message, end chan<- *KeygenResult) (*LocalRunner, error) {
	if resharing == nil {
		return nil, errors.New("keygen: NewResharingLocalRunner requires a non-nil ResharingContext; use NewLocalRunner for genesis keygen")
	}
	if resharing.Role == ReshareRoleSharing && resharing.OldShare == nil {
		return nil, errors.New("keygen: a sharing party's ResharingContext.OldShare must not be nil")
	}
	r, err := NewLocalRunner(params, schemeName, ctx, out, end)
	if err != nil {
		return nil, err
	}
	r.base.reshare = resharing
	return r, nil
}
