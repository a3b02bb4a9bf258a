// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package signing

import (
	"errors"
	"math/big"

	"github.com/chainbridge-relay/engine/common"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/party"
)

var errUnknownScheme = errors.New("signing: unregistered scheme name")

// missingFrom returns the party IDs whose index is absent from got, used by
// every stage's WaitingFor() (mirrors keygen/util.go's helper of the same
// name).
func missingFrom[V any](params *party.Params, got map[int]V) []*party.ID {
	var missing []*party.ID
	for _, pid := range params.Parties().IDs() {
		if _, ok := got[pid.Index]; !ok {
			missing = append(missing, pid)
		}
	}
	return missing
}

// idFor looks up the *party.ID owning idx, used to attribute blame to a
// specific culprit from a bare index (spec.md §7 "All ceremony failures
// produce (blamed_parties, reason)").
func idFor(params *party.Params, idx int) *party.ID {
	for _, pid := range params.Parties().IDs() {
		if pid.Index == idx {
			return pid
		}
	}
	return nil
}

// bindingValue computes FROST's per-signer binding value
// rho_i = H(idx_i, payload, {(D_j,E_j)}), which prevents a Wagner's
// birthday-style forgery against naive 2-round Schnorr multisignatures by
// binding every signer's nonce pair into every other signer's challenge
// (spec.md §4.4 stage 3).
func bindingValue(scheme crypto.Scheme, idx *big.Int, payload []byte, commits map[int]*commitPair, order []*big.Int) *big.Int {
	parts := [][]byte{idx.Bytes(), payload}
	for _, j := range order {
		c := commits[int(j.Int64())]
		parts = append(parts, c.D.Bytes(), c.E.Bytes())
	}
	digest := common.Blake2b256(parts...)
	return scheme.HashToScalar(digest)
}

// schnorrChallenge computes c = H(R, Y, payload), the Schnorr challenge the
// aggregated signature must satisfy (spec.md §4.4 stage 3).
func schnorrChallenge(scheme crypto.Scheme, r, y *crypto.Point, payload []byte) *big.Int {
	digest := common.Blake2b256(r.Bytes(), y.Bytes(), payload)
	return scheme.HashToScalar(digest)
}
