// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"math/big"

	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/party"
)

// KeygenResult is the output of a completed genesis or resharing ceremony:
// the local party's secret key share, the full group public key, and
// enough metadata to participate in a future signing ceremony against the
// same key. Analogous to the ceremony library's LocalPartySaveData, but
// without any Paillier/safe-prime material since FROST needs none.
type KeygenResult struct {
	SchemeName crypto.SchemeName
	Threshold  int
	PartyIDs   party.SortedIDs
	ShareIndex *big.Int // this party's VSS index (x coordinate)

	Xi     *big.Int    // this party's secret key share
	PubKey *crypto.Point // the group's aggregate public key Y

	// BigXj is the public key share for every party (Xj = G*f(j)), used to
	// verify another participant's signature share during signing without
	// that participant revealing their secret share.
	BigXj map[int]*crypto.Point
}

func (r *KeygenResult) Scheme() (crypto.Scheme, bool) {
	return crypto.GetScheme(r.SchemeName)
}
