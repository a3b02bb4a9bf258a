// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"errors"

	"github.com/chainbridge-relay/engine/party"
)

var errUnknownScheme = errors.New("keygen: unregistered scheme name")

// missingFrom returns the party IDs whose index is absent from got, used by
// every stage's WaitingFor() to report which peers a stalled ceremony is
// still blocked on.
func missingFrom[V any](params *party.Params, got map[int]V) []*party.ID {
	var missing []*party.ID
	for _, pid := range params.Parties().IDs() {
		if _, ok := got[pid.Index]; !ok {
			missing = append(missing, pid)
		}
	}
	return missing
}
