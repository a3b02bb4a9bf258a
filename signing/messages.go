// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package signing

import (
	"encoding/gob"
	"math/big"
)

// Message content types for the four FROST signing stages (spec.md §4.4).
// Each is gob-registered in init() so ceremony.ParseMessage can recover its
// concrete type off the wire, mirroring keygen/messages.go's convention.
type (
	// CommitMessage broadcasts this party's round-1 nonce commitments
	// D_i = G*d_i, E_i = G*e_i, flattened as (X,Y) coordinate pairs.
	CommitMessage struct {
		DFlat []*big.Int
		EFlat []*big.Int
	}

	// EchoCommitMessage re-broadcasts every commitment pair a party
	// received in stage1, catching a sender who equivocated between two
	// recipients (spec.md §4.4 stage 2), the same defence keygen's
	// EchoHashCommitsMessage provides for HashComm.
	EchoCommitMessage struct {
		DFlat map[int][]*big.Int
		EFlat map[int][]*big.Int
	}

	// LocalSigMessage broadcasts this party's signature share z_i.
	LocalSigMessage struct {
		Z *big.Int
	}

	// EchoLocalSigMessage re-broadcasts every z_i a party received in
	// stage3, the equivocation check for stage4 (spec.md §4.4).
	EchoLocalSigMessage struct {
		Values map[int]*big.Int
	}
)

func (m *CommitMessage) ValidateBasic() bool {
	return m != nil && len(m.DFlat) == 2 && len(m.EFlat) == 2
}

func (m *EchoCommitMessage) ValidateBasic() bool {
	return m != nil && len(m.DFlat) > 0 && len(m.DFlat) == len(m.EFlat)
}

func (m *LocalSigMessage) ValidateBasic() bool {
	return m != nil && m.Z != nil
}

func (m *EchoLocalSigMessage) ValidateBasic() bool {
	return m != nil && len(m.Values) > 0
}

func init() {
	gob.Register(&CommitMessage{})
	gob.Register(&EchoCommitMessage{})
	gob.Register(&LocalSigMessage{})
	gob.Register(&EchoLocalSigMessage{})
}
