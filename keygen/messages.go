// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"encoding/gob"
	"math/big"
)

// Message content types for the seven DKG stages (spec.md §4.3). Each is
// gob-registered in init() so ceremony.ParseMessage can recover its
// concrete type off the wire, the same role the teacher's protobuf message
// types played via proto.RegisterType.
type (
	// HashCommitMessage carries the round-1 blinded commitment to a
	// party's polynomial commitments and Schnorr proof of knowledge.
	HashCommitMessage struct {
		Commitment *big.Int
	}

	// CoeffCommitMessage decommits the round-1 hash commitment: the
	// polynomial commitment vector Vs, the Schnorr proof of knowledge of
	// a_0, and the blinding factor used in the hash commitment.
	CoeffCommitMessage struct {
		Blinding *big.Int
		VsFlat   []*big.Int // flattened crypto.Point pairs (X,Y per commitment)
		ProofA   []byte     // crypto/schnorr.ZKProof.Alpha.Bytes()
		ProofT   *big.Int
	}

	// SecretShareMessage is a private (non-broadcast) VSS share sent from
	// one party to one other party.
	SecretShareMessage struct {
		Share *big.Int
	}

	// ComplaintsMessage broadcasts the list of senders (by index) whose
	// private share this party could not verify against their published
	// commitment vector, or an empty list if every share verified.
	ComplaintsMessage struct {
		Accused []int
	}

	// EchoHashCommitsMessage re-broadcasts every hash commitment a party
	// received in stage1, so a sender who told two different recipients
	// two different commitments for the same broadcast (an equivocation
	// the commitment itself does nothing to prevent) gets caught before
	// anyone decommits (spec.md §4.3 stage 2).
	EchoHashCommitsMessage struct {
		Values map[int]*big.Int // sender index -> h_j as the echoer received it
	}

	// EchoCoeffCommitMessage re-broadcasts every party's stage1 hash
	// commitment again, cross-checked against what each party decommitted
	// to in stage3, to catch an equivocating decommit the same way stage2
	// catches an equivocating commitment (spec.md §4.3 stage 4).
	EchoCoeffCommitMessage struct {
		Values map[int]*big.Int
	}
)

func (m *HashCommitMessage) ValidateBasic() bool {
	return m != nil && m.Commitment != nil
}

func (m *CoeffCommitMessage) ValidateBasic() bool {
	return m != nil && m.Blinding != nil && len(m.VsFlat) >= 2 && len(m.VsFlat)%2 == 0 && m.ProofT != nil
}

func (m *SecretShareMessage) ValidateBasic() bool {
	return m != nil && m.Share != nil
}

func (m *ComplaintsMessage) ValidateBasic() bool {
	return m != nil // an empty Accused slice is valid: no complaints
}

func (m *EchoHashCommitsMessage) ValidateBasic() bool {
	return m != nil && len(m.Values) > 0
}

func (m *EchoCoeffCommitMessage) ValidateBasic() bool {
	return m != nil && len(m.Values) > 0
}

func init() {
	gob.Register(&HashCommitMessage{})
	gob.Register(&CoeffCommitMessage{})
	gob.Register(&SecretShareMessage{})
	gob.Register(&ComplaintsMessage{})
	gob.Register(&EchoHashCommitsMessage{})
	gob.Register(&EchoCoeffCommitMessage{})
}
