// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package party

import (
	"io"
	"math/big"
	"runtime"

	"github.com/chainbridge-relay/engine/crypto"
)

type (
	// Params holds the fixed configuration of a single ceremony run,
	// generalised off tss/params.go's Parameters: the Paillier-era
	// safe-prime-generation timeout and no-proof flags are dropped (FROST
	// has no Paillier modulus to generate or skip proving), replaced by a
	// crypto.Scheme reference shared by every stage.
	Params struct {
		scheme      crypto.Scheme
		partyID     *ID
		parties     *Context
		partyCount  int
		threshold   int
		concurrency int
		rand        io.Reader

		predefinedKey *big.Int // only used in deterministic tests
	}

	// ResharingParams extends Params with the incoming committee's
	// parameters, mirroring tss/params.go's ReSharingParameters.
	ResharingParams struct {
		*Params
		newParties    *Context
		newPartyCount int
		newThreshold  int
	}
)

func NewParams(scheme crypto.Scheme, ctx *Context, partyID *ID, partyCount, threshold int, predefinedKey ...*big.Int) *Params {
	p := &Params{
		scheme:      scheme,
		parties:     ctx,
		partyID:     partyID,
		partyCount:  partyCount,
		threshold:   threshold,
		concurrency: runtime.GOMAXPROCS(0),
	}
	if len(predefinedKey) > 0 {
		p.predefinedKey = predefinedKey[0]
	}
	return p
}

func (p *Params) Scheme() crypto.Scheme { return p.scheme }
func (p *Params) Parties() *Context     { return p.parties }
func (p *Params) PartyID() *ID          { return p.partyID }
func (p *Params) PartyCount() int       { return p.partyCount }
func (p *Params) Threshold() int        { return p.threshold }
func (p *Params) Concurrency() int      { return p.concurrency }

func (p *Params) SetConcurrency(concurrency int) { p.concurrency = concurrency }

func (p *Params) Rand() io.Reader     { return p.rand }
func (p *Params) SetRand(r io.Reader) { p.rand = r }

func (p *Params) GetPredefinedKey() *big.Int { return p.predefinedKey }

func NewResharingParams(scheme crypto.Scheme, ctx, newCtx *Context, partyID *ID, partyCount, threshold, newPartyCount, newThreshold int) *ResharingParams {
	return &ResharingParams{
		Params:        NewParams(scheme, ctx, partyID, partyCount, threshold),
		newParties:    newCtx,
		newPartyCount: newPartyCount,
		newThreshold:  newThreshold,
	}
}

func (rp *ResharingParams) OldParties() *Context { return rp.Parties() }
func (rp *ResharingParams) OldPartyCount() int   { return rp.partyCount }
func (rp *ResharingParams) NewParties() *Context { return rp.newParties }
func (rp *ResharingParams) NewPartyCount() int   { return rp.newPartyCount }
func (rp *ResharingParams) NewThreshold() int    { return rp.newThreshold }

func (rp *ResharingParams) OldAndNewParties() []*ID {
	return append(rp.OldParties().IDs().ToUnsorted(), rp.NewParties().IDs().ToUnsorted()...)
}

func (rp *ResharingParams) OldAndNewPartyCount() int {
	return rp.OldPartyCount() + rp.NewPartyCount()
}

func (rp *ResharingParams) IsOldCommittee() bool {
	for _, pj := range rp.parties.IDs() {
		if rp.partyID.KeyInt().Cmp(pj.KeyInt()) == 0 {
			return true
		}
	}
	return false
}

func (rp *ResharingParams) IsNewCommittee() bool {
	for _, pj := range rp.newParties.IDs() {
		if rp.partyID.KeyInt().Cmp(pj.KeyInt()) == 0 {
			return true
		}
	}
	return false
}
