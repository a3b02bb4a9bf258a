// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package party

// Context holds the sorted participant set for a ceremony and which entry
// is the local participant, generalised from tss/peers.go's PeerContext.
type Context struct {
	PartyIDs   SortedIDs `json:"parties"`
	OurPartyID *ID       `json:"our_party_id"`
}

func NewContextFromUnsortedIDs(parties UnsortedIDs, ourIDIndex int) *Context {
	return NewContextFromSortedIDs(SortIDs(parties), parties[ourIDIndex])
}

func NewContextFromUnsortedIDsWithoutUs(parties UnsortedIDs) *Context {
	return NewContextFromSortedIDs(SortIDs(parties), nil)
}

func NewContextFromSortedIDs(parties SortedIDs, ourPartyID *ID) *Context {
	return &Context{PartyIDs: parties, OurPartyID: ourPartyID}
}

func (ctx *Context) IDs() SortedIDs { return ctx.PartyIDs }

func (ctx *Context) OurID() *ID { return ctx.OurPartyID }
