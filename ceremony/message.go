// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ceremony

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/chainbridge-relay/engine/party"
)

type (
	// Content is the per-stage payload of a Message, validated independently
	// of its routing envelope.
	Content interface {
		ValidateBasic() bool
	}

	// Message is the ceremony library's broadcast unit, generalised off
	// tss.Message/tss.ParsedMessage (tss/message.go). The teacher encoded
	// Content as a protobuf Any inside a MessageWrapper; this module instead
	// gob-encodes an Envelope the way the teacher's own pre-protobuf
	// keygen/wire.go convention did, so no .proto/codegen step is needed.
	// Every concrete Content type registers itself with gob.Register in its
	// package's init() so the decoder can recover its concrete type.
	Message interface {
		Type() string
		GetTo() []*party.ID
		GetFrom() *party.ID
		IsBroadcast() bool
		IsToOldCommittee() bool
		WireBytes() ([]byte, *Routing, error)
		Content() Content
		ValidateBasic() bool
		String() string
	}

	// Routing carries delivery metadata alongside wire bytes, consumed by
	// the transport layer (spec.md §6).
	Routing struct {
		From             *party.ID
		To               []*party.ID
		IsBroadcast      bool
		IsToOldCommittee bool
	}

	// envelope is the gob-serialised form placed on the wire.
	envelope struct {
		Routing Routing
		TypeTag string
		Content Content
	}

	messageImpl struct {
		Routing
		typeTag string
		content Content
		wire    []byte
	}
)

var _ Message = (*messageImpl)(nil)

// NewMessage constructs a Message, gob-encoding the envelope eagerly so
// WireBytes never fails after construction succeeds.
func NewMessage(routing Routing, typeTag string, content Content) (Message, error) {
	env := envelope{Routing: routing, TypeTag: typeTag, Content: content}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("ceremony: failed to encode message envelope: %w", err)
	}
	return &messageImpl{Routing: routing, typeTag: typeTag, content: content, wire: buf.Bytes()}, nil
}

// ParseMessage decodes wire bytes produced by NewMessage/WireBytes.
func ParseMessage(wireBytes []byte) (Message, error) {
	var env envelope
	dec := gob.NewDecoder(bytes.NewReader(wireBytes))
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("ceremony: failed to decode message envelope: %w", err)
	}
	return &messageImpl{Routing: env.Routing, typeTag: env.TypeTag, content: env.Content, wire: wireBytes}, nil
}

func (m *messageImpl) Type() string          { return m.typeTag }
func (m *messageImpl) GetTo() []*party.ID    { return m.To }
func (m *messageImpl) GetFrom() *party.ID    { return m.From }
func (m *messageImpl) IsBroadcast() bool      { return m.Routing.IsBroadcast }
func (m *messageImpl) IsToOldCommittee() bool { return m.Routing.IsToOldCommittee }
func (m *messageImpl) Content() Content       { return m.content }
func (m *messageImpl) ValidateBasic() bool    { return m.content != nil && m.content.ValidateBasic() }

func (m *messageImpl) WireBytes() ([]byte, *Routing, error) {
	return m.wire, &m.Routing, nil
}

func (m *messageImpl) String() string {
	toStr := "all"
	if m.To != nil {
		toStr = fmt.Sprintf("%v", m.To)
	}
	extra := ""
	if m.IsToOldCommittee() {
		extra = " (to old committee)"
	}
	return fmt.Sprintf("type: %s, from: %s, to: %s%s", m.typeTag, m.From, toStr, extra)
}
