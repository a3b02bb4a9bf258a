// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

// SchemeName identifies a registered Scheme, mirroring the ceremony
// library's tss.CurveName registry (tss/curve.go) but keyed on the full
// capability set rather than a bare elliptic.Curve.
type SchemeName string

const (
	Secp256k1 SchemeName = "secp256k1"
	Ed25519   SchemeName = "ed25519"
)

var registry = map[SchemeName]Scheme{
	Secp256k1: NewSecp256k1Scheme(),
	Ed25519:   NewEd25519Scheme(),
}

// RegisterScheme installs or overrides a Scheme under name, allowing the
// voter layer (C10) to add chain-specific schemes without modifying this
// package.
func RegisterScheme(name SchemeName, s Scheme) {
	registry[name] = s
}

// GetScheme looks up a registered Scheme by name.
func GetScheme(name SchemeName) (Scheme, bool) {
	s, ok := registry[name]
	return s, ok
}
