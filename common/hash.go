// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package common

import (
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/blake2b"
)

const (
	hashInputDelimiter = byte('$')
)

// Blake2b256 domain-separates its inputs before hashing: the data starts with
// the number of inputs, and each input is followed by a delimiter and its
// length, so that two differently-shaped inputs which happen to concatenate
// to the same bytes never collide.
func Blake2b256(in ...[]byte) []byte {
	data := domainSeparate(in)
	sum := blake2b.Sum256(data)
	return sum[:]
}

// Blake2b256i hashes a list of big.Int, each serialised via Bytes(), with the
// same domain separation as Blake2b256.
func Blake2b256i(in ...*big.Int) *big.Int {
	bzs := make([][]byte, len(in))
	for i, n := range in {
		if n == nil {
			continue
		}
		bzs[i] = n.Bytes()
	}
	return new(big.Int).SetBytes(Blake2b256(bzs...))
}

func domainSeparate(in [][]byte) []byte {
	inLen := len(in)
	bzSize := 0
	for _, bz := range in {
		bzSize += len(bz)
	}
	inLenBz := make([]byte, 8)
	// prevent hash collisions with this prefix containing the block count
	binary.LittleEndian.PutUint64(inLenBz, uint64(inLen))
	data := make([]byte, 0, len(inLenBz)+bzSize+inLen*9)
	data = append(data, inLenBz...)
	for _, bz := range in {
		data = append(data, bz...)
		data = append(data, hashInputDelimiter) // safety delimiter
		dataLen := make([]byte, 8)
		binary.LittleEndian.PutUint64(dataLen, uint64(len(bz)))
		data = append(data, dataLen...) // length follows the delimiter for domain separation
	}
	return data
}

// ChallengeScalar reduces a hash digest modulo q by rejection sampling on
// the first |q| bits, re-hashing on a miss, matching GG18Spec (6) Fig. 12's
// rejection sampling construction.
func ChallengeScalar(q *big.Int, digest *big.Int) *big.Int {
	qBits := q.BitLen()
	e := firstBitsOf(qBits, digest)
	for e.Cmp(q) >= 0 {
		digest = Blake2b256i(digest)
		e = firstBitsOf(qBits, digest)
	}
	return e
}

func firstBitsOf(bits int, v *big.Int) *big.Int {
	e := new(big.Int)
	for i := 0; i < bits; i++ {
		e.SetBit(e, i, v.Bit(i))
	}
	return e
}
