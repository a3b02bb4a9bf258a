// partly ported from:
// https://github.com/KZen-networks/curv/blob/78a70f43f5eda376e5888ce33aec18962f572bbe/src/cryptographic_primitives/commitments/hash_commitment.rs

package commitments

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/chainbridge-relay/engine/common"
)

const (
	HashLength = 256
)

type (
	HashCommitment   = *big.Int
	HashDeCommitment = []*big.Int

	HashCommitDecommit struct {
		// 256-bit random blinding component r, written to C digest as D[0]
		C HashCommitment
		D HashDeCommitment
	}
)

func FlattenPointsForCommit(in [][]*big.Int) ([]*big.Int, error) {
	flat := make([]*big.Int, 0, len(in)*2)
	for _, point := range in {
		if point[0] == nil || point[1] == nil {
			return nil, errors.New("FlattenPointsForCommit found nil coordinate")
		}
		flat = append(flat, point[0])
		flat = append(flat, point[1])
	}
	return flat, nil
}

func UnFlattenPointsAfterDecommit(in []*big.Int) ([][]*big.Int, error) {
	if len(in)%2 != 0 {
		return nil, errors.New("UnFlattenPointsAfterDecommit expected an in len divisible by 2")
	}
	unFlat := make([][]*big.Int, len(in)/2)
	for i, j := 0, 0; i < len(in); i, j = i+2, j+1 {
		unFlat[j] = []*big.Int{in[i], in[i+1]}
	}
	for _, point := range unFlat {
		if point[0] == nil || point[1] == nil {
			return nil, errors.New("UnFlattenPointsAfterDecommit found nil coordinate after unpack")
		}
	}
	return unFlat, nil
}

// NewHashCommitment commits to secrets using BLAKE2b-256 (spec.md §3 mandates
// BLAKE2b-256 for every hash commitment; the teacher library used SHA3-256
// here, generalised via blake2b256Digest below).
func NewHashCommitment(secrets ...*big.Int) (*HashCommitDecommit, error) {
	security := common.MustGetRandomInt(HashLength) // r

	parts := make([]*big.Int, len(secrets)+1)
	parts[0] = security
	for i := 1; i < len(parts); i++ {
		parts[i] = secrets[i-1]
	}
	digest := blake2b256Digest(parts)

	cmt := &HashCommitDecommit{}
	cmt.C = new(big.Int).SetBytes(digest)
	cmt.D = parts
	return cmt, nil
}

func (cmt *HashCommitDecommit) Verify() (bool, error) {
	C, D := cmt.C, cmt.D
	digest := blake2b256Digest(D)
	digestInt := new(big.Int).SetBytes(digest)
	return digestInt.Cmp(C) == 0, nil
}

func (cmt *HashCommitDecommit) DeCommit() (bool, HashDeCommitment, error) {
	result, err := cmt.Verify()
	if err != nil {
		return false, nil, err
	}
	if result {
		// [1:] skips random element r in D
		return true, cmt.D[1:], nil
	}
	return false, nil, nil
}

func blake2b256Digest(in []*big.Int) []byte {
	parts := make([][]byte, len(in))
	for i, x := range in {
		parts[i] = x.Bytes()
	}
	return common.Blake2b256(parts...)
}
