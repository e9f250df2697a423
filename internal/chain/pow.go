// Copyright 2021 Hailiang Zhao <hliangzhao@zju.edu.cn>
// This file is part of himalia.
//
// himalia is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// himalia is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with himalia. If not, see <http://www.gnu.org/licenses/>.

package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"math/big"
)

// TargetBits fixes the PoW difficulty: the hash must have this many leading
// zero bits. Fixed per SPEC_FULL.md §7(c) rather than left a placeholder —
// 16 keeps local/test mining in the tens of milliseconds.
const TargetBits = 16

// MaxNonce bounds the nonce search space.
const MaxNonce = math.MaxInt64

// ProofOfWork mines or validates the nonce for a single block.
type ProofOfWork struct {
	block  *Block
	target *big.Int
}

// NewProofOfWork builds the PoW context for block, with target = 1 << (256 - TargetBits).
func NewProofOfWork(block *Block) *ProofOfWork {
	target := big.NewInt(1)
	target.Lsh(target, uint(256-TargetBits))
	return &ProofOfWork{block: block, target: target}
}

func (pow *ProofOfWork) prepareData(nonce int64) []byte {
	var buf bytes.Buffer
	buf.WriteString(pow.block.PrevBlockHash)
	buf.Write(pow.block.HashTransactions())
	_ = binary.Write(&buf, binary.BigEndian, pow.block.Timestamp)
	_ = binary.Write(&buf, binary.BigEndian, int64(TargetBits))
	_ = binary.Write(&buf, binary.BigEndian, nonce)
	return buf.Bytes()
}

// Run searches for the first nonce whose header hash is below the target,
// returning that nonce and the lowercase-hex hash.
func (pow *ProofOfWork) Run() (int64, string) {
	var hashInt big.Int
	var hash [32]byte
	var nonce int64

	for nonce < MaxNonce {
		data := pow.prepareData(nonce)
		hash = sha256.Sum256(data)
		hashInt.SetBytes(hash[:])
		if hashInt.Cmp(pow.target) == -1 {
			break
		}
		nonce++
	}
	return nonce, hex.EncodeToString(hash[:])
}

// Validate re-derives the header hash for the block's stored nonce and
// checks it is still below the target.
func (pow *ProofOfWork) Validate() bool {
	var hashInt big.Int
	data := pow.prepareData(pow.block.Nonce)
	hash := sha256.Sum256(data)
	hashInt.SetBytes(hash[:])
	return hashInt.Cmp(pow.target) == -1 && hex.EncodeToString(hash[:]) == pow.block.Hash
}
