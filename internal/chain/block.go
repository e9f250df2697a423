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
	"encoding/gob"
	"encoding/hex"
	"time"
)

// NoParent is the sentinel pre-block-hash value carried by the genesis block.
const NoParent = "None"

// Block is one entry in the chain: a header plus its transactions.
type Block struct {
	Timestamp     int64
	PrevBlockHash string
	Hash          string
	Transactions  []*Transaction
	Nonce         int64
	Height        uint64
}

// NewBlock mines and returns a new block extending prevHash at height.
func NewBlock(txs []*Transaction, prevHash string, height uint64) *Block {
	block := &Block{
		Timestamp:     time.Now().UnixMilli(),
		PrevBlockHash: prevHash,
		Transactions:  txs,
		Height:        height,
	}
	pow := NewProofOfWork(block)
	nonce, hash := pow.Run()
	block.Nonce = nonce
	block.Hash = hash
	return block
}

// NewGenesisBlock builds the height-0 block carrying only coinbaseTx.
func NewGenesisBlock(coinbaseTx *Transaction) *Block {
	return NewBlock([]*Transaction{coinbaseTx}, NoParent, 0)
}

// HashTransactions returns the SHA-256 hash of the concatenation of every
// transaction ID in the block, standing in for a full Merkle root.
func (b *Block) HashTransactions() []byte {
	var ids []byte
	for _, tx := range b.Transactions {
		ids = append(ids, tx.ID...)
	}
	hash := sha256.Sum256(ids)
	return hash[:]
}

// Serialize gob-encodes the block for storage.
func (b *Block) Serialize() []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// DeserializeBlock decodes a gob-encoded Block.
func DeserializeBlock(data []byte) *Block {
	var b Block
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		panic(err)
	}
	return &b
}

// HashBytes returns the block hash decoded from its lowercase hex string.
func (b *Block) HashBytes() []byte {
	raw, err := hex.DecodeString(b.Hash)
	if err != nil {
		panic(err)
	}
	return raw
}
