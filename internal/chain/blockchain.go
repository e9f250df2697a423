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
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/sciencefidelity/himalia/internal/kv"
	"github.com/sciencefidelity/himalia/internal/log"
)

// BlocksTree is the kv tree blocks are keyed by hash in.
const BlocksTree = "blocks"

// tipKey is the reserved key within BlocksTree pointing at the current tip.
var tipKey = []byte("tip_block_hash")

// ErrNoChain is returned by OpenBlockchain when the store has no tip yet.
var ErrNoChain = errors.New("no existing blockchain found, create one first")

// Blockchain is a persistent, hash-linked block tree plus an in-memory tip cache.
type Blockchain struct {
	store kv.Store

	mu  sync.RWMutex
	tip string // hex-encoded hash of the current tip block
}

// CreateBlockchain opens store and, if it has no tip yet, mines the genesis
// block paying its coinbase reward to genesisAddress. Atomically inserts the
// genesis block and the tip pointer in a single transaction.
func CreateBlockchain(store kv.Store, genesisAddress string) (*Blockchain, error) {
	bc := &Blockchain{store: store}

	err := store.Update(func(tx kv.Tx) error {
		blocks, err := tx.CreateTreeIfNotExists(BlocksTree)
		if err != nil {
			return err
		}
		if existing := blocks.Get(tipKey); existing != nil {
			bc.tip = hex.EncodeToString(existing)
			return nil
		}

		coinbaseTx := NewCoinbaseTx(genesisAddress)
		genesis := NewGenesisBlock(coinbaseTx)
		if err := blocks.Put(genesis.HashBytes(), genesis.Serialize()); err != nil {
			return err
		}
		if err := blocks.Put(tipKey, genesis.HashBytes()); err != nil {
			return err
		}
		bc.tip = genesis.Hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create blockchain: %w", err)
	}
	log.L.WithField("tip", bc.tip).Info("blockchain created")
	return bc, nil
}

// OpenBlockchain opens an already-created store, failing with ErrNoChain if
// it has no tip pointer.
func OpenBlockchain(store kv.Store) (*Blockchain, error) {
	bc := &Blockchain{store: store}

	err := store.View(func(tx kv.Tx) error {
		blocks, err := tx.Tree(BlocksTree)
		if err != nil {
			return ErrNoChain
		}
		tip := blocks.Get(tipKey)
		if tip == nil {
			return ErrNoChain
		}
		bc.tip = hex.EncodeToString(tip)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bc, nil
}

// Close releases the underlying store.
func (bc *Blockchain) Close() error {
	return bc.store.Close()
}

func (bc *Blockchain) tipHash() string {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.tip
}

// MineBlock verifies every tx against the current chain, then mines and
// atomically appends a new block extending the tip. Rejects with an error if
// any transaction fails verification — spec.md §7's InvalidTransaction abort.
func (bc *Blockchain) MineBlock(txs []*Transaction) (*Block, error) {
	for _, tx := range txs {
		ok, err := bc.VerifyTransaction(tx)
		if err != nil {
			return nil, fmt.Errorf("mine block: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("mine block: invalid transaction %x", tx.ID)
		}
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	var newBlock *Block
	err := bc.store.Update(func(tx kv.Tx) error {
		blocks, err := tx.Tree(BlocksTree)
		if err != nil {
			return err
		}
		lastHash := blocks.Get(tipKey)
		lastBlockData := blocks.Get(lastHash)
		lastBlock := DeserializeBlock(lastBlockData)

		newBlock = NewBlock(txs, hex.EncodeToString(lastHash), lastBlock.Height+1)
		if err := blocks.Put(newBlock.HashBytes(), newBlock.Serialize()); err != nil {
			return err
		}
		if err := blocks.Put(tipKey, newBlock.HashBytes()); err != nil {
			return err
		}
		bc.tip = newBlock.Hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mine block: %w", err)
	}
	log.L.WithFields(map[string]interface{}{"hash": newBlock.Hash, "height": newBlock.Height}).Info("mined block")
	return newBlock, nil
}

// AddBlock is the peer-accept path: inserts block if not already present,
// and advances the tip only if block.Height exceeds the current tip's
// height. Ties and lower heights are ignored.
func (bc *Blockchain) AddBlock(block *Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	return bc.store.Update(func(tx kv.Tx) error {
		blocks, err := tx.Tree(BlocksTree)
		if err != nil {
			return err
		}
		if blocks.Get(block.HashBytes()) != nil {
			return nil
		}
		if err := blocks.Put(block.HashBytes(), block.Serialize()); err != nil {
			return err
		}

		tipData := blocks.Get(tipKey)
		tipBlock := DeserializeBlock(blocks.Get(tipData))
		if block.Height > tipBlock.Height {
			if err := blocks.Put(tipKey, block.HashBytes()); err != nil {
				return err
			}
			bc.tip = block.Hash
		}
		return nil
	})
}

// GetBlock returns the block stored under hashHex, if any.
func (bc *Blockchain) GetBlock(hashHex string) (*Block, error) {
	hashBytes, err := hex.DecodeString(hashHex)
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}

	var block *Block
	err = bc.store.View(func(tx kv.Tx) error {
		blocks, err := tx.Tree(BlocksTree)
		if err != nil {
			return err
		}
		data := blocks.Get(hashBytes)
		if data == nil {
			return fmt.Errorf("block %s not found", hashHex)
		}
		block = DeserializeBlock(data)
		return nil
	})
	return block, err
}

// GetBestHeight returns the height of the current tip block.
func (bc *Blockchain) GetBestHeight() (uint64, error) {
	block, err := bc.GetBlock(bc.tipHash())
	if err != nil {
		return 0, err
	}
	return block.Height, nil
}

// GetBlockHashes returns every block hash in iterator order (newest first).
func (bc *Blockchain) GetBlockHashes() [][]byte {
	var hashes [][]byte
	it := bc.Iterator()
	for {
		block, ok := it.Next()
		if !ok {
			break
		}
		hashes = append(hashes, block.HashBytes())
	}
	return hashes
}

// Iterator is a restartable, lazy cursor walking the chain tip-to-genesis.
type Iterator struct {
	bc          *Blockchain
	currentHash string
	done        bool
}

// Iterator returns a fresh cursor starting at the current tip.
func (bc *Blockchain) Iterator() *Iterator {
	return &Iterator{bc: bc, currentHash: bc.tipHash()}
}

// Next returns the current block and advances to its parent. The second
// return is false once the genesis block's parent link (NoParent) is
// reached or a hash lookup misses.
func (it *Iterator) Next() (*Block, bool) {
	if it.done {
		return nil, false
	}

	hashBytes, err := hex.DecodeString(it.currentHash)
	if err != nil {
		it.done = true
		return nil, false
	}

	var block *Block
	err = it.bc.store.View(func(tx kv.Tx) error {
		blocks, err := tx.Tree(BlocksTree)
		if err != nil {
			return err
		}
		data := blocks.Get(hashBytes)
		if data == nil {
			return fmt.Errorf("block %s not found", it.currentHash)
		}
		block = DeserializeBlock(data)
		return nil
	})
	if err != nil {
		it.done = true
		return nil, false
	}

	if block.PrevBlockHash == NoParent {
		it.done = true
	} else {
		it.currentHash = block.PrevBlockHash
	}
	return block, true
}

// FindTransaction performs a full-chain linear scan for txID. Implements
// PrevTxResolver. O(chain·inputs) per spec.md §9(d) — accepted as specified.
func (bc *Blockchain) FindTransaction(txID []byte) (Transaction, error) {
	it := bc.Iterator()
	for {
		block, ok := it.Next()
		if !ok {
			break
		}
		for _, tx := range block.Transactions {
			if hex.EncodeToString(tx.ID) == hex.EncodeToString(txID) {
				return *tx, nil
			}
		}
	}
	return Transaction{}, fmt.Errorf("transaction %x not found", txID)
}

// VerifyTransaction verifies tx against this chain. Coinbase transactions
// always verify.
func (bc *Blockchain) VerifyTransaction(tx *Transaction) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}
	return tx.Verify(bc)
}

// FindUTXO walks the whole chain once, newest block first, accumulating the
// set of outputs that are never referenced by a later (i.e. already-seen,
// since we walk backwards) input.
func (bc *Blockchain) FindUTXO() map[string]TXOutputs {
	utxo := make(map[string]TXOutputs)
	spent := make(map[string][]int)

	it := bc.Iterator()
	for {
		block, ok := it.Next()
		if !ok {
			break
		}
		for _, tx := range block.Transactions {
			txID := string(tx.ID)

		outputs:
			for outIdx, out := range tx.Vout {
				for _, spentIdx := range spent[txID] {
					if outIdx == spentIdx {
						continue outputs
					}
				}
				entry := utxo[txID]
				entry.Outputs = append(entry.Outputs, out)
				utxo[txID] = entry
			}

			if !tx.IsCoinbase() {
				for _, in := range tx.Vin {
					inTxID := string(in.TxID)
					spent[inTxID] = append(spent[inTxID], in.Vout)
				}
			}
		}
	}
	return utxo
}
