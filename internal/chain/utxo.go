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
	"encoding/gob"
	"fmt"

	"github.com/sciencefidelity/himalia/internal/kv"
	"github.com/sciencefidelity/himalia/internal/log"
)

// ChainstateTree is the kv tree the UTXO index is persisted under, keyed by
// raw txid bytes.
const ChainstateTree = "chainstate"

// IndexedOutput pairs a TXOutput with its original vout index. Unlike a
// compacted []TXOutput slice, this survives partial spends without losing
// the index correspondence inputs reference.
type IndexedOutput struct {
	Index  int
	Output TXOutput
}

// UTXOSet is the derived, rebuildable index of unspent outputs, sitting
// beside a Blockchain in the same store.
type UTXOSet struct {
	chain *Blockchain
	store kv.Store
}

// NewUTXOSet binds an index to chain, persisted in store's chainstate tree.
func NewUTXOSet(chain *Blockchain, store kv.Store) *UTXOSet {
	return &UTXOSet{chain: chain, store: store}
}

// Reindex rebuilds the chainstate tree from scratch by replaying the whole
// chain via FindUTXO.
func (u *UTXOSet) Reindex() error {
	err := u.store.Update(func(tx kv.Tx) error {
		if err := tx.DeleteTree(ChainstateTree); err != nil {
			return err
		}
		bucket, err := tx.CreateTreeIfNotExists(ChainstateTree)
		if err != nil {
			return err
		}

		utxo := u.chain.FindUTXO()
		for txID, outputs := range utxo {
			indexed := make([]IndexedOutput, len(outputs.Outputs))
			for i, out := range outputs.Outputs {
				indexed[i] = IndexedOutput{Index: i, Output: out}
			}
			if err := bucket.Put([]byte(txID), serializeIndexedOutputs(indexed)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reindex utxo set: %w", err)
	}
	count, err := u.CountTransactions()
	if err == nil {
		log.L.WithField("transactions", count).Info("utxo set reindexed")
	}
	return err
}

// Update incrementally folds block into the chainstate tree: inputs remove
// the exact (txid, vout) entry they spend — the other indices in the same
// transaction's output set are left untouched — and every output of every
// transaction in block is inserted fresh.
func (u *UTXOSet) Update(block *Block) error {
	return u.store.Update(func(tx kv.Tx) error {
		bucket, err := tx.CreateTreeIfNotExists(ChainstateTree)
		if err != nil {
			return err
		}

		for _, transaction := range block.Transactions {
			if !transaction.IsCoinbase() {
				for _, in := range transaction.Vin {
					remaining, err := removeSpentOutput(bucket, in.TxID, in.Vout)
					if err != nil {
						return err
					}
					if len(remaining) == 0 {
						if err := bucket.Delete(in.TxID); err != nil {
							return err
						}
					} else if err := bucket.Put(in.TxID, serializeIndexedOutputs(remaining)); err != nil {
						return err
					}
				}
			}

			indexed := make([]IndexedOutput, len(transaction.Vout))
			for i, out := range transaction.Vout {
				indexed[i] = IndexedOutput{Index: i, Output: out}
			}
			if err := bucket.Put(transaction.ID, serializeIndexedOutputs(indexed)); err != nil {
				return err
			}
		}
		return nil
	})
}

func removeSpentOutput(bucket kv.Tree, txID []byte, vout int) ([]IndexedOutput, error) {
	data := bucket.Get(txID)
	if data == nil {
		return nil, nil
	}
	outputs, err := deserializeIndexedOutputs(data)
	if err != nil {
		return nil, err
	}

	remaining := outputs[:0]
	for _, io := range outputs {
		if io.Index != vout {
			remaining = append(remaining, io)
		}
	}
	return remaining, nil
}

// FindSpendableOutputs collects unspent outputs locked to pubKeyHash until
// their total reaches amount. Implements SpendableOutputsFinder. Map keys
// are raw txid bytes cast to string, matching the convention transaction.go
// uses for Sign/Verify lookups.
func (u *UTXOSet) FindSpendableOutputs(pubKeyHash []byte, amount int32) (int32, map[string][]int) {
	unspentOutputs := make(map[string][]int)
	var accumulated int32

	_ = u.store.View(func(tx kv.Tx) error {
		bucket, err := tx.Tree(ChainstateTree)
		if err != nil {
			return nil
		}
		cursor := bucket.Cursor()
		for txID, data := cursor.First(); txID != nil; txID, data = cursor.Next() {
			if accumulated >= amount {
				break
			}
			outputs, err := deserializeIndexedOutputs(data)
			if err != nil {
				continue
			}
			for _, io := range outputs {
				if io.Output.IsLockedWithKey(pubKeyHash) && accumulated < amount {
					accumulated += io.Output.Value
					key := string(txID)
					unspentOutputs[key] = append(unspentOutputs[key], io.Index)
				}
			}
		}
		return nil
	})
	return accumulated, unspentOutputs
}

// FindUTXO returns every unspent output locked to pubKeyHash.
func (u *UTXOSet) FindUTXO(pubKeyHash []byte) []TXOutput {
	var result []TXOutput

	_ = u.store.View(func(tx kv.Tx) error {
		bucket, err := tx.Tree(ChainstateTree)
		if err != nil {
			return nil
		}
		cursor := bucket.Cursor()
		for txID, data := cursor.First(); txID != nil; txID, data = cursor.Next() {
			outputs, err := deserializeIndexedOutputs(data)
			if err != nil {
				continue
			}
			for _, io := range outputs {
				if io.Output.IsLockedWithKey(pubKeyHash) {
					result = append(result, io.Output)
				}
			}
		}
		return nil
	})
	return result
}

// CountTransactions counts how many transactions currently carry at least
// one unspent output.
func (u *UTXOSet) CountTransactions() (int, error) {
	count := 0
	err := u.store.View(func(tx kv.Tx) error {
		bucket, err := tx.Tree(ChainstateTree)
		if err != nil {
			return nil
		}
		cursor := bucket.Cursor()
		for key, _ := cursor.First(); key != nil; key, _ = cursor.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func serializeIndexedOutputs(outputs []IndexedOutput) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(outputs); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func deserializeIndexedOutputs(data []byte) ([]IndexedOutput, error) {
	var outputs []IndexedOutput
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&outputs); err != nil {
		return nil, fmt.Errorf("decode indexed outputs: %w", err)
	}
	return outputs, nil
}
