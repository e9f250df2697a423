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
	"sync"
)

// TransactionThreshold is how many pending transactions trigger mining.
const TransactionThreshold = 2

// Mempool holds not-yet-mined transactions, keyed by lowercase hex txid.
type Mempool struct {
	mu  sync.RWMutex
	txs map[string]*Transaction
}

// NewMempool returns an empty mempool.
func NewMempool() *Mempool {
	return &Mempool{txs: make(map[string]*Transaction)}
}

// Add inserts tx, keyed by its hex id.
func (m *Mempool) Add(tx *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[hex.EncodeToString(tx.ID)] = tx
}

// Contains reports whether txID is already pending.
func (m *Mempool) Contains(txID []byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.txs[hex.EncodeToString(txID)]
	return ok
}

// Get returns the pending transaction for txID, if any.
func (m *Mempool) Get(txID []byte) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[hex.EncodeToString(txID)]
	return tx, ok
}

// Remove drops txID from the pool.
func (m *Mempool) Remove(txID []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.txs, hex.EncodeToString(txID))
}

// GetAll returns every pending transaction, in no particular order.
func (m *Mempool) GetAll() []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*Transaction, 0, len(m.txs))
	for _, tx := range m.txs {
		all = append(all, tx)
	}
	return all
}

// Len reports how many transactions are pending.
func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

// BlocksInTransit queues block hashes a peer has advertised that have not been
// requested yet; each hash is removed as its GetData is sent, so no hash is
// requested twice.
type BlocksInTransit struct {
	mu     sync.RWMutex
	hashes [][]byte
}

// NewBlocksInTransit returns an empty queue.
func NewBlocksInTransit() *BlocksInTransit {
	return &BlocksInTransit{}
}

// Add appends hashes to the queue.
func (b *BlocksInTransit) Add(hashes [][]byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hashes = append(b.hashes, hashes...)
}

// First returns the queue's head, or nil if empty.
func (b *BlocksInTransit) First() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.hashes) == 0 {
		return nil
	}
	return b.hashes[0]
}

// Remove drops hash from the queue, wherever it sits.
func (b *BlocksInTransit) Remove(hash []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.hashes {
		if hex.EncodeToString(h) == hex.EncodeToString(hash) {
			b.hashes = append(b.hashes[:i], b.hashes[i+1:]...)
			return
		}
	}
}

// Clear empties the queue.
func (b *BlocksInTransit) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hashes = nil
}

// Len reports the queue's length.
func (b *BlocksInTransit) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.hashes)
}
