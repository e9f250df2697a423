package chain

import (
	"sort"
	"sync"

	"github.com/sciencefidelity/himalia/internal/kv"
)

// memStore is a trivial in-memory kv.Store used only by this package's
// tests, standing in for internal/boltstore so blockchain/utxo logic can be
// exercised without touching disk.
type memStore struct {
	mu    sync.Mutex
	trees map[string]map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{trees: make(map[string]map[string][]byte)}
}

func (m *memStore) View(fn func(kv.Tx) error) error   { return fn(&memTx{m}) }
func (m *memStore) Update(fn func(kv.Tx) error) error { return fn(&memTx{m}) }
func (m *memStore) Close() error                      { return nil }

type memTx struct{ store *memStore }

func (t *memTx) Tree(name string) (kv.Tree, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	tree, ok := t.store.trees[name]
	if !ok {
		return nil, errTreeNotFound
	}
	return &memTree{store: t.store, name: name, data: tree}, nil
}

func (t *memTx) CreateTreeIfNotExists(name string) (kv.Tree, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	tree, ok := t.store.trees[name]
	if !ok {
		tree = make(map[string][]byte)
		t.store.trees[name] = tree
	}
	return &memTree{store: t.store, name: name, data: tree}, nil
}

func (t *memTx) DeleteTree(name string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	delete(t.store.trees, name)
	return nil
}

type memTree struct {
	store *memStore
	name  string
	data  map[string][]byte
}

func (t *memTree) Get(key []byte) []byte {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	v, ok := t.data[string(key)]
	if !ok {
		return nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp
}

func (t *memTree) Put(key, value []byte) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	t.data[string(key)] = cp
	return nil
}

func (t *memTree) Delete(key []byte) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	delete(t.data, string(key))
	return nil
}

func (t *memTree) Cursor() kv.Cursor {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	keys := make([]string, 0, len(t.data))
	for k := range t.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memCursor{tree: t, keys: keys, idx: -1}
}

type memCursor struct {
	tree *memTree
	keys []string
	idx  int
}

func (c *memCursor) First() ([]byte, []byte) {
	c.idx = 0
	return c.at()
}

func (c *memCursor) Next() ([]byte, []byte) {
	c.idx++
	return c.at()
}

func (c *memCursor) at() ([]byte, []byte) {
	if c.idx < 0 || c.idx >= len(c.keys) {
		return nil, nil
	}
	key := c.keys[c.idx]
	return []byte(key), c.tree.Get([]byte(key))
}

type treeNotFoundError struct{}

func (treeNotFoundError) Error() string { return "tree not found" }

var errTreeNotFound = treeNotFoundError{}
