// Package boltstore adapts github.com/boltdb/bolt to the internal/kv.Store
// interface. Buckets are kv.Trees; bolt's own View/Update transactions give
// us the atomic multi-key-tree transaction kv.Tx requires.
package boltstore

import (
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/sciencefidelity/himalia/internal/kv"
)

// Store wraps a single bolt.DB file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bolt file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bolt.DB.
func (s *Store) Close() error {
	return s.db.Close()
}

// View runs fn inside a read-only bolt transaction.
func (s *Store) View(fn func(kv.Tx) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx})
	})
}

// Update runs fn inside a read-write bolt transaction.
func (s *Store) Update(fn func(kv.Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx})
	})
}

type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) Tree(name string) (kv.Tree, error) {
	bucket := t.tx.Bucket([]byte(name))
	if bucket == nil {
		return nil, fmt.Errorf("tree %q not found", name)
	}
	return &boltTree{bucket}, nil
}

func (t *boltTx) CreateTreeIfNotExists(name string) (kv.Tree, error) {
	bucket, err := t.tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("create tree %q: %w", name, err)
	}
	return &boltTree{bucket}, nil
}

func (t *boltTx) DeleteTree(name string) error {
	err := t.tx.DeleteBucket([]byte(name))
	if err != nil && err != bolt.ErrBucketNotFound {
		return fmt.Errorf("delete tree %q: %w", name, err)
	}
	return nil
}

type boltTree struct {
	bucket *bolt.Bucket
}

func (t *boltTree) Get(key []byte) []byte {
	return t.bucket.Get(key)
}

func (t *boltTree) Put(key, value []byte) error {
	return t.bucket.Put(key, value)
}

func (t *boltTree) Delete(key []byte) error {
	return t.bucket.Delete(key)
}

func (t *boltTree) Cursor() kv.Cursor {
	return &boltCursor{cursor: t.bucket.Cursor()}
}

type boltCursor struct {
	cursor *bolt.Cursor
}

func (c *boltCursor) First() ([]byte, []byte) {
	return c.cursor.First()
}

func (c *boltCursor) Next() ([]byte, []byte) {
	return c.cursor.Next()
}
