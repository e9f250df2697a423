// Package walletstore persists a collection of chain.Wallet keypairs to a
// gob-encoded file.
package walletstore

import (
	"bytes"
	"crypto/elliptic"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/sciencefidelity/himalia/internal/chain"
)

// DefaultFile is the on-disk filename a node's wallets are persisted under.
const DefaultFile = "wallet.dat"

// Store is a file-backed collection of wallets, keyed by address.
type Store struct {
	path    string
	wallets map[string]*chain.Wallet
}

// Open loads path if it exists, or returns an empty Store if it doesn't.
func Open(path string) (*Store, error) {
	s := &Store{path: path, wallets: make(map[string]*chain.Wallet)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open wallet store %s: %w", path, err)
	}

	var wallets map[string]*chain.Wallet
	gob.Register(elliptic.P256())
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wallets); err != nil {
		return nil, fmt.Errorf("decode wallet store %s: %w", path, err)
	}
	s.wallets = wallets
	return s, nil
}

// CreateWallet generates a fresh wallet, stores it under its own address,
// and returns that address.
func (s *Store) CreateWallet() string {
	wallet := chain.NewWallet()
	address := wallet.Address()
	s.wallets[address] = wallet
	return address
}

// GetWallet returns the wallet for address, if present.
func (s *Store) GetWallet(address string) (*chain.Wallet, bool) {
	w, ok := s.wallets[address]
	return w, ok
}

// Addresses returns every address this store currently holds a wallet for.
func (s *Store) Addresses() []string {
	addresses := make([]string, 0, len(s.wallets))
	for address := range s.wallets {
		addresses = append(addresses, address)
	}
	return addresses
}

// Save writes the collection back to path as gob.
func (s *Store) Save() error {
	var buf bytes.Buffer
	gob.Register(elliptic.P256())
	if err := gob.NewEncoder(&buf).Encode(s.wallets); err != nil {
		return fmt.Errorf("encode wallet store: %w", err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("save wallet store %s: %w", s.path, err)
	}
	return nil
}
