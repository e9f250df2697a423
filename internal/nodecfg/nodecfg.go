// Package nodecfg holds a node's own runtime identity: the address it
// listens on and, optionally, the address mined coinbase rewards are paid
// to. Loading these values from the environment is the CLI layer's job
// (cmd/himalia uses viper for that); this package only stores and guards
// concurrent access to the result.
package nodecfg

import "sync"

// Config is a node's self-identity, safe for concurrent use by the p2p
// server's per-connection goroutines.
type Config struct {
	mu            sync.RWMutex
	nodeAddress   string
	miningAddress string
}

// New returns a Config for nodeAddress. miningAddress may be empty — a node
// that only relays and never mines.
func New(nodeAddress, miningAddress string) *Config {
	return &Config{nodeAddress: nodeAddress, miningAddress: miningAddress}
}

// NodeAddress returns this node's own listen address.
func (c *Config) NodeAddress() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nodeAddress
}

// MiningAddress returns the address coinbase rewards are paid to, and
// whether one is configured at all.
func (c *Config) MiningAddress() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.miningAddress, c.miningAddress != ""
}

// SetMiningAddress updates the mining address at runtime.
func (c *Config) SetMiningAddress(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.miningAddress = address
}
