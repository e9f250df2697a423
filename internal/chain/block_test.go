package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenesisBlock(t *testing.T) {
	wallet := NewWallet()
	coinbase := NewCoinbaseTx(wallet.Address())

	genesis := NewGenesisBlock(coinbase)
	assert.Equal(t, NoParent, genesis.PrevBlockHash)
	assert.Equal(t, uint64(0), genesis.Height)
	assert.NotEmpty(t, genesis.Hash)

	pow := NewProofOfWork(genesis)
	assert.True(t, pow.Validate())
}

func TestBlockSerializeRoundTrip(t *testing.T) {
	wallet := NewWallet()
	block := NewBlock([]*Transaction{NewCoinbaseTx(wallet.Address())}, NoParent, 0)

	data := block.Serialize()
	decoded := DeserializeBlock(data)

	assert.Equal(t, block.Hash, decoded.Hash)
	assert.Equal(t, block.Nonce, decoded.Nonce)
	assert.Equal(t, block.Height, decoded.Height)
}

func TestHashBytesRoundTripsHexHash(t *testing.T) {
	wallet := NewWallet()
	block := NewBlock([]*Transaction{NewCoinbaseTx(wallet.Address())}, NoParent, 0)

	raw := block.HashBytes()
	require.Len(t, raw, 32)
}
