package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMempoolAddContainsRemove(t *testing.T) {
	pool := NewMempool()
	wallet := NewWallet()
	tx := NewCoinbaseTx(wallet.Address())

	assert.False(t, pool.Contains(tx.ID))
	pool.Add(tx)
	assert.True(t, pool.Contains(tx.ID))
	assert.Equal(t, 1, pool.Len())

	got, ok := pool.Get(tx.ID)
	assert.True(t, ok)
	assert.Equal(t, tx.ID, got.ID)

	pool.Remove(tx.ID)
	assert.False(t, pool.Contains(tx.ID))
	assert.Equal(t, 0, pool.Len())
}

func TestMempoolGetAll(t *testing.T) {
	pool := NewMempool()
	wallet := NewWallet()
	pool.Add(NewCoinbaseTx(wallet.Address()))
	pool.Add(NewCoinbaseTx(wallet.Address()))

	assert.Len(t, pool.GetAll(), 2)
}

func TestBlocksInTransitAddFirstRemove(t *testing.T) {
	transit := NewBlocksInTransit()
	hashes := [][]byte{[]byte("h1"), []byte("h2")}
	transit.Add(hashes)

	assert.Equal(t, 2, transit.Len())
	assert.Equal(t, []byte("h1"), transit.First())

	transit.Remove([]byte("h1"))
	assert.Equal(t, 1, transit.Len())
	assert.Equal(t, []byte("h2"), transit.First())
}

func TestBlocksInTransitClear(t *testing.T) {
	transit := NewBlocksInTransit()
	transit.Add([][]byte{[]byte("h1")})
	transit.Clear()
	assert.Equal(t, 0, transit.Len())
	assert.Nil(t, transit.First())
}
