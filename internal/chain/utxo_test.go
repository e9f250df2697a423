package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTXOSetReindexFindsGenesisOutput(t *testing.T) {
	wallet := NewWallet()
	store := newMemStore()
	bc, err := CreateBlockchain(store, wallet.Address())
	require.NoError(t, err)

	utxo := NewUTXOSet(bc, store)
	require.NoError(t, utxo.Reindex())

	pubKeyHash := HashPubKey(wallet.PubKey)
	outputs := utxo.FindUTXO(pubKeyHash)
	require.Len(t, outputs, 1)
	assert.Equal(t, int32(Subsidy), outputs[0].Value)
}

func TestUTXOSetFindSpendableOutputsStopsAtAmount(t *testing.T) {
	wallet := NewWallet()
	store := newMemStore()
	bc, err := CreateBlockchain(store, wallet.Address())
	require.NoError(t, err)

	utxo := NewUTXOSet(bc, store)
	require.NoError(t, utxo.Reindex())

	pubKeyHash := HashPubKey(wallet.PubKey)
	accumulated, outs := utxo.FindSpendableOutputs(pubKeyHash, 1)
	assert.GreaterOrEqual(t, accumulated, int32(1))
	assert.NotEmpty(t, outs)
}

func TestUTXOSetUpdatePreservesUnspentIndexAfterPartialSpend(t *testing.T) {
	wallet := NewWallet()
	receiver := NewWallet()
	store := newMemStore()
	bc, err := CreateBlockchain(store, wallet.Address())
	require.NoError(t, err)

	utxo := NewUTXOSet(bc, store)
	require.NoError(t, utxo.Reindex())

	resolver := bc
	tx, err := NewUTXOTransaction(wallet, receiver.Address(), 4, utxo, resolver)
	require.NoError(t, err)

	reward := NewCoinbaseTx(wallet.Address())
	block, err := bc.MineBlock([]*Transaction{tx, reward})
	require.NoError(t, err)
	require.NoError(t, utxo.Update(block))

	receiverOutputs := utxo.FindUTXO(HashPubKey(receiver.PubKey))
	require.Len(t, receiverOutputs, 1)
	assert.Equal(t, int32(4), receiverOutputs[0].Value)

	senderOutputs := utxo.FindUTXO(HashPubKey(wallet.PubKey))
	var senderTotal int32
	for _, out := range senderOutputs {
		senderTotal += out.Value
	}
	assert.Equal(t, int32(6+Subsidy), senderTotal)
}

func TestUTXOSetCountTransactions(t *testing.T) {
	wallet := NewWallet()
	store := newMemStore()
	bc, err := CreateBlockchain(store, wallet.Address())
	require.NoError(t, err)

	utxo := NewUTXOSet(bc, store)
	require.NoError(t, utxo.Reindex())

	count, err := utxo.CountTransactions()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
