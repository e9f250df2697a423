package chain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]Transaction

func (f fakeResolver) FindTransaction(txID []byte) (Transaction, error) {
	tx, ok := f[string(txID)]
	if !ok {
		return Transaction{}, errors.New("not found")
	}
	return tx, nil
}

type fakeUTXO struct {
	amount  int32
	outputs map[string][]int
}

func (f fakeUTXO) FindSpendableOutputs(pubKeyHash []byte, amount int32) (int32, map[string][]int) {
	return f.amount, f.outputs
}

func TestIsCoinbase(t *testing.T) {
	wallet := NewWallet()
	coinbase := NewCoinbaseTx(wallet.Address())
	assert.True(t, coinbase.IsCoinbase())

	notCoinbase := Transaction{Vin: []TXInput{{TxID: []byte("x"), Vout: 0, PubKey: []byte("k")}}}
	assert.False(t, notCoinbase.IsCoinbase())
}

func TestCoinbaseTxIDsAreDistinct(t *testing.T) {
	wallet := NewWallet()
	tx1 := NewCoinbaseTx(wallet.Address())
	tx2 := NewCoinbaseTx(wallet.Address())
	assert.NotEqual(t, tx1.ID, tx2.ID)
}

func TestSignAndVerifyTransaction(t *testing.T) {
	sender := NewWallet()
	receiver := NewWallet()

	prevTx := *NewCoinbaseTx(sender.Address())
	resolver := fakeResolver{string(prevTx.ID): prevTx}

	tx := &Transaction{
		Vin: []TXInput{{TxID: prevTx.ID, Vout: 0, PubKey: sender.PubKey}},
		Vout: []TXOutput{
			*NewTXOutput(5, receiver.Address()),
			*NewTXOutput(5, sender.Address()),
		},
	}
	tx.ID = tx.Hash()

	require.NoError(t, tx.Sign(sender, resolver))

	ok, err := tx.Verify(resolver)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyTransactionRejectsWrongSigner(t *testing.T) {
	sender := NewWallet()
	attacker := NewWallet()
	receiver := NewWallet()

	prevTx := *NewCoinbaseTx(sender.Address())
	resolver := fakeResolver{string(prevTx.ID): prevTx}

	tx := &Transaction{
		Vin:  []TXInput{{TxID: prevTx.ID, Vout: 0, PubKey: sender.PubKey}},
		Vout: []TXOutput{*NewTXOutput(10, receiver.Address())},
	}
	tx.ID = tx.Hash()

	require.NoError(t, tx.Sign(attacker, resolver))

	ok, err := tx.Verify(resolver)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewUTXOTransactionInsufficientFunds(t *testing.T) {
	sender := NewWallet()
	utxo := fakeUTXO{amount: 3, outputs: map[string][]int{}}

	_, err := NewUTXOTransaction(sender, "somewhere", 10, utxo, fakeResolver{})
	assert.Error(t, err)
}

func TestNewUTXOTransactionProducesChangeOutput(t *testing.T) {
	sender := NewWallet()
	receiver := NewWallet()

	prevTx := *NewCoinbaseTx(sender.Address())
	resolver := fakeResolver{string(prevTx.ID): prevTx}
	utxo := fakeUTXO{amount: 10, outputs: map[string][]int{string(prevTx.ID): {0}}}

	tx, err := NewUTXOTransaction(sender, receiver.Address(), 4, utxo, resolver)
	require.NoError(t, err)
	require.Len(t, tx.Vout, 2)
	assert.Equal(t, int32(4), tx.Vout[0].Value)
	assert.Equal(t, int32(6), tx.Vout[1].Value)

	ok, err := tx.Verify(resolver)
	require.NoError(t, err)
	assert.True(t, ok)
}
