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
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Subsidy is the flat coinbase reward: a constant, with no retargeting or
// halving schedule.
const Subsidy = 10

// TXInput references one output of a prior transaction.
type TXInput struct {
	TxID      []byte
	Vout      int
	Signature []byte
	PubKey    []byte
}

// UsesKey reports whether pubKeyHash is the key that authorizes spending
// through this input.
func (in *TXInput) UsesKey(pubKeyHash []byte) bool {
	return bytes.Equal(HashPubKey(in.PubKey), pubKeyHash)
}

// TXOutput locks Value to exactly one PubKeyHash.
type TXOutput struct {
	Value      int32
	PubKeyHash []byte
}

// Lock sets the output's PubKeyHash from a Base58 address.
func (out *TXOutput) Lock(address string) {
	out.PubKeyHash = PubKeyHashFromAddress(address)
}

// IsLockedWithKey reports whether pubKeyHash can spend this output.
func (out *TXOutput) IsLockedWithKey(pubKeyHash []byte) bool {
	return bytes.Equal(out.PubKeyHash, pubKeyHash)
}

// NewTXOutput builds an output locked to address.
func NewTXOutput(value int32, address string) *TXOutput {
	out := &TXOutput{Value: value}
	out.Lock(address)
	return out
}

// TXOutputs groups one transaction's unspent outputs, as returned per txid by
// Blockchain.FindUTXO. The chainstate tree itself stores IndexedOutput lists.
type TXOutputs struct {
	Outputs []TXOutput
}

// Transaction is a signed, content-addressed UTXO transaction.
type Transaction struct {
	ID   []byte
	Vin  []TXInput
	Vout []TXOutput
}

// IsCoinbase reports whether tx is a coinbase transaction: exactly one input
// with an empty PubKey.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Vin) == 1 && len(tx.Vin[0].PubKey) == 0
}

// Serialize gob-encodes tx for storage.
func (tx Transaction) Serialize() []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tx); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// DeserializeTransaction decodes a gob-encoded Transaction.
func DeserializeTransaction(data []byte) Transaction {
	var tx Transaction
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&tx); err != nil {
		panic(err)
	}
	return tx
}

// Hash returns the SHA-256 hash of tx's canonical serialization with ID cleared.
func (tx *Transaction) Hash() []byte {
	txCopy := *tx
	txCopy.ID = []byte{}
	hash := sha256.Sum256(txCopy.Serialize())
	return hash[:]
}

// NewCoinbaseTx builds the miner-reward transaction for to. The input carries
// a random 128-bit UUID tag (instead of a real prior output) so that
// coinbase transactions mined in the same millisecond still get distinct IDs.
func NewCoinbaseTx(to string) *Transaction {
	tag := uuid.New()
	in := TXInput{TxID: []byte{}, Vout: -1, Signature: tag[:], PubKey: nil}
	out := NewTXOutput(Subsidy, to)
	tx := Transaction{Vin: []TXInput{in}, Vout: []TXOutput{*out}}
	tx.ID = tx.Hash()
	return &tx
}

// trimmedCopy returns a copy of tx with every input's Signature and PubKey
// blanked, used as the base for the per-input signing message.
func (tx *Transaction) trimmedCopy() Transaction {
	vin := make([]TXInput, len(tx.Vin))
	for i, in := range tx.Vin {
		vin[i] = TXInput{TxID: in.TxID, Vout: in.Vout}
	}
	vout := make([]TXOutput, len(tx.Vout))
	copy(vout, tx.Vout)
	return Transaction{ID: tx.ID, Vin: vin, Vout: vout}
}

// PrevTxResolver looks up a transaction by ID, as needed to resolve the
// output a given input spends. Decouples transaction signing/verification
// from any particular Blockchain implementation (spec.md §9 "Signing
// protocol coupling").
type PrevTxResolver interface {
	FindTransaction(txID []byte) (Transaction, error)
}

// Signer produces an ECDSA signature and exposes the matching raw public key.
// Wallet implements Signer.
type Signer interface {
	Sign(msg []byte) []byte
	PublicKey() []byte
}

// Sign signs every input of tx in index order. Coinbase transactions are
// left untouched. A missing prior transaction is a fatal error per spec.md §7.
func (tx *Transaction) Sign(signer Signer, resolver PrevTxResolver) error {
	if tx.IsCoinbase() {
		return nil
	}

	prevTxs := make(map[string]Transaction, len(tx.Vin))
	for _, in := range tx.Vin {
		prevTx, err := resolver.FindTransaction(in.TxID)
		if err != nil {
			return fmt.Errorf("sign: resolve prior transaction: %w", err)
		}
		prevTxs[string(in.TxID)] = prevTx
	}

	txCopy := tx.trimmedCopy()
	for i, in := range tx.Vin {
		prevTx := prevTxs[string(in.TxID)]
		txCopy.Vin[i].PubKey = prevTx.Vout[in.Vout].PubKeyHash
		txCopy.ID = txCopy.Hash()
		txCopy.Vin[i].PubKey = nil

		tx.Vin[i].Signature = signer.Sign(txCopy.ID)
	}
	return nil
}

// Verify checks every input's signature against the public-key hash of the
// output it spends. Coinbase transactions always verify. A missing prior
// transaction is a fatal error per spec.md §7.
func (tx *Transaction) Verify(resolver PrevTxResolver) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}

	prevTxs := make(map[string]Transaction, len(tx.Vin))
	for _, in := range tx.Vin {
		prevTx, err := resolver.FindTransaction(in.TxID)
		if err != nil {
			return false, fmt.Errorf("verify: resolve prior transaction: %w", err)
		}
		prevTxs[string(in.TxID)] = prevTx
	}

	txCopy := tx.trimmedCopy()
	for i, in := range tx.Vin {
		prevTx := prevTxs[string(in.TxID)]
		txCopy.Vin[i].PubKey = prevTx.Vout[in.Vout].PubKeyHash
		txCopy.ID = txCopy.Hash()
		txCopy.Vin[i].PubKey = nil

		if !verifySignature(in.PubKey, in.Signature, txCopy.ID) {
			return false, nil
		}
	}
	return true, nil
}

// SpendableOutputsFinder is the narrow view of the UTXO index
// NewUTXOTransaction needs to select inputs. Map keys are raw txid bytes
// cast to string, not hex — cheap and collision-free since Go strings are
// just byte sequences.
type SpendableOutputsFinder interface {
	FindSpendableOutputs(pubKeyHash []byte, amount int32) (int32, map[string][]int)
}

// NewUTXOTransaction builds and signs a transaction moving amount from the
// wallet behind signer to the address to, selecting inputs from utxo in its
// iteration order until the accumulated value reaches amount.
func NewUTXOTransaction(signer Signer, to string, amount int32, utxo SpendableOutputsFinder, resolver PrevTxResolver) (*Transaction, error) {
	pubKeyHash := HashPubKey(signer.PublicKey())
	accumulated, validOutputs := utxo.FindSpendableOutputs(pubKeyHash, amount)
	if accumulated < amount {
		return nil, fmt.Errorf("insufficient funds: have %d, need %d", accumulated, amount)
	}

	var vin []TXInput
	for txIDKey, outs := range validOutputs {
		txID := []byte(txIDKey)
		for _, outIdx := range outs {
			vin = append(vin, TXInput{TxID: txID, Vout: outIdx, PubKey: signer.PublicKey()})
		}
	}

	vout := []TXOutput{*NewTXOutput(amount, to)}
	if accumulated > amount {
		from := string(AddressFromPubKey(signer.PublicKey()))
		vout = append(vout, *NewTXOutput(accumulated-amount, from))
	}

	tx := &Transaction{Vin: vin, Vout: vout}
	tx.ID = tx.Hash()
	if err := tx.Sign(signer, resolver); err != nil {
		return nil, err
	}
	return tx, nil
}

// String renders tx for debugging / printchain output.
func (tx Transaction) String() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("--- Transaction %x:", tx.ID))
	for i, in := range tx.Vin {
		lines = append(lines, fmt.Sprintf("     Input %d:", i))
		lines = append(lines, fmt.Sprintf("       TxID:      %x", in.TxID))
		lines = append(lines, fmt.Sprintf("       Out:       %d", in.Vout))
		lines = append(lines, fmt.Sprintf("       Signature: %x", in.Signature))
		lines = append(lines, fmt.Sprintf("       PubKey:    %x", in.PubKey))
	}
	for i, out := range tx.Vout {
		lines = append(lines, fmt.Sprintf("     Output %d:", i))
		lines = append(lines, fmt.Sprintf("       Value:  %d", out.Value))
		lines = append(lines, fmt.Sprintf("       Script: %x", out.PubKeyHash))
	}
	return strings.Join(lines, "\n")
}
