package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalletAddressRoundTrip(t *testing.T) {
	wallet := NewWallet()
	address := wallet.Address()

	assert.True(t, ValidateAddress(address))

	pubKeyHash := HashPubKey(wallet.PubKey)
	assert.Equal(t, pubKeyHash, PubKeyHashFromAddress(address))
}

func TestValidateAddressRejectsTamperedChecksum(t *testing.T) {
	wallet := NewWallet()
	address := wallet.Address()

	// Swap the last character for another Base58 digit so the string still
	// decodes but its trailing checksum bytes change.
	tampered := []byte(address)
	last := len(tampered) - 1
	if tampered[last] == '1' {
		tampered[last] = '2'
	} else {
		tampered[last] = '1'
	}
	assert.False(t, ValidateAddress(string(tampered)))
}

func TestWalletSignerInterface(t *testing.T) {
	wallet := NewWallet()
	var signer Signer = wallet

	msg := []byte("hello")
	sig := signer.Sign(msg)
	assert.True(t, verifySignature(signer.PublicKey(), sig, msg))
}
