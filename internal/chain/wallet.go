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
	"crypto/ecdsa"
)

// Version is the address version byte.
const Version = byte(0x00)

// AddressChecksumLen is the length, in bytes, of an address's trailing checksum.
const AddressChecksumLen = 4

const addrChecksumLen = AddressChecksumLen

// Wallet holds one ECDSA P-256 key pair. Its on-disk persistence as part of a
// collection is an external concern (internal/walletstore); Wallet itself is
// only the keypair plus address derivation.
type Wallet struct {
	PrivateKey ecdsa.PrivateKey
	PubKey     []byte
}

// NewWallet generates a fresh Wallet.
func NewWallet() *Wallet {
	private, public := newKeyPair()
	return &Wallet{PrivateKey: private, PubKey: public}
}

// Address derives the Base58 address for the wallet's public key:
// Base58(version ‖ RIPEMD160(SHA256(pubKey)) ‖ checksum).
func (w *Wallet) Address() string {
	return string(AddressFromPubKey(w.PubKey))
}

// Sign implements the Signer interface consumed by the transaction signing
// service: it signs msg with the wallet's private key.
func (w *Wallet) Sign(msg []byte) []byte {
	return signMessage(w.PrivateKey, msg)
}

// PublicKey implements the Signer interface.
func (w *Wallet) PublicKey() []byte {
	return w.PubKey
}

// AddressFromPubKey derives a Base58 address directly from a raw public key,
// without requiring a full Wallet (used to recompute addresses in tests and
// CLI display code).
func AddressFromPubKey(pubKey []byte) []byte {
	pubKeyHash := HashPubKey(pubKey)
	versionedPayload := append([]byte{Version}, pubKeyHash...)
	sum := checksum(versionedPayload)
	fullPayload := append(versionedPayload, sum...)
	return base58Encode(fullPayload)
}

// ValidateAddress reverses the address construction and recomputes the
// checksum. A syntactically invalid Base58 string is a programmer error and
// panics; a checksum mismatch returns false.
func ValidateAddress(address string) bool {
	fullPayload, err := base58Decode([]byte(address))
	if err != nil {
		panic(err)
	}
	if len(fullPayload) <= AddressChecksumLen {
		return false
	}

	actualChecksum := fullPayload[len(fullPayload)-AddressChecksumLen:]
	version := fullPayload[0]
	pubKeyHash := fullPayload[1 : len(fullPayload)-AddressChecksumLen]

	targetChecksum := checksum(append([]byte{version}, pubKeyHash...))
	return bytes.Equal(actualChecksum, targetChecksum)
}

// PubKeyHashFromAddress strips the version prefix and checksum suffix from a
// Base58 address, returning the raw pub-key hash an output is locked to.
func PubKeyHashFromAddress(address string) []byte {
	fullPayload, err := base58Decode([]byte(address))
	if err != nil {
		panic(err)
	}
	return fullPayload[1 : len(fullPayload)-AddressChecksumLen]
}
