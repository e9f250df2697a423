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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"math/big"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// curve is fixed P-256 for every keypair in the system: spec-mandated ECDSA
// P-256 with a fixed-length (non-recoverable) signature encoding.
var curve = elliptic.P256()

// newKeyPair generates a fresh ECDSA P-256 private key and its raw
// concatenated-coordinates public key.
func newKeyPair() (ecdsa.PrivateKey, []byte) {
	private, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		panic(err)
	}
	size := (curve.Params().BitSize + 7) / 8
	pubKey := make([]byte, 2*size)
	private.PublicKey.X.FillBytes(pubKey[:size])
	private.PublicKey.Y.FillBytes(pubKey[size:])
	return *private, pubKey
}

// signMessage signs msg with privateKey, returning a fixed-length r‖s signature.
func signMessage(privateKey ecdsa.PrivateKey, msg []byte) []byte {
	r, s, err := ecdsa.Sign(rand.Reader, &privateKey, msg)
	if err != nil {
		panic(err)
	}
	size := (curve.Params().BitSize + 7) / 8
	sig := make([]byte, 2*size)
	r.FillBytes(sig[:size])
	s.FillBytes(sig[size:])
	return sig
}

// verifySignature verifies sig over msg against the raw concatenated-coordinates
// public key pubKey. Any malformed input reports false, never panics.
func verifySignature(pubKey, sig, msg []byte) bool {
	if len(pubKey) == 0 || len(sig) == 0 {
		return false
	}

	keyLen := len(pubKey) / 2
	x := new(big.Int).SetBytes(pubKey[:keyLen])
	y := new(big.Int).SetBytes(pubKey[keyLen:])

	sigLen := len(sig) / 2
	r := new(big.Int).SetBytes(sig[:sigLen])
	s := new(big.Int).SetBytes(sig[sigLen:])

	return ecdsa.Verify(&ecdsa.PublicKey{Curve: curve, X: x, Y: y}, msg, r, s)
}

// HashPubKey hashes a raw public key with SHA-256 then RIPEMD-160, producing
// the 20-byte value addresses and output locks are built from.
func HashPubKey(pubKey []byte) []byte {
	sha := sha256.Sum256(pubKey)
	hasher := ripemd160.New()
	if _, err := hasher.Write(sha[:]); err != nil {
		panic(err)
	}
	return hasher.Sum(nil)
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:addrChecksumLen]
}

// base58Encode and base58Decode wrap the mr-tron/base58 library with the byte
// interface the rest of the package expects.
func base58Encode(input []byte) []byte {
	return []byte(base58.Encode(input))
}

func base58Decode(input []byte) ([]byte, error) {
	return base58.Decode(string(input))
}
