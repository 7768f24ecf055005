// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package proof provides proof of authorship for vote reveals. A proof binds
// a subject to the account that signed it; the engine never sees keys, only
// the account identity a Verifier extracts.
package proof

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	"golang.org/x/crypto/blake2b"
)

// AccountIdSize is the size in bytes of the hash that identifies an account
const AccountIdSize = 28

var ErrInvalidProof = errors.New("invalid proof")

// Verifier recovers the account that authored subject from proof
type Verifier interface {
	Verify(proof []byte, subject []byte) (string, error)
}

// signedProof is the wire form of an ed25519 proof: [publicKey, signature]
type signedProof struct {
	cbor.StructAsArray
	PublicKey []byte
	Signature []byte
}

// Ed25519Verifier verifies proofs produced by Signer
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(proof []byte, subject []byte) (string, error) {
	var tmp signedProof
	if _, err := cbor.Decode(proof, &tmp); err != nil {
		return "", fmt.Errorf("%w: decode: %w", ErrInvalidProof, err)
	}
	if len(tmp.PublicKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf(
			"%w: public key has %d bytes",
			ErrInvalidProof,
			len(tmp.PublicKey),
		)
	}
	if len(tmp.Signature) != ed25519.SignatureSize {
		return "", fmt.Errorf(
			"%w: signature has %d bytes",
			ErrInvalidProof,
			len(tmp.Signature),
		)
	}
	if !ed25519.Verify(tmp.PublicKey, subject, tmp.Signature) {
		return "", fmt.Errorf("%w: bad signature", ErrInvalidProof)
	}
	return AccountFromPublicKey(tmp.PublicKey), nil
}

// AccountFromPublicKey derives the account identity of a public key: the
// hex encoded blake2b-224 hash of the key
func AccountFromPublicKey(publicKey []byte) string {
	// blake2b.New only fails for bad sizes or oversized keys
	h, _ := blake2b.New(AccountIdSize, nil)
	h.Write(publicKey)
	return hex.EncodeToString(h.Sum(nil))
}

// RevealMessage returns the subject a voter signs to reveal option on a
// proposal
func RevealMessage(proposalID uint64, option uint8) ([]byte, error) {
	return cbor.Encode([]any{proposalID, option})
}

// CommitmentHash returns the secret hash a voter commits to while voting.
// Revealing the same proof and option later must reproduce it.
func CommitmentHash(proof []byte, option uint8) ([]byte, error) {
	data, err := cbor.Encode([]any{option, proof})
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(data)
	return sum[:], nil
}
