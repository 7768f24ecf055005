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

package proof

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

// Signer holds an ed25519 key and produces proofs for Ed25519Verifier
type Signer struct {
	privateKey ed25519.PrivateKey
}

// NewSigner creates a signer from a 32-byte seed
func NewSigner(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf(
			"seed must be %d bytes, got %d",
			ed25519.SeedSize,
			len(seed),
		)
	}
	return &Signer{privateKey: ed25519.NewKeyFromSeed(seed)}, nil
}

// GenerateSigner creates a signer with a random key
func GenerateSigner() (*Signer, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to generate seed: %w", err)
	}
	return NewSigner(seed)
}

// Seed returns the seed the key was derived from
func (s *Signer) Seed() []byte {
	return s.privateKey.Seed()
}

// PublicKey returns the public half of the key
func (s *Signer) PublicKey() []byte {
	pub, _ := s.privateKey.Public().(ed25519.PublicKey)
	return pub
}

// Account returns the account identity proofs from this signer verify to
func (s *Signer) Account() string {
	return AccountFromPublicKey(s.PublicKey())
}

// Sign returns a proof of authorship over subject
func (s *Signer) Sign(subject []byte) ([]byte, error) {
	return cbor.Encode(
		&signedProof{
			PublicKey: s.PublicKey(),
			Signature: ed25519.Sign(s.privateKey, subject),
		},
	)
}

// RevealProof signs the reveal message for option on a proposal
func (s *Signer) RevealProof(proposalID uint64, option uint8) ([]byte, error) {
	msg, err := RevealMessage(proposalID, option)
	if err != nil {
		return nil, err
	}
	return s.Sign(msg)
}

// Commitment returns the reveal proof for option on a proposal together
// with the secret hash to commit while voting
func (s *Signer) Commitment(
	proposalID uint64,
	option uint8,
) ([]byte, []byte, error) {
	proof, err := s.RevealProof(proposalID, option)
	if err != nil {
		return nil, nil, err
	}
	hash, err := CommitmentHash(proof, option)
	if err != nil {
		return nil, nil, err
	}
	return proof, hash, nil
}
