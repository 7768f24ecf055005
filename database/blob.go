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

package database

import (
	"encoding/binary"
	"errors"

	"github.com/blinklabs-io/arbiter/database/types"
)

const (
	blobKeyPrefixDescription = "pd"
	blobKeyPrefixRevealProof = "rp"
)

func proposalDescriptionKey(proposalID uint64) []byte {
	return binary.BigEndian.AppendUint64(
		[]byte(blobKeyPrefixDescription),
		proposalID,
	)
}

func revealProofPrefix(proposalID uint64) []byte {
	return binary.BigEndian.AppendUint64(
		[]byte(blobKeyPrefixRevealProof),
		proposalID,
	)
}

func revealProofKey(proposalID uint64, voter string) []byte {
	return append(revealProofPrefix(proposalID), voter...)
}

// SetProposalDescription stores the free-form description of a governance
// proposal
func (d *Database) SetProposalDescription(
	proposalID uint64,
	description []byte,
	txn *Txn,
) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.blob.Set(
			txn.Blob(),
			proposalDescriptionKey(proposalID),
			description,
		)
	})
}

// ProposalDescription returns the description of a proposal, or nil if it
// has none
func (d *Database) ProposalDescription(
	proposalID uint64,
	txn *Txn,
) ([]byte, error) {
	var ret []byte
	err := d.withTxn(txn, false, func(txn *Txn) error {
		val, err := d.blob.Get(txn.Blob(), proposalDescriptionKey(proposalID))
		if err != nil {
			if errors.Is(err, types.ErrBlobKeyNotFound) {
				return nil
			}
			return err
		}
		ret = val
		return nil
	})
	return ret, err
}

// SetRevealProof archives the proof a voter revealed with
func (d *Database) SetRevealProof(
	proposalID uint64,
	voter string,
	proof []byte,
	txn *Txn,
) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.blob.Set(
			txn.Blob(),
			revealProofKey(proposalID, voter),
			proof,
		)
	})
}

// RevealProofs returns the archived reveal proofs for a proposal keyed by
// voter
func (d *Database) RevealProofs(
	proposalID uint64,
	txn *Txn,
) (map[string][]byte, error) {
	ret := make(map[string][]byte)
	err := d.withTxn(txn, false, func(txn *Txn) error {
		prefix := revealProofPrefix(proposalID)
		iter := d.blob.NewIterator(
			txn.Blob(),
			types.BlobIteratorOptions{Prefix: prefix},
		)
		defer iter.Close()
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			item := iter.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			ret[string(item.Key()[len(prefix):])] = val
		}
		return iter.Err()
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
