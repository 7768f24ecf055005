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

import "github.com/blinklabs-io/arbiter/database/models"

// GetVoteCommitment returns a voter's commitment on a proposal, or
// models.ErrVoteCommitmentNotFound
func (d *Database) GetVoteCommitment(
	proposalID uint64,
	voter string,
	txn *Txn,
) (*models.VoteCommitment, error) {
	var ret *models.VoteCommitment
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVoteCommitment(proposalID, voter, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrVoteCommitmentNotFound
	}
	return ret, nil
}

// SetVoteCommitment creates or saves a commitment
func (d *Database) SetVoteCommitment(
	commitment *models.VoteCommitment,
	txn *Txn,
) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetVoteCommitment(commitment, txn.Metadata())
	})
}

// GetLatestPendingCommitmentBefore returns the voter's pending commitment
// that sorts immediately before (votingStart, proposalID), or nil
func (d *Database) GetLatestPendingCommitmentBefore(
	voter string,
	votingStart uint64,
	proposalID uint64,
	txn *Txn,
) (*models.VoteCommitment, error) {
	var ret *models.VoteCommitment
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetLatestPendingCommitmentBefore(
			voter,
			votingStart,
			proposalID,
			txn.Metadata(),
		)
		return err
	})
	return ret, err
}

// GetLatestPendingCommitmentAt returns the voter's last pending commitment
// with a voting start of prevTime that sorts before (votingStart,
// proposalID), or nil
func (d *Database) GetLatestPendingCommitmentAt(
	voter string,
	prevTime uint64,
	votingStart uint64,
	proposalID uint64,
	txn *Txn,
) (*models.VoteCommitment, error) {
	var ret *models.VoteCommitment
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetLatestPendingCommitmentAt(
			voter,
			prevTime,
			votingStart,
			proposalID,
			txn.Metadata(),
		)
		return err
	})
	return ret, err
}

// CountPendingCommitments returns the number of unrevealed, uncancelled
// commitments on a proposal
func (d *Database) CountPendingCommitments(
	proposalID uint64,
	txn *Txn,
) (int64, error) {
	var ret int64
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.CountPendingCommitments(proposalID, txn.Metadata())
		return err
	})
	return ret, err
}

// HasLockedCommitment returns true if the voter holds a pending commitment
// whose voting phase closed at or before now
func (d *Database) HasLockedCommitment(
	voter string,
	now uint64,
	txn *Txn,
) (bool, error) {
	var ret bool
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.HasLockedCommitment(voter, now, txn.Metadata())
		return err
	})
	return ret, err
}

// GetTalliedCommitments returns the commitments counted for an option
func (d *Database) GetTalliedCommitments(
	proposalID uint64,
	option uint8,
	txn *Txn,
) ([]models.VoteCommitment, error) {
	var ret []models.VoteCommitment
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTalliedCommitments(
			proposalID,
			option,
			txn.Metadata(),
		)
		return err
	})
	return ret, err
}

// GetPendingChain returns the ends of a voter's pending chain. A voter that
// never committed has an empty chain.
func (d *Database) GetPendingChain(
	voter string,
	txn *Txn,
) (*models.PendingChain, error) {
	var ret *models.PendingChain
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetPendingChain(voter, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, err
	}
	if ret == nil {
		ret = &models.PendingChain{Voter: voter}
	}
	return ret, nil
}

// SetPendingChain saves the ends of a voter's pending chain
func (d *Database) SetPendingChain(chain *models.PendingChain, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetPendingChain(chain, txn.Metadata())
	})
}

// GetWinningsClaim returns a voter's winnings claim on a proposal, or nil
func (d *Database) GetWinningsClaim(
	proposalID uint64,
	voter string,
	txn *Txn,
) (*models.WinningsClaim, error) {
	var ret *models.WinningsClaim
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetWinningsClaim(proposalID, voter, txn.Metadata())
		return err
	})
	return ret, err
}

// AddWinningsClaim records a winnings payout
func (d *Database) AddWinningsClaim(claim *models.WinningsClaim, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.AddWinningsClaim(claim, txn.Metadata())
	})
}
