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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/database/types"
	"gorm.io/gorm"
)

// GetVoteCommitment retrieves a voter's commitment on a proposal. Returns nil
// if the voter never committed.
func (d *MetadataStoreSqlite) GetVoteCommitment(
	proposalID uint64,
	voter string,
	txn types.Txn,
) (*models.VoteCommitment, error) {
	var commitment models.VoteCommitment
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"proposal_id = ? AND voter = ?",
		proposalID,
		voter,
	).First(&commitment); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &commitment, nil
}

// SetVoteCommitment creates a commitment, or saves all fields if it already
// has an ID
func (d *MetadataStoreSqlite) SetVoteCommitment(
	commitment *models.VoteCommitment,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if commitment.ID == 0 {
		if result := db.Create(commitment); result.Error != nil {
			return result.Error
		}
		return nil
	}
	if result := db.Save(commitment); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetLatestPendingCommitmentBefore returns the voter's pending commitment
// that sorts immediately before (votingStart, proposalID) in the pending
// chain order. Returns nil if there is none.
func (d *MetadataStoreSqlite) GetLatestPendingCommitmentBefore(
	voter string,
	votingStart uint64,
	proposalID uint64,
	txn types.Txn,
) (*models.VoteCommitment, error) {
	var commitment models.VoteCommitment
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"voter = ? AND pending = ? AND (voting_start < ? OR (voting_start = ? AND proposal_id < ?))",
		voter,
		true,
		votingStart,
		votingStart,
		proposalID,
	).Order("voting_start DESC, proposal_id DESC").First(&commitment); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &commitment, nil
}

// GetLatestPendingCommitmentAt returns the voter's last pending commitment
// whose voting start equals prevTime and that sorts before
// (votingStart, proposalID). Returns nil if there is none.
func (d *MetadataStoreSqlite) GetLatestPendingCommitmentAt(
	voter string,
	prevTime uint64,
	votingStart uint64,
	proposalID uint64,
	txn types.Txn,
) (*models.VoteCommitment, error) {
	if prevTime > votingStart {
		return nil, nil
	}
	var commitment models.VoteCommitment
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Where(
		"voter = ? AND pending = ? AND voting_start = ?",
		voter,
		true,
		prevTime,
	)
	if prevTime == votingStart {
		query = query.Where("proposal_id < ?", proposalID)
	}
	if result := query.Order("proposal_id DESC").First(&commitment); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &commitment, nil
}

// CountPendingCommitments returns the number of commitments on a proposal
// that are neither revealed nor cancelled
func (d *MetadataStoreSqlite) CountPendingCommitments(
	proposalID uint64,
	txn types.Txn,
) (int64, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.Model(&models.VoteCommitment{}).
		Where("proposal_id = ? AND pending = ?", proposalID, true).
		Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// HasLockedCommitment returns true if the voter has a pending commitment on
// a proposal whose voting phase closed at or before now
func (d *MetadataStoreSqlite) HasLockedCommitment(
	voter string,
	now uint64,
	txn types.Txn,
) (bool, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return false, err
	}
	if result := db.Model(&models.VoteCommitment{}).
		Where(
			"voter = ? AND pending = ? AND voting_end <= ?",
			voter,
			true,
			now,
		).
		Count(&count); result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// GetTalliedCommitments returns the commitments on a proposal that were
// revealed with the given option and counted in its tally
func (d *MetadataStoreSqlite) GetTalliedCommitments(
	proposalID uint64,
	option uint8,
	txn types.Txn,
) ([]models.VoteCommitment, error) {
	var ret []models.VoteCommitment
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"proposal_id = ? AND revealed_option = ? AND tallied = ?",
		proposalID,
		option,
		true,
	).Order("id ASC").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetPendingChain retrieves the ends of a voter's pending chain. Returns nil
// if the voter has never had a pending commitment.
func (d *MetadataStoreSqlite) GetPendingChain(
	voter string,
	txn types.Txn,
) (*models.PendingChain, error) {
	var chain models.PendingChain
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("voter = ?", voter).First(&chain); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &chain, nil
}

// SetPendingChain creates or updates a voter's pending chain ends
func (d *MetadataStoreSqlite) SetPendingChain(
	chain *models.PendingChain,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Save(chain); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetWinningsClaim retrieves a voter's winnings claim on a proposal. Returns
// nil if the voter has not claimed.
func (d *MetadataStoreSqlite) GetWinningsClaim(
	proposalID uint64,
	voter string,
	txn types.Txn,
) (*models.WinningsClaim, error) {
	var claim models.WinningsClaim
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"proposal_id = ? AND voter = ?",
		proposalID,
		voter,
	).First(&claim); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &claim, nil
}

// AddWinningsClaim records a winnings payout. The unique index on
// (proposal, voter) rejects a second claim.
func (d *MetadataStoreSqlite) AddWinningsClaim(
	claim *models.WinningsClaim,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(claim); result.Error != nil {
		return result.Error
	}
	return nil
}
