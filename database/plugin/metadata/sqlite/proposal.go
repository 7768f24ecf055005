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

// CreateProposal inserts a new proposal. The ID is assigned by the database
// and written back into the model.
func (d *MetadataStoreSqlite) CreateProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	if proposal.ID != 0 {
		return errors.New("new proposal must not have an ID")
	}
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(proposal); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetProposal retrieves a proposal by ID. Returns nil if it does not exist.
func (d *MetadataStoreSqlite) GetProposal(
	id uint64,
	txn types.Txn,
) (*models.Proposal, error) {
	var proposal models.Proposal
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("id = ?", id).First(&proposal); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &proposal, nil
}

// GetOpenChallenge retrieves the challenge against a claim that has not yet
// ended. Returns nil if there is none.
func (d *MetadataStoreSqlite) GetOpenChallenge(
	claimID []byte,
	txn types.Txn,
) (*models.Proposal, error) {
	var proposal models.Proposal
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"kind = ? AND claim_id = ? AND ended = ?",
		models.ProposalKindChallenge,
		claimID,
		false,
	).Order("id DESC").First(&proposal); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &proposal, nil
}

// GetLatestChallenge retrieves the most recent challenge against a claim,
// ended or not. Returns nil if the claim was never challenged.
func (d *MetadataStoreSqlite) GetLatestChallenge(
	claimID []byte,
	txn types.Txn,
) (*models.Proposal, error) {
	var proposal models.Proposal
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"kind = ? AND claim_id = ?",
		models.ProposalKindChallenge,
		claimID,
	).Order("id DESC").First(&proposal); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &proposal, nil
}

// UpdateProposal saves all fields of an existing proposal
func (d *MetadataStoreSqlite) UpdateProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	if proposal.ID == 0 {
		return errors.New("proposal has no ID")
	}
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Save(proposal); result.Error != nil {
		return result.Error
	}
	return nil
}

// CountOpenProposals returns the number of proposals that have not ended
func (d *MetadataStoreSqlite) CountOpenProposals(
	txn types.Txn,
) (int64, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.Model(&models.Proposal{}).
		Where("ended = ?", false).
		Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
