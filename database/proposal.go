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

// CreateProposal inserts a new proposal and assigns its ID
func (d *Database) CreateProposal(proposal *models.Proposal, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.CreateProposal(proposal, txn.Metadata())
	})
}

// GetProposal returns a proposal by ID, or models.ErrProposalNotFound
func (d *Database) GetProposal(id uint64, txn *Txn) (*models.Proposal, error) {
	var ret *models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposal(id, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrProposalNotFound
	}
	return ret, nil
}

// GetOpenChallenge returns the challenge against a claim that has not yet
// ended, or models.ErrProposalNotFound
func (d *Database) GetOpenChallenge(
	claimID []byte,
	txn *Txn,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetOpenChallenge(claimID, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrProposalNotFound
	}
	return ret, nil
}

// GetLatestChallenge returns the most recent challenge against a claim,
// ended or not, or models.ErrProposalNotFound
func (d *Database) GetLatestChallenge(
	claimID []byte,
	txn *Txn,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetLatestChallenge(claimID, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrProposalNotFound
	}
	return ret, nil
}

// UpdateProposal saves all fields of an existing proposal
func (d *Database) UpdateProposal(proposal *models.Proposal, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.UpdateProposal(proposal, txn.Metadata())
	})
}

// CountOpenProposals returns the number of proposals that have not ended
func (d *Database) CountOpenProposals(txn *Txn) (int64, error) {
	var ret int64
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.CountOpenProposals(txn.Metadata())
		return err
	})
	return ret, err
}
