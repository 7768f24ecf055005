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

package metadata

import (
	"log/slog"

	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/arbiter/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Fund ledger
	GetBalance(
		string, // account
		string, // fund
		types.Txn,
	) (uint64, error)
	SetBalance(
		string, // account
		string, // fund
		uint64, // amount
		types.Txn,
	) error
	GetBalancesByFund(
		string, // fund
		types.Txn,
	) ([]models.Balance, error)
	GetReserve(
		string, // fund
		types.Txn,
	) (uint64, error)
	SetReserve(
		string, // fund
		uint64, // amount
		types.Txn,
	) error

	// Proposals
	CreateProposal(*models.Proposal, types.Txn) error
	GetProposal(
		uint64, // id
		types.Txn,
	) (*models.Proposal, error)
	GetOpenChallenge(
		[]byte, // claimID
		types.Txn,
	) (*models.Proposal, error)
	GetLatestChallenge(
		[]byte, // claimID
		types.Txn,
	) (*models.Proposal, error)
	UpdateProposal(*models.Proposal, types.Txn) error
	CountOpenProposals(types.Txn) (int64, error)

	// Vote commitments and pending chains
	GetVoteCommitment(
		uint64, // proposalID
		string, // voter
		types.Txn,
	) (*models.VoteCommitment, error)
	SetVoteCommitment(*models.VoteCommitment, types.Txn) error
	GetLatestPendingCommitmentBefore(
		string, // voter
		uint64, // votingStart
		uint64, // proposalID
		types.Txn,
	) (*models.VoteCommitment, error)
	GetLatestPendingCommitmentAt(
		string, // voter
		uint64, // prevTime
		uint64, // votingStart
		uint64, // proposalID
		types.Txn,
	) (*models.VoteCommitment, error)
	CountPendingCommitments(
		uint64, // proposalID
		types.Txn,
	) (int64, error)
	HasLockedCommitment(
		string, // voter
		uint64, // now
		types.Txn,
	) (bool, error)
	GetTalliedCommitments(
		uint64, // proposalID
		uint8, // option
		types.Txn,
	) ([]models.VoteCommitment, error)
	GetPendingChain(
		string, // voter
		types.Txn,
	) (*models.PendingChain, error)
	SetPendingChain(*models.PendingChain, types.Txn) error
	GetWinningsClaim(
		uint64, // proposalID
		string, // voter
		types.Txn,
	) (*models.WinningsClaim, error)
	AddWinningsClaim(*models.WinningsClaim, types.Txn) error

	// Claims
	GetClaim(
		[]byte, // claimID
		types.Txn,
	) (*models.Claim, error)
	SetClaim(*models.Claim, types.Txn) error
}

// New creates a new metadata store. SQLite is the only backend
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	store, err := sqlite.New(dataDir, logger, promRegistry)
	if store == nil {
		return nil, err
	}
	// The store is returned alongside any init error so it can be closed
	return store, err
}
