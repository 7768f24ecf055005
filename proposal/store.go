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

// Package proposal creates governance proposals and challenges and derives
// their phase from the clock.
package proposal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/arbiter/claim"
	"github.com/blinklabs-io/arbiter/database"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/database/types"
	"github.com/blinklabs-io/arbiter/errs"
	"github.com/blinklabs-io/arbiter/ledger"
)

// MaxDescriptionSize bounds governance proposal descriptions
const MaxDescriptionSize = 64 << 10

type Config struct {
	Logger               *slog.Logger
	Governance           Periods
	Challenge            Periods
	MinGovernanceDeposit uint64
}

type Store struct {
	db     *database.Database
	ledger *ledger.Ledger
	claims claim.Adapter
	config Config
	logger *slog.Logger
}

func NewStore(
	db *database.Database,
	l *ledger.Ledger,
	claims claim.Adapter,
	config Config,
) (*Store, error) {
	if err := config.Governance.Validate(); err != nil {
		return nil, fmt.Errorf("governance periods: %w", err)
	}
	if err := config.Challenge.Validate(); err != nil {
		return nil, fmt.Errorf("challenge periods: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Store{
		db:     db,
		ledger: l,
		claims: claims,
		config: config,
		logger: logger,
	}, nil
}

// Get returns a proposal by ID
func (s *Store) Get(txn *database.Txn, id uint64) (*models.Proposal, error) {
	p, err := s.db.GetProposal(id, txn)
	if err != nil {
		if errors.Is(err, models.ErrProposalNotFound) {
			return nil, fmt.Errorf("%w: proposal %d", errs.ErrNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

// GetOpenChallenge returns the challenge against a claim that has not
// ended yet
func (s *Store) GetOpenChallenge(
	txn *database.Txn,
	claimID []byte,
) (*models.Proposal, error) {
	p, err := s.db.GetOpenChallenge(claimID, txn)
	if err != nil {
		if errors.Is(err, models.ErrProposalNotFound) {
			return nil, fmt.Errorf(
				"%w: no open challenge for claim %x",
				errs.ErrNotFound,
				claimID,
			)
		}
		return nil, err
	}
	return p, nil
}

// GetLatestChallenge returns the most recent challenge against a claim,
// ended or not
func (s *Store) GetLatestChallenge(
	txn *database.Txn,
	claimID []byte,
) (*models.Proposal, error) {
	p, err := s.db.GetLatestChallenge(claimID, txn)
	if err != nil {
		if errors.Is(err, models.ErrProposalNotFound) {
			return nil, fmt.Errorf(
				"%w: no challenge for claim %x",
				errs.ErrNotFound,
				claimID,
			)
		}
		return nil, err
	}
	return p, nil
}

// CreateGovernance opens a governance proposal and escrows its deposit from
// the owner's deposit fund until the proposal ends
func (s *Store) CreateGovernance(
	txn *database.Txn,
	owner string,
	description []byte,
	deposit uint64,
	now uint64,
) (*models.Proposal, error) {
	if err := ledger.ValidateAccount(owner); err != nil {
		return nil, err
	}
	if len(description) > MaxDescriptionSize {
		return nil, fmt.Errorf(
			"%w: description longer than %d bytes",
			errs.ErrInvalidParameter,
			MaxDescriptionSize,
		)
	}
	if deposit < s.config.MinGovernanceDeposit {
		return nil, fmt.Errorf(
			"%w: deposit %d below minimum %d",
			errs.ErrInvalidParameter,
			deposit,
			s.config.MinGovernanceDeposit,
		)
	}
	p, err := s.newProposal(s.config.Governance, owner, deposit, now)
	if err != nil {
		return nil, err
	}
	p.Kind = models.ProposalKindGovernance
	if err := s.ledger.Transfer(txn, ledger.FundDeposit, deposit, owner, ledger.AccountEscrow); err != nil {
		return nil, err
	}
	if err := s.db.CreateProposal(p, txn); err != nil {
		return nil, err
	}
	if len(description) > 0 {
		if err := s.db.SetProposalDescription(p.ID, description, txn); err != nil {
			return nil, err
		}
	}
	s.logger.Debug(
		"created governance proposal",
		"component", "proposal",
		"proposal_id", p.ID,
		"owner", owner,
	)
	return p, nil
}

// CreateChallenge opens a challenge against a registered claim. The
// challenger matches the claim's deposit, which is escrowed until the
// challenge is settled.
func (s *Store) CreateChallenge(
	txn *database.Txn,
	challenger string,
	claimID []byte,
	now uint64,
) (*models.Proposal, error) {
	if err := ledger.ValidateAccount(challenger); err != nil {
		return nil, err
	}
	if len(claimID) != claim.IDSize {
		return nil, fmt.Errorf(
			"%w: claim ID must be %d bytes",
			errs.ErrInvalidParameter,
			claim.IDSize,
		)
	}
	deposit, err := s.claims.GetExistingDeposit(txn, claimID)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.GetOpenChallenge(claimID, txn); err == nil {
		return nil, fmt.Errorf(
			"%w: claim %x is already challenged",
			errs.ErrAlreadyExists,
			claimID,
		)
	} else if !errors.Is(err, models.ErrProposalNotFound) {
		return nil, err
	}
	if challenger == deposit.Owner {
		return nil, fmt.Errorf(
			"%w: claim owner cannot challenge their own claim",
			errs.ErrUnauthorized,
		)
	}
	p, err := s.newProposal(s.config.Challenge, challenger, deposit.Amount, now)
	if err != nil {
		return nil, err
	}
	p.Kind = models.ProposalKindChallenge
	p.ClaimID = claimID
	p.Defender = deposit.Owner
	if err := s.ledger.Transfer(txn, ledger.FundDeposit, deposit.Amount, challenger, ledger.AccountEscrow); err != nil {
		return nil, err
	}
	if err := s.db.CreateProposal(p, txn); err != nil {
		return nil, err
	}
	if err := s.claims.OnChallengeStarted(txn, claimID); err != nil {
		return nil, err
	}
	s.logger.Debug(
		"created challenge",
		"component", "proposal",
		"proposal_id", p.ID,
		"claim_id", fmt.Sprintf("%x", claimID),
		"challenger", challenger,
	)
	return p, nil
}

// CanEnd returns true once p may be settled: after the revealing phase, or
// during it once every commitment has been revealed or cancelled
func (s *Store) CanEnd(
	txn *database.Txn,
	p *models.Proposal,
	now uint64,
) (bool, error) {
	switch StatusAt(p, now) {
	case StatusPastRevealing:
		return true, nil
	case StatusRevealing:
		pending, err := s.db.CountPendingCommitments(p.ID, txn)
		if err != nil {
			return false, err
		}
		return pending == 0, nil
	default:
		return false, nil
	}
}

func (s *Store) newProposal(
	periods Periods,
	owner string,
	deposit uint64,
	now uint64,
) (*models.Proposal, error) {
	lobbyEnd, votingEnd, revealingEnd, err := periods.boundaries(now)
	if err != nil {
		return nil, err
	}
	return &models.Proposal{
		Owner:        owner,
		CreationTime: now,
		LobbyEnd:     lobbyEnd,
		VotingEnd:    votingEnd,
		RevealingEnd: revealingEnd,
		Deposit:      types.Uint64(deposit),
	}, nil
}
