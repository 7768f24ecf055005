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

// Package settlement ends proposals once voting is over. Governance
// proposals only record their outcome; challenges also pay out the
// challenge deposit to the winner, the ender and the winning voters.
package settlement

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
	"github.com/blinklabs-io/arbiter/proposal"
)

type Config struct {
	Logger *slog.Logger
	// Treasury receives the part of a voter pool that can't be paid out:
	// the rounding remainder, or the whole pool when nobody voted for the
	// winning option
	Treasury string
}

type Settler struct {
	db        *database.Database
	proposals *proposal.Store
	ledger    *ledger.Ledger
	claims    claim.Adapter
	logger    *slog.Logger
	treasury  string
}

func NewSettler(
	db *database.Database,
	proposals *proposal.Store,
	l *ledger.Ledger,
	claims claim.Adapter,
	config Config,
) (*Settler, error) {
	if config.Treasury == "" {
		config.Treasury = ledger.AccountTreasury
	}
	if config.Treasury == ledger.AccountEscrow ||
		config.Treasury == ledger.AccountRegistry {
		return nil, fmt.Errorf(
			"%w: treasury cannot be %s",
			errs.ErrInvalidParameter,
			config.Treasury,
		)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Settler{
		db:        db,
		proposals: proposals,
		ledger:    l,
		claims:    claims,
		logger:    logger,
		treasury:  config.Treasury,
	}, nil
}

// Treasury returns the account that collects unpaid pool remainders
func (s *Settler) Treasury() string {
	return s.treasury
}

// checkEnd verifies that p may be ended by ender at now
func (s *Settler) checkEnd(
	txn *database.Txn,
	p *models.Proposal,
	ender string,
	now uint64,
) error {
	if err := ledger.ValidateAccount(ender); err != nil {
		return err
	}
	if p.Ended {
		return fmt.Errorf("%w: already ended", errs.ErrInvalidState)
	}
	ok, err := s.proposals.CanEnd(txn, p, now)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf(
			"%w: proposal %d is %s and cannot end yet",
			errs.ErrInvalidState,
			p.ID,
			proposal.StatusAt(p, now),
		)
	}
	return nil
}

func (s *Settler) markEnded(
	p *models.Proposal,
	ender string,
	now uint64,
	forWon bool,
) {
	p.Ended = true
	p.EndedTime = now
	p.Ender = ender
	p.Outcome = models.OutcomeRejected
	if forWon {
		p.Outcome = models.OutcomeAccepted
	}
}

// EndGovernance records the outcome of a governance proposal and refunds
// its deposit to the owner
func (s *Settler) EndGovernance(
	txn *database.Txn,
	proposalID uint64,
	ender string,
	now uint64,
) (*models.Proposal, error) {
	p, err := s.proposals.Get(txn, proposalID)
	if err != nil {
		return nil, err
	}
	if p.IsChallenge() {
		return nil, fmt.Errorf(
			"%w: proposal %d is a challenge",
			errs.ErrInvalidParameter,
			p.ID,
		)
	}
	if err := s.checkEnd(txn, p, ender, now); err != nil {
		return nil, err
	}
	if err := s.ledger.Transfer(
		txn,
		ledger.FundDeposit,
		uint64(p.Deposit),
		ledger.AccountEscrow,
		p.Owner,
	); err != nil {
		return nil, err
	}
	s.markEnded(p, ender, now, p.VotesFor > p.VotesAgainst)
	if err := s.db.UpdateProposal(p, txn); err != nil {
		return nil, err
	}
	s.logger.Debug(
		"ended governance proposal",
		"component", "settlement",
		"proposal_id", p.ID,
		"accepted", p.Outcome == models.OutcomeAccepted,
	)
	return p, nil
}

// EndChallenge settles the open challenge against a claim. The challenger
// wins only with strictly more votes for than against.
func (s *Settler) EndChallenge(
	txn *database.Txn,
	claimID []byte,
	ender string,
	now uint64,
) (*models.Proposal, error) {
	p, err := s.proposals.GetLatestChallenge(txn, claimID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEnd(txn, p, ender, now); err != nil {
		return nil, err
	}
	challengerWon := p.VotesFor > p.VotesAgainst
	winner := p.Defender
	p.WinningOption = models.OptionAgainst
	p.WinningTotal = p.VotesAgainst
	if challengerWon {
		winner = p.Owner
		p.WinningOption = models.OptionFor
		p.WinningTotal = p.VotesFor
	}
	split := Split(uint64(p.Deposit))
	var paid uint64
	if p.WinningTotal > 0 {
		winners, err := s.db.GetTalliedCommitments(p.ID, p.WinningOption, txn)
		if err != nil {
			return nil, err
		}
		for _, c := range winners {
			paid += Share(split.Pool, uint64(c.Weight), uint64(p.WinningTotal))
		}
	}
	if paid > split.Pool {
		return nil, fmt.Errorf(
			"%w: voter shares %d exceed pool %d",
			errs.ErrInvalidState,
			paid,
			split.Pool,
		)
	}
	p.VoterPool = types.Uint64(split.Pool)
	p.Remainder = types.Uint64(split.Pool - paid)
	for _, payout := range []struct {
		to     string
		amount uint64
	}{
		{winner, split.Winner},
		{ender, split.Ender},
		{s.treasury, uint64(p.Remainder)},
	} {
		if err := s.ledger.Transfer(
			txn,
			ledger.FundDeposit,
			payout.amount,
			ledger.AccountEscrow,
			payout.to,
		); err != nil {
			return nil, err
		}
	}
	s.markEnded(p, ender, now, challengerWon)
	if err := s.db.UpdateProposal(p, txn); err != nil {
		return nil, err
	}
	if err := s.claims.OnChallengeResolved(txn, claimID, challengerWon); err != nil {
		return nil, err
	}
	s.logger.Info(
		"challenge settled",
		"component", "settlement",
		"proposal_id", p.ID,
		"claim_id", fmt.Sprintf("%x", claimID),
		"challenger_won", challengerWon,
		"voter_pool", split.Pool,
		"remainder", uint64(p.Remainder),
	)
	return p, nil
}

// Winnings returns what a voter can still claim from a settled challenge
func (s *Settler) Winnings(
	txn *database.Txn,
	proposalID uint64,
	voter string,
) (uint64, error) {
	p, c, err := s.winningCommitment(txn, proposalID, voter)
	if err != nil {
		return 0, err
	}
	return Share(uint64(p.VoterPool), uint64(c.Weight), uint64(p.WinningTotal)), nil
}

// ClaimVoterWinnings pays a voter's share of a settled challenge's voter
// pool into their deposit fund. Each voter can claim once.
func (s *Settler) ClaimVoterWinnings(
	txn *database.Txn,
	proposalID uint64,
	voter string,
	now uint64,
) (uint64, error) {
	p, c, err := s.winningCommitment(txn, proposalID, voter)
	if err != nil {
		return 0, err
	}
	amount := Share(uint64(p.VoterPool), uint64(c.Weight), uint64(p.WinningTotal))
	if err := s.ledger.Transfer(
		txn,
		ledger.FundDeposit,
		amount,
		ledger.AccountEscrow,
		voter,
	); err != nil {
		return 0, err
	}
	if err := s.db.AddWinningsClaim(
		&models.WinningsClaim{
			ProposalID: p.ID,
			Voter:      voter,
			ClaimTime:  now,
			Amount:     types.Uint64(amount),
		},
		txn,
	); err != nil {
		return 0, err
	}
	s.logger.Debug(
		"winnings claimed",
		"component", "settlement",
		"proposal_id", p.ID,
		"voter", voter,
		"amount", amount,
	)
	return amount, nil
}

// winningCommitment returns the settled challenge and the voter's
// unclaimed commitment on its winning side
func (s *Settler) winningCommitment(
	txn *database.Txn,
	proposalID uint64,
	voter string,
) (*models.Proposal, *models.VoteCommitment, error) {
	noWinnings := fmt.Errorf(
		"%w: no winnings for %s on proposal %d",
		errs.ErrNotFound,
		voter,
		proposalID,
	)
	p, err := s.proposals.Get(txn, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if !p.IsChallenge() || !p.Ended || p.WinningTotal == 0 {
		return nil, nil, noWinnings
	}
	c, err := s.db.GetVoteCommitment(p.ID, voter, txn)
	if err != nil {
		if errors.Is(err, models.ErrVoteCommitmentNotFound) {
			return nil, nil, noWinnings
		}
		return nil, nil, err
	}
	if !c.Tallied || c.RevealedOption != p.WinningOption {
		return nil, nil, noWinnings
	}
	claimed, err := s.db.GetWinningsClaim(p.ID, voter, txn)
	if err != nil {
		return nil, nil, err
	}
	if claimed != nil {
		return nil, nil, noWinnings
	}
	return p, c, nil
}
