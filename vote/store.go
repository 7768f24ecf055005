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

// Package vote records sealed vote commitments, their reveals and
// cancellations. A voter's pending commitments form a chain ordered by
// (voting start, proposal ID), which callers extend in constant time by
// naming the voting start of the commitment they are inserting after.
package vote

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"

	"github.com/blinklabs-io/arbiter/database"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/database/types"
	"github.com/blinklabs-io/arbiter/errs"
	"github.com/blinklabs-io/arbiter/ledger"
	"github.com/blinklabs-io/arbiter/proof"
	"github.com/blinklabs-io/arbiter/proposal"
)

// SecretHashSize is the size of a vote commitment hash
const SecretHashSize = 32

type Store struct {
	db        *database.Database
	proposals *proposal.Store
	ledger    *ledger.Ledger
	verifier  proof.Verifier
	logger    *slog.Logger
}

func NewStore(
	db *database.Database,
	proposals *proposal.Store,
	l *ledger.Ledger,
	verifier proof.Verifier,
	logger *slog.Logger,
) *Store {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if verifier == nil {
		verifier = proof.Ed25519Verifier{}
	}
	return &Store{
		db:        db,
		proposals: proposals,
		ledger:    l,
		verifier:  verifier,
		logger:    logger,
	}
}

// ValidOption returns true for the options a vote can be revealed with
func ValidOption(option uint8) bool {
	return option == models.OptionFor || option == models.OptionAgainst
}

// Commitment returns a voter's commitment on a proposal
func (s *Store) Commitment(
	txn *database.Txn,
	proposalID uint64,
	voter string,
) (*models.VoteCommitment, error) {
	c, err := s.db.GetVoteCommitment(proposalID, voter, txn)
	if err != nil {
		if errors.Is(err, models.ErrVoteCommitmentNotFound) {
			return nil, fmt.Errorf(
				"%w: no commitment by %s on proposal %d",
				errs.ErrNotFound,
				voter,
				proposalID,
			)
		}
		return nil, err
	}
	return c, nil
}

// PrevTimeParam returns the prevTime a voter must pass to CastVote on a
// proposal: the voting start of their latest pending commitment that sorts
// before it, or 0 if there is none
func (s *Store) PrevTimeParam(
	txn *database.Txn,
	proposalID uint64,
	voter string,
) (uint64, error) {
	p, err := s.proposals.Get(txn, proposalID)
	if err != nil {
		return 0, err
	}
	prev, err := s.db.GetLatestPendingCommitmentBefore(
		voter,
		p.VotingStart(),
		p.ID,
		txn,
	)
	if err != nil {
		return 0, err
	}
	if prev == nil {
		return 0, nil
	}
	return prev.VotingStart, nil
}

// CastVote records a sealed vote during the voting phase and inserts it
// into the voter's pending chain after the commitment identified by
// prevTime. Proposals that share a voting start are ordered by proposal ID,
// so prevTime may equal the new proposal's own voting start when the
// voter has a pending commitment on a lower ID with the same start. Use
// PrevTimeParam to get the value to pass.
func (s *Store) CastVote(
	txn *database.Txn,
	proposalID uint64,
	voter string,
	secretHash []byte,
	prevTime uint64,
	now uint64,
) (*models.VoteCommitment, error) {
	if err := ledger.ValidateAccount(voter); err != nil {
		return nil, err
	}
	if len(secretHash) != SecretHashSize {
		return nil, fmt.Errorf(
			"%w: secret hash must be %d bytes",
			errs.ErrInvalidParameter,
			SecretHashSize,
		)
	}
	p, err := s.proposals.Get(txn, proposalID)
	if err != nil {
		return nil, err
	}
	if status := proposal.StatusAt(p, now); status != proposal.StatusVoting {
		return nil, fmt.Errorf(
			"%w: proposal %d is %s, not voting",
			errs.ErrInvalidState,
			p.ID,
			status,
		)
	}
	c, err := s.db.GetVoteCommitment(p.ID, voter, txn)
	if err != nil {
		if !errors.Is(err, models.ErrVoteCommitmentNotFound) {
			return nil, err
		}
		c = &models.VoteCommitment{ProposalID: p.ID, Voter: voter}
	} else if !c.Cancelled {
		return nil, fmt.Errorf(
			"%w: %s already voted on proposal %d",
			errs.ErrAlreadyExists,
			voter,
			p.ID,
		)
	}
	votingStart := p.VotingStart()
	// Find the node to insert after and check that its successor belongs
	// after the new one
	prev, err := s.db.GetLatestPendingCommitmentAt(
		voter,
		prevTime,
		votingStart,
		p.ID,
		txn,
	)
	if err != nil {
		return nil, err
	}
	if prev == nil && prevTime != 0 {
		return nil, fmt.Errorf("%w: invalid previous time", errs.ErrInvalidParameter)
	}
	chain, err := s.db.GetPendingChain(voter, txn)
	if err != nil {
		return nil, err
	}
	nextID := chain.Head
	if prev != nil {
		nextID = prev.NextProposal
	}
	var next *models.VoteCommitment
	if nextID != 0 {
		next, err = s.db.GetVoteCommitment(nextID, voter, txn)
		if err != nil {
			return nil, fmt.Errorf("pending chain successor: %w", err)
		}
		if sortsBefore(next.VotingStart, next.ProposalID, votingStart, p.ID) {
			return nil, fmt.Errorf("%w: invalid next time", errs.ErrInvalidParameter)
		}
	}
	c.SecretHash = secretHash
	c.VotingStart = votingStart
	c.VotingEnd = p.VotingEnd
	c.CastTime = now
	c.RevealTime = 0
	c.RevealedOption = models.OptionNone
	c.Weight = 0
	c.Cancelled = false
	c.Tallied = false
	if err := s.link(txn, chain, c, prev, next); err != nil {
		return nil, err
	}
	if err := s.db.SetVoteCommitment(c, txn); err != nil {
		return nil, err
	}
	if err := s.db.SetPendingChain(chain, txn); err != nil {
		return nil, err
	}
	s.logger.Debug(
		"vote cast",
		"component", "vote",
		"proposal_id", p.ID,
		"voter", voter,
	)
	return c, nil
}

// RevealVote discloses the option behind a commitment. The voter is the
// account the proof verifies to. Reveals count toward the tally with the
// voter's current stake only while the proposal has not ended; later
// reveals just release the stake lock.
func (s *Store) RevealVote(
	txn *database.Txn,
	revealProof []byte,
	proposalID uint64,
	option uint8,
	now uint64,
) (*models.VoteCommitment, error) {
	if !ValidOption(option) {
		return nil, fmt.Errorf("%w: invalid option %d", errs.ErrInvalidParameter, option)
	}
	msg, err := proof.RevealMessage(proposalID, option)
	if err != nil {
		return nil, err
	}
	voter, err := s.verifier.Verify(revealProof, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrUnauthorized, err)
	}
	p, err := s.proposals.Get(txn, proposalID)
	if err != nil {
		return nil, err
	}
	c, err := s.db.GetVoteCommitment(p.ID, voter, txn)
	if err != nil {
		if errors.Is(err, models.ErrVoteCommitmentNotFound) {
			return nil, fmt.Errorf(
				"%w: %s has no commitment on proposal %d",
				errs.ErrUnauthorized,
				voter,
				p.ID,
			)
		}
		return nil, err
	}
	if now < p.VotingEnd {
		return nil, fmt.Errorf(
			"%w: proposal %d is still %s",
			errs.ErrInvalidState,
			p.ID,
			proposal.StatusAt(p, now),
		)
	}
	if c.Revealed() {
		return nil, fmt.Errorf("%w: vote already revealed", errs.ErrInvalidState)
	}
	if c.Cancelled {
		return nil, fmt.Errorf("%w: vote was cancelled", errs.ErrInvalidState)
	}
	hash, err := proof.CommitmentHash(revealProof, option)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(hash, c.SecretHash) {
		return nil, fmt.Errorf(
			"%w: reveal does not match commitment",
			errs.ErrInvalidParameter,
		)
	}
	chain, err := s.db.GetPendingChain(voter, txn)
	if err != nil {
		return nil, err
	}
	if err := s.unlink(txn, chain, c); err != nil {
		return nil, err
	}
	c.RevealedOption = option
	c.RevealTime = now
	if !p.Ended {
		if err := s.tally(txn, p, c); err != nil {
			return nil, err
		}
	}
	if err := s.db.SetVoteCommitment(c, txn); err != nil {
		return nil, err
	}
	if err := s.db.SetPendingChain(chain, txn); err != nil {
		return nil, err
	}
	if err := s.db.SetRevealProof(p.ID, voter, revealProof, txn); err != nil {
		return nil, err
	}
	s.logger.Debug(
		"vote revealed",
		"component", "vote",
		"proposal_id", p.ID,
		"voter", voter,
		"option", option,
		"weight", uint64(c.Weight),
		"tallied", c.Tallied,
	)
	return c, nil
}

// tally adds the voter's current stake to the proposal's count for the
// revealed option
func (s *Store) tally(
	txn *database.Txn,
	p *models.Proposal,
	c *models.VoteCommitment,
) error {
	weight, err := s.ledger.Balance(txn, c.Voter, ledger.FundStake)
	if err != nil {
		return err
	}
	total := &p.VotesAgainst
	if c.RevealedOption == models.OptionFor {
		total = &p.VotesFor
	}
	sum, carry := bits.Add64(uint64(*total), weight, 0)
	if carry != 0 {
		return fmt.Errorf("%w: tally overflow", errs.ErrInvalidState)
	}
	*total = types.Uint64(sum)
	c.Weight = types.Uint64(weight)
	c.Tallied = true
	return s.db.UpdateProposal(p, txn)
}

// CancelVote withdraws an unrevealed commitment without counting it. It is
// allowed while voting is open and again once the revealing phase is over.
func (s *Store) CancelVote(
	txn *database.Txn,
	proposalID uint64,
	voter string,
	now uint64,
) (*models.VoteCommitment, error) {
	p, err := s.proposals.Get(txn, proposalID)
	if err != nil {
		return nil, err
	}
	switch status := proposal.StatusAt(p, now); status {
	case proposal.StatusVoting, proposal.StatusPastRevealing, proposal.StatusEnded:
	default:
		return nil, fmt.Errorf(
			"%w: cannot cancel while proposal %d is %s",
			errs.ErrInvalidState,
			p.ID,
			status,
		)
	}
	c, err := s.db.GetVoteCommitment(p.ID, voter, txn)
	if err != nil && !errors.Is(err, models.ErrVoteCommitmentNotFound) {
		return nil, err
	}
	if c == nil || !c.Pending {
		return nil, fmt.Errorf(
			"%w: no pending commitment by %s on proposal %d",
			errs.ErrNotFound,
			voter,
			p.ID,
		)
	}
	chain, err := s.db.GetPendingChain(voter, txn)
	if err != nil {
		return nil, err
	}
	if err := s.unlink(txn, chain, c); err != nil {
		return nil, err
	}
	c.Cancelled = true
	if err := s.db.SetVoteCommitment(c, txn); err != nil {
		return nil, err
	}
	if err := s.db.SetPendingChain(chain, txn); err != nil {
		return nil, err
	}
	s.logger.Debug(
		"vote cancelled",
		"component", "vote",
		"proposal_id", p.ID,
		"voter", voter,
	)
	return c, nil
}
