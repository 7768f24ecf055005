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

package vote

import (
	"fmt"

	"github.com/blinklabs-io/arbiter/database"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/errs"
)

// sortsBefore orders pending chain nodes by (voting start, proposal ID)
func sortsBefore(
	votingStartA, proposalA uint64,
	votingStartB, proposalB uint64,
) bool {
	if votingStartA != votingStartB {
		return votingStartA < votingStartB
	}
	return proposalA < proposalB
}

// link splices c into the voter's chain directly after prev, which is nil
// when c becomes the new head
func (s *Store) link(
	txn *database.Txn,
	chain *models.PendingChain,
	c *models.VoteCommitment,
	prev *models.VoteCommitment,
	next *models.VoteCommitment,
) error {
	c.PrevProposal = 0
	c.PrevTime = 0
	c.NextProposal = 0
	if prev != nil {
		c.PrevProposal = prev.ProposalID
		c.PrevTime = prev.VotingStart
		prev.NextProposal = c.ProposalID
		if err := s.db.SetVoteCommitment(prev, txn); err != nil {
			return err
		}
	} else {
		chain.Head = c.ProposalID
	}
	if next != nil {
		c.NextProposal = next.ProposalID
		next.PrevProposal = c.ProposalID
		next.PrevTime = c.VotingStart
		if err := s.db.SetVoteCommitment(next, txn); err != nil {
			return err
		}
	} else {
		chain.Tail = c.ProposalID
	}
	chain.Length++
	c.Pending = true
	return nil
}

// unlink removes c from the voter's chain, joining its neighbours
func (s *Store) unlink(
	txn *database.Txn,
	chain *models.PendingChain,
	c *models.VoteCommitment,
) error {
	if c.PrevProposal != 0 {
		prev, err := s.db.GetVoteCommitment(c.PrevProposal, c.Voter, txn)
		if err != nil {
			return fmt.Errorf("pending chain predecessor: %w", err)
		}
		prev.NextProposal = c.NextProposal
		if err := s.db.SetVoteCommitment(prev, txn); err != nil {
			return err
		}
	} else {
		chain.Head = c.NextProposal
	}
	if c.NextProposal != 0 {
		next, err := s.db.GetVoteCommitment(c.NextProposal, c.Voter, txn)
		if err != nil {
			return fmt.Errorf("pending chain successor: %w", err)
		}
		next.PrevProposal = c.PrevProposal
		next.PrevTime = c.PrevTime
		if err := s.db.SetVoteCommitment(next, txn); err != nil {
			return err
		}
	} else {
		chain.Tail = c.PrevProposal
	}
	if chain.Length > 0 {
		chain.Length--
	}
	c.PrevProposal = 0
	c.NextProposal = 0
	c.PrevTime = 0
	c.Pending = false
	return nil
}

// PendingChain walks a voter's pending commitments from head to tail and
// returns their proposal IDs. A chain whose links disagree with its
// recorded ends or length is reported as errs.ErrInvalidState.
func (s *Store) PendingChain(
	txn *database.Txn,
	voter string,
) ([]uint64, error) {
	chain, err := s.db.GetPendingChain(voter, txn)
	if err != nil {
		return nil, err
	}
	ret := make([]uint64, 0, chain.Length)
	var prev *models.VoteCommitment
	for id := chain.Head; id != 0; {
		if uint64(len(ret)) >= chain.Length {
			return nil, fmt.Errorf(
				"%w: pending chain of %s longer than %d",
				errs.ErrInvalidState,
				voter,
				chain.Length,
			)
		}
		c, err := s.db.GetVoteCommitment(id, voter, txn)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: pending chain of %s: %w",
				errs.ErrInvalidState,
				voter,
				err,
			)
		}
		if !c.Pending {
			return nil, fmt.Errorf(
				"%w: pending chain of %s links settled commitment %d",
				errs.ErrInvalidState,
				voter,
				id,
			)
		}
		if prev != nil {
			if c.PrevProposal != prev.ProposalID ||
				c.PrevTime != prev.VotingStart ||
				!sortsBefore(prev.VotingStart, prev.ProposalID, c.VotingStart, c.ProposalID) {
				return nil, fmt.Errorf(
					"%w: pending chain of %s broken at %d",
					errs.ErrInvalidState,
					voter,
					id,
				)
			}
		} else if c.PrevProposal != 0 {
			return nil, fmt.Errorf(
				"%w: pending chain head of %s has a predecessor",
				errs.ErrInvalidState,
				voter,
			)
		}
		ret = append(ret, id)
		prev = c
		id = c.NextProposal
	}
	if uint64(len(ret)) != chain.Length ||
		(prev == nil && chain.Tail != 0) ||
		(prev != nil && prev.ProposalID != chain.Tail) {
		return nil, fmt.Errorf(
			"%w: pending chain of %s does not match its ends",
			errs.ErrInvalidState,
			voter,
		)
	}
	return ret, nil
}
