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

package models

import (
	"errors"

	"github.com/blinklabs-io/arbiter/database/types"
)

var ErrVoteCommitmentNotFound = errors.New("vote commitment not found")

// Vote options. OptionNone marks a commitment that has not been revealed.
const (
	OptionNone    uint8 = 0
	OptionFor     uint8 = 1
	OptionAgainst uint8 = 2
)

// VoteCommitment is a voter's sealed vote on a proposal. While pending
// (neither revealed nor cancelled) it is a node in the voter's pending
// chain, linked through PrevProposal/NextProposal and ordered by
// (VotingStart, ProposalID). A zero link means the node is the head or tail.
type VoteCommitment struct {
	Voter          string       `gorm:"uniqueIndex:idx_commitment_proposal_voter,priority:2;index:idx_commitment_chain,priority:1;size:128;not null"`
	SecretHash     []byte       `gorm:"size:32;not null"`
	ID             uint         `gorm:"primarykey"`
	ProposalID     uint64       `gorm:"uniqueIndex:idx_commitment_proposal_voter,priority:1;index;not null"`
	VotingStart    uint64       `gorm:"index:idx_commitment_chain,priority:3;not null"`
	VotingEnd      uint64       `gorm:"not null"`
	PrevProposal   uint64       `gorm:"not null"`
	NextProposal   uint64       `gorm:"not null"`
	PrevTime       uint64       `gorm:"not null"` // voting start of PrevProposal, 0 at the head
	CastTime       uint64       `gorm:"not null"`
	RevealTime     uint64
	Weight         types.Uint64 `gorm:"not null"`
	RevealedOption uint8        `gorm:"not null"`
	Pending        bool         `gorm:"index:idx_commitment_chain,priority:2;not null"`
	Cancelled      bool         `gorm:"not null"`
	Tallied        bool         `gorm:"not null"`
}

// TableName returns the table name
func (VoteCommitment) TableName() string {
	return "vote_commitment"
}

// Revealed returns true once the voter has disclosed their option
func (v *VoteCommitment) Revealed() bool {
	return v.RevealedOption != OptionNone
}
