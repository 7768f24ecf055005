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

var ErrProposalNotFound = errors.New("proposal not found")

// Proposal kinds
const (
	ProposalKindGovernance uint8 = 0
	ProposalKindChallenge  uint8 = 1
)

// Proposal outcomes, recorded when the proposal is ended
const (
	OutcomePending  uint8 = 0
	OutcomeAccepted uint8 = 1 // votes for strictly exceeded votes against
	OutcomeRejected uint8 = 2
)

// Proposal is either a governance proposal or a challenge against a claim.
// Phase boundaries are unix timestamps fixed at creation:
// creation -> lobby end (voting start) -> voting end -> revealing end.
type Proposal struct {
	ClaimID       []byte       `gorm:"index;size:32"` // challenges only
	Owner         string       `gorm:"size:128;not null"`
	Defender      string       `gorm:"size:128"` // challenges only
	Ender         string       `gorm:"size:128"`
	ID            uint64       `gorm:"primarykey"`
	CreationTime  uint64       `gorm:"not null"`
	LobbyEnd      uint64       `gorm:"not null"`
	VotingEnd     uint64       `gorm:"not null"`
	RevealingEnd  uint64       `gorm:"not null"`
	EndedTime     uint64
	Deposit       types.Uint64 `gorm:"not null"`
	VotesFor      types.Uint64 `gorm:"not null"`
	VotesAgainst  types.Uint64 `gorm:"not null"`
	VoterPool     types.Uint64 `gorm:"not null"`
	WinningTotal  types.Uint64 `gorm:"not null"`
	Remainder     types.Uint64 `gorm:"not null"`
	Kind          uint8        `gorm:"index;not null"`
	Outcome       uint8        `gorm:"not null"`
	WinningOption uint8
	Ended         bool `gorm:"index;not null"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// VotingStart returns the time at which the voting phase opens
func (p *Proposal) VotingStart() uint64 {
	return p.LobbyEnd
}

// IsChallenge returns true if the proposal disputes a claim
func (p *Proposal) IsChallenge() bool {
	return p.Kind == ProposalKindChallenge
}
