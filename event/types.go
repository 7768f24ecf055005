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

package event

// Engine event types
const (
	FundsDepositedEventType    = EventType("ledger.deposited")
	FundsWithdrawnEventType    = EventType("ledger.withdrawn")
	ClaimRegisteredEventType   = EventType("claim.registered")
	ClaimDeregisteredEventType = EventType("claim.deregistered")
	ProposalCreatedEventType   = EventType("proposal.created")
	VoteCastEventType          = EventType("vote.cast")
	VoteRevealedEventType      = EventType("vote.revealed")
	VoteCancelledEventType     = EventType("vote.cancelled")
	ProposalEndedEventType     = EventType("proposal.ended")
	WinningsClaimedEventType   = EventType("settlement.winnings_claimed")
)

// FundsEvent is emitted for FundsDepositedEventType and
// FundsWithdrawnEventType
type FundsEvent struct {
	Account string
	Fund    string
	Amount  uint64
}

// ClaimEvent is emitted for ClaimRegisteredEventType and
// ClaimDeregisteredEventType
type ClaimEvent struct {
	ClaimID []byte
	Owner   string
	Kind    uint8
	Deposit uint64
}

type ProposalCreatedEvent struct {
	ClaimID      []byte // challenges only
	Owner        string
	ProposalID   uint64
	Deposit      uint64
	LobbyEnd     uint64
	VotingEnd    uint64
	RevealingEnd uint64
	Challenge    bool
}

// VoteEvent is emitted when a vote is cast, revealed or cancelled. Option
// and Weight are only set on reveal.
type VoteEvent struct {
	Voter      string
	ProposalID uint64
	Weight     uint64
	Option     uint8
	Tallied    bool
}

type ProposalEndedEvent struct {
	ClaimID       []byte // challenges only
	Ender         string
	ProposalID    uint64
	VotesFor      uint64
	VotesAgainst  uint64
	VoterPool     uint64
	Remainder     uint64
	Outcome       uint8
	WinningOption uint8
	Challenge     bool
}

type WinningsClaimedEvent struct {
	Voter      string
	ProposalID uint64
	Amount     uint64
}
