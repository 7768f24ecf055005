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

// Package arbiter is a claim-challenge-vote-settlement engine. Registered
// claims can be disputed by a challenger matching the claim's deposit; the
// dispute is decided by a stake-weighted commit-reveal vote and settled by
// splitting the challenge deposit between the winner, the account ending
// the challenge and the voters who backed the winning side.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/arbiter/claim"
	"github.com/blinklabs-io/arbiter/database"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/event"
	"github.com/blinklabs-io/arbiter/ledger"
	"github.com/blinklabs-io/arbiter/proposal"
	"github.com/blinklabs-io/arbiter/settlement"
	"github.com/blinklabs-io/arbiter/vote"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/arbiter"

// Engine exposes every operation of the system. Operations are serialized
// and each runs in a single database transaction, so a failed operation
// leaves no trace. Events are published after the transaction commits.
type Engine struct {
	db        *database.Database
	eventBus  *event.EventBus
	ledger    *ledger.Ledger
	claims    *claim.Registry
	proposals *proposal.Store
	votes     *vote.Store
	settler   *settlement.Settler
	metrics   *engineMetrics
	tracer    trace.Tracer
	config    Config
	mu        sync.RWMutex
	closeOnce sync.Once
}

// ProposalInfo is a proposal with its phase at query time
type ProposalInfo struct {
	*models.Proposal
	Status proposal.Status
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.promRegistry == nil {
		cfg.promRegistry = prometheus.NewRegistry()
	}
	db, err := database.New(&database.Config{
		DataDir:      cfg.dataDir,
		Logger:       cfg.logger,
		PromRegistry: cfg.promRegistry,
	})
	if err != nil {
		if db != nil {
			db.Close() //nolint:errcheck
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	e := &Engine{
		db:       db,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		ledger:   ledger.New(db, cfg.logger),
		metrics:  newEngineMetrics(cfg.promRegistry),
		tracer:   otel.Tracer(tracerName),
		config:   cfg,
	}
	e.claims = claim.NewRegistry(db, e.ledger, cfg.claimDeposits, cfg.logger)
	e.proposals, err = proposal.NewStore(db, e.ledger, e.claims, proposal.Config{
		Logger:               cfg.logger,
		Governance:           cfg.governancePeriods,
		Challenge:            cfg.challengePeriods,
		MinGovernanceDeposit: cfg.minGovernanceDeposit,
	})
	if err != nil {
		return nil, errors.Join(err, e.Close())
	}
	e.votes = vote.NewStore(db, e.proposals, e.ledger, cfg.verifier, cfg.logger)
	e.settler, err = settlement.NewSettler(db, e.proposals, e.ledger, e.claims, settlement.Config{
		Logger:   cfg.logger,
		Treasury: cfg.treasury,
	})
	if err != nil {
		return nil, errors.Join(err, e.Close())
	}
	// Seed the open proposals gauge from persisted state
	open, err := db.CountOpenProposals(nil)
	if err != nil {
		return nil, errors.Join(err, e.Close())
	}
	e.metrics.proposalsOpen.Set(float64(open))
	cfg.logger.Info(
		"engine started",
		"component", "engine",
		"data_dir", cfg.dataDir,
		"open_proposals", open,
	)
	return e, nil
}

// Close stops the event bus and closes the database
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.eventBus.Stop()
		err = e.db.Close()
	})
	return err
}

// EventBus returns the bus engine events are published on
func (e *Engine) EventBus() *event.EventBus {
	return e.eventBus
}

// Now returns the engine clock's current time
func (e *Engine) Now() uint64 {
	return e.config.clock()
}

// update runs fn in a read-write transaction. Events collected by fn are
// published once the transaction has committed.
func (e *Engine) update(
	ctx context.Context,
	op string,
	fn func(txn *database.Txn, now uint64, events *[]event.Event) error,
	attrs ...attribute.KeyValue,
) error {
	_, span := e.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	defer span.End()
	e.mu.Lock()
	now := e.config.clock()
	var events []event.Event
	err := e.db.Transaction(true).Do(func(txn *database.Txn) error {
		return fn(txn, now, &events)
	})
	e.mu.Unlock()
	if err != nil {
		e.fail(span, op, err)
		return err
	}
	for _, evt := range events {
		e.eventBus.Publish(evt)
	}
	return nil
}

// view runs fn in a read-only transaction
func (e *Engine) view(
	ctx context.Context,
	op string,
	fn func(txn *database.Txn, now uint64) error,
	attrs ...attribute.KeyValue,
) error {
	_, span := e.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	defer span.End()
	e.mu.RLock()
	defer e.mu.RUnlock()
	now := e.config.clock()
	err := e.db.Transaction(false).Do(func(txn *database.Txn) error {
		return fn(txn, now)
	})
	if err != nil {
		e.fail(span, op, err)
	}
	return err
}

func (e *Engine) fail(span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.metrics.operationErrors.WithLabelValues(op).Inc()
	e.config.logger.Debug(
		"operation failed",
		"component", "engine",
		"operation", op,
		"error", err,
	)
}

// Deposit credits funds from outside the engine to an account
func (e *Engine) Deposit(
	ctx context.Context,
	account string,
	fund string,
	amount uint64,
) error {
	return e.update(
		ctx,
		"Deposit",
		func(txn *database.Txn, _ uint64, events *[]event.Event) error {
			if err := e.ledger.Deposit(txn, account, fund, amount); err != nil {
				return err
			}
			*events = append(*events, event.NewEvent(
				event.FundsDepositedEventType,
				event.FundsEvent{Account: account, Fund: fund, Amount: amount},
			))
			return nil
		},
		attribute.String("account", account),
		attribute.String("fund", fund),
	)
}

// Withdraw pays funds out of the engine. Stake is locked while the account
// has an unrevealed vote on a proposal whose voting phase is over.
func (e *Engine) Withdraw(
	ctx context.Context,
	account string,
	fund string,
	amount uint64,
) error {
	return e.update(
		ctx,
		"Withdraw",
		func(txn *database.Txn, now uint64, events *[]event.Event) error {
			if err := e.ledger.Withdraw(txn, account, fund, amount, now); err != nil {
				return err
			}
			*events = append(*events, event.NewEvent(
				event.FundsWithdrawnEventType,
				event.FundsEvent{Account: account, Fund: fund, Amount: amount},
			))
			return nil
		},
		attribute.String("account", account),
		attribute.String("fund", fund),
	)
}

// Transfer moves funds between two participant accounts. Stake locked by
// an unrevealed vote cannot be moved.
func (e *Engine) Transfer(
	ctx context.Context,
	fund string,
	amount uint64,
	from string,
	to string,
) error {
	return e.update(
		ctx,
		"Transfer",
		func(txn *database.Txn, now uint64, _ *[]event.Event) error {
			return e.ledger.Send(txn, fund, amount, from, to, now)
		},
		attribute.String("fund", fund),
	)
}

// Balance returns an account's balance in a fund. Internal accounts can be
// queried too.
func (e *Engine) Balance(
	ctx context.Context,
	account string,
	fund string,
) (uint64, error) {
	var ret uint64
	err := e.view(ctx, "Balance", func(txn *database.Txn, _ uint64) error {
		var err error
		ret, err = e.ledger.Balance(txn, account, fund)
		return err
	})
	return ret, err
}

// Audit checks that every fund's balances add up to its reserve
func (e *Engine) Audit(ctx context.Context) error {
	return e.view(ctx, "Audit", func(txn *database.Txn, _ uint64) error {
		return e.ledger.Audit(txn)
	})
}

// RegisterClaim records a claim backed by the configured deposit for its kind
func (e *Engine) RegisterClaim(
	ctx context.Context,
	owner string,
	kind uint8,
	payload []byte,
) (*models.Claim, error) {
	var ret *models.Claim
	err := e.update(
		ctx,
		"RegisterClaim",
		func(txn *database.Txn, now uint64, events *[]event.Event) error {
			var err error
			ret, err = e.claims.Register(txn, owner, kind, payload, now)
			if err != nil {
				return err
			}
			*events = append(*events, event.NewEvent(
				event.ClaimRegisteredEventType,
				claimEvent(ret),
			))
			return nil
		},
		attribute.String("owner", owner),
		attribute.String("kind", claim.KindName(kind)),
	)
	return ret, err
}

// DeregisterClaim withdraws a claim that is not under challenge and refunds
// its deposit
func (e *Engine) DeregisterClaim(
	ctx context.Context,
	owner string,
	claimID []byte,
) error {
	return e.update(
		ctx,
		"DeregisterClaim",
		func(txn *database.Txn, _ uint64, events *[]event.Event) error {
			c, err := e.claims.Deregister(txn, owner, claimID)
			if err != nil {
				return err
			}
			*events = append(*events, event.NewEvent(
				event.ClaimDeregisteredEventType,
				claimEvent(c),
			))
			return nil
		},
		attribute.String("owner", owner),
	)
}

// Claim returns a registered claim
func (e *Engine) Claim(ctx context.Context, claimID []byte) (*models.Claim, error) {
	var ret *models.Claim
	err := e.view(ctx, "Claim", func(txn *database.Txn, _ uint64) error {
		var err error
		ret, err = e.claims.Get(txn, claimID)
		return err
	})
	return ret, err
}

func claimEvent(c *models.Claim) event.ClaimEvent {
	return event.ClaimEvent{
		ClaimID: c.ClaimID,
		Owner:   c.Owner,
		Kind:    c.Kind,
		Deposit: uint64(c.Deposit),
	}
}

// CreateGovernanceProposal opens a proposal backed by deposit from the
// owner's deposit fund
func (e *Engine) CreateGovernanceProposal(
	ctx context.Context,
	owner string,
	description []byte,
	deposit uint64,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := e.update(
		ctx,
		"CreateGovernanceProposal",
		func(txn *database.Txn, now uint64, events *[]event.Event) error {
			var err error
			ret, err = e.proposals.CreateGovernance(txn, owner, description, deposit, now)
			if err != nil {
				return err
			}
			*events = append(*events, proposalCreatedEvent(ret))
			return nil
		},
		attribute.String("owner", owner),
	)
	if err == nil {
		e.proposalCreated(ret)
	}
	return ret, err
}

// CreateChallenge disputes a registered claim
func (e *Engine) CreateChallenge(
	ctx context.Context,
	challenger string,
	claimID []byte,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := e.update(
		ctx,
		"CreateChallenge",
		func(txn *database.Txn, now uint64, events *[]event.Event) error {
			var err error
			ret, err = e.proposals.CreateChallenge(txn, challenger, claimID, now)
			if err != nil {
				return err
			}
			*events = append(*events, proposalCreatedEvent(ret))
			return nil
		},
		attribute.String("challenger", challenger),
	)
	if err == nil {
		e.proposalCreated(ret)
	}
	return ret, err
}

func (e *Engine) proposalCreated(p *models.Proposal) {
	e.metrics.proposalsCreated.WithLabelValues(proposalKindLabel(p)).Inc()
	e.metrics.proposalsOpen.Inc()
	e.config.logger.Info(
		"proposal created",
		"component", "engine",
		"proposal_id", p.ID,
		"kind", proposalKindLabel(p),
		"owner", p.Owner,
		"voting_start", p.VotingStart(),
		"revealing_end", p.RevealingEnd,
	)
}

func proposalCreatedEvent(p *models.Proposal) event.Event {
	return event.NewEvent(
		event.ProposalCreatedEventType,
		event.ProposalCreatedEvent{
			ClaimID:      p.ClaimID,
			Owner:        p.Owner,
			ProposalID:   p.ID,
			Deposit:      uint64(p.Deposit),
			LobbyEnd:     p.LobbyEnd,
			VotingEnd:    p.VotingEnd,
			RevealingEnd: p.RevealingEnd,
			Challenge:    p.IsChallenge(),
		},
	)
}

// Proposal returns a proposal with its current phase
func (e *Engine) Proposal(ctx context.Context, proposalID uint64) (*ProposalInfo, error) {
	var ret *ProposalInfo
	err := e.view(
		ctx,
		"Proposal",
		func(txn *database.Txn, now uint64) error {
			p, err := e.proposals.Get(txn, proposalID)
			if err != nil {
				return err
			}
			ret = &ProposalInfo{Proposal: p, Status: proposal.StatusAt(p, now)}
			return nil
		},
		attribute.Int64("proposal_id", int64(proposalID)), // #nosec G115
	)
	return ret, err
}

// ProposalDescription returns a governance proposal's description
func (e *Engine) ProposalDescription(ctx context.Context, proposalID uint64) ([]byte, error) {
	var ret []byte
	err := e.view(ctx, "ProposalDescription", func(txn *database.Txn, _ uint64) error {
		if _, err := e.proposals.Get(txn, proposalID); err != nil {
			return err
		}
		var err error
		ret, err = e.db.ProposalDescription(proposalID, txn)
		return err
	})
	return ret, err
}

// RevealProofs returns the proofs voters revealed with on a proposal, keyed
// by voter
func (e *Engine) RevealProofs(ctx context.Context, proposalID uint64) (map[string][]byte, error) {
	var ret map[string][]byte
	err := e.view(ctx, "RevealProofs", func(txn *database.Txn, _ uint64) error {
		if _, err := e.proposals.Get(txn, proposalID); err != nil {
			return err
		}
		var err error
		ret, err = e.db.RevealProofs(proposalID, txn)
		return err
	})
	return ret, err
}

// GetPrevTimeParamForCastVote returns the prevTime to pass to CastVote
func (e *Engine) GetPrevTimeParamForCastVote(
	ctx context.Context,
	proposalID uint64,
	voter string,
) (uint64, error) {
	var ret uint64
	err := e.view(ctx, "GetPrevTimeParamForCastVote", func(txn *database.Txn, _ uint64) error {
		var err error
		ret, err = e.votes.PrevTimeParam(txn, proposalID, voter)
		return err
	})
	return ret, err
}

// CastVote commits a sealed vote. prevTime is the voting start of the
// voter's pending commitment that the new one is inserted after. Pending
// commitments with equal voting starts are ordered by proposal ID, so
// prevTime can equal this proposal's own voting start.
func (e *Engine) CastVote(
	ctx context.Context,
	proposalID uint64,
	voter string,
	secretHash []byte,
	prevTime uint64,
) error {
	err := e.update(
		ctx,
		"CastVote",
		func(txn *database.Txn, now uint64, events *[]event.Event) error {
			if _, err := e.votes.CastVote(txn, proposalID, voter, secretHash, prevTime, now); err != nil {
				return err
			}
			*events = append(*events, event.NewEvent(
				event.VoteCastEventType,
				event.VoteEvent{Voter: voter, ProposalID: proposalID},
			))
			return nil
		},
		attribute.Int64("proposal_id", int64(proposalID)), // #nosec G115
		attribute.String("voter", voter),
	)
	if err == nil {
		e.metrics.votesCast.Inc()
	}
	return err
}

// RevealVote discloses a vote. The voter is identified by the proof.
func (e *Engine) RevealVote(
	ctx context.Context,
	revealProof []byte,
	proposalID uint64,
	option uint8,
) (*models.VoteCommitment, error) {
	var ret *models.VoteCommitment
	err := e.update(
		ctx,
		"RevealVote",
		func(txn *database.Txn, now uint64, events *[]event.Event) error {
			var err error
			ret, err = e.votes.RevealVote(txn, revealProof, proposalID, option, now)
			if err != nil {
				return err
			}
			*events = append(*events, event.NewEvent(
				event.VoteRevealedEventType,
				event.VoteEvent{
					Voter:      ret.Voter,
					ProposalID: proposalID,
					Weight:     uint64(ret.Weight),
					Option:     ret.RevealedOption,
					Tallied:    ret.Tallied,
				},
			))
			return nil
		},
		attribute.Int64("proposal_id", int64(proposalID)), // #nosec G115
	)
	if err == nil {
		e.metrics.votesRevealed.Inc()
	}
	return ret, err
}

// CancelVote withdraws a pending commitment
func (e *Engine) CancelVote(
	ctx context.Context,
	proposalID uint64,
	voter string,
) error {
	err := e.update(
		ctx,
		"CancelVote",
		func(txn *database.Txn, now uint64, events *[]event.Event) error {
			if _, err := e.votes.CancelVote(txn, proposalID, voter, now); err != nil {
				return err
			}
			*events = append(*events, event.NewEvent(
				event.VoteCancelledEventType,
				event.VoteEvent{Voter: voter, ProposalID: proposalID},
			))
			return nil
		},
		attribute.Int64("proposal_id", int64(proposalID)), // #nosec G115
		attribute.String("voter", voter),
	)
	if err == nil {
		e.metrics.votesCancelled.Inc()
	}
	return err
}

// Commitment returns a voter's commitment on a proposal
func (e *Engine) Commitment(
	ctx context.Context,
	proposalID uint64,
	voter string,
) (*models.VoteCommitment, error) {
	var ret *models.VoteCommitment
	err := e.view(ctx, "Commitment", func(txn *database.Txn, _ uint64) error {
		var err error
		ret, err = e.votes.Commitment(txn, proposalID, voter)
		return err
	})
	return ret, err
}

// PendingChain returns the proposal IDs of a voter's pending commitments in
// chain order
func (e *Engine) PendingChain(ctx context.Context, voter string) ([]uint64, error) {
	var ret []uint64
	err := e.view(ctx, "PendingChain", func(txn *database.Txn, _ uint64) error {
		var err error
		ret, err = e.votes.PendingChain(txn, voter)
		return err
	})
	return ret, err
}

// EndGovernanceProposal records a governance proposal's outcome and
// refunds its deposit
func (e *Engine) EndGovernanceProposal(
	ctx context.Context,
	proposalID uint64,
	ender string,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := e.update(
		ctx,
		"EndGovernanceProposal",
		func(txn *database.Txn, now uint64, events *[]event.Event) error {
			var err error
			ret, err = e.settler.EndGovernance(txn, proposalID, ender, now)
			if err != nil {
				return err
			}
			*events = append(*events, proposalEndedEvent(ret))
			return nil
		},
		attribute.Int64("proposal_id", int64(proposalID)), // #nosec G115
		attribute.String("ender", ender),
	)
	if err == nil {
		e.proposalEnded(ret)
	}
	return ret, err
}

// EndChallenge settles the challenge against a claim
func (e *Engine) EndChallenge(
	ctx context.Context,
	claimID []byte,
	ender string,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := e.update(
		ctx,
		"EndChallenge",
		func(txn *database.Txn, now uint64, events *[]event.Event) error {
			var err error
			ret, err = e.settler.EndChallenge(txn, claimID, ender, now)
			if err != nil {
				return err
			}
			*events = append(*events, proposalEndedEvent(ret))
			return nil
		},
		attribute.String("ender", ender),
	)
	if err == nil {
		e.proposalEnded(ret)
	}
	return ret, err
}

func (e *Engine) proposalEnded(p *models.Proposal) {
	e.metrics.proposalsEnded.WithLabelValues(
		proposalKindLabel(p),
		outcomeLabel(p.Outcome),
	).Inc()
	e.metrics.proposalsOpen.Dec()
	e.config.logger.Info(
		"proposal ended",
		"component", "engine",
		"proposal_id", p.ID,
		"kind", proposalKindLabel(p),
		"outcome", outcomeLabel(p.Outcome),
		"votes_for", uint64(p.VotesFor),
		"votes_against", uint64(p.VotesAgainst),
		"ender", p.Ender,
	)
}

func proposalEndedEvent(p *models.Proposal) event.Event {
	return event.NewEvent(
		event.ProposalEndedEventType,
		event.ProposalEndedEvent{
			ClaimID:       p.ClaimID,
			Ender:         p.Ender,
			ProposalID:    p.ID,
			VotesFor:      uint64(p.VotesFor),
			VotesAgainst:  uint64(p.VotesAgainst),
			VoterPool:     uint64(p.VoterPool),
			Remainder:     uint64(p.Remainder),
			Outcome:       p.Outcome,
			WinningOption: p.WinningOption,
			Challenge:     p.IsChallenge(),
		},
	)
}

// Winnings returns what a voter can still claim from a settled challenge
func (e *Engine) Winnings(
	ctx context.Context,
	proposalID uint64,
	voter string,
) (uint64, error) {
	var ret uint64
	err := e.view(ctx, "Winnings", func(txn *database.Txn, _ uint64) error {
		var err error
		ret, err = e.settler.Winnings(txn, proposalID, voter)
		return err
	})
	return ret, err
}

// ClaimVoterWinnings pays a winning voter's share into their deposit fund
func (e *Engine) ClaimVoterWinnings(
	ctx context.Context,
	proposalID uint64,
	voter string,
) (uint64, error) {
	var ret uint64
	err := e.update(
		ctx,
		"ClaimVoterWinnings",
		func(txn *database.Txn, now uint64, events *[]event.Event) error {
			var err error
			ret, err = e.settler.ClaimVoterWinnings(txn, proposalID, voter, now)
			if err != nil {
				return err
			}
			*events = append(*events, event.NewEvent(
				event.WinningsClaimedEventType,
				event.WinningsClaimedEvent{
					Voter:      voter,
					ProposalID: proposalID,
					Amount:     ret,
				},
			))
			return nil
		},
		attribute.Int64("proposal_id", int64(proposalID)), // #nosec G115
		attribute.String("voter", voter),
	)
	if err == nil {
		e.metrics.winningsClaimed.Inc()
		e.metrics.winningsPaid.Add(float64(ret))
	}
	return ret, err
}
