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

package arbiter

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/arbiter/claim"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/errs"
	"github.com/blinklabs-io/arbiter/event"
	"github.com/blinklabs-io/arbiter/ledger"
	"github.com/blinklabs-io/arbiter/proof"
	"github.com/blinklabs-io/arbiter/proposal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Lobby [t0,t0+10), voting until t0+110, revealing until t0+160
var testPeriods = proposal.Periods{Lobby: 10, Voting: 100, Revealing: 50}

type testClock struct {
	now atomic.Uint64
}

func (c *testClock) set(now uint64) {
	c.now.Store(now)
}

func (c *testClock) clock() uint64 {
	return c.now.Load()
}

func newTestEngine(t *testing.T) (*Engine, *testClock) {
	t.Helper()
	clock := &testClock{}
	e, err := New(NewConfig(
		WithPrometheusRegistry(prometheus.NewRegistry()),
		WithClock(clock.clock),
		WithGovernancePeriods(testPeriods),
		WithChallengePeriods(testPeriods),
		WithClaimDeposits(claim.Deposits{Event: 1000, Member: 500, Root: 2000}),
		WithMinGovernanceDeposit(10),
	))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e, clock
}

func newSigner(t *testing.T, fill byte) *proof.Signer {
	t.Helper()
	signer, err := proof.NewSigner(bytes.Repeat([]byte{fill}, 32))
	require.NoError(t, err)
	return signer
}

func balance(t *testing.T, e *Engine, account string, fund string) uint64 {
	t.Helper()
	ret, err := e.Balance(context.Background(), account, fund)
	require.NoError(t, err)
	return ret
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(NewConfig(
		WithGovernancePeriods(proposal.Periods{Lobby: 1, Voting: 0, Revealing: 1}),
	))
	require.Error(t, err)
	_, err = New(NewConfig(WithClock(nil)))
	require.Error(t, err)
	_, err = New(NewConfig(
		WithPrometheusRegistry(prometheus.NewRegistry()),
		WithTreasury(ledger.AccountEscrow),
	))
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
}

func TestChallengeLifecycle(t *testing.T) {
	ctx := context.Background()
	e, clock := newTestEngine(t)
	endedCh := make(chan event.Event, 1)
	e.EventBus().SubscribeFunc(event.ProposalEndedEventType, func(evt event.Event) {
		endedCh <- evt
	})

	require.NoError(t, e.Deposit(ctx, "defender", ledger.FundDeposit, 1000))
	require.NoError(t, e.Deposit(ctx, "challenger", ledger.FundDeposit, 1000))
	c, err := e.RegisterClaim(ctx, "defender", claim.KindEvent, []byte("block 42 was late"))
	require.NoError(t, err)
	p, err := e.CreateChallenge(ctx, "challenger", c.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance(t, e, "challenger", ledger.FundDeposit))
	assert.Equal(t, uint64(1000), balance(t, e, ledger.AccountEscrow, ledger.FundDeposit))

	voters := []*proof.Signer{newSigner(t, 1), newSigner(t, 2)}
	proofs := make([][]byte, len(voters))
	clock.set(20)
	for i, signer := range voters {
		require.NoError(t, e.Deposit(ctx, signer.Account(), ledger.FundStake, 500))
		revealProof, hash, err := signer.Commitment(p.ID, models.OptionFor)
		require.NoError(t, err)
		proofs[i] = revealProof
		prevTime, err := e.GetPrevTimeParamForCastVote(ctx, p.ID, signer.Account())
		require.NoError(t, err)
		require.NoError(t, e.CastVote(ctx, p.ID, signer.Account(), hash, prevTime))
		chain, err := e.PendingChain(ctx, signer.Account())
		require.NoError(t, err)
		assert.Equal(t, []uint64{p.ID}, chain)
	}

	// Unrevealed votes lock stake once voting is over
	clock.set(120)
	err = e.Withdraw(ctx, voters[0].Account(), ledger.FundStake, 1)
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	for i, signer := range voters {
		c, err := e.RevealVote(ctx, proofs[i], p.ID, models.OptionFor)
		require.NoError(t, err)
		assert.Equal(t, signer.Account(), c.Voter)
		assert.True(t, c.Tallied)
	}
	info, err := e.Proposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.StatusRevealing, info.Status)
	assert.Equal(t, uint64(1000), uint64(info.VotesFor))
	archived, err := e.RevealProofs(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, archived, 2)
	assert.Equal(t, proofs[0], archived[voters[0].Account()])

	clock.set(160)
	ended, err := e.EndChallenge(ctx, c.ClaimID, "ender")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAccepted, ended.Outcome)
	assert.Equal(t, uint64(100), balance(t, e, "challenger", ledger.FundDeposit))
	assert.Equal(t, uint64(100), balance(t, e, "ender", ledger.FundDeposit))
	_, err = e.EndChallenge(ctx, c.ClaimID, "ender")
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	for _, signer := range voters {
		owed, err := e.Winnings(ctx, p.ID, signer.Account())
		require.NoError(t, err)
		assert.Equal(t, uint64(400), owed)
		paid, err := e.ClaimVoterWinnings(ctx, p.ID, signer.Account())
		require.NoError(t, err)
		assert.Equal(t, uint64(400), paid)
		_, err = e.ClaimVoterWinnings(ctx, p.ID, signer.Account())
		assert.ErrorIs(t, err, errs.ErrNotFound)
		// Stake is free again
		require.NoError(t, e.Withdraw(ctx, signer.Account(), ledger.FundStake, 500))
	}
	require.NoError(t, e.Audit(ctx))

	claimAfter, err := e.Claim(ctx, c.ClaimID)
	require.NoError(t, err)
	assert.True(t, claimAfter.Fraudulent)

	select {
	case evt := <-endedCh:
		data, ok := evt.Data.(event.ProposalEndedEvent)
		require.True(t, ok)
		assert.Equal(t, p.ID, data.ProposalID)
		assert.True(t, data.Challenge)
		assert.Equal(t, uint64(800), data.VoterPool)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for proposal ended event")
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.proposalsCreated.WithLabelValues("challenge")))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.proposalsEnded.WithLabelValues("challenge", "accepted")))
	assert.Equal(t, float64(0), testutil.ToFloat64(e.metrics.proposalsOpen))
	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.votesCast))
	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.votesRevealed))
	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.winningsClaimed))
	assert.Equal(t, float64(800), testutil.ToFloat64(e.metrics.winningsPaid))
}

func TestGovernanceLifecycle(t *testing.T) {
	ctx := context.Background()
	e, clock := newTestEngine(t)
	require.NoError(t, e.Deposit(ctx, "owner", ledger.FundDeposit, 100))
	_, err := e.CreateGovernanceProposal(ctx, "owner", nil, 5)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
	p, err := e.CreateGovernanceProposal(ctx, "owner", []byte("lower fees"), 100)
	require.NoError(t, err)
	desc, err := e.ProposalDescription(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("lower fees"), desc)
	_, err = e.ProposalDescription(ctx, p.ID+1)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// Too early
	_, err = e.EndGovernanceProposal(ctx, p.ID, "ender")
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	voter := newSigner(t, 3)
	require.NoError(t, e.Deposit(ctx, voter.Account(), ledger.FundStake, 10))
	_, hash, err := voter.Commitment(p.ID, models.OptionAgainst)
	require.NoError(t, err)
	clock.set(15)
	require.NoError(t, e.CastVote(ctx, p.ID, voter.Account(), hash, 0))
	commitment, err := e.Commitment(ctx, p.ID, voter.Account())
	require.NoError(t, err)
	assert.True(t, commitment.Pending)
	require.NoError(t, e.CancelVote(ctx, p.ID, voter.Account()))
	assert.ErrorIs(t, e.CancelVote(ctx, p.ID, voter.Account()), errs.ErrNotFound)

	clock.set(200)
	ended, err := e.EndGovernanceProposal(ctx, p.ID, "ender")
	require.NoError(t, err)
	// 0 == 0 is not a majority
	assert.Equal(t, models.OutcomeRejected, ended.Outcome)
	assert.Equal(t, uint64(100), balance(t, e, "owner", ledger.FundDeposit))
	info, err := e.Proposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.StatusEnded, info.Status)
	require.NoError(t, e.Audit(ctx))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.votesCancelled))
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	published := make(chan event.Event, 1)
	e.EventBus().SubscribeFunc(event.ProposalCreatedEventType, func(evt event.Event) {
		published <- evt
	})
	require.NoError(t, e.Deposit(ctx, "defender", ledger.FundDeposit, 1000))
	c, err := e.RegisterClaim(ctx, "defender", claim.KindEvent, []byte("x"))
	require.NoError(t, err)
	// The challenger cannot match the deposit
	require.NoError(t, e.Deposit(ctx, "challenger", ledger.FundDeposit, 999))
	_, err = e.CreateChallenge(ctx, "challenger", c.ClaimID)
	assert.ErrorIs(t, err, errs.ErrInsufficientFunds)
	assert.Equal(t, uint64(999), balance(t, e, "challenger", ledger.FundDeposit))
	claimAfter, err := e.Claim(ctx, c.ClaimID)
	require.NoError(t, err)
	assert.False(t, claimAfter.UnderChallenge)
	_, err = e.Proposal(ctx, 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	select {
	case evt := <-published:
		t.Fatalf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.operationErrors.WithLabelValues("CreateChallenge")))
	require.NoError(t, e.Audit(ctx))
}

func TestConcurrentDeposits(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.Deposit(ctx, "alice", ledger.FundDeposit, 5))
			_, err := e.Balance(ctx, "alice", ledger.FundDeposit)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(50), balance(t, e, "alice", ledger.FundDeposit))
	require.NoError(t, e.Audit(ctx))
}

func TestTransferRejectsReservedAccounts(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	require.NoError(t, e.Deposit(ctx, "alice", ledger.FundDeposit, 10))
	err := e.Transfer(ctx, ledger.FundDeposit, 5, "alice", ledger.AccountTreasury)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
	require.NoError(t, e.Transfer(ctx, ledger.FundDeposit, 5, "alice", "bob"))
	assert.Equal(t, uint64(5), balance(t, e, "bob", ledger.FundDeposit))
	err = e.Transfer(ctx, ledger.FundDeposit, 6, "alice", "bob")
	assert.ErrorIs(t, err, errs.ErrInsufficientFunds)
}

func TestTransferRespectsStakeLock(t *testing.T) {
	ctx := context.Background()
	e, clock := newTestEngine(t)
	require.NoError(t, e.Deposit(ctx, "owner", ledger.FundDeposit, 100))
	p, err := e.CreateGovernanceProposal(ctx, "owner", []byte("raise quorum"), 100)
	require.NoError(t, err)

	voter := newSigner(t, 3)
	require.NoError(t, e.Deposit(ctx, voter.Account(), ledger.FundStake, 500))
	clock.set(20)
	revealProof, hash, err := voter.Commitment(p.ID, models.OptionFor)
	require.NoError(t, err)
	require.NoError(t, e.CastVote(ctx, p.ID, voter.Account(), hash, 0))
	// Stake can still move while voting is open
	require.NoError(t, e.Transfer(ctx, ledger.FundStake, 100, voter.Account(), "friend"))

	clock.set(120)
	err = e.Transfer(ctx, ledger.FundStake, 400, voter.Account(), "friend")
	assert.ErrorIs(t, err, errs.ErrInvalidState)
	assert.Equal(t, uint64(400), balance(t, e, voter.Account(), ledger.FundStake))
	assert.Equal(t, uint64(100), balance(t, e, "friend", ledger.FundStake))
	// The deposit fund is not locked
	require.NoError(t, e.Deposit(ctx, voter.Account(), ledger.FundDeposit, 10))
	require.NoError(t, e.Transfer(ctx, ledger.FundDeposit, 10, voter.Account(), "friend"))

	_, err = e.RevealVote(ctx, revealProof, p.ID, models.OptionFor)
	require.NoError(t, err)
	info, err := e.Proposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), uint64(info.VotesFor))
	require.NoError(t, e.Transfer(ctx, ledger.FundStake, 400, voter.Account(), "friend"))
	require.NoError(t, e.Audit(ctx))
}
