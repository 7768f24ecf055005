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

package vote_test

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/blinklabs-io/arbiter/database"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/errs"
	"github.com/blinklabs-io/arbiter/ledger"
	"github.com/blinklabs-io/arbiter/proof"
	"github.com/blinklabs-io/arbiter/proposal"
	"github.com/blinklabs-io/arbiter/vote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every proposal votes for 100s after a 10s lobby and reveals for 50s
var testPeriods = proposal.Periods{Lobby: 10, Voting: 100, Revealing: 50}

type testEnv struct {
	db        *database.Database
	ledger    *ledger.Ledger
	proposals *proposal.Store
	votes     *vote.Store
}

func setupVotes(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	l := ledger.New(db, nil)
	proposals, err := proposal.NewStore(db, l, nil, proposal.Config{
		Governance: testPeriods,
		Challenge:  testPeriods,
	})
	require.NoError(t, err)
	return &testEnv{
		db:        db,
		ledger:    l,
		proposals: proposals,
		votes:     vote.NewStore(db, proposals, l, proof.Ed25519Verifier{}, nil),
	}
}

func (e *testEnv) do(fn func(*database.Txn) error) error {
	return e.db.Transaction(true).Do(fn)
}

func newSigner(t *testing.T, fill byte) *proof.Signer {
	t.Helper()
	signer, err := proof.NewSigner(bytes.Repeat([]byte{fill}, 32))
	require.NoError(t, err)
	return signer
}

// propose creates a governance proposal at now and returns its ID
func (e *testEnv) propose(t *testing.T, now uint64) uint64 {
	t.Helper()
	var id uint64
	require.NoError(t, e.do(func(txn *database.Txn) error {
		p, err := e.proposals.CreateGovernance(txn, "owner", nil, 0, now)
		if err != nil {
			return err
		}
		id = p.ID
		return nil
	}))
	return id
}

func (e *testEnv) stake(t *testing.T, account string, amount uint64) {
	t.Helper()
	require.NoError(t, e.do(func(txn *database.Txn) error {
		return e.ledger.Deposit(txn, account, ledger.FundStake, amount)
	}))
}

func (e *testEnv) cast(voter string, proposalID uint64, hash []byte, prevTime, now uint64) error {
	return e.do(func(txn *database.Txn) error {
		_, err := e.votes.CastVote(txn, proposalID, voter, hash, prevTime, now)
		return err
	})
}

// castAuto casts using the prevTime helper, the way a client would
func (e *testEnv) castAuto(t *testing.T, voter string, proposalID uint64, hash []byte, now uint64) {
	t.Helper()
	prevTime, err := e.votes.PrevTimeParam(nil, proposalID, voter)
	require.NoError(t, err)
	require.NoError(t, e.cast(voter, proposalID, hash, prevTime, now))
}

func (e *testEnv) reveal(revealProof []byte, proposalID uint64, option uint8, now uint64) (*models.VoteCommitment, error) {
	var ret *models.VoteCommitment
	err := e.do(func(txn *database.Txn) error {
		var err error
		ret, err = e.votes.RevealVote(txn, revealProof, proposalID, option, now)
		return err
	})
	return ret, err
}

func (e *testEnv) cancel(voter string, proposalID uint64, now uint64) error {
	return e.do(func(txn *database.Txn) error {
		_, err := e.votes.CancelVote(txn, proposalID, voter, now)
		return err
	})
}

func (e *testEnv) chain(t *testing.T, voter string) []uint64 {
	t.Helper()
	ids, err := e.votes.PendingChain(nil, voter)
	require.NoError(t, err)
	return ids
}

func hash(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, vote.SecretHashSize)
}

func TestPendingChainOrdering(t *testing.T) {
	env := setupVotes(t)
	// Voting starts: p1=10, p2=15, p3=15, p4=30
	p1 := env.propose(t, 0)
	p2 := env.propose(t, 5)
	p3 := env.propose(t, 5)
	p4 := env.propose(t, 20)

	env.castAuto(t, "v", p4, hash(4), 35)
	assert.Equal(t, []uint64{p4}, env.chain(t, "v"))

	prevTime, err := env.votes.PrevTimeParam(nil, p1, "v")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), prevTime)
	env.castAuto(t, "v", p1, hash(1), 35)
	assert.Equal(t, []uint64{p1, p4}, env.chain(t, "v"))

	prevTime, err = env.votes.PrevTimeParam(nil, p3, "v")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), prevTime)
	env.castAuto(t, "v", p3, hash(3), 35)
	assert.Equal(t, []uint64{p1, p3, p4}, env.chain(t, "v"))

	// Ties on voting start are broken by proposal ID
	env.castAuto(t, "v", p2, hash(2), 35)
	assert.Equal(t, []uint64{p1, p2, p3, p4}, env.chain(t, "v"))

	c, err := env.votes.Commitment(nil, p3, "v")
	require.NoError(t, err)
	assert.Equal(t, p2, c.PrevProposal)
	assert.Equal(t, uint64(15), c.PrevTime)
	assert.Equal(t, p4, c.NextProposal)

	// Removing from the middle, head and tail keeps the chain intact
	require.NoError(t, env.cancel("v", p2, 35))
	assert.Equal(t, []uint64{p1, p3, p4}, env.chain(t, "v"))
	require.NoError(t, env.cancel("v", p1, 35))
	assert.Equal(t, []uint64{p3, p4}, env.chain(t, "v"))
	require.NoError(t, env.cancel("v", p4, 35))
	assert.Equal(t, []uint64{p3}, env.chain(t, "v"))
	require.NoError(t, env.cancel("v", p3, 35))
	assert.Empty(t, env.chain(t, "v"))
}

func TestCastVotePrevTimeValidation(t *testing.T) {
	env := setupVotes(t)
	p1 := env.propose(t, 0) // voting start 10
	p2 := env.propose(t, 5) // voting start 15
	p3 := env.propose(t, 5) // voting start 15
	env.castAuto(t, "v", p1, hash(1), 35)
	env.castAuto(t, "v", p3, hash(3), 35)

	testCases := []struct {
		name     string
		prevTime uint64
		err      string
	}{
		{"predecessor skipped", 0, "invalid next time"},
		{"no commitment at time", 7, "invalid previous time"},
		{"only later commitment at time", 15, "invalid previous time"},
		{"time after proposal", 30, "invalid previous time"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.cast("v", p2, hash(2), tc.prevTime, 35)
			require.ErrorIs(t, err, errs.ErrInvalidParameter)
			assert.ErrorContains(t, err, tc.err)
		})
	}
	// Inserting after p3 would put p2 out of order
	p4 := env.propose(t, 5) // voting start 15, sorts after p3
	env.castAuto(t, "v", p4, hash(4), 35)
	assert.Equal(t, []uint64{p1, p3, p4}, env.chain(t, "v"))
	err := env.cast("v", p2, hash(2), 15, 35)
	require.ErrorIs(t, err, errs.ErrInvalidParameter)

	require.NoError(t, env.cast("v", p2, hash(2), 10, 35))
	assert.Equal(t, []uint64{p1, p2, p3, p4}, env.chain(t, "v"))
}

func TestCastVoteErrors(t *testing.T) {
	env := setupVotes(t)
	p1 := env.propose(t, 0)

	err := env.cast("v", p1, hash(1), 0, 5)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	err = env.cast("v", p1, hash(1), 0, 110)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	err = env.cast("v", p1, []byte{0x01}, 0, 50)
	require.ErrorIs(t, err, errs.ErrInvalidParameter)
	err = env.cast(ledger.AccountEscrow, p1, hash(1), 0, 50)
	require.ErrorIs(t, err, errs.ErrInvalidParameter)
	err = env.cast("v", 99, hash(1), 0, 50)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, env.cast("v", p1, hash(1), 0, 50))
	err = env.cast("v", p1, hash(2), 0, 51)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestRevealTallies(t *testing.T) {
	env := setupVotes(t)
	p1 := env.propose(t, 0) // voting 10-110, revealing until 160
	alice := newSigner(t, 0x0a)
	bob := newSigner(t, 0x0b)
	env.stake(t, alice.Account(), 300)
	env.stake(t, bob.Account(), 500)

	aliceProof, aliceHash, err := alice.Commitment(p1, models.OptionFor)
	require.NoError(t, err)
	bobProof, bobHash, err := bob.Commitment(p1, models.OptionAgainst)
	require.NoError(t, err)
	env.castAuto(t, alice.Account(), p1, aliceHash, 20)
	env.castAuto(t, bob.Account(), p1, bobHash, 20)

	_, err = env.reveal(aliceProof, p1, models.OptionFor, 109)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	c, err := env.reveal(aliceProof, p1, models.OptionFor, 110)
	require.NoError(t, err)
	assert.True(t, c.Tallied)
	assert.EqualValues(t, 300, c.Weight)
	assert.Empty(t, env.chain(t, alice.Account()))

	_, err = env.reveal(aliceProof, p1, models.OptionFor, 111)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	// Bob's proof for the option he did not commit to fails the hash check
	otherProof, err := bob.RevealProof(p1, models.OptionFor)
	require.NoError(t, err)
	_, err = env.reveal(otherProof, p1, models.OptionFor, 120)
	require.ErrorIs(t, err, errs.ErrInvalidParameter)

	_, err = env.reveal(bobProof, p1, models.OptionFor, 120)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = env.reveal(bobProof, p1, 3, 120)
	require.ErrorIs(t, err, errs.ErrInvalidParameter)
	_, err = env.reveal(bobProof, p1, models.OptionAgainst, 120)
	require.NoError(t, err)

	p, err := env.proposals.Get(nil, p1)
	require.NoError(t, err)
	assert.EqualValues(t, 300, p.VotesFor)
	assert.EqualValues(t, 500, p.VotesAgainst)

	proofs, err := env.db.RevealProofs(p1, nil)
	require.NoError(t, err)
	assert.Equal(t, aliceProof, proofs[alice.Account()])
	assert.Equal(t, bobProof, proofs[bob.Account()])
}

func TestRevealWithoutCommitment(t *testing.T) {
	env := setupVotes(t)
	p1 := env.propose(t, 0)
	carol := newSigner(t, 0x0c)
	carolProof, err := carol.RevealProof(p1, models.OptionFor)
	require.NoError(t, err)
	_, err = env.reveal(carolProof, p1, models.OptionFor, 120)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = env.reveal([]byte("not a proof"), p1, models.OptionFor, 120)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestRevealAfterEndIsNotTallied(t *testing.T) {
	env := setupVotes(t)
	p1 := env.propose(t, 0)
	dave := newSigner(t, 0x0d)
	env.stake(t, dave.Account(), 50)
	daveProof, daveHash, err := dave.Commitment(p1, models.OptionFor)
	require.NoError(t, err)
	env.castAuto(t, dave.Account(), p1, daveHash, 20)

	require.NoError(t, env.do(func(txn *database.Txn) error {
		p, err := env.proposals.Get(txn, p1)
		if err != nil {
			return err
		}
		p.Ended = true
		return env.db.UpdateProposal(p, txn)
	}))
	locked, err := env.ledger.StakeLocked(nil, dave.Account(), 200)
	require.NoError(t, err)
	assert.True(t, locked)

	c, err := env.reveal(daveProof, p1, models.OptionFor, 200)
	require.NoError(t, err)
	assert.False(t, c.Tallied)
	assert.EqualValues(t, 0, c.Weight)
	p, err := env.proposals.Get(nil, p1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, p.VotesFor)

	locked, err = env.ledger.StakeLocked(nil, dave.Account(), 200)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestCancelVote(t *testing.T) {
	env := setupVotes(t)
	p1 := env.propose(t, 0)
	erin := newSigner(t, 0x0e)
	env.stake(t, erin.Account(), 10)
	_, forHash, err := erin.Commitment(p1, models.OptionFor)
	require.NoError(t, err)
	againstProof, againstHash, err := erin.Commitment(p1, models.OptionAgainst)
	require.NoError(t, err)

	err = env.cancel(erin.Account(), p1, 50)
	require.ErrorIs(t, err, errs.ErrNotFound)
	err = env.cancel(erin.Account(), p1, 5)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	env.castAuto(t, erin.Account(), p1, forHash, 20)
	require.NoError(t, env.cancel(erin.Account(), p1, 30))
	c, err := env.votes.Commitment(nil, p1, erin.Account())
	require.NoError(t, err)
	assert.True(t, c.Cancelled)
	assert.False(t, c.Pending)

	// A cancelled vote can be replaced
	env.castAuto(t, erin.Account(), p1, againstHash, 40)
	err = env.cancel(erin.Account(), p1, 120)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	require.NoError(t, env.cancel(erin.Account(), p1, 160))
	err = env.cancel(erin.Account(), p1, 161)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = env.reveal(againstProof, p1, models.OptionAgainst, 170)
	require.ErrorIs(t, err, errs.ErrInvalidState)
}

// TestPendingChainRandomSequence drives a seeded mix of casts, reveals and
// cancellations across two voters and checks after every step that each
// pending chain lists exactly the voter's pending commitments in
// (voting start, proposal ID) order
func TestPendingChainRandomSequence(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42, 1234} {
		env := setupVotes(t)
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		voters := []*proof.Signer{newSigner(t, 11), newSigner(t, 12)}
		// Pending commitments and the option they were cast with, per voter
		pending := make([]map[uint64]uint8, len(voters))
		for i := range pending {
			pending[i] = make(map[uint64]uint8)
		}
		votingStarts := make(map[uint64]uint64)
		var ids []uint64
		var now uint64
		for step := range 400 {
			// A zero step lets several proposals share a voting start
			now += rng.Uint64N(15)
			if len(ids) < 16 && rng.IntN(4) == 0 {
				id := env.propose(t, now)
				ids = append(ids, id)
				votingStarts[id] = now + testPeriods.Lobby
				continue
			}
			if len(ids) == 0 {
				continue
			}
			vi := rng.IntN(len(voters))
			signer := voters[vi]
			id := ids[rng.IntN(len(ids))]
			var err error
			switch rng.IntN(3) {
			case 0:
				option := models.OptionFor + uint8(rng.IntN(2))
				var commitment []byte
				_, commitment, err = signer.Commitment(id, option)
				require.NoError(t, err)
				var prevTime uint64
				prevTime, err = env.votes.PrevTimeParam(nil, id, signer.Account())
				require.NoError(t, err)
				err = env.cast(signer.Account(), id, commitment, prevTime, now)
				if err == nil {
					pending[vi][id] = option
				}
			case 1:
				option, ok := pending[vi][id]
				if !ok {
					option = models.OptionFor
				}
				var revealProof []byte
				revealProof, _, err = signer.Commitment(id, option)
				require.NoError(t, err)
				_, err = env.reveal(revealProof, id, option, now)
				if err == nil {
					delete(pending[vi], id)
				}
			default:
				err = env.cancel(signer.Account(), id, now)
				if err == nil {
					delete(pending[vi], id)
				}
			}
			if err != nil {
				require.Truef(
					t,
					errors.Is(err, errs.ErrInvalidState) ||
						errors.Is(err, errs.ErrAlreadyExists) ||
						errors.Is(err, errs.ErrNotFound) ||
						errors.Is(err, errs.ErrUnauthorized),
					"seed %d step %d: unexpected error: %v",
					seed,
					step,
					err,
				)
			}
			for i, v := range voters {
				expected := make([]uint64, 0, len(pending[i]))
				for pid := range pending[i] {
					expected = append(expected, pid)
				}
				slices.SortFunc(expected, func(a, b uint64) int {
					if votingStarts[a] != votingStarts[b] {
						if votingStarts[a] < votingStarts[b] {
							return -1
						}
						return 1
					}
					if a < b {
						return -1
					}
					if a > b {
						return 1
					}
					return 0
				})
				require.Equalf(
					t,
					expected,
					env.chain(t, v.Account()),
					"seed %d step %d voter %d",
					seed,
					step,
					i,
				)
			}
		}
	}
}
