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

package ledger_test

import (
	"math"
	"testing"

	"github.com/blinklabs-io/arbiter/database"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/errs"
	"github.com/blinklabs-io/arbiter/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedger(t *testing.T) (*database.Database, *ledger.Ledger) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db, ledger.New(db, nil)
}

// run executes fn in a read-write transaction the way the engine does
func run(db *database.Database, fn func(*database.Txn) error) error {
	return db.Transaction(true).Do(fn)
}

func TestDepositWithdraw(t *testing.T) {
	db, l := setupLedger(t)
	require.NoError(t, run(db, func(txn *database.Txn) error {
		return l.Deposit(txn, "alice", ledger.FundDeposit, 100)
	}))
	require.NoError(t, run(db, func(txn *database.Txn) error {
		return l.Withdraw(txn, "alice", ledger.FundDeposit, 40, 0)
	}))
	balance, err := l.Balance(nil, "alice", ledger.FundDeposit)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), balance)

	err = run(db, func(txn *database.Txn) error {
		return l.Withdraw(txn, "alice", ledger.FundDeposit, 61, 0)
	})
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)
	require.NoError(t, l.Audit(nil))
}

func TestInvalidParameters(t *testing.T) {
	db, l := setupLedger(t)
	testCases := []struct {
		name    string
		account string
		fund    string
		amount  uint64
	}{
		{"unknown fund", "alice", "gold", 1},
		{"reserved account", ledger.AccountEscrow, ledger.FundDeposit, 1},
		{"empty account", "", ledger.FundDeposit, 1},
		{"zero amount", "alice", ledger.FundStake, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := run(db, func(txn *database.Txn) error {
				return l.Deposit(txn, tc.account, tc.fund, tc.amount)
			})
			require.ErrorIs(t, err, errs.ErrInvalidParameter)
		})
	}
}

func TestDepositOverflow(t *testing.T) {
	db, l := setupLedger(t)
	require.NoError(t, run(db, func(txn *database.Txn) error {
		return l.Deposit(txn, "alice", ledger.FundStake, math.MaxUint64)
	}))
	err := run(db, func(txn *database.Txn) error {
		return l.Deposit(txn, "bob", ledger.FundStake, 1)
	})
	require.ErrorIs(t, err, errs.ErrInvalidParameter)
	require.NoError(t, l.Audit(nil))
}

func TestTransferConservesFunds(t *testing.T) {
	db, l := setupLedger(t)
	require.NoError(t, run(db, func(txn *database.Txn) error {
		if err := l.Deposit(txn, "alice", ledger.FundDeposit, 100); err != nil {
			return err
		}
		if err := l.Transfer(txn, ledger.FundDeposit, 30, "alice", ledger.AccountEscrow); err != nil {
			return err
		}
		return l.Transfer(txn, ledger.FundDeposit, 10, ledger.AccountEscrow, "bob")
	}))
	for account, expected := range map[string]uint64{
		"alice":              70,
		ledger.AccountEscrow: 20,
		"bob":                10,
	} {
		balance, err := l.Balance(nil, account, ledger.FundDeposit)
		require.NoError(t, err)
		assert.Equal(t, expected, balance, account)
	}
	require.NoError(t, l.Audit(nil))

	err := run(db, func(txn *database.Txn) error {
		return l.Transfer(txn, ledger.FundDeposit, 21, ledger.AccountEscrow, "bob")
	})
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)
}

func TestFailedOperationRollsBack(t *testing.T) {
	db, l := setupLedger(t)
	err := run(db, func(txn *database.Txn) error {
		if err := l.Deposit(txn, "alice", ledger.FundDeposit, 50); err != nil {
			return err
		}
		// Fails after the deposit above has been applied in the transaction
		return l.Transfer(txn, ledger.FundDeposit, 51, "alice", "bob")
	})
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)
	balance, err := l.Balance(nil, "alice", ledger.FundDeposit)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
	require.NoError(t, l.Audit(nil))
}

func TestStakeLock(t *testing.T) {
	db, l := setupLedger(t)
	require.NoError(t, run(db, func(txn *database.Txn) error {
		if err := l.Deposit(txn, "alice", ledger.FundStake, 100); err != nil {
			return err
		}
		return db.SetVoteCommitment(
			&models.VoteCommitment{
				ProposalID:  1,
				Voter:       "alice",
				SecretHash:  make([]byte, 32),
				VotingStart: 100,
				VotingEnd:   200,
				Pending:     true,
			},
			txn,
		)
	}))

	// Voting still open: stake is free
	require.NoError(t, run(db, func(txn *database.Txn) error {
		return l.Withdraw(txn, "alice", ledger.FundStake, 10, 199)
	}))
	// Voting closed with the vote unrevealed: stake is locked
	err := run(db, func(txn *database.Txn) error {
		return l.Withdraw(txn, "alice", ledger.FundStake, 10, 200)
	})
	require.ErrorIs(t, err, errs.ErrInvalidState)
	// The deposit fund is never locked
	require.NoError(t, run(db, func(txn *database.Txn) error {
		if err := l.Deposit(txn, "alice", ledger.FundDeposit, 5); err != nil {
			return err
		}
		return l.Withdraw(txn, "alice", ledger.FundDeposit, 5, 500)
	}))

	// Revealing releases the lock
	require.NoError(t, run(db, func(txn *database.Txn) error {
		c, err := db.GetVoteCommitment(1, "alice", txn)
		if err != nil {
			return err
		}
		c.Pending = false
		c.RevealedOption = models.OptionFor
		return db.SetVoteCommitment(c, txn)
	}))
	require.NoError(t, run(db, func(txn *database.Txn) error {
		return l.Withdraw(txn, "alice", ledger.FundStake, 90, 500)
	}))
	require.NoError(t, l.Audit(nil))
}

func TestSendRespectsStakeLock(t *testing.T) {
	db, l := setupLedger(t)
	require.NoError(t, run(db, func(txn *database.Txn) error {
		if err := l.Deposit(txn, "alice", ledger.FundStake, 100); err != nil {
			return err
		}
		return db.SetVoteCommitment(
			&models.VoteCommitment{
				ProposalID:  1,
				Voter:       "alice",
				SecretHash:  make([]byte, 32),
				VotingStart: 100,
				VotingEnd:   200,
				Pending:     true,
			},
			txn,
		)
	}))

	require.NoError(t, run(db, func(txn *database.Txn) error {
		return l.Send(txn, ledger.FundStake, 10, "alice", "bob", 199)
	}))
	err := run(db, func(txn *database.Txn) error {
		return l.Send(txn, ledger.FundStake, 90, "alice", "bob", 200)
	})
	require.ErrorIs(t, err, errs.ErrInvalidState)
	balance, err := l.Balance(nil, "alice", ledger.FundStake)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), balance)

	// The receiving side is not locked
	require.NoError(t, run(db, func(txn *database.Txn) error {
		return l.Send(txn, ledger.FundStake, 10, "bob", "alice", 200)
	}))
	err = run(db, func(txn *database.Txn) error {
		return l.Send(txn, ledger.FundStake, 1, "alice", ledger.AccountEscrow, 0)
	})
	require.ErrorIs(t, err, errs.ErrInvalidParameter)
	require.NoError(t, l.Audit(nil))
}

func TestAuditDetectsMismatch(t *testing.T) {
	db, l := setupLedger(t)
	require.NoError(t, run(db, func(txn *database.Txn) error {
		return l.Deposit(txn, "alice", ledger.FundStake, 10)
	}))
	require.NoError(t, db.SetBalance("alice", ledger.FundStake, 11, nil))
	require.ErrorIs(t, l.Audit(nil), errs.ErrInvalidState)
}
