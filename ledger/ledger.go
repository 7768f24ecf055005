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

// Package ledger keeps per-account balances in the deposit and stake funds.
// Every operation runs inside a database transaction supplied by the caller,
// so a failed engine operation leaves no partial transfers behind.
package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"math/bits"
	"strings"

	"github.com/blinklabs-io/arbiter/database"
	"github.com/blinklabs-io/arbiter/errs"
)

// Fund names
const (
	FundDeposit = "deposit"
	FundStake   = "stake"
)

// Funds lists every fund the ledger accepts
var Funds = []string{FundDeposit, FundStake}

// Internal accounts hold funds in custody on behalf of the engine. Callers
// can never name them directly.
const (
	ReservedAccountPrefix = "@"
	AccountEscrow         = "@escrow"
	AccountRegistry       = "@registry"
	AccountTreasury       = "@treasury"
)

// MaxAccountLength bounds account identifiers to what the balance table
// stores
const MaxAccountLength = 128

type Ledger struct {
	db     *database.Database
	logger *slog.Logger
}

func New(db *database.Database, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Ledger{
		db:     db,
		logger: logger,
	}
}

// ValidateFund checks that fund is one the ledger knows
func ValidateFund(fund string) error {
	for _, tmpFund := range Funds {
		if fund == tmpFund {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown fund %q", errs.ErrInvalidParameter, fund)
}

// IsReserved returns true for engine-internal custody accounts
func IsReserved(account string) bool {
	return strings.HasPrefix(account, ReservedAccountPrefix)
}

// ValidateAccount checks that a caller-supplied account is usable
func ValidateAccount(account string) error {
	if account == "" {
		return fmt.Errorf("%w: empty account", errs.ErrInvalidParameter)
	}
	if len(account) > MaxAccountLength {
		return fmt.Errorf(
			"%w: account longer than %d bytes",
			errs.ErrInvalidParameter,
			MaxAccountLength,
		)
	}
	if IsReserved(account) {
		return fmt.Errorf(
			"%w: account %q is reserved",
			errs.ErrInvalidParameter,
			account,
		)
	}
	return nil
}

// Balance returns the amount an account holds in a fund
func (l *Ledger) Balance(
	txn *database.Txn,
	account string,
	fund string,
) (uint64, error) {
	if err := ValidateFund(fund); err != nil {
		return 0, err
	}
	return l.db.GetBalance(account, fund, txn)
}

// Deposit credits external funds to an account
func (l *Ledger) Deposit(
	txn *database.Txn,
	account string,
	fund string,
	amount uint64,
) error {
	if err := ValidateAccount(account); err != nil {
		return err
	}
	if err := ValidateFund(fund); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: zero amount", errs.ErrInvalidParameter)
	}
	reserve, err := l.db.GetReserve(fund, txn)
	if err != nil {
		return err
	}
	newReserve, carry := bits.Add64(reserve, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s reserve overflow", errs.ErrInvalidParameter, fund)
	}
	if err := l.credit(txn, account, fund, amount); err != nil {
		return err
	}
	if err := l.db.SetReserve(fund, newReserve, txn); err != nil {
		return err
	}
	l.logger.Debug(
		"deposit",
		"component", "ledger",
		"account", account,
		"fund", fund,
		"amount", amount,
	)
	return nil
}

// Withdraw releases funds from an account to the outside. Stake cannot be
// withdrawn while locked by an unrevealed vote whose voting phase is over.
func (l *Ledger) Withdraw(
	txn *database.Txn,
	account string,
	fund string,
	amount uint64,
	now uint64,
) error {
	if err := ValidateAccount(account); err != nil {
		return err
	}
	if err := ValidateFund(fund); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: zero amount", errs.ErrInvalidParameter)
	}
	if err := l.checkStakeLock(txn, account, fund, now); err != nil {
		return err
	}
	if err := l.debit(txn, account, fund, amount); err != nil {
		return err
	}
	reserve, err := l.db.GetReserve(fund, txn)
	if err != nil {
		return err
	}
	// Reserve always covers every balance, so this can only trip on a
	// corrupted ledger
	if reserve < amount {
		return fmt.Errorf("%w: %s reserve below withdrawal", errs.ErrInvalidState, fund)
	}
	if err := l.db.SetReserve(fund, reserve-amount, txn); err != nil {
		return err
	}
	l.logger.Debug(
		"withdraw",
		"component", "ledger",
		"account", account,
		"fund", fund,
		"amount", amount,
	)
	return nil
}

// Transfer moves funds between two accounts. Internal accounts are
// allowed on either side. A zero amount is a no-op.
func (l *Ledger) Transfer(
	txn *database.Txn,
	fund string,
	amount uint64,
	from string,
	to string,
) error {
	if err := ValidateFund(fund); err != nil {
		return err
	}
	if from == "" || to == "" {
		return fmt.Errorf("%w: empty account", errs.ErrInvalidParameter)
	}
	if amount == 0 || from == to {
		return nil
	}
	if err := l.debit(txn, from, fund, amount); err != nil {
		return err
	}
	return l.credit(txn, to, fund, amount)
}

// Send is a transfer initiated by a participant. Both accounts must be
// participant accounts, and stake stays put while locked the same way it
// does for Withdraw.
func (l *Ledger) Send(
	txn *database.Txn,
	fund string,
	amount uint64,
	from string,
	to string,
	now uint64,
) error {
	if err := ValidateAccount(from); err != nil {
		return err
	}
	if err := ValidateAccount(to); err != nil {
		return err
	}
	if err := ValidateFund(fund); err != nil {
		return err
	}
	if amount == 0 || from == to {
		return nil
	}
	if err := l.checkStakeLock(txn, from, fund, now); err != nil {
		return err
	}
	return l.Transfer(txn, fund, amount, from, to)
}

func (l *Ledger) checkStakeLock(
	txn *database.Txn,
	account string,
	fund string,
	now uint64,
) error {
	if fund != FundStake {
		return nil
	}
	locked, err := l.StakeLocked(txn, account, now)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf(
			"%w: stake locked by unrevealed vote",
			errs.ErrInvalidState,
		)
	}
	return nil
}

// StakeLocked returns true if the account has a pending commitment on a
// proposal whose voting phase closed at or before now
func (l *Ledger) StakeLocked(
	txn *database.Txn,
	account string,
	now uint64,
) (bool, error) {
	return l.db.HasLockedCommitment(account, now, txn)
}

// Audit verifies that every fund's balances sum to its reserve
func (l *Ledger) Audit(txn *database.Txn) error {
	for _, fund := range Funds {
		balances, err := l.db.GetBalancesByFund(fund, txn)
		if err != nil {
			return err
		}
		var total uint64
		for _, balance := range balances {
			var carry uint64
			total, carry = bits.Add64(total, uint64(balance.Amount), 0)
			if carry != 0 {
				return fmt.Errorf(
					"%w: %s balances overflow",
					errs.ErrInvalidState,
					fund,
				)
			}
		}
		reserve, err := l.db.GetReserve(fund, txn)
		if err != nil {
			return err
		}
		if total != reserve {
			return fmt.Errorf(
				"%w: %s balances total %d, reserve %d",
				errs.ErrInvalidState,
				fund,
				total,
				reserve,
			)
		}
	}
	return nil
}

func (l *Ledger) credit(
	txn *database.Txn,
	account string,
	fund string,
	amount uint64,
) error {
	balance, err := l.db.GetBalance(account, fund, txn)
	if err != nil {
		return err
	}
	newBalance, carry := bits.Add64(balance, amount, 0)
	if carry != 0 {
		return fmt.Errorf(
			"%w: %s balance overflow for %s",
			errs.ErrInvalidParameter,
			fund,
			account,
		)
	}
	return l.db.SetBalance(account, fund, newBalance, txn)
}

func (l *Ledger) debit(
	txn *database.Txn,
	account string,
	fund string,
	amount uint64,
) error {
	balance, err := l.db.GetBalance(account, fund, txn)
	if err != nil {
		return err
	}
	if amount > balance {
		return fmt.Errorf(
			"%w: %s holds %d %s, need %d",
			errs.ErrInsufficientFunds,
			account,
			balance,
			fund,
			amount,
		)
	}
	return l.db.SetBalance(account, fund, balance-amount, txn)
}
