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

package database

import "github.com/blinklabs-io/arbiter/database/models"

// GetBalance returns the amount held by an account in a fund
func (d *Database) GetBalance(
	account string,
	fund string,
	txn *Txn,
) (uint64, error) {
	var ret uint64
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetBalance(account, fund, txn.Metadata())
		return err
	})
	return ret, err
}

// SetBalance records the amount held by an account in a fund
func (d *Database) SetBalance(
	account string,
	fund string,
	amount uint64,
	txn *Txn,
) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetBalance(account, fund, amount, txn.Metadata())
	})
}

// GetBalancesByFund returns every balance row for a fund, ordered by account
func (d *Database) GetBalancesByFund(
	fund string,
	txn *Txn,
) ([]models.Balance, error) {
	var ret []models.Balance
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetBalancesByFund(fund, txn.Metadata())
		return err
	})
	return ret, err
}

// GetReserve returns the externally custodied total for a fund
func (d *Database) GetReserve(fund string, txn *Txn) (uint64, error) {
	var ret uint64
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetReserve(fund, txn.Metadata())
		return err
	})
	return ret, err
}

// SetReserve records the externally custodied total for a fund
func (d *Database) SetReserve(fund string, amount uint64, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetReserve(fund, amount, txn.Metadata())
	})
}
