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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetBalance returns the amount held by an account in a fund. Accounts that
// have never been credited hold zero.
func (d *MetadataStoreSqlite) GetBalance(
	account string,
	fund string,
	txn types.Txn,
) (uint64, error) {
	var balance models.Balance
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.Where(
		"account = ? AND fund = ?",
		account,
		fund,
	).First(&balance); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return uint64(balance.Amount), nil
}

// SetBalance creates or updates the balance row for an account and fund
func (d *MetadataStoreSqlite) SetBalance(
	account string,
	fund string,
	amount uint64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	tmpBalance := models.Balance{
		Account: account,
		Fund:    fund,
		Amount:  types.Uint64(amount),
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "account"},
			{Name: "fund"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}
	if result := db.Clauses(onConflict).Create(&tmpBalance); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetBalancesByFund returns every balance row for a fund
func (d *MetadataStoreSqlite) GetBalancesByFund(
	fund string,
	txn types.Txn,
) ([]models.Balance, error) {
	var ret []models.Balance
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("fund = ?", fund).
		Order("account ASC").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetReserve returns the externally custodied total for a fund
func (d *MetadataStoreSqlite) GetReserve(
	fund string,
	txn types.Txn,
) (uint64, error) {
	var reserve models.Reserve
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.Where("fund = ?", fund).First(&reserve); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return uint64(reserve.Amount), nil
}

// SetReserve creates or updates the reserve total for a fund
func (d *MetadataStoreSqlite) SetReserve(
	fund string,
	amount uint64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	tmpReserve := models.Reserve{
		Fund:   fund,
		Amount: types.Uint64(amount),
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "fund"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}
	if result := db.Clauses(onConflict).Create(&tmpReserve); result.Error != nil {
		return result.Error
	}
	return nil
}
