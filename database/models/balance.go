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

import "github.com/blinklabs-io/arbiter/database/types"

// Balance is the amount an account holds in a single named fund
type Balance struct {
	Account string       `gorm:"uniqueIndex:idx_balance_account_fund,priority:1;size:128;not null"`
	Fund    string       `gorm:"uniqueIndex:idx_balance_account_fund,priority:2;index;size:32;not null"`
	ID      uint         `gorm:"primarykey"`
	Amount  types.Uint64 `gorm:"not null"`
}

// TableName returns the table name
func (Balance) TableName() string {
	return "balance"
}

// Reserve tracks the externally custodied total for a fund: cumulative
// deposits minus withdrawals. The sum of all balances for the fund must
// always equal it.
type Reserve struct {
	Fund   string       `gorm:"primarykey;size:32"`
	Amount types.Uint64 `gorm:"not null"`
}

// TableName returns the table name
func (Reserve) TableName() string {
	return "reserve"
}
