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

// GetClaim returns a registered claim, or models.ErrClaimNotFound
func (d *Database) GetClaim(claimID []byte, txn *Txn) (*models.Claim, error) {
	var ret *models.Claim
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetClaim(claimID, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrClaimNotFound
	}
	return ret, nil
}

// SetClaim creates or saves a registered claim
func (d *Database) SetClaim(claim *models.Claim, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetClaim(claim, txn.Metadata())
	})
}
