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
)

// GetClaim retrieves a registered claim by its ID. Returns nil if it does
// not exist.
func (d *MetadataStoreSqlite) GetClaim(
	claimID []byte,
	txn types.Txn,
) (*models.Claim, error) {
	var claim models.Claim
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("claim_id = ?", claimID).First(&claim); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &claim, nil
}

// SetClaim creates or updates a registered claim
func (d *MetadataStoreSqlite) SetClaim(
	claim *models.Claim,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Save(claim); result.Error != nil {
		return result.Error
	}
	return nil
}
