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

import (
	"errors"

	"github.com/blinklabs-io/arbiter/database/types"
)

var ErrClaimNotFound = errors.New("claim not found")

// Claim kinds
const (
	ClaimKindEvent  uint8 = 0
	ClaimKindMember uint8 = 1
	ClaimKindRoot   uint8 = 2 // scaling root commitment
)

// Claim is a registry entry backed by a deposit that may be challenged
type Claim struct {
	ClaimID        []byte       `gorm:"uniqueIndex;size:32;not null"`
	Payload        []byte       `gorm:"not null"`
	Owner          string       `gorm:"index;size:128;not null"`
	ID             uint         `gorm:"primarykey"`
	RegisteredTime uint64       `gorm:"not null"`
	Deposit        types.Uint64 `gorm:"not null"`
	Kind           uint8        `gorm:"index;not null"`
	Active         bool         `gorm:"index;not null"`
	UnderChallenge bool         `gorm:"not null"`
	Fraudulent     bool         `gorm:"not null"`
}

// TableName returns the table name
func (Claim) TableName() string {
	return "claim"
}
