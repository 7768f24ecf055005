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

// Package claim defines how the engine reaches the registries whose claims
// can be challenged, and provides a registry for event, member and scaling
// root claims.
package claim

import "github.com/blinklabs-io/arbiter/database"

// IDSize is the size in bytes of a claim ID
const IDSize = 32

// ClaimDeposit is the deposit backing a registered claim
type ClaimDeposit struct {
	ClaimID []byte
	Owner   string
	Amount  uint64
}

// Adapter is implemented by claim registries. Calls run inside the engine's
// transaction so registry state changes commit or roll back with the
// challenge that caused them.
type Adapter interface {
	// GetExistingDeposit returns the deposit of an active claim, or
	// errs.ErrNotFound
	GetExistingDeposit(txn *database.Txn, claimID []byte) (ClaimDeposit, error)
	// OnChallengeStarted marks the claim as under challenge, which blocks
	// deregistration. Returns errs.ErrAlreadyExists if it already is.
	OnChallengeStarted(txn *database.Txn, claimID []byte) error
	// OnChallengeResolved clears the challenge. The claim is marked
	// fraudulent if the challenger won.
	OnChallengeResolved(
		txn *database.Txn,
		claimID []byte,
		challengerWon bool,
	) error
}
