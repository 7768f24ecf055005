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

package settlement

import "github.com/holiman/uint256"

// RewardSplit is how a challenge deposit is divided at settlement
type RewardSplit struct {
	Winner uint64 // challenger or defender
	Ender  uint64
	Pool   uint64 // shared by voters on the winning option
}

// Split divides deposit into a tenth for the winner, a tenth for the
// ender and the rest for the voter pool
func Split(deposit uint64) RewardSplit {
	tenth := deposit / 10
	return RewardSplit{
		Winner: tenth,
		Ender:  tenth,
		Pool:   deposit - 2*tenth,
	}
}

// Share returns a voter's cut of pool: floor(pool * weight / total). The
// product is computed in 256 bits so it cannot overflow. A zero total
// yields no share.
func Share(pool, weight, total uint64) uint64 {
	if total == 0 || weight == 0 {
		return 0
	}
	product := new(uint256.Int).Mul(
		uint256.NewInt(pool),
		uint256.NewInt(weight),
	)
	return product.Div(product, uint256.NewInt(total)).Uint64()
}
