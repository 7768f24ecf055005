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

package settlement_test

import (
	"math"
	"testing"

	"github.com/blinklabs-io/arbiter/settlement"
	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	testDefs := []struct {
		deposit uint64
		expect  settlement.RewardSplit
	}{
		{1000, settlement.RewardSplit{Winner: 100, Ender: 100, Pool: 800}},
		{1009, settlement.RewardSplit{Winner: 100, Ender: 100, Pool: 809}},
		{9, settlement.RewardSplit{Winner: 0, Ender: 0, Pool: 9}},
		{0, settlement.RewardSplit{}},
	}
	for _, testDef := range testDefs {
		split := settlement.Split(testDef.deposit)
		assert.Equal(t, testDef.expect, split, "deposit %d", testDef.deposit)
		assert.Equal(
			t,
			testDef.deposit,
			split.Winner+split.Ender+split.Pool,
			"deposit %d",
			testDef.deposit,
		)
	}
}

func TestShare(t *testing.T) {
	assert.Equal(t, uint64(400), settlement.Share(800, 500, 1000))
	assert.Equal(t, uint64(266), settlement.Share(800, 1, 3))
	assert.Equal(t, uint64(0), settlement.Share(800, 1, 0))
	assert.Equal(t, uint64(0), settlement.Share(800, 0, 10))
	// pool * weight overflows 64 bits
	assert.Equal(
		t,
		uint64(math.MaxUint64/2),
		settlement.Share(math.MaxUint64, math.MaxUint64/2, math.MaxUint64),
	)
}
