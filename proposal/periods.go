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

package proposal

import (
	"fmt"
	"math/bits"

	"github.com/blinklabs-io/arbiter/errs"
)

// Periods are the phase lengths, in seconds, applied to new proposals
type Periods struct {
	Lobby     uint64 `yaml:"lobby"`
	Voting    uint64 `yaml:"voting"`
	Revealing uint64 `yaml:"revealing"`
}

// Validate checks that the voting and revealing phases are not empty
func (p Periods) Validate() error {
	if p.Voting == 0 {
		return fmt.Errorf("%w: voting period must be positive", errs.ErrInvalidParameter)
	}
	if p.Revealing == 0 {
		return fmt.Errorf("%w: revealing period must be positive", errs.ErrInvalidParameter)
	}
	return nil
}

// boundaries returns the lobby end, voting end and revealing end of a
// proposal created at now
func (p Periods) boundaries(now uint64) (uint64, uint64, uint64, error) {
	lobbyEnd, c1 := bits.Add64(now, p.Lobby, 0)
	votingEnd, c2 := bits.Add64(lobbyEnd, p.Voting, 0)
	revealingEnd, c3 := bits.Add64(votingEnd, p.Revealing, 0)
	if c1|c2|c3 != 0 {
		return 0, 0, 0, fmt.Errorf("%w: phase boundary overflow", errs.ErrInvalidParameter)
	}
	return lobbyEnd, votingEnd, revealingEnd, nil
}
