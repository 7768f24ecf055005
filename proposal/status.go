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

import "github.com/blinklabs-io/arbiter/database/models"

// Status is the phase a proposal is in at a point in time
type Status uint8

const (
	StatusLobbying Status = iota
	StatusVoting
	StatusRevealing
	StatusPastRevealing
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusLobbying:
		return "lobbying"
	case StatusVoting:
		return "voting"
	case StatusRevealing:
		return "revealing"
	case StatusPastRevealing:
		return "past-revealing"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// StatusAt derives the phase of p at time now
func StatusAt(p *models.Proposal, now uint64) Status {
	switch {
	case p.Ended:
		return StatusEnded
	case now < p.VotingStart():
		return StatusLobbying
	case now < p.VotingEnd:
		return StatusVoting
	case now < p.RevealingEnd:
		return StatusRevealing
	default:
		return StatusPastRevealing
	}
}
