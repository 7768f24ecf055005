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

package arbiter

import (
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	proposalsCreated *prometheus.CounterVec
	proposalsEnded   *prometheus.CounterVec
	proposalsOpen    prometheus.Gauge
	votesCast        prometheus.Counter
	votesRevealed    prometheus.Counter
	votesCancelled   prometheus.Counter
	winningsClaimed  prometheus.Counter
	winningsPaid     prometheus.Counter
	operationErrors  *prometheus.CounterVec
}

func newEngineMetrics(promRegistry prometheus.Registerer) *engineMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &engineMetrics{
		proposalsCreated: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbiter_proposals_created_total",
				Help: "proposals created by kind",
			},
			[]string{"kind"},
		),
		proposalsEnded: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbiter_proposals_ended_total",
				Help: "proposals ended by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		proposalsOpen: promautoFactory.NewGauge(
			prometheus.GaugeOpts{
				Name: "arbiter_proposals_open",
				Help: "proposals that have not ended",
			},
		),
		votesCast: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "arbiter_votes_cast_total",
			Help: "vote commitments cast",
		}),
		votesRevealed: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "arbiter_votes_revealed_total",
			Help: "vote commitments revealed",
		}),
		votesCancelled: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "arbiter_votes_cancelled_total",
			Help: "vote commitments cancelled",
		}),
		winningsClaimed: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "arbiter_winnings_claimed_total",
			Help: "voter winnings claims paid",
		}),
		winningsPaid: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "arbiter_winnings_paid_total",
			Help: "total amount paid out as voter winnings",
		}),
		operationErrors: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbiter_operation_errors_total",
				Help: "failed engine operations by operation",
			},
			[]string{"operation"},
		),
	}
}

func proposalKindLabel(p *models.Proposal) string {
	if p.IsChallenge() {
		return "challenge"
	}
	return "governance"
}

func outcomeLabel(outcome uint8) string {
	switch outcome {
	case models.OutcomeAccepted:
		return "accepted"
	case models.OutcomeRejected:
		return "rejected"
	default:
		return "pending"
	}
}
