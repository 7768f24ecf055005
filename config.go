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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/arbiter/claim"
	"github.com/blinklabs-io/arbiter/ledger"
	"github.com/blinklabs-io/arbiter/proof"
	"github.com/blinklabs-io/arbiter/proposal"
	"github.com/prometheus/client_golang/prometheus"
)

// Clock returns the current time in seconds. Proposal phases are evaluated
// against it on every call.
type Clock func() uint64

// DefaultPeriods are used for both proposal kinds unless configured
var DefaultPeriods = proposal.Periods{
	Lobby:     24 * 60 * 60,
	Voting:    7 * 24 * 60 * 60,
	Revealing: 3 * 24 * 60 * 60,
}

type Config struct {
	promRegistry         prometheus.Registerer
	logger               *slog.Logger
	clock                Clock
	verifier             proof.Verifier
	dataDir              string
	treasury             string
	governancePeriods    proposal.Periods
	challengePeriods     proposal.Periods
	claimDeposits        claim.Deposits
	minGovernanceDeposit uint64
}

// ConfigOptionFunc is a type that represents functions that modify the engine config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new engine config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		clock:             func() uint64 { return uint64(time.Now().Unix()) }, // #nosec G115
		verifier:          proof.Ed25519Verifier{},
		treasury:          ledger.AccountTreasury,
		governancePeriods: DefaultPeriods,
		challengePeriods:  DefaultPeriods,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *Config) validate() error {
	if c.logger == nil {
		return errors.New("no logger configured")
	}
	if c.clock == nil {
		return errors.New("no clock configured")
	}
	if c.verifier == nil {
		return errors.New("no proof verifier configured")
	}
	if err := c.governancePeriods.Validate(); err != nil {
		return fmt.Errorf("governance periods: %w", err)
	}
	if err := c.challengePeriods.Validate(); err != nil {
		return fmt.Errorf("challenge periods: %w", err)
	}
	return nil
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithClock overrides the wall clock, mostly for tests and replay
func WithClock(clock Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithVerifier specifies how reveal proofs are checked. This defaults to Ed25519 proofs
func WithVerifier(verifier proof.Verifier) ConfigOptionFunc {
	return func(c *Config) {
		c.verifier = verifier
	}
}

// WithGovernancePeriods specifies the phase lengths of governance proposals
func WithGovernancePeriods(periods proposal.Periods) ConfigOptionFunc {
	return func(c *Config) {
		c.governancePeriods = periods
	}
}

// WithChallengePeriods specifies the phase lengths of challenges
func WithChallengePeriods(periods proposal.Periods) ConfigOptionFunc {
	return func(c *Config) {
		c.challengePeriods = periods
	}
}

// WithMinGovernanceDeposit specifies the smallest deposit a governance proposal may be backed by
func WithMinGovernanceDeposit(amount uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.minGovernanceDeposit = amount
	}
}

// WithClaimDeposits specifies the deposit required to register each kind of claim
func WithClaimDeposits(deposits claim.Deposits) ConfigOptionFunc {
	return func(c *Config) {
		c.claimDeposits = deposits
	}
}

// WithTreasury specifies the account receiving unpaid voter pool remainders. This defaults to @treasury
func WithTreasury(account string) ConfigOptionFunc {
	return func(c *Config) {
		c.treasury = account
	}
}
