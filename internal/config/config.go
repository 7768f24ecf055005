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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/arbiter/claim"
	"github.com/blinklabs-io/arbiter/proposal"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "arbiter.config"

// EnvPrefix is prepended to environment overrides, e.g.
// ARBITER_DATABASE_PATH or ARBITER_CHALLENGE_VOTING
const EnvPrefix = "arbiter"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	DatabasePath         string           `yaml:"databasePath"         split_words:"true"`
	Treasury             string           `yaml:"treasury"`
	KeyFile              string           `yaml:"keyFile"              split_words:"true"`
	Governance           proposal.Periods `yaml:"governance"`
	Challenge            proposal.Periods `yaml:"challenge"`
	ClaimDeposits        claim.Deposits   `yaml:"claimDeposits"        split_words:"true"`
	MinGovernanceDeposit uint64           `yaml:"minGovernanceDeposit" split_words:"true"`
	Tracing              bool             `yaml:"tracing"`
	TracingStdout        bool             `yaml:"tracingStdout"        split_words:"true"`
}

// DefaultConfig returns the configuration used when nothing overrides it
func DefaultConfig() *Config {
	periods := proposal.Periods{
		Lobby:     24 * 60 * 60,
		Voting:    7 * 24 * 60 * 60,
		Revealing: 3 * 24 * 60 * 60,
	}
	return &Config{
		DatabasePath:         ".arbiter",
		Treasury:             "@treasury",
		KeyFile:              "arbiter.skey",
		Governance:           periods,
		Challenge:            periods,
		MinGovernanceDeposit: 1000,
		ClaimDeposits: claim.Deposits{
			Event:  1000,
			Member: 5000,
			Root:   10000,
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file,
// then the environment. With no file given, ~/.arbiter/arbiter.yaml and
// /etc/arbiter/arbiter.yaml are tried in that order.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".arbiter", "arbiter.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/arbiter/arbiter.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise only fail when the engine
// starts
func (c *Config) Validate() error {
	if err := c.Governance.Validate(); err != nil {
		return fmt.Errorf("invalid governance periods: %w", err)
	}
	if err := c.Challenge.Validate(); err != nil {
		return fmt.Errorf("invalid challenge periods: %w", err)
	}
	if c.Treasury == "" {
		return errors.New("treasury account must not be empty")
	}
	return nil
}
