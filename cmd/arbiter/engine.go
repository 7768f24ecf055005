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

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/blinklabs-io/arbiter"
	"github.com/blinklabs-io/arbiter/internal/config"
	"github.com/blinklabs-io/arbiter/proof"
	"github.com/spf13/cobra"
)

// runEngine opens the engine described by the loaded config, runs fn and
// closes everything again
func runEngine(
	cmd *cobra.Command,
	fn func(ctx context.Context, e *arbiter.Engine) error,
) error {
	logger := commonRun()
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errors.New("no config found in context")
	}
	ctx := cmd.Context()
	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn(
				"failed to flush traces",
				"component", programName,
				"error", err,
			)
		}
	}()
	e, err := arbiter.New(arbiter.NewConfig(
		arbiter.WithLogger(logger),
		arbiter.WithDatabasePath(cfg.DatabasePath),
		arbiter.WithGovernancePeriods(cfg.Governance),
		arbiter.WithChallengePeriods(cfg.Challenge),
		arbiter.WithMinGovernanceDeposit(cfg.MinGovernanceDeposit),
		arbiter.WithClaimDeposits(cfg.ClaimDeposits),
		arbiter.WithTreasury(cfg.Treasury),
	))
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Error(
				"failed to close engine",
				"component", programName,
				"error", err,
			)
		}
	}()
	if err := fn(ctx, e); err != nil {
		slog.Debug(
			"command failed",
			"component", programName,
			"command", cmd.Name(),
			"error", err,
		)
		return err
	}
	return nil
}

func loadSigner(cmd *cobra.Command) (*proof.Signer, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("no config found in context")
	}
	return proof.LoadSigner(cfg.KeyFile)
}

// actingAccount returns the --as account, or the account of the signing key
func actingAccount(cmd *cobra.Command) (string, error) {
	if globalFlags.as != "" {
		return globalFlags.as, nil
	}
	signer, err := loadSigner(cmd)
	if err != nil {
		return "", fmt.Errorf("no --as account and %w", err)
	}
	return signer.Account(), nil
}

func parseUint(name string, value string) (uint64, error) {
	ret, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return ret, nil
}

func parseHex(name string, value string) ([]byte, error) {
	ret, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return ret, nil
}
