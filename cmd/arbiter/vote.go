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
	"fmt"

	"github.com/blinklabs-io/arbiter"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/errs"
	"github.com/spf13/cobra"
)

func parseOption(value string) (uint8, error) {
	switch value {
	case "for", "yes":
		return models.OptionFor, nil
	case "against", "no":
		return models.OptionAgainst, nil
	default:
		return 0, fmt.Errorf("%w: option must be for or against", errs.ErrInvalidParameter)
	}
}

func voteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <proposal-id> <for|against>",
		Short: "Commit a sealed vote with the signing key",
		Long: "Commit a sealed vote with the signing key. The vote stays " +
			"secret until revealed with the same key after voting closes.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposalID, err := parseUint("proposal ID", args[0])
			if err != nil {
				return err
			}
			option, err := parseOption(args[1])
			if err != nil {
				return err
			}
			signer, err := loadSigner(cmd)
			if err != nil {
				return err
			}
			_, secretHash, err := signer.Commitment(proposalID, option)
			if err != nil {
				return err
			}
			voter := signer.Account()
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				prevTime, err := e.GetPrevTimeParamForCastVote(ctx, proposalID, voter)
				if err != nil {
					return err
				}
				if err := e.CastVote(ctx, proposalID, voter, secretHash, prevTime); err != nil {
					return err
				}
				cmd.Printf("committed %x\n", secretHash)
				return nil
			})
		},
	}
}

func revealCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reveal <proposal-id> <for|against>",
		Short: "Reveal a committed vote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposalID, err := parseUint("proposal ID", args[0])
			if err != nil {
				return err
			}
			option, err := parseOption(args[1])
			if err != nil {
				return err
			}
			signer, err := loadSigner(cmd)
			if err != nil {
				return err
			}
			// Ed25519 signatures are deterministic, so this is the proof the
			// commitment was made from
			revealProof, err := signer.RevealProof(proposalID, option)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				c, err := e.RevealVote(ctx, revealProof, proposalID, option)
				if err != nil {
					return err
				}
				if c.Tallied {
					cmd.Printf("revealed with weight %d\n", uint64(c.Weight))
				} else {
					cmd.Println("revealed after the proposal ended, not counted")
				}
				return nil
			})
		},
	}
}

func cancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <proposal-id>",
		Short: "Cancel a pending vote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposalID, err := parseUint("proposal ID", args[0])
			if err != nil {
				return err
			}
			voter, err := actingAccount(cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				return e.CancelVote(ctx, proposalID, voter)
			})
		},
	}
}

func chainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chain [account]",
		Short: "List pending votes in chain order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var voter string
			if len(args) == 1 {
				voter = args[0]
			} else {
				var err error
				if voter, err = actingAccount(cmd); err != nil {
					return err
				}
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				ids, err := e.PendingChain(ctx, voter)
				if err != nil {
					return err
				}
				for _, id := range ids {
					c, err := e.Commitment(ctx, id, voter)
					if err != nil {
						return err
					}
					cmd.Printf("%d\tvoting %d-%d\n", id, c.VotingStart, c.VotingEnd)
				}
				return nil
			})
		},
	}
}

func winningsCommand() *cobra.Command {
	var claimFlag bool
	cmd := &cobra.Command{
		Use:   "winnings <proposal-id>",
		Short: "Show or claim a share of a settled challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposalID, err := parseUint("proposal ID", args[0])
			if err != nil {
				return err
			}
			voter, err := actingAccount(cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				if !claimFlag {
					amount, err := e.Winnings(ctx, proposalID, voter)
					if err != nil {
						return err
					}
					cmd.Printf("claimable %d\n", amount)
					return nil
				}
				amount, err := e.ClaimVoterWinnings(ctx, proposalID, voter)
				if err != nil {
					return err
				}
				cmd.Printf("claimed %d\n", amount)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&claimFlag, "claim", false, "pay the winnings into the deposit fund")
	return cmd
}
