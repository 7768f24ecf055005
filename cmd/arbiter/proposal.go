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
	"os"

	"github.com/blinklabs-io/arbiter"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/proposal"
	"github.com/spf13/cobra"
)

func proposeCommand() *cobra.Command {
	var descriptionFile string
	cmd := &cobra.Command{
		Use:   "propose <deposit> [description]",
		Short: "Open a governance proposal",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deposit, err := parseUint("deposit", args[0])
			if err != nil {
				return err
			}
			var description []byte
			switch {
			case descriptionFile != "":
				if description, err = os.ReadFile(descriptionFile); err != nil {
					return err
				}
			case len(args) == 2:
				description = []byte(args[1])
			}
			owner, err := actingAccount(cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				p, err := e.CreateGovernanceProposal(ctx, owner, description, deposit)
				if err != nil {
					return err
				}
				printProposal(cmd, &arbiter.ProposalInfo{
					Proposal: p,
					Status:   proposal.StatusAt(p, e.Now()),
				})
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&descriptionFile, "file", "f", "", "read the description from a file")
	return cmd
}

func challengeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "challenge <claim-id>",
		Short: "Challenge a claim by matching its deposit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claimID, err := parseHex("claim ID", args[0])
			if err != nil {
				return err
			}
			challenger, err := actingAccount(cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				p, err := e.CreateChallenge(ctx, challenger, claimID)
				if err != nil {
					return err
				}
				printProposal(cmd, &arbiter.ProposalInfo{
					Proposal: p,
					Status:   proposal.StatusAt(p, e.Now()),
				})
				return nil
			})
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <proposal-id>",
		Short: "Show a proposal's phase and tally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposalID, err := parseUint("proposal ID", args[0])
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				info, err := e.Proposal(ctx, proposalID)
				if err != nil {
					return err
				}
				printProposal(cmd, info)
				description, err := e.ProposalDescription(ctx, proposalID)
				if err != nil {
					return err
				}
				if len(description) > 0 {
					cmd.Printf("description\t%s\n", description)
				}
				return nil
			})
		},
	}
}

func endCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "end <proposal-id>",
		Short: "End a governance proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposalID, err := parseUint("proposal ID", args[0])
			if err != nil {
				return err
			}
			ender, err := actingAccount(cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				p, err := e.EndGovernanceProposal(ctx, proposalID, ender)
				if err != nil {
					return err
				}
				printProposal(cmd, &arbiter.ProposalInfo{
					Proposal: p,
					Status:   proposal.StatusAt(p, e.Now()),
				})
				return nil
			})
		},
	}
}

func endChallengeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "end-challenge <claim-id>",
		Short: "Settle the challenge against a claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claimID, err := parseHex("claim ID", args[0])
			if err != nil {
				return err
			}
			ender, err := actingAccount(cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				p, err := e.EndChallenge(ctx, claimID, ender)
				if err != nil {
					return err
				}
				printProposal(cmd, &arbiter.ProposalInfo{
					Proposal: p,
					Status:   proposal.StatusAt(p, e.Now()),
				})
				return nil
			})
		},
	}
}

func printProposal(cmd *cobra.Command, info *arbiter.ProposalInfo) {
	p := info.Proposal
	kind := "governance"
	if p.IsChallenge() {
		kind = "challenge"
	}
	cmd.Printf("id\t%d\n", p.ID)
	cmd.Printf("kind\t%s\n", kind)
	cmd.Printf("status\t%s\n", info.Status)
	if p.IsChallenge() {
		cmd.Printf("claim\t%x\n", p.ClaimID)
		cmd.Printf("defender\t%s\n", p.Defender)
	}
	cmd.Printf("owner\t%s\n", p.Owner)
	cmd.Printf("deposit\t%d\n", uint64(p.Deposit))
	cmd.Printf("voting\t%d-%d\n", p.VotingStart(), p.VotingEnd)
	cmd.Printf("revealing until\t%d\n", p.RevealingEnd)
	cmd.Printf("votes for\t%d\n", uint64(p.VotesFor))
	cmd.Printf("votes against\t%d\n", uint64(p.VotesAgainst))
	if p.Ended {
		outcome := "rejected"
		if p.Outcome == models.OutcomeAccepted {
			outcome = "accepted"
		}
		cmd.Printf("outcome\t%s\n", outcome)
		cmd.Printf("ended by\t%s at %d\n", p.Ender, p.EndedTime)
		if p.IsChallenge() {
			cmd.Printf("voter pool\t%d\n", uint64(p.VoterPool))
			cmd.Printf("remainder\t%d\n", uint64(p.Remainder))
		}
	}
}
