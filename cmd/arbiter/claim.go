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

	"github.com/blinklabs-io/arbiter"
	"github.com/blinklabs-io/arbiter/claim"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/spf13/cobra"
)

func claimCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Register, deregister and inspect claims",
	}
	cmd.AddCommand(
		claimRegisterCommand(),
		claimDeregisterCommand(),
		claimShowCommand(),
	)
	return cmd
}

func claimRegisterCommand() *cobra.Command {
	var payloadHex bool
	cmd := &cobra.Command{
		Use:   "register <event|member|root> <payload>",
		Short: "Register a claim backed by the deposit for its kind",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := claim.KindFromName(args[0])
			if err != nil {
				return err
			}
			payload := []byte(args[1])
			if payloadHex || kind == claim.KindRoot {
				if payload, err = parseHex("payload", args[1]); err != nil {
					return err
				}
			}
			owner, err := actingAccount(cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				c, err := e.RegisterClaim(ctx, owner, kind, payload)
				if err != nil {
					return err
				}
				printClaim(cmd, c)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&payloadHex, "hex", false, "payload is hex encoded")
	return cmd
}

func claimDeregisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deregister <claim-id>",
		Short: "Withdraw a claim and refund its deposit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claimID, err := parseHex("claim ID", args[0])
			if err != nil {
				return err
			}
			owner, err := actingAccount(cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				return e.DeregisterClaim(ctx, owner, claimID)
			})
		},
	}
}

func claimShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <claim-id>",
		Short: "Show a claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claimID, err := parseHex("claim ID", args[0])
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				c, err := e.Claim(ctx, claimID)
				if err != nil {
					return err
				}
				printClaim(cmd, c)
				return nil
			})
		},
	}
}

func printClaim(cmd *cobra.Command, c *models.Claim) {
	cmd.Printf("id\t%x\n", c.ClaimID)
	cmd.Printf("kind\t%s\n", claim.KindName(c.Kind))
	cmd.Printf("owner\t%s\n", c.Owner)
	cmd.Printf("deposit\t%d\n", uint64(c.Deposit))
	cmd.Printf("active\t%t\n", c.Active)
	cmd.Printf("under challenge\t%t\n", c.UnderChallenge)
	cmd.Printf("fraudulent\t%t\n", c.Fraudulent)
}
