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
	"github.com/blinklabs-io/arbiter/ledger"
	"github.com/spf13/cobra"
)

func fundAmountCommand(
	use string,
	short string,
	op func(e *arbiter.Engine, ctx context.Context, account, fund string, amount uint64) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <fund> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseUint("amount", args[1])
			if err != nil {
				return err
			}
			account, err := actingAccount(cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				if err := op(e, ctx, account, args[0], amount); err != nil {
					return err
				}
				balance, err := e.Balance(ctx, account, args[0])
				if err != nil {
					return err
				}
				cmd.Printf("%s %s balance %d\n", account, args[0], balance)
				return nil
			})
		},
	}
}

func depositCommand() *cobra.Command {
	return fundAmountCommand("deposit", "Deposit funds", (*arbiter.Engine).Deposit)
}

func withdrawCommand() *cobra.Command {
	return fundAmountCommand("withdraw", "Withdraw funds", (*arbiter.Engine).Withdraw)
}

func transferCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <fund> <amount> <to>",
		Short: "Transfer funds to another account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseUint("amount", args[1])
			if err != nil {
				return err
			}
			account, err := actingAccount(cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				return e.Transfer(ctx, args[0], amount, account, args[2])
			})
		},
	}
}

func balanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [account]",
		Short: "Show balances in every fund",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account string
			if len(args) == 1 {
				account = args[0]
			} else {
				var err error
				if account, err = actingAccount(cmd); err != nil {
					return err
				}
			}
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				for _, fund := range ledger.Funds {
					balance, err := e.Balance(ctx, account, fund)
					if err != nil {
						return err
					}
					cmd.Printf("%s\t%d\n", fund, balance)
				}
				return nil
			})
		},
	}
}

func auditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check that balances add up to reserves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngine(cmd, func(ctx context.Context, e *arbiter.Engine) error {
				if err := e.Audit(ctx); err != nil {
					return err
				}
				cmd.Println("ok")
				return nil
			})
		},
	}
}
