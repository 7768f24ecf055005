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
	"errors"

	"github.com/blinklabs-io/arbiter/internal/config"
	"github.com/blinklabs-io/arbiter/proof"
	"github.com/spf13/cobra"
)

func keygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key for voting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			signer, err := proof.GenerateSigner()
			if err != nil {
				return err
			}
			if err := proof.SaveSigner(cfg.KeyFile, signer); err != nil {
				return err
			}
			cmd.Printf("wrote %s\naccount %s\n", cfg.KeyFile, signer.Account())
			return nil
		},
	}
}

func accountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the account of the signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := loadSigner(cmd)
			if err != nil {
				return err
			}
			cmd.Println(signer.Account())
			return nil
		},
	}
}
