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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCli executes the CLI with args against a config in dir and returns
// its output
func runCli(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	globalFlags.debug = false
	globalFlags.keyFile = ""
	globalFlags.as = ""
	configFile = ""
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "arbiter.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func setupCli(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	config := "databasePath: " + filepath.Join(dir, "data") + "\n" +
		"keyFile: " + filepath.Join(dir, "arbiter.skey") + "\n" +
		"minGovernanceDeposit: 10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arbiter.yaml"), []byte(config), 0o600))
	return dir
}

func TestCliKeygen(t *testing.T) {
	dir := setupCli(t)
	out, err := runCli(t, dir, "keygen")
	require.NoError(t, err)
	assert.Contains(t, out, "account ")
	account := strings.TrimSpace(out[strings.Index(out, "account ")+len("account "):])
	out, err = runCli(t, dir, "account")
	require.NoError(t, err)
	assert.Equal(t, account, strings.TrimSpace(out))
	// An existing key is never overwritten
	_, err = runCli(t, dir, "keygen")
	require.Error(t, err)
}

func TestCliLedger(t *testing.T) {
	dir := setupCli(t)
	out, err := runCli(t, dir, "--as", "alice", "deposit", "deposit", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "alice deposit balance 100")
	_, err = runCli(t, dir, "--as", "alice", "transfer", "deposit", "40", "bob")
	require.NoError(t, err)
	out, err = runCli(t, dir, "balance", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "deposit\t40")
	assert.Contains(t, out, "stake\t0")
	_, err = runCli(t, dir, "--as", "bob", "withdraw", "deposit", "41")
	require.Error(t, err)
	out, err = runCli(t, dir, "audit")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestCliProposal(t *testing.T) {
	dir := setupCli(t)
	_, err := runCli(t, dir, "keygen")
	require.NoError(t, err)
	_, err = runCli(t, dir, "deposit", "deposit", "50")
	require.NoError(t, err)
	out, err := runCli(t, dir, "propose", "20", "adopt the new fee table")
	require.NoError(t, err)
	assert.Contains(t, out, "id\t1\n")
	assert.Contains(t, out, "status\tlobbying\n")
	out, err = runCli(t, dir, "status", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "description\tadopt the new fee table\n")
	// Voting has not started yet
	_, err = runCli(t, dir, "vote", "1", "for")
	require.Error(t, err)
	_, err = runCli(t, dir, "vote", "1", "maybe")
	require.Error(t, err)
	_, err = runCli(t, dir, "end", "1")
	require.Error(t, err)
}

func TestCliClaim(t *testing.T) {
	dir := setupCli(t)
	_, err := runCli(t, dir, "--as", "carol", "deposit", "deposit", "1000")
	require.NoError(t, err)
	out, err := runCli(t, dir, "--as", "carol", "claim", "register", "event", "sensor 7 offline")
	require.NoError(t, err)
	require.Contains(t, out, "id\t")
	line := out[strings.Index(out, "id\t")+3:]
	claimID := line[:strings.Index(line, "\n")]
	out, err = runCli(t, dir, "claim", "show", claimID)
	require.NoError(t, err)
	assert.Contains(t, out, "active\ttrue")
	_, err = runCli(t, dir, "--as", "dave", "challenge", claimID)
	require.Error(t, err, "dave has no funds")
	_, err = runCli(t, dir, "--as", "carol", "claim", "deregister", claimID)
	require.NoError(t, err)
	out, err = runCli(t, dir, "balance", "carol")
	require.NoError(t, err)
	assert.Contains(t, out, "deposit\t1000")
}
