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

package proof

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T, fill byte) *Signer {
	t.Helper()
	signer, err := NewSigner(bytes.Repeat([]byte{fill}, 32))
	require.NoError(t, err)
	return signer
}

func TestVerifyRecoversAccount(t *testing.T) {
	signer := testSigner(t, 0x01)
	msg, err := RevealMessage(7, 1)
	require.NoError(t, err)
	proof, err := signer.Sign(msg)
	require.NoError(t, err)

	account, err := Ed25519Verifier{}.Verify(proof, msg)
	require.NoError(t, err)
	assert.Equal(t, signer.Account(), account)
	assert.Len(t, account, AccountIdSize*2)
}

func TestVerifyRejectsOtherSubject(t *testing.T) {
	signer := testSigner(t, 0x02)
	proof, err := signer.RevealProof(7, 1)
	require.NoError(t, err)
	other, err := RevealMessage(7, 2)
	require.NoError(t, err)
	_, err = Ed25519Verifier{}.Verify(proof, other)
	require.ErrorIs(t, err, ErrInvalidProof)
	other, err = RevealMessage(8, 1)
	require.NoError(t, err)
	_, err = Ed25519Verifier{}.Verify(proof, other)
	require.ErrorIs(t, err, ErrInvalidProof)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	msg, err := RevealMessage(1, 1)
	require.NoError(t, err)
	for _, proof := range [][]byte{
		nil,
		{0xff},
		{0x82, 0x41, 0x00, 0x41, 0x00}, // [h'00', h'00']
	} {
		_, err := Ed25519Verifier{}.Verify(proof, msg)
		require.ErrorIs(t, err, ErrInvalidProof)
	}
}

func TestAccountsDiffer(t *testing.T) {
	assert.NotEqual(t, testSigner(t, 0x01).Account(), testSigner(t, 0x02).Account())
}

func TestCommitmentHashBindsOption(t *testing.T) {
	signer := testSigner(t, 0x03)
	proof, hash, err := signer.Commitment(4, 2)
	require.NoError(t, err)
	assert.Len(t, hash, 32)

	again, err := CommitmentHash(proof, 2)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	flipped, err := CommitmentHash(proof, 1)
	require.NoError(t, err)
	assert.NotEqual(t, hash, flipped)
}

func TestNewSignerSeedSize(t *testing.T) {
	_, err := NewSigner([]byte{0x01})
	require.Error(t, err)
	signer, err := GenerateSigner()
	require.NoError(t, err)
	assert.Len(t, signer.Seed(), 32)
}

func TestKeyFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voter.skey")
	signer := testSigner(t, 0x04)
	require.NoError(t, SaveSigner(path, signer))
	// Never clobber an existing key
	require.Error(t, SaveSigner(path, signer))

	loaded, err := LoadSigner(path)
	require.NoError(t, err)
	assert.Equal(t, signer.Account(), loaded.Account())
}

func TestKeyFileInsecureMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not checked on windows")
	}
	path := filepath.Join(t.TempDir(), "voter.skey")
	require.NoError(t, SaveSigner(path, testSigner(t, 0x05)))
	require.NoError(t, os.Chmod(path, 0o644))
	_, err := LoadSigner(path)
	require.ErrorIs(t, err, ErrInsecureFileMode)
}

func TestKeyFileWrongType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.skey")
	require.NoError(t, os.WriteFile(
		path,
		[]byte(`{"type": "VrfSigningKey_PraosVRF", "description": "", "cborHex": "00"}`),
		0o600,
	))
	_, err := LoadSigner(path)
	require.Error(t, err)
}
