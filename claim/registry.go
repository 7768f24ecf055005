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

package claim

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/arbiter/database"
	"github.com/blinklabs-io/arbiter/database/models"
	"github.com/blinklabs-io/arbiter/database/types"
	"github.com/blinklabs-io/arbiter/errs"
	"github.com/blinklabs-io/arbiter/ledger"
	"github.com/blinklabs-io/gouroboros/cbor"
	"golang.org/x/crypto/blake2b"
)

// Claim kinds
const (
	KindEvent  = models.ClaimKindEvent
	KindMember = models.ClaimKindMember
	KindRoot   = models.ClaimKindRoot
)

const (
	// MaxPayloadSize bounds event and member payloads
	MaxPayloadSize = 4096
	// RootPayloadSize is the size of a scaling root commitment
	RootPayloadSize = 32
)

// Deposits holds the deposit required to register each kind of claim
type Deposits struct {
	Event  uint64
	Member uint64
	Root   uint64
}

// For returns the deposit required for kind
func (d Deposits) For(kind uint8) (uint64, error) {
	switch kind {
	case KindEvent:
		return d.Event, nil
	case KindMember:
		return d.Member, nil
	case KindRoot:
		return d.Root, nil
	default:
		return 0, fmt.Errorf("%w: unknown claim kind %d", errs.ErrInvalidParameter, kind)
	}
}

// KindName returns the lowercase name of a claim kind
func KindName(kind uint8) string {
	switch kind {
	case KindEvent:
		return "event"
	case KindMember:
		return "member"
	case KindRoot:
		return "root"
	default:
		return fmt.Sprintf("unknown(%d)", kind)
	}
}

// KindFromName parses a claim kind name
func KindFromName(name string) (uint8, error) {
	for _, kind := range []uint8{KindEvent, KindMember, KindRoot} {
		if KindName(kind) == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown claim kind %q", errs.ErrInvalidParameter, name)
}

// ID returns the claim ID for a payload registered by owner: the
// blake2b-256 hash of the CBOR encoding of [kind, owner, payload]
func ID(kind uint8, owner string, payload []byte) ([]byte, error) {
	data, err := cbor.Encode([]any{kind, owner, payload})
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(data)
	return sum[:], nil
}

var _ Adapter = (*Registry)(nil)

// Registry stores claims backed by deposits escrowed in the registry's
// custody account
type Registry struct {
	db       *database.Database
	ledger   *ledger.Ledger
	logger   *slog.Logger
	deposits Deposits
}

func NewRegistry(
	db *database.Database,
	l *ledger.Ledger,
	deposits Deposits,
	logger *slog.Logger,
) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Registry{
		db:       db,
		ledger:   l,
		logger:   logger,
		deposits: deposits,
	}
}

// Deposits returns the per-kind registration deposits
func (r *Registry) Deposits() Deposits {
	return r.deposits
}

func validatePayload(kind uint8, payload []byte) error {
	switch kind {
	case KindRoot:
		if len(payload) != RootPayloadSize {
			return fmt.Errorf(
				"%w: root payload must be %d bytes, got %d",
				errs.ErrInvalidParameter,
				RootPayloadSize,
				len(payload),
			)
		}
	case KindEvent, KindMember:
		if len(payload) == 0 || len(payload) > MaxPayloadSize {
			return fmt.Errorf(
				"%w: %s payload must be 1-%d bytes",
				errs.ErrInvalidParameter,
				KindName(kind),
				MaxPayloadSize,
			)
		}
	default:
		return fmt.Errorf("%w: unknown claim kind %d", errs.ErrInvalidParameter, kind)
	}
	return nil
}

// Register records a new claim and escrows its deposit from the owner's
// deposit fund
func (r *Registry) Register(
	txn *database.Txn,
	owner string,
	kind uint8,
	payload []byte,
	now uint64,
) (*models.Claim, error) {
	if err := ledger.ValidateAccount(owner); err != nil {
		return nil, err
	}
	if err := validatePayload(kind, payload); err != nil {
		return nil, err
	}
	amount, err := r.deposits.For(kind)
	if err != nil {
		return nil, err
	}
	claimID, err := ID(kind, owner, payload)
	if err != nil {
		return nil, err
	}
	tmpClaim, err := r.db.GetClaim(claimID, txn)
	if err != nil {
		if !errors.Is(err, models.ErrClaimNotFound) {
			return nil, err
		}
		tmpClaim = &models.Claim{ClaimID: claimID}
	} else {
		if tmpClaim.Active {
			return nil, fmt.Errorf("%w: claim %x", errs.ErrAlreadyExists, claimID)
		}
		if tmpClaim.Fraudulent {
			return nil, fmt.Errorf(
				"%w: claim %x was found fraudulent",
				errs.ErrInvalidState,
				claimID,
			)
		}
	}
	if err := r.ledger.Transfer(txn, ledger.FundDeposit, amount, owner, ledger.AccountRegistry); err != nil {
		return nil, err
	}
	tmpClaim.Kind = kind
	tmpClaim.Owner = owner
	tmpClaim.Payload = payload
	tmpClaim.Deposit = types.Uint64(amount)
	tmpClaim.RegisteredTime = now
	tmpClaim.Active = true
	tmpClaim.UnderChallenge = false
	if err := r.db.SetClaim(tmpClaim, txn); err != nil {
		return nil, err
	}
	r.logger.Debug(
		"registered claim",
		"component", "claim",
		"claim_id", fmt.Sprintf("%x", claimID),
		"kind", KindName(kind),
		"owner", owner,
	)
	return tmpClaim, nil
}

// Deregister deactivates a claim and refunds its deposit to the owner
func (r *Registry) Deregister(
	txn *database.Txn,
	owner string,
	claimID []byte,
) (*models.Claim, error) {
	tmpClaim, err := r.activeClaim(txn, claimID)
	if err != nil {
		return nil, err
	}
	if tmpClaim.Owner != owner {
		return nil, fmt.Errorf(
			"%w: %s does not own claim %x",
			errs.ErrUnauthorized,
			owner,
			claimID,
		)
	}
	if tmpClaim.UnderChallenge {
		return nil, fmt.Errorf(
			"%w: claim %x is under challenge",
			errs.ErrInvalidState,
			claimID,
		)
	}
	if err := r.release(txn, tmpClaim); err != nil {
		return nil, err
	}
	r.logger.Debug(
		"deregistered claim",
		"component", "claim",
		"claim_id", fmt.Sprintf("%x", claimID),
	)
	return tmpClaim, nil
}

// Get returns a claim in any state
func (r *Registry) Get(txn *database.Txn, claimID []byte) (*models.Claim, error) {
	tmpClaim, err := r.db.GetClaim(claimID, txn)
	if err != nil {
		if errors.Is(err, models.ErrClaimNotFound) {
			return nil, fmt.Errorf("%w: claim %x", errs.ErrNotFound, claimID)
		}
		return nil, err
	}
	return tmpClaim, nil
}

func (r *Registry) GetExistingDeposit(
	txn *database.Txn,
	claimID []byte,
) (ClaimDeposit, error) {
	tmpClaim, err := r.activeClaim(txn, claimID)
	if err != nil {
		return ClaimDeposit{}, err
	}
	return ClaimDeposit{
		ClaimID: tmpClaim.ClaimID,
		Owner:   tmpClaim.Owner,
		Amount:  uint64(tmpClaim.Deposit),
	}, nil
}

func (r *Registry) OnChallengeStarted(txn *database.Txn, claimID []byte) error {
	tmpClaim, err := r.activeClaim(txn, claimID)
	if err != nil {
		return err
	}
	if tmpClaim.UnderChallenge {
		return fmt.Errorf(
			"%w: claim %x is already under challenge",
			errs.ErrAlreadyExists,
			claimID,
		)
	}
	tmpClaim.UnderChallenge = true
	return r.db.SetClaim(tmpClaim, txn)
}

func (r *Registry) OnChallengeResolved(
	txn *database.Txn,
	claimID []byte,
	challengerWon bool,
) error {
	tmpClaim, err := r.Get(txn, claimID)
	if err != nil {
		return err
	}
	if !tmpClaim.UnderChallenge {
		return fmt.Errorf(
			"%w: claim %x is not under challenge",
			errs.ErrInvalidState,
			claimID,
		)
	}
	tmpClaim.UnderChallenge = false
	if !challengerWon {
		return r.db.SetClaim(tmpClaim, txn)
	}
	// Only the challenge deposit is at stake, so the owner gets the claim
	// deposit back even though the claim is struck
	tmpClaim.Fraudulent = true
	if err := r.release(txn, tmpClaim); err != nil {
		return err
	}
	r.logger.Info(
		"claim found fraudulent",
		"component", "claim",
		"claim_id", fmt.Sprintf("%x", claimID),
		"owner", tmpClaim.Owner,
	)
	return nil
}

func (r *Registry) activeClaim(
	txn *database.Txn,
	claimID []byte,
) (*models.Claim, error) {
	tmpClaim, err := r.Get(txn, claimID)
	if err != nil {
		return nil, err
	}
	if !tmpClaim.Active {
		return nil, fmt.Errorf("%w: claim %x is not active", errs.ErrNotFound, claimID)
	}
	return tmpClaim, nil
}

// release refunds the claim deposit and deactivates the claim
func (r *Registry) release(txn *database.Txn, tmpClaim *models.Claim) error {
	if err := r.ledger.Transfer(
		txn,
		ledger.FundDeposit,
		uint64(tmpClaim.Deposit),
		ledger.AccountRegistry,
		tmpClaim.Owner,
	); err != nil {
		return err
	}
	tmpClaim.Active = false
	return r.db.SetClaim(tmpClaim, txn)
}
