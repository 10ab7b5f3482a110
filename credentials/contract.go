// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/authenticator/identity"
	"github.com/ice-blockchain/authenticator/persistence"
	"github.com/ice-blockchain/authenticator/totp"
)

// Public API.

const (
	Pending Status = "pending"
	Ready   Status = "ready"
	Failed  Status = "failed"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrInvalidSecret = totp.ErrInvalidSecret
	ErrNotFound      = errors.New("credential not found")
	ErrPersistence   = errors.New("persistence failure")
	ErrDuplicate     = errors.New("duplicate credential id")
	ErrUnreadable    = persistence.ErrUnreadable
)

type (
	// Credential is one enrolled secret. Secret is already normalized and never serialized.
	Credential struct {
		ID      string `json:"id" example:"1"`
		Issuer  string `json:"issuer" example:"GitHub"`
		Account string `json:"account" example:"alice@example.com"`
		Secret  string `json:"-"`
	}
	Status string
	// Code is the derived state of a credential for one time step. Value is set only when Status is Ready.
	Code struct {
		Status  Status `json:"status" example:"ready"`
		Value   string `json:"value,omitempty" example:"287082"`
		Reason  string `json:"reason,omitempty" example:"invalid secret"`
		Counter uint64 `json:"counter,omitempty" example:"1"`
	}
	// View is everything a rendering layer gets about a credential.
	View struct {
		ID               string `json:"id" example:"1"`
		Issuer           string `json:"issuer" example:"GitHub"`
		Account          string `json:"account" example:"alice@example.com"`
		Code             Code   `json:"code"`
		RemainingSeconds int64  `json:"remainingSeconds" example:"17"`
	}
	Store interface {
		// Load replaces the in-memory set with what the persistence layer holds.
		// Duplicate ids (ErrDuplicate) and unreadable rows (ErrUnreadable) are skipped and reported; the rest still load.
		Load(ctx context.Context) error
		Enroll(ctx context.Context, issuer, account, rawSecret string) (*Credential, error)
		Remove(ctx context.Context, id string) error
		List(ctx context.Context) ([]Credential, error)
		Views(ctx context.Context, remainingSeconds int64) ([]View, error)
		ProvisioningURI(ctx context.Context, id string, generator totp.Generator) (string, error)
		Source
	}
	// Source is the ungated side used by the refresh loop.
	Source interface {
		// Snapshot returns a frozen copy of the enrolled credentials in insertion order.
		Snapshot() []Credential
		// Apply replaces the codes of the credentials still present.
		// Credentials missing from codes (enrolled meanwhile) become Pending.
		Apply(codes map[string]Code)
	}
)

// Private API.

type (
	store struct {
		repo     persistence.Repository
		gate     identity.Gate
		validate *validator.Validate
		state    atomic.Pointer[state]
		mx       sync.Mutex
	}
	// state is never mutated once published.
	state struct {
		codes       map[string]Code
		credentials []Credential
	}
	enrollment struct {
		Issuer  string `json:"issuer" validate:"required"`
		Account string `json:"account" validate:"required"`
		Secret  string `json:"secret" validate:"required"`
	}
)
