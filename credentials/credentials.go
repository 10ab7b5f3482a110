// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"context"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ice-blockchain/authenticator/identity"
	"github.com/ice-blockchain/authenticator/log"
	"github.com/ice-blockchain/authenticator/persistence"
	"github.com/ice-blockchain/authenticator/terror"
	"github.com/ice-blockchain/authenticator/totp"
)

// New builds an empty store; call Load to fill it from repo.
func New(repo persistence.Repository, gate identity.Gate) Store {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("json"), ",", 2)[0] //nolint:mnd,gomnd // Name and options.
	})
	s := &store{repo: repo, gate: gate, validate: validate}
	s.state.Store(&state{codes: map[string]Code{}})

	return s
}

func (s *store) Load(ctx context.Context) error {
	rows, err := s.repo.SelectAll(ctx)
	var failures *multierror.Error
	if err != nil {
		if !errors.Is(err, persistence.ErrUnreadable) {
			return multierror.Append(ErrPersistence, errors.Wrap(err, "failed to load credentials"))
		}
		log.Error(errors.Wrap(err, "skipping unreadable credentials"))
		failures = multierror.Append(failures, err)
	}
	seen := make(map[string]struct{}, len(rows))
	loaded := make([]Credential, 0, len(rows))
	for _, row := range rows {
		if _, found := seen[row.ID]; found {
			log.Warn("skipping duplicate credential", "credentialId", row.ID)
			failures = multierror.Append(failures, errors.Wrapf(ErrDuplicate, "credential %v", row.ID))

			continue
		}
		seen[row.ID] = struct{}{}
		loaded = append(loaded, Credential{ID: row.ID, Issuer: row.Issuer, Account: row.Account, Secret: row.Secret})
	}
	s.mx.Lock()
	s.state.Store(&state{credentials: loaded, codes: map[string]Code{}})
	s.mx.Unlock()
	log.Info("credentials loaded", "count", len(loaded))

	return failures.ErrorOrNil()
}

func (s *store) Enroll(ctx context.Context, issuer, account, rawSecret string) (*Credential, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	in := &enrollment{Issuer: strings.TrimSpace(issuer), Account: strings.TrimSpace(account), Secret: totp.Normalize(rawSecret)}
	if err := s.validateEnrollment(in); err != nil {
		return nil, err
	}
	secret, err := totp.Validate(in.Secret)
	if err != nil {
		return nil, terror.Field(multierror.Append(ErrValidation, err), "secret")
	}
	row, err := s.repo.Insert(ctx, in.Issuer, in.Account, secret)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return nil, multierror.Append(ErrDuplicate, err)
		}

		return nil, multierror.Append(ErrPersistence, errors.Wrap(err, "failed to persist credential"))
	}
	credential := Credential{ID: row.ID, Issuer: row.Issuer, Account: row.Account, Secret: secret}

	s.mx.Lock()
	defer s.mx.Unlock()
	current := s.state.Load()
	if slices.ContainsFunc(current.credentials, func(c Credential) bool { return c.ID == credential.ID }) {
		// The row stays persisted: deleting by id would also delete the credential that already owns it.
		// Load keeps the first row per id, so the original survives a restart.
		err = errors.Wrapf(ErrDuplicate, "repository assigned id %v, which is already in use", credential.ID)
		log.Error(err, "credentialId", credential.ID, "issuer", credential.Issuer)

		return nil, err
	}
	next := *current
	next.credentials = append(slices.Clip(current.credentials), credential)
	s.state.Store(&next)

	return &credential, nil
}

func (s *store) validateEnrollment(in *enrollment) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return multierror.Append(ErrValidation, err)
	}
	fields := lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string { return fe.Field() })

	return terror.New(errors.Wrapf(ErrValidation, "missing %v", strings.Join(fields, ", ")), map[string]any{
		terror.FieldKey: fields[0],
		"fields":        fields,
	})
}

func (s *store) Remove(ctx context.Context, id string) error {
	if err := s.authorize(ctx); err != nil {
		return err
	}
	if _, found := s.find(id); !found {
		return errors.Wrapf(ErrNotFound, "credential %v", id)
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			return multierror.Append(ErrPersistence, errors.Wrapf(err, "failed to delete credential %v", id))
		}
		s.drop(id)

		return multierror.Append(ErrNotFound, err)
	}
	s.drop(id)

	return nil
}

func (s *store) drop(id string) {
	s.mx.Lock()
	defer s.mx.Unlock()
	current := s.state.Load()
	next := *current
	next.credentials = slices.DeleteFunc(slices.Clone(current.credentials), func(c Credential) bool { return c.ID == id })
	next.codes = lo.OmitByKeys(current.codes, []string{id})
	s.state.Store(&next)
}

func (s *store) List(ctx context.Context) ([]Credential, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}

	return s.Snapshot(), nil
}

func (s *store) Views(ctx context.Context, remainingSeconds int64) ([]View, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	current := s.state.Load()

	return lo.Map(current.credentials, func(c Credential, _ int) View {
		return View{
			ID:               c.ID,
			Issuer:           c.Issuer,
			Account:          c.Account,
			Code:             current.code(c.ID),
			RemainingSeconds: remainingSeconds,
		}
	}), nil
}

func (s *store) ProvisioningURI(ctx context.Context, id string, generator totp.Generator) (string, error) {
	if err := s.authorize(ctx); err != nil {
		return "", err
	}
	credential, found := s.find(id)
	if !found {
		return "", errors.Wrapf(ErrNotFound, "credential %v", id)
	}
	uri, err := generator.ProvisioningURI(credential.Account, credential.Issuer, credential.Secret)

	return uri, errors.Wrapf(err, "failed to build provisioning uri for credential %v", id)
}

func (s *store) Snapshot() []Credential {
	return slices.Clone(s.state.Load().credentials)
}

func (s *store) Apply(codes map[string]Code) {
	s.mx.Lock()
	defer s.mx.Unlock()
	current := s.state.Load()
	next := *current
	next.codes = make(map[string]Code, len(current.credentials))
	for _, c := range current.credentials {
		if code, found := codes[c.ID]; found {
			next.codes[c.ID] = code
		}
	}
	s.state.Store(&next)
}

func (s *store) authorize(ctx context.Context) error {
	_, err := s.gate.CurrentUser(ctx)

	return errors.Wrap(err, "no authenticated user")
}

func (s *store) find(id string) (Credential, bool) {
	return lo.Find(s.state.Load().credentials, func(c Credential) bool { return c.ID == id })
}

func (st *state) code(id string) Code {
	if code, found := st.codes[id]; found {
		return code
	}

	return Code{Status: Pending}
}
