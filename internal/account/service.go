// Package account completes invited registrations into real accounts.
package account

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"taskoo/api/internal/apperr"
	"taskoo/api/internal/invite"
	"taskoo/api/internal/store"
)

// Invitations verifies issued invitation tokens.
type Invitations interface {
	Verify(ctx context.Context, tokenID string) (invite.AccountDraft, error)
}

// AccountStore defines the storage interface for accounts
type AccountStore interface {
	CreateAccount(ctx context.Context, account store.Account) (store.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (store.Account, error)
}

// FieldValidator checks a single named field against its format rules.
type FieldValidator interface {
	Validate(field, value string) error
}

// Service turns a verified invitation draft into a registered account.
type Service struct {
	invitations Invitations
	accounts    AccountStore
	validator   FieldValidator
}

func NewService(invitations Invitations, accounts AccountStore, validator FieldValidator) *Service {
	return &Service{
		invitations: invitations,
		accounts:    accounts,
		validator:   validator,
	}
}

// SignUpRequest contains the sign-up completion parameters.
type SignUpRequest struct {
	TokenID  string
	Email    string
	Password string
}

// CompleteRegistration verifies the invitation token and creates the
// account using the draft issued with it. The token is not invalidated;
// it lapses on its own expiry.
func (s *Service) CompleteRegistration(ctx context.Context, req SignUpRequest) (store.Account, error) {
	if err := s.validator.Validate("email", req.Email); err != nil {
		return store.Account{}, err
	}
	if len(req.Password) < 8 {
		return store.Account{}, apperr.Validation("password", "must be at least 8 characters")
	}

	draft, err := s.invitations.Verify(ctx, req.TokenID)
	if err != nil {
		return store.Account{}, err
	}

	if _, err := s.accounts.GetAccountByEmail(ctx, req.Email); err == nil {
		return store.Account{}, apperr.Validation("email", "already registered")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return store.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.Account{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.accounts.CreateAccount(ctx, store.Account{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    draft.FirstName,
		LastName:     draft.LastName,
		Department:   draft.Department,
		Position:     draft.Position,
	})
	if err != nil {
		return store.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}
