package invite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"taskoo/api/internal/apperr"
)

// DefaultTTL is how long an issued invitation stays verifiable.
const DefaultTTL = time.Hour

// DraftStore persists drafts under token ids with absolute expiry.
type DraftStore interface {
	SaveDraft(ctx context.Context, tokenID string, draft AccountDraft, expiresAt time.Time) error
	GetDraft(ctx context.Context, tokenID string) (AccountDraft, error)
}

// FieldValidator checks a single named field against its format rules.
type FieldValidator interface {
	Validate(field, value string) error
}

// Dispatcher sends the invitation message to the recipient.
type Dispatcher interface {
	SendInvitation(recipientEmail, firstName, tokenID string) error
}

// Service implements invitation issuance and verification.
type Service struct {
	store      DraftStore
	validator  FieldValidator
	dispatcher Dispatcher
	ttl        time.Duration
	now        func() time.Time
}

func NewService(store DraftStore, validator FieldValidator, dispatcher Dispatcher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:      store,
		validator:  validator,
		dispatcher: dispatcher,
		ttl:        ttl,
		now:        time.Now,
	}
}

// TTL returns the configured invitation lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue validates the draft, persists it under a fresh token with a
// TTL-bounded expiry, and dispatches the invitation mail.
//
// When the mail dispatch fails the token has already been persisted and
// stays valid; Issue then returns the token id together with a
// transport error so the caller can decide how to surface the partial
// success.
func (s *Service) Issue(ctx context.Context, draft AccountDraft, recipientEmail string) (string, error) {
	fields := []struct{ name, value string }{
		{"firstName", draft.FirstName},
		{"lastName", draft.LastName},
		{"department", draft.Department},
		{"position", draft.Position},
		{"email", recipientEmail},
	}
	for _, f := range fields {
		if err := s.validator.Validate(f.name, f.value); err != nil {
			return "", err
		}
	}

	tokenID := uuid.NewString()
	expiresAt := s.now().Add(s.ttl)

	if err := s.store.SaveDraft(ctx, tokenID, draft, expiresAt); err != nil {
		return "", err
	}

	if err := s.dispatcher.SendInvitation(recipientEmail, draft.FirstName, tokenID); err != nil {
		return tokenID, apperr.Transport("send invitation", err)
	}
	return tokenID, nil
}

// Verify returns the draft stored under the token id. Tokens are not
// single-use: verification succeeds repeatedly until natural expiry.
func (s *Service) Verify(ctx context.Context, tokenID string) (AccountDraft, error) {
	if err := s.validator.Validate("token", tokenID); err != nil {
		return AccountDraft{}, err
	}
	return s.store.GetDraft(ctx, tokenID)
}
