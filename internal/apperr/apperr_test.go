package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"validation", Validation("firstName", "must not be empty"), KindValidation},
		{"not found", NotFound("gone"), KindNotFound},
		{"transport", Transport("send mail", errors.New("smtp")), KindTransport},
		{"store", Store("redis", errors.New("down")), KindStore},
		{"state", State("already joined"), KindState},
		{"plain error", errors.New("nope"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf = %q, want %q", got, tt.kind)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("handling update: %w", Store("fetch tasks", errors.New("down")))
	if !Is(err, KindStore) {
		t.Errorf("wrapped error lost its kind: %v", err)
	}
}

func TestErrorNamesField(t *testing.T) {
	err := Validation("email", "not a valid email address")
	want := "VALIDATION: email: not a valid email address"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Store("save draft", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should expose the cause")
	}
}
