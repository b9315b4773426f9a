package email

import (
	"strings"
	"testing"
	"time"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestSendEmailUnconfigured(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.SendInvitation("ann@example.com", "ann", "token-1"); err == nil {
		t.Error("expected error when SMTP is not configured")
	}
}

func TestInvitationBody(t *testing.T) {
	body := invitationBody("ann", "http://localhost:3000/#/account/signup/tok-123", time.Hour)

	if !strings.Contains(body, "Hi Ann,") {
		t.Error("body should greet with the capitalized first name")
	}
	if !strings.Contains(body, "http://localhost:3000/#/account/signup/tok-123") {
		t.Error("body should contain the signup deep link")
	}
	if !strings.Contains(body, "expire in 1 hour") {
		t.Error("body should contain the expiry notice")
	}
}

func TestSignupURL(t *testing.T) {
	svc := NewService(Config{InviteBaseURL: "http://localhost:3000/"})
	got := svc.signupURL("tok-123")
	want := "http://localhost:3000/#/account/signup/tok-123"
	if got != want {
		t.Errorf("signupURL = %q, want %q", got, want)
	}
}

func TestExpiryNotice(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{30 * time.Minute, "30 minutes"},
		{time.Minute, "1 minute"},
		{0, "1 hour"},
	}
	for _, tt := range tests {
		if got := expiryNotice(tt.ttl); got != tt.want {
			t.Errorf("expiryNotice(%s) = %q, want %q", tt.ttl, got, tt.want)
		}
	}
}

func TestCapitalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ann", "Ann"},
		{"Ann", "Ann"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := capitalize(tt.in); got != tt.want {
			t.Errorf("capitalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
