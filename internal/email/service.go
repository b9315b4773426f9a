// Package email provides email sending capabilities via SMTP.
package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
	"unicode"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string

	// InviteBaseURL is the front-end origin the signup deep link points
	// at, e.g. "http://localhost:3000".
	InviteBaseURL string
	// InviteTTL is embedded in the mail as the human-readable expiry
	// notice; it must match the store-side TTL.
	InviteTTL time.Duration
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends a plain text email
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		from,
		subject,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}

// SendInvitation sends the registration invitation carrying the signup
// deep link for the token. No retry on failure.
func (s *Service) SendInvitation(recipientEmail, firstName, tokenID string) error {
	subject := "Taskoo Register Invitation"
	body := invitationBody(firstName, s.signupURL(tokenID), s.config.InviteTTL)
	return s.SendEmail([]string{recipientEmail}, subject, body)
}

func (s *Service) signupURL(tokenID string) string {
	base := strings.TrimRight(s.config.InviteBaseURL, "/")
	return fmt.Sprintf("%s/#/account/signup/%s", base, tokenID)
}

func invitationBody(firstName, signupURL string, ttl time.Duration) string {
	return fmt.Sprintf(`Hi %s,

Welcome to Taskoo, please click the link below to start signing up your account.
This link will expire in %s.

%s

Best,
Taskoo Team
`, capitalize(firstName), expiryNotice(ttl), signupURL)
}

func expiryNotice(ttl time.Duration) string {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if ttl%time.Hour == 0 {
		hours := int(ttl / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(ttl / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
