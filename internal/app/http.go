// Package app wires the HTTP surface: invitation routes, signup
// completion, the websocket endpoint, and health checks.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taskoo/api/internal/account"
	"taskoo/api/internal/apperr"
	"taskoo/api/internal/invite"
	"taskoo/api/internal/store"
)

// InviteService issues and verifies invitation tokens.
type InviteService interface {
	Issue(ctx context.Context, draft invite.AccountDraft, recipientEmail string) (string, error)
	Verify(ctx context.Context, tokenID string) (invite.AccountDraft, error)
}

// AccountService completes invited registrations.
type AccountService interface {
	CompleteRegistration(ctx context.Context, req account.SignUpRequest) (store.Account, error)
}

type HTTPServer struct {
	invites   InviteService
	accounts  AccountService
	ws        http.Handler
	dbPing    func(context.Context) error
	redisPing func(context.Context) error
}

func NewHTTPServer(invites InviteService, accounts AccountService, ws http.Handler, dbPing, redisPing func(context.Context) error) *HTTPServer {
	return &HTTPServer{
		invites:   invites,
		accounts:  accounts,
		ws:        ws,
		dbPing:    dbPing,
		redisPing: redisPing,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)

	r.Post("/api/account/invite", s.handleInvite)
	r.Get("/api/account/invite/{token}", s.handleVerifyInvite)
	r.Post("/api/account/signup", s.handleSignUp)

	r.Get("/ws", s.ws.ServeHTTP)

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	statusCode := http.StatusOK
	checks := map[string]any{}
	for name, ping := range map[string]func(context.Context) error{
		"database": s.dbPing,
		"redis":    s.redisPing,
	} {
		if ping == nil {
			continue
		}
		if err := ping(ctx); err != nil {
			statusCode = http.StatusServiceUnavailable
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
		} else {
			checks[name] = map[string]any{"status": "ok"}
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     statusCode == http.StatusOK,
		"checks": checks,
	})
}

type inviteRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Email      string `json:"email"`
}

func (s *HTTPServer) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	draft := invite.AccountDraft{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Department: req.Department,
		Position:   req.Position,
	}
	tokenID, err := s.invites.Issue(r.Context(), draft, req.Email)
	if err != nil {
		// The token may already be persisted when only the mail leg
		// failed; report the partial success instead of discarding it.
		if apperr.Is(err, apperr.KindTransport) && tokenID != "" {
			log.Printf("invite issued but mail dispatch failed: %v", err)
			writeJSON(w, http.StatusAccepted, map[string]any{
				"registerId": tokenID,
				"warning":    "invitation stored but the email could not be sent",
			})
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"registerId": tokenID})
}

func (s *HTTPServer) handleVerifyInvite(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "token")

	draft, err := s.invites.Verify(r.Context(), tokenID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

type signUpRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	created, err := s.accounts.CompleteRegistration(r.Context(), account.SignUpRequest{
		TokenID:  req.Token,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        created.ID,
		"email":     created.Email,
		"firstName": created.FirstName,
		"lastName":  created.LastName,
	})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var de *apperr.DomainError
	if !errors.As(err, &de) {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindState:
		status = http.StatusConflict
	case apperr.KindTransport:
		status = http.StatusBadGateway
	case apperr.KindStore:
		status = http.StatusInternalServerError
	}

	var details any
	if de.Field != "" {
		details = map[string]any{"field": de.Field}
	}
	writeError(w, status, string(de.Kind), de.Message, details)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
