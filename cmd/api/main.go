package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskoo/api/internal/account"
	"taskoo/api/internal/app"
	"taskoo/api/internal/check"
	"taskoo/api/internal/config"
	"taskoo/api/internal/email"
	"taskoo/api/internal/invite"
	"taskoo/api/internal/presence"
	"taskoo/api/internal/realtime"
	"taskoo/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	dataStore := store.NewPostgresStore(db)

	draftStore, err := invite.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer draftStore.Close()

	mailer := email.NewService(email.Config{
		Host:          cfg.SMTPHost,
		Port:          cfg.SMTPPort,
		Username:      cfg.SMTPUsername,
		Password:      cfg.SMTPPassword,
		From:          cfg.SMTPFrom,
		FromName:      cfg.SMTPFromName,
		InviteBaseURL: cfg.InviteBaseURL,
		InviteTTL:     cfg.InviteTTL,
	})
	if !mailer.IsConfigured() {
		log.Printf("WARNING: SMTP not configured, invitation mail will fail")
	}

	validator := check.New()
	invites := invite.NewService(draftStore, validator, mailer, cfg.InviteTTL)
	accounts := account.NewService(invites, dataStore, validator)

	registry := presence.NewRegistry()
	hub := realtime.NewHub()
	gateway := realtime.NewGateway(registry, store.NewRealtimeAdapter(dataStore), hub, cfg.FetchTimeout)
	wsHandler := realtime.NewHandler(hub, gateway)

	httpServer := app.NewHTTPServer(invites, accounts, wsHandler, dataStore.Ping, draftStore.Ping)
	// No global read/write timeouts: websocket sessions are long-lived.
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Taskoo API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
