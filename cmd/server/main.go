package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/ai"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/api"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/auth"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/config"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/db"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/emailfinder"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/fetch"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/mailer"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/outreach"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/places"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/scheduler"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/scorer"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Could not read .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StoreBackend == "memory" {
		log.Print("Using in-memory store; data is lost on restart")
	}
	kv, err := db.OpenKV(ctx, cfg.StoreBackend, cfg.DatabaseURL, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	store := db.NewStore(kv, db.WithTemplateSeed(outreach.DefaultTemplates()))
	defer store.Close()

	authSvc, err := auth.NewService(auth.Options{
		Secret:       cfg.JWTSecret,
		PasswordHash: cfg.DashboardPasswordHash,
		Password:     cfg.DashboardPassword,
		Disabled:     cfg.AuthDisabled,
	})
	if err != nil {
		log.Fatalf("Auth setup failed: %v", err)
	}
	if authSvc.Disabled() {
		log.Print("WARNING: AUTH_DISABLED=true, the API is open to anyone who can reach it")
	}

	var llm ai.Completer
	switch cfg.LLMProvider {
	case "ollama":
		llm = ai.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel)
	default:
		llm = ai.NewClaudeClient(cfg.AnthropicKey, cfg.AnthropicModel)
	}

	deps := api.Deps{
		Store:       store,
		Auth:        authSvc,
		Places:      places.NewClient(cfg.PlacesAPIKey),
		Scorer:      scorer.New(scorer.NewPageSpeedClient(cfg.PageSpeedAPIKey), fetch.NewCollyFetcher(scorer.FetchTimeout)),
		Finder:      emailfinder.New(fetch.NewHTTPFetcher(emailfinder.DefaultPageTimeout)),
		Generator:   outreach.NewGenerator(llm),
		CORSOrigins: cfg.CORSOrigins,
	}

	resend := mailer.NewResendClient(cfg.ResendAPIKey, cfg.ResendFrom, cfg.DefaultReplyTo)
	if cfg.GmailConfigured() {
		gmail := mailer.NewGmailClient(
			mailer.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
			store,
		)
		deps.Gmail = gmail
		deps.Mailer = mailer.NewSender(gmail, resend)
	} else {
		log.Print("Gmail OAuth not configured; outgoing mail goes through Resend")
		deps.Mailer = mailer.NewSender(nil, resend)
	}

	sched := scheduler.New(store, cfg.FollowUpSchedule)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Scheduler failed to start: %v", err)
	}

	srv := api.NewServer(deps)
	go func() {
		log.Printf("Server starting on port %s (store: %s, llm: %s)...", cfg.Port, cfg.StoreBackend, cfg.LLMProvider)
		if err := srv.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Print("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	sched.Stop()
}
