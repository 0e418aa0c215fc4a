package main

import (
	"context"
	"errors"

	"github.com/anonto42/follow-graph/internal/handlers"
	"github.com/anonto42/follow-graph/internal/router"
	"github.com/anonto42/follow-graph/pkg/config"
	"github.com/anonto42/follow-graph/pkg/firebase"
	"github.com/anonto42/follow-graph/pkg/logger"
	"github.com/anonto42/follow-graph/validators"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.Env)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Firebase is optional; without it only local accounts can sign in
	var tokenVerifier handlers.TokenVerifier
	verifier, err := firebase.NewTokenVerifier(context.Background(), firebase.Options{
		CredentialsFile: cfg.FirebaseCredentialsPath,
		CredentialsJSON: cfg.FirebaseCredentialsJSON,
		ProjectID:       cfg.FirebaseProjectID,
	})
	switch {
	case err == nil:
		tokenVerifier = verifier
	case errors.Is(err, firebase.ErrNotConfigured):
		log.Warn("Firebase credentials not set, firebase login disabled")
	default:
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	config.SetupMiddleware(e)

	if err := router.SetupRoutes(e, cfg, db, tokenVerifier); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	if err := e.Start(":" + cfg.Port); err != nil {
		log.WithError(err).Error("server stopped")
	}
}
