package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/kv"
	"taskboard/internal/repository"
)

func buildAuthManager(cfg config.Config, store *kv.Store, users repository.UserRepository, logger *logrus.Logger) (*auth.Manager, error) {
	var verifier auth.CredentialVerifier = auth.AnyPassword{}
	if cfg.Auth.Verifier == "bcrypt" {
		if len(cfg.Auth.PasswordHashes) == 0 {
			return nil, fmt.Errorf("bcrypt verifier needs auth.password_hashes")
		}
		verifier = auth.NewBcryptVerifier(cfg.Auth.PasswordHashes)
	} else {
		logger.Warn("accepting any non-empty password, set auth.verifier=bcrypt outside development")
	}

	csrfTokens, err := auth.NewTokenGenerator(auth.CSRFTokenLength)
	if err != nil {
		return nil, err
	}

	var csrf auth.CSRFProvider
	switch cfg.Auth.CSRFMode {
	case "signed":
		csrf, err = auth.NewSignedCSRF(store, []byte(cfg.Auth.CSRFSecret), csrfTokens, cfg.Auth.CSRFTTL, nil)
		if err != nil {
			return nil, err
		}
	default:
		csrf = auth.NewRegistryCSRF(store, csrfTokens, cfg.Auth.CSRFTTL, nil)
	}

	return auth.NewManager(store, users, auth.Options{
		SessionTTL: cfg.Auth.SessionTTL,
		Verifier:   verifier,
		CSRF:       csrf,
		Logger:     logger,
	})
}
