package firebase

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// ErrNotConfigured is returned when no service account credentials are given
var ErrNotConfigured = errors.New("firebase credentials not configured")

// Options selects the service account used to verify ID tokens. JSON takes
// precedence over File.
type Options struct {
	CredentialsFile string
	CredentialsJSON string
	ProjectID       string
}

func (o Options) clientOptions() ([]option.ClientOption, error) {
	switch {
	case o.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(o.CredentialsJSON))}, nil
	case o.CredentialsFile != "":
		if _, err := os.Stat(o.CredentialsFile); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s: %w", o.CredentialsFile, err)
		}
		return []option.ClientOption{option.WithCredentialsFile(o.CredentialsFile)}, nil
	default:
		return nil, ErrNotConfigured
	}
}

// NewTokenVerifier builds the Firebase auth client used to check ID tokens
// at login.
func NewTokenVerifier(ctx context.Context, opts Options) (*auth.Client, error) {
	clientOpts, err := opts.clientOptions()
	if err != nil {
		return nil, err
	}

	var appConfig *firebase.Config
	if opts.ProjectID != "" {
		appConfig = &firebase.Config{ProjectID: opts.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	log.WithField("project_id", opts.ProjectID).Info("Firebase token verifier ready")
	return client, nil
}
