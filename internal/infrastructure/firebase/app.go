package firebase

import (
	"context"

	fbapp "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/InbalMary/mistertoy-mongo-backend/pkg/config"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/logger"
)

// ClientOptions picks the service account from the environment, falling back
// to application default credentials.
func ClientOptions(cfg *config.Config) []option.ClientOption {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))}
	}
	if cfg.FirebaseServiceAccountPath != "" {
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)}
	}
	return nil
}

func NewApp(ctx context.Context, cfg *config.Config) (*fbapp.App, error) {
	return fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, ClientOptions(cfg)...)
}
