// Package cli wires configuration, logging and API clients together for
// the threadspipe commands.
package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/threadkit/threadspipe/internal/config"
	"github.com/threadkit/threadspipe/internal/logging"
	"github.com/threadkit/threadspipe/internal/pipe"
	"github.com/threadkit/threadspipe/internal/tempstore"
	"github.com/threadkit/threadspipe/internal/threads"
)

// LoadConfig resolves configuration from the environment (and envFile when
// non-empty), or exits fatally.
func LoadConfig(envFile string) *config.Config {
	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return cfg
}

// InitAccountClient creates a Threads API client for the configured
// account. Exits fatally when account credentials are missing.
func InitAccountClient(cfg *config.Config) *threads.Client {
	if err := cfg.RequireAccount(); err != nil {
		log.Fatal().Err(err).Msg("Account credentials missing - run `threadspipe auth` first")
	}
	return threads.NewClient(cfg.AccessToken, cfg.UserID, threads.WithAPIVersion(cfg.APIVersion))
}

// InitOAuthApp creates an OAuth client for the configured app, or exits
// fatally when the app credentials are missing.
func InitOAuthApp(cfg *config.Config) *threads.OAuthApp {
	if err := cfg.RequireApp(); err != nil {
		log.Fatal().Err(err).Msg("App credentials missing")
	}
	return threads.NewOAuthApp(cfg.AppID, cfg.AppSecret)
}

// NewStore selects the temporary storage backend from configuration and
// returns it with its name. A nil store means no backend is configured;
// URL-sourced media still publishes, local files will be rejected with a
// tagged error.
func NewStore(ctx context.Context, cfg *config.Config) (tempstore.Store, string) {
	backend := cfg.StorageBackend
	if backend == "" {
		switch {
		case cfg.S3Bucket != "":
			backend = "s3"
		case cfg.GitHubToken != "":
			backend = "github"
		default:
			log.Debug().Msg("No temporary storage configured, local media staging disabled")
			return nil, "none"
		}
	}

	switch backend {
	case "s3":
		store, err := tempstore.NewS3Store(ctx, cfg.S3Bucket, cfg.S3KeyPrefix, cfg.S3URLTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
		}
		return store, "s3"
	case "github":
		store, err := tempstore.NewGitHubStore(cfg.GitHubToken, cfg.GitHubUser, cfg.GitHubRepo)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize GitHub storage")
		}
		return store, "github"
	default:
		log.Fatal().Str("backend", backend).Msg("Unknown storage backend")
		return nil, ""
	}
}

// InitPublisher builds the publishing pipeline from configuration and
// emits the startup log describing the resolved setup.
func InitPublisher(ctx context.Context, cmdName string, cfg *config.Config) *pipe.Publisher {
	start := time.Now()

	client := InitAccountClient(cfg)
	store, backend := NewStore(ctx, cfg)

	publisher := pipe.New(client, store,
		pipe.WithHashtagHandling(cfg.HandleHashtags),
		pipe.WithAutoHashtags(cfg.AutoHashtags),
		pipe.WithRateLimitCheck(cfg.CheckRateLimit),
		pipe.WithWaitOnRateLimit(cfg.WaitOnRateLimit),
		pipe.WithMediaPollInterval(cfg.MediaPollInterval),
		pipe.WithPostPollInterval(cfg.PostPollInterval),
		pipe.WithMaxPollAttempts(cfg.MaxPollAttempts),
	)

	logging.NewStartupLogger(cmdName).
		Account("userId", cfg.UserID).
		Account("apiVersion", cfg.APIVersion).
		Storage("backend", backend).
		Feature("checkRateLimit", cfg.CheckRateLimit).
		Feature("waitOnRateLimit", cfg.WaitOnRateLimit).
		Feature("handleHashtags", cfg.HandleHashtags).
		Feature("autoHashtags", cfg.AutoHashtags).
		Config("mediaPollInterval", cfg.MediaPollInterval.String()).
		Config("postPollInterval", cfg.PostPollInterval.String()).
		InitDuration(time.Since(start)).
		Log()

	return publisher
}
