// Package config resolves pipeline settings from the environment. A .env
// file in the working directory is honored when present, so local runs and
// the token-refresh flow can share one file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Defaults mirror the platform's documented behavior: containers take up to
// about 30s to process, so status polls settle on a 35s cadence.
const (
	DefaultPollInterval = 35 * time.Second
	DefaultAPIVersion   = "v1.0"
	DefaultS3URLTTL     = 24 * time.Hour
)

// Config holds every tunable the publisher, storage backends and CLI need.
type Config struct {
	// Threads account credentials.
	AccessToken string
	UserID      string
	AppID       string
	AppSecret   string
	APIVersion  string

	// Temporary object storage. Backend picks the implementation; empty
	// means "whichever backend has credentials configured".
	StorageBackend string `validate:"omitempty,oneof=s3 github"`
	S3Bucket       string
	S3KeyPrefix    string
	S3URLTTL       time.Duration `validate:"min=0"`
	GitHubToken    string
	GitHubUser     string
	GitHubRepo     string

	// Generative text backend.
	GeminiAPIKey string
	GeminiModel  string

	// Publishing behavior.
	MediaPollInterval time.Duration `validate:"gt=0"`
	PostPollInterval  time.Duration `validate:"gt=0"`
	MaxPollAttempts   int           `validate:"min=0"`
	CheckRateLimit    bool
	WaitOnRateLimit   bool
	HandleHashtags    bool
	AutoHashtags      bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load resolves configuration from the environment, reading a .env file
// first when path is non-empty (or ./.env when it exists).
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		log.Debug().Str("file", path).Msg("Loaded env file")
	} else if _, err := os.Stat(".env"); err == nil {
		// Best-effort, same as the local-development flow everywhere else.
		if err := godotenv.Load(); err == nil {
			log.Debug().Str("file", ".env").Msg("Loaded env file")
		}
	}

	cfg := &Config{
		AccessToken: os.Getenv("THREADS_ACCESS_TOKEN"),
		UserID:      os.Getenv("THREADS_USER_ID"),
		AppID:       os.Getenv("THREADS_APP_ID"),
		AppSecret:   os.Getenv("THREADS_APP_SECRET"),
		APIVersion:  EnvOrDefault("THREADS_API_VERSION", DefaultAPIVersion),

		StorageBackend: os.Getenv("THREADSPIPE_STORAGE"),
		S3Bucket:       os.Getenv("THREADSPIPE_S3_BUCKET"),
		S3KeyPrefix:    EnvOrDefault("THREADSPIPE_S3_PREFIX", "threadspipe"),
		S3URLTTL:       durationEnv("THREADSPIPE_S3_URL_TTL", DefaultS3URLTTL),
		GitHubToken:    os.Getenv("THREADSPIPE_GH_TOKEN"),
		GitHubUser:     os.Getenv("THREADSPIPE_GH_USER"),
		GitHubRepo:     os.Getenv("THREADSPIPE_GH_REPO"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("GEMINI_MODEL"),

		MediaPollInterval: durationEnv("THREADSPIPE_MEDIA_POLL_INTERVAL", DefaultPollInterval),
		PostPollInterval:  durationEnv("THREADSPIPE_POST_POLL_INTERVAL", DefaultPollInterval),
		MaxPollAttempts:   intEnv("THREADSPIPE_MAX_POLL_ATTEMPTS", 0),
		CheckRateLimit:    boolEnv("THREADSPIPE_CHECK_RATE_LIMIT", true),
		WaitOnRateLimit:   boolEnv("THREADSPIPE_WAIT_ON_RATE_LIMIT", false),
		HandleHashtags:    boolEnv("THREADSPIPE_HANDLE_HASHTAGS", true),
		AutoHashtags:      boolEnv("THREADSPIPE_AUTO_HASHTAGS", false),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RequireAccount verifies the credentials every publishing call needs.
// Kept separate from Load so the oauth commands can run before any token
// exists.
func (c *Config) RequireAccount() error {
	if c.AccessToken == "" {
		return fmt.Errorf("THREADS_ACCESS_TOKEN is not set")
	}
	if c.UserID == "" {
		return fmt.Errorf("THREADS_USER_ID is not set")
	}
	return nil
}

// RequireApp verifies the app credentials the oauth flows need.
func (c *Config) RequireApp() error {
	if c.AppID == "" {
		return fmt.Errorf("THREADS_APP_ID is not set")
	}
	if c.AppSecret == "" {
		return fmt.Errorf("THREADS_APP_SECRET is not set")
	}
	return nil
}

// WriteTokens persists a refreshed access token (and optionally the user id)
// back to the env file so subsequent runs pick it up.
func WriteTokens(path, accessToken, userID string) error {
	if path == "" {
		path = ".env"
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		vars = map[string]string{}
	}

	vars["THREADS_ACCESS_TOKEN"] = accessToken
	if userID != "" {
		vars["THREADS_USER_ID"] = userID
	}

	if err := godotenv.Write(vars, path); err != nil {
		return fmt.Errorf("failed to write env file %s: %w", path, err)
	}

	log.Info().Str("file", path).Msg("Access token written to env file")
	return nil
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if the variable is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// durationEnv parses a Go duration string from the environment. Invalid
// values fall back to the default with a warning rather than failing the
// run.
func durationEnv(envVar string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(envVar)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("var", envVar).Str("value", v).Msg("Invalid duration, using default")
		return defaultVal
	}
	return d
}

func intEnv(envVar string, defaultVal int) int {
	v := os.Getenv(envVar)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("var", envVar).Str("value", v).Msg("Invalid integer, using default")
		return defaultVal
	}
	return n
}

func boolEnv(envVar string, defaultVal bool) bool {
	v := os.Getenv(envVar)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("var", envVar).Str("value", v).Msg("Invalid boolean, using default")
		return defaultVal
	}
	return b
}
