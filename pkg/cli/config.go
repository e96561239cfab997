package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/conceptstudio/pkg/adapter"
	"github.com/m-mizutani/conceptstudio/pkg/repository"
	"github.com/m-mizutani/conceptstudio/pkg/service/gateway"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/preference"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/studio"
	"github.com/m-mizutani/conceptstudio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
	"google.golang.org/genai"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Model
	geminiAPIKey   string
	geminiProject  string
	geminiLocation string
	geminiBaseURL  string
	directivesPath string

	// Google Cloud
	firestoreProject  string
	firestoreDatabase string
	exportBucket      string
	credentialsFile   string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("CONCEPTSTUDIO_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("CONCEPTSTUDIO_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID of Firestore to keep preferences. Preferences are not persisted if empty",
			Sources:     cli.EnvVars("FIRESTORE_PROJECT_ID"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "export-bucket",
			Usage:       "Cloud Storage bucket to export HTML results. Export is disabled if empty",
			Sources:     cli.EnvVars("CONCEPTSTUDIO_EXPORT_BUCKET"),
			Destination: &cfg.exportBucket,
		},
		&cli.StringFlag{
			Name:        "credentials-file",
			Usage:       "Service account key file for Firestore and Cloud Storage",
			Sources:     cli.EnvVars("CONCEPTSTUDIO_CREDENTIALS_FILE"),
			Destination: &cfg.credentialsFile,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key. Vertex AI is used when empty",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini on Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-base-url",
			Usage:       "Override the Gemini endpoint, e.g. for a proxy",
			Sources:     cli.EnvVars("GEMINI_BASE_URL"),
			Destination: &cfg.geminiBaseURL,
		},
		&cli.StringFlag{
			Name:        "directives",
			Usage:       "YAML file overriding system prompts and sampling parameters",
			Sources:     cli.EnvVars("CONCEPTSTUDIO_DIRECTIVES"),
			Destination: &cfg.directivesPath,
		},
	}
}

// allFlags returns every configuration flag followed by extra
func allFlags(cfg *config, extra ...cli.Flag) []cli.Flag {
	flags := append([]cli.Flag{}, extra...)
	flags = append(flags, globalFlags(cfg)...)
	flags = append(flags, llmFlags(cfg)...)
	return flags
}

// setupLogger builds the logger from flags, makes it the default and attaches it to ctx
func (cfg *config) setupLogger(ctx context.Context) (context.Context, *slog.Logger, error) {
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(cfg.logLevel, nil, format)
	logging.SetDefault(logger)
	return logging.With(ctx, logger), logger, nil
}

func (cfg *config) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if cfg.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.credentialsFile))
	}
	return opts
}

// newGemini creates a new Gemini adapter instance. An API key takes precedence over Vertex AI.
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	var opts []adapter.GeminiOption
	if cfg.geminiBaseURL != "" {
		opts = append(opts, adapter.WithHTTPOptions(genai.HTTPOptions{BaseURL: cfg.geminiBaseURL}))
	}

	if cfg.geminiAPIKey != "" {
		return adapter.NewGeminiWithAPIKey(ctx, cfg.geminiAPIKey, opts...)
	}

	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-api-key or gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
}

// newGateway creates the model gateway with optional directives override
func (cfg *config) newGateway(ctx context.Context) (*gateway.Gateway, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	var opts []gateway.Option
	if cfg.directivesPath != "" {
		directives, err := gateway.LoadDirectives(cfg.directivesPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gateway.WithDirectives(directives))
	}

	return gateway.New(gemini, opts...), nil
}

// newStorage creates a new Storage adapter instance, or nil when no bucket is
// configured. The returned function releases the client.
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, func(), error) {
	if cfg.exportBucket == "" {
		return nil, func() {}, nil
	}

	storage, err := adapter.NewStorage(ctx, cfg.exportBucket, cfg.clientOptions()...)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create storage", goerr.V("bucket", cfg.exportBucket))
	}

	closer := func() {
		if err := storage.Close(); err != nil {
			logging.From(ctx).Warn("failed to close storage", "error", err)
		}
	}
	return storage, closer, nil
}

// newStudio wires the gateway, the session store and optional export storage.
// The returned function releases the export storage.
func (cfg *config) newStudio(ctx context.Context) (*studio.UseCase, func(), error) {
	gw, err := cfg.newGateway(ctx)
	if err != nil {
		return nil, nil, err
	}

	var opts []studio.Option
	storage, closer, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, nil, err
	}
	if storage != nil {
		opts = append(opts, studio.WithStorage(storage))
	}

	return studio.New(gw, repository.NewMemory(), opts...), closer, nil
}

// newPreferenceStore returns Firestore when a project is configured and an
// in-memory store otherwise. The returned function releases the store.
func (cfg *config) newPreferenceStore(ctx context.Context) (repository.PreferenceStore, func(), error) {
	if cfg.firestoreProject == "" {
		return repository.NewMemoryPreference(), func() {}, nil
	}

	fs, err := repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase, cfg.clientOptions())
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		if err := fs.Close(); err != nil {
			logging.From(ctx).Warn("failed to close firestore", "error", err)
		}
	}
	return fs, closer, nil
}

// newPreference loads the preference use case
func (cfg *config) newPreference(ctx context.Context) (*preference.UseCase, func(), error) {
	store, closer, err := cfg.newPreferenceStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	pref, err := preference.Load(ctx, store)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return pref, closer, nil
}
