package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/stashly/stashly/internal/backend"
	"github.com/stashly/stashly/internal/logging"
	"github.com/stashly/stashly/internal/telemetry"
)

// cliConfig holds the environment defaults that flags override.
type cliConfig struct {
	BackendURL     string        `env:"BACKEND_URL" envDefault:"http://localhost:8000"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
	PINLength      int           `env:"PIN_LENGTH" envDefault:"4"`
	ConfirmDelay   time.Duration `env:"CONFIRM_DELAY" envDefault:"1s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"warn"`
	Token          string        `env:"STASHLY_TOKEN"`
	OTELEndpoint   string        `env:"OTEL_ENDPOINT"`
}

type app struct {
	cfg    cliConfig
	logger *slog.Logger
	client *backend.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	envErr := env.Parse(&a.cfg)

	var shutdown telemetry.Shutdown
	root := &cobra.Command{
		Use:           "stashly",
		Short:         "Stashly savings command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if envErr != nil {
				return fmt.Errorf("parse env: %w", envErr)
			}
			a.logger = logging.NewText(cmd.ErrOrStderr(), a.cfg.LogLevel)

			var err error
			shutdown, err = telemetry.Setup(cmd.Context(), "stashly-cli", a.cfg.OTELEndpoint)
			if err != nil {
				a.logger.Warn("telemetry disabled", slog.Any("error", err))
			}

			a.client, err = backend.New(backend.Config{BaseURL: a.cfg.BackendURL, Timeout: a.cfg.BackendTimeout})
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.BackendURL, "backend", a.cfg.BackendURL, "Savings backend base URL (BACKEND_URL)")
	flags.DurationVar(&a.cfg.BackendTimeout, "timeout", a.cfg.BackendTimeout, "Backend request timeout (BACKEND_TIMEOUT)")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "Log level written to stderr")

	root.AddCommand(newPinCmd(a), newGoalsCmd(a), newVerifyEmailCmd(a))
	return root
}
