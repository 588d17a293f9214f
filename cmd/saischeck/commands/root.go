package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/saischeck/internal/config"
	"github.com/hamed0406/saischeck/internal/logging"
	"github.com/hamed0406/saischeck/internal/probe"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "saischeck",
	Short:         "saischeck answers whether the UP SAIS portal is up and accepting logins.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "saischeck.json5", "Config file; a missing file falls back to defaults and env.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, console bool) (*zap.Logger, error) {
	return logging.NewLogger(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Console: console})
}

// newProber builds the serialized probe client every surface shares.
func newProber(logger *zap.Logger, cfg config.Config) *probe.Gate {
	client := probe.NewClient(logger.Named("probe"), probe.Options{
		LoginURL: cfg.Portal.LoginURL,
		Markers: probe.Markers{
			Success: cfg.Portal.SuccessMarker,
			Invalid: cfg.Portal.InvalidMarker,
		},
		UserAgent: cfg.Portal.UserAgent,
		Timeout:   cfg.Portal.Timeout,
		Credentials: probe.Credentials{
			TimezoneOffset: cfg.Credentials.TimezoneOffset,
			UserID:         cfg.Credentials.UserID,
			Password:       cfg.Credentials.Password,
			RequestID:      cfg.Credentials.RequestID,
		},
	})
	return probe.NewGate(client)
}

var realClock = clockwork.NewRealClock()
