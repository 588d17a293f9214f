package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamed0406/saischeck/internal/command"
	"github.com/hamed0406/saischeck/internal/domain"
	"github.com/hamed0406/saischeck/internal/emoji"
)

var errNotOK = errors.New("portal check did not log in")

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Runs one probe cycle, prints the reply and exits non-zero unless login succeeded.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg, false)
		if err != nil {
			return err
		}
		defer logger.Sync()

		handler := command.NewHandler(logger.Named("command"), newProber(logger, cfg), realClock,
			emoji.Resolve(cfg.Emoji, nil), command.Options{LoginURL: cfg.Portal.LoginURL})

		report, err := handler.Status(cmd.Context(), "cli")
		if report.Text != "" {
			fmt.Fprintln(cmd.OutOrStdout(), report.Text)
		}
		if err != nil {
			return err
		}
		if report.Tag != domain.TagLoginOK {
			return errNotOK
		}
		return nil
	},
}
