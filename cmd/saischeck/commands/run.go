package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/saischeck/internal/command"
	"github.com/hamed0406/saischeck/internal/discord"
	"github.com/hamed0406/saischeck/internal/emoji"
	"github.com/hamed0406/saischeck/internal/httpapi"
	apimw "github.com/hamed0406/saischeck/internal/httpapi/middleware"
	"github.com/hamed0406/saischeck/internal/metrics"
	"github.com/hamed0406/saischeck/internal/notify"
)

var noDiscord bool

func init() {
	runCmd.Flags().BoolVar(&noDiscord, "no-discord", false, "Serve only the HTTP API.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--no-discord]",
	Short: "Serves the Discord command and the probe API until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg, true)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := cmd.Context()
		m := metrics.New()

		var notifiers notify.Multi
		if s := notify.NewSlack(cfg.SlackWebhook); s != nil {
			notifiers = append(notifiers, s)
		}

		var bot *discord.Bot
		lookup := emoji.Resolve(cfg.Emoji, nil)
		if !noDiscord {
			bot, err = discord.New(logger.Named("discord"), nil, discord.Options{
				Token:     cfg.Discord.Token,
				GuildID:   cfg.Discord.GuildID,
				ChannelID: cfg.Discord.ChannelID,
				Prefix:    cfg.Discord.Prefix,
			})
			if err != nil {
				return err
			}
			cache, err := discord.LoadEmoji(bot.Session(), cfg.Discord.GuildID, cfg.Emoji)
			if err != nil {
				logger.Warn("emoji_load_error", zap.Error(err))
			}
			lookup = cache
			logger.Info("emoji_loaded", zap.Int("count", cache.Len()))
		}

		opts := []command.Option{command.WithMetrics(m)}
		if len(notifiers) > 0 {
			opts = append(opts, command.WithNotifier(notifiers))
		}
		handler := command.NewHandler(logger.Named("command"), newProber(logger, cfg), realClock, lookup, command.Options{
			LoginURL:      cfg.Portal.LoginURL,
			Cooldown:      cfg.Cooldown,
			CooldownLimit: cfg.CooldownLimit,
		}, opts...)

		api := httpapi.NewServer(logger.Named("api"), handler, m, realClock)
		keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 2)
		go func() {
			logger.Info("api_listen", zap.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
		if bot != nil {
			bot.SetStatuser(handler)
			go func() {
				if err := bot.Run(ctx); err != nil {
					errc <- err
				}
			}()
		}

		select {
		case <-ctx.Done():
			logger.Info("shutdown")
		case err = <-errc:
			logger.Error("serve_error", zap.Error(err))
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("api_shutdown_error", zap.Error(serr))
		}
		return err
	},
}
