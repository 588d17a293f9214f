package discord

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/hamed0406/saischeck/internal/command"
	"github.com/hamed0406/saischeck/internal/domain"
	"github.com/hamed0406/saischeck/internal/emoji"
)

const commandName = "sais"

// Statuser is implemented by *command.Handler.
type Statuser interface {
	Status(ctx context.Context, surface string) (domain.Report, error)
}

type replier interface {
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type emojiLister interface {
	GuildEmojis(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Emoji, error)
}

type Options struct {
	Token     string
	GuildID   string
	ChannelID string
	Prefix    string
	// ReplyTimeout bounds how long an invocation waits for its turn and
	// its probe before giving up.
	ReplyTimeout time.Duration
}

type Bot struct {
	logger  *zap.Logger
	status  Statuser
	opts    Options
	session *discordgo.Session
}

func New(logger *zap.Logger, status Statuser, opts Options) (*Bot, error) {
	if opts.Token == "" {
		return nil, errors.New("discord: empty token")
	}
	if opts.Prefix == "" {
		opts.Prefix = "&"
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 2 * time.Minute
	}
	s, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	b := &Bot{logger: logger, status: status, opts: opts, session: s}
	s.AddHandler(b.onReady)
	s.AddHandler(b.onMessage)
	return b, nil
}

// SetStatuser replaces the command backend. It must be called before Run;
// the backend usually depends on emoji loaded through Session.
func (b *Bot) SetStatuser(s Statuser) { b.status = s }

// Session exposes the underlying session, mainly to load guild emoji
// before the bot starts serving.
func (b *Bot) Session() *discordgo.Session { return b.session }

// Run opens the gateway connection and blocks until ctx ends.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	<-ctx.Done()
	b.logger.Info("discord_stopping")
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord_ready", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	b.handle(s, selfID, m)
}

func (b *Bot) isCommand(m *discordgo.MessageCreate, selfID string) bool {
	if m.Author == nil || m.Author.Bot || m.Author.ID == selfID {
		return false
	}
	if b.opts.GuildID != "" && m.GuildID != b.opts.GuildID {
		return false
	}
	if b.opts.ChannelID != "" && m.ChannelID != b.opts.ChannelID {
		return false
	}
	return strings.TrimSpace(m.Content) == b.opts.Prefix+commandName
}

func (b *Bot) handle(r replier, selfID string, m *discordgo.MessageCreate) {
	if !b.isCommand(m, selfID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.ReplyTimeout)
	defer cancel()

	log := b.logger.With(zap.String("channel", m.ChannelID), zap.String("author", m.Author.ID))
	report, err := b.status.Status(ctx, "discord")

	var text string
	var cd *command.CooldownError
	switch {
	case errors.As(err, &cd):
		text = fmt.Sprintf("Slow down, try again in %ds.", int(math.Ceil(cd.RetryAfter.Seconds())))
	case report.Text != "":
		text = report.Text
		if err != nil {
			log.Error("discord_status_error", zap.Error(err))
		}
	default:
		log.Warn("discord_status_abandoned", zap.Error(err))
		text = "Could not check UP SAIS right now."
	}

	if _, err := r.ChannelMessageSendReply(m.ChannelID, text, m.Reference()); err != nil {
		log.Warn("discord_reply_error", zap.Error(err))
	}
}

// LoadEmoji resolves the configured tag -> emoji name mapping against the
// guild's custom emoji. Without a guild the names become :shortcodes:.
func LoadEmoji(l emojiLister, guildID string, names map[string]string) (*emoji.Cache, error) {
	available := map[string]string{}
	if guildID != "" {
		list, err := l.GuildEmojis(guildID)
		if err != nil {
			return emoji.Resolve(names, nil), fmt.Errorf("discord emoji: %w", err)
		}
		for _, e := range list {
			available[e.Name] = e.MessageFormat()
		}
	}
	return emoji.Resolve(names, available), nil
}
