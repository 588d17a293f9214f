package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
)

const (
	DefaultLoginURL      = "https://sais.up.edu.ph/psp/ps/?cmd=login&languageCd=ENG"
	DefaultSuccessMarker = "Employee-facing registry content"
	DefaultInvalidMarker = "Your User ID and/or Password are invalid."
	DefaultUserAgent     = "Is UP SAIS down?/1.0"
)

// Credentials is the one fixed portal account used by every probe.
type Credentials struct {
	TimezoneOffset int    `json:"timezoneOffset"`
	UserID         string `json:"userid"`
	Password       string `json:"pwd"`
	RequestID      uint64 `json:"request_id"`
}

type Portal struct {
	LoginURL      string        `json:"login_url"`
	SuccessMarker string        `json:"success_marker"`
	InvalidMarker string        `json:"invalid_marker"`
	UserAgent     string        `json:"user_agent"`
	Timeout       time.Duration `json:"-"`
	TimeoutMS     int           `json:"timeout_ms"`
}

type Discord struct {
	Token     string `json:"token"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"` // empty means every channel the bot can read
	Prefix    string `json:"prefix"`
}

type Config struct {
	Addr     string `json:"addr"`      // API bind address, e.g., "127.0.0.1:8080" or ":8080" (Docker)
	LogDir   string `json:"log_dir"`   // logs directory
	LogLevel string `json:"log_level"` // debug|info|warn|error

	Portal      Portal      `json:"portal"`
	Credentials Credentials `json:"login"`
	Discord     Discord     `json:"discord"`

	// Emoji maps the reply tags (login_ok, login_fail, status_code_fail,
	// response_fail) to guild emoji names.
	Emoji map[string]string `json:"emoji"`

	Cooldown      time.Duration `json:"-"`
	CooldownMS    int           `json:"cooldown_ms"`
	CooldownLimit int           `json:"cooldown_limit"` // invocations allowed per window

	SlackWebhook   string   `json:"slack_webhook"`
	AdminAPIKeys   []string `json:"admin_api_keys"`
	PublicAPIKeys  []string `json:"public_api_keys"`
	AllowedOrigins []string `json:"allowed_origins"`
	PublicRPM      int      `json:"public_rpm"`
	PublicBurst    int      `json:"public_burst"`
}

func Defaults() Config {
	return Config{
		Addr:     "127.0.0.1:8080",
		LogDir:   "logs",
		LogLevel: "info",
		Portal: Portal{
			LoginURL:      DefaultLoginURL,
			SuccessMarker: DefaultSuccessMarker,
			InvalidMarker: DefaultInvalidMarker,
			UserAgent:     DefaultUserAgent,
			TimeoutMS:     30_000,
		},
		Discord: Discord{Prefix: "&"},
		Emoji: map[string]string{
			"login_ok":         "pepeOK",
			"login_fail":       "panik",
			"status_code_fail": "MikeSully",
			"response_fail":    "MikeSully",
		},
		CooldownMS:    30_000,
		CooldownLimit: 1,
		PublicRPM:     30,
		PublicBurst:   5,
	}
}

// Load builds the config from defaults, the optional config file at path
// (plus its .local override) and finally the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		file, err := ReadFile[Config](path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := mergo.Merge(&cfg, file, mergo.WithOverride); err != nil {
				return Config{}, fmt.Errorf("merge config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	cfg.normalize()
	return cfg, nil
}

// FromEnv is Load without a config file.
func FromEnv() Config {
	cfg, _ := Load("")
	return cfg
}

func (c Config) Validate() error {
	var missing []string
	if c.Portal.LoginURL == "" {
		missing = append(missing, "portal.login_url")
	}
	if c.Portal.SuccessMarker == "" {
		missing = append(missing, "portal.success_marker")
	}
	if c.Credentials.UserID == "" {
		missing = append(missing, "login.userid")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) normalize() {
	if c.Portal.TimeoutMS <= 0 {
		c.Portal.TimeoutMS = 30_000
	}
	c.Portal.Timeout = time.Duration(c.Portal.TimeoutMS) * time.Millisecond
	if c.CooldownMS < 0 {
		c.CooldownMS = 0
	}
	c.Cooldown = time.Duration(c.CooldownMS) * time.Millisecond
	if c.CooldownLimit < 1 {
		c.CooldownLimit = 1
	}
	if c.Discord.Prefix == "" {
		c.Discord.Prefix = "&"
	}
}

func applyEnv(c *Config) {
	setString(&c.Addr, "API_ADDR")
	setString(&c.LogDir, "LOG_DIR")
	setString(&c.LogLevel, "LOG_LEVEL")

	setString(&c.Portal.LoginURL, "SAIS_LOGIN_URL")
	setString(&c.Portal.SuccessMarker, "SAIS_SUCCESS_MARKER")
	setString(&c.Portal.InvalidMarker, "SAIS_INVALID_MARKER")
	setString(&c.Portal.UserAgent, "SAIS_USER_AGENT")
	setInt(&c.Portal.TimeoutMS, "SAIS_HTTP_TIMEOUT_MS")

	setInt(&c.Credentials.TimezoneOffset, "SAIS_TIMEZONE_OFFSET")
	setString(&c.Credentials.UserID, "SAIS_USERID")
	setString(&c.Credentials.Password, "SAIS_PWD")
	if v := os.Getenv("SAIS_REQUEST_ID"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Credentials.RequestID = n
		}
	}

	setString(&c.Discord.Token, "DISCORD_TOKEN")
	setString(&c.Discord.GuildID, "DISCORD_GUILD_ID")
	setString(&c.Discord.ChannelID, "DISCORD_CHANNEL_ID")
	setString(&c.Discord.Prefix, "COMMAND_PREFIX")

	setInt(&c.CooldownMS, "COOLDOWN_MS")
	setInt(&c.CooldownLimit, "COOLDOWN_LIMIT")

	setString(&c.SlackWebhook, "SLACK_WEBHOOK_URL")
	setList(&c.AdminAPIKeys, "ADMIN_API_KEYS")
	setList(&c.PublicAPIKeys, "PUBLIC_API_KEYS")
	setList(&c.AllowedOrigins, "ALLOWED_ORIGINS")
	setInt(&c.PublicRPM, "PUBLIC_RPM")
	setInt(&c.PublicBurst, "PUBLIC_BURST")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setList(dst *[]string, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
