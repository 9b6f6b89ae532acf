package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides: REPLYBOT_TELEGRAM_TOKEN
// sets telegram.token.
const EnvPrefix = "REPLYBOT_"

// Config is the root configuration for replybot, corresponding to config.yaml.
type Config struct {
	Transport string         `yaml:"transport" koanf:"transport"`
	Bot       BotConfig      `yaml:"bot" koanf:"bot"`
	Log       LogConfig      `yaml:"log" koanf:"log"`
	Telegram  TelegramConfig `yaml:"telegram" koanf:"telegram"`
	Slack     SlackConfig    `yaml:"slack" koanf:"slack"`
	Discord   DiscordConfig  `yaml:"discord" koanf:"discord"`
	HTTP      HTTPConfig     `yaml:"http" koanf:"http"`
}

type BotConfig struct {
	Name string `yaml:"name" koanf:"name"`
}

type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`   // debug | info | warn | error
	Format string `yaml:"format" koanf:"format"` // text | json
}

// TelegramConfig is shared by the telegram and telebot transports.
type TelegramConfig struct {
	Token       string `yaml:"token" koanf:"token"`
	PollTimeout int    `yaml:"poll_timeout" koanf:"poll_timeout"` // seconds
}

type SlackConfig struct {
	BotToken string `yaml:"bot_token" koanf:"bot_token"`
	AppToken string `yaml:"app_token" koanf:"app_token"` // required for Socket Mode
}

type DiscordConfig struct {
	Token   string `yaml:"token" koanf:"token"`
	GuildID string `yaml:"guild_id" koanf:"guild_id"` // optional: restrict to one guild
}

// HTTPConfig configures the ops endpoints (/healthz, /metrics).
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Addr    string `yaml:"addr" koanf:"addr"`
}

// DefaultConfigDir returns the default config directory (~/.replybot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".replybot"
	}
	return filepath.Join(home, ".replybot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadDotEnv(path string) error {
	path = ExpandPath(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (REPLYBOT_*). A missing file is not an error.
// The result is not validated; call Validate.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)
	k := koanf.New(".")

	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// REPLYBOT_SLACK_BOT_TOKEN -> slack.bot_token
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.expandEnv()
	cfg.applyPlatformEnv()
	return cfg, nil
}

// expandEnv substitutes ${VAR} references in string settings.
func (c *Config) expandEnv() {
	for _, s := range []*string{
		&c.Transport,
		&c.Bot.Name,
		&c.Log.Level,
		&c.Log.Format,
		&c.Telegram.Token,
		&c.Slack.BotToken,
		&c.Slack.AppToken,
		&c.Discord.Token,
		&c.Discord.GuildID,
		&c.HTTP.Addr,
	} {
		*s = ExpandEnvVars(*s)
	}
}

// applyPlatformEnv fills empty credentials from the platforms' conventional
// environment variables.
func (c *Config) applyPlatformEnv() {
	for _, f := range []struct {
		dst *string
		env string
	}{
		{&c.Telegram.Token, "TELEGRAM_BOT_TOKEN"},
		{&c.Slack.BotToken, "SLACK_BOT_TOKEN"},
		{&c.Slack.AppToken, "SLACK_APP_TOKEN"},
		{&c.Discord.Token, "DISCORD_BOT_TOKEN"},
	} {
		if *f.dst == "" {
			*f.dst = os.Getenv(f.env)
		}
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

// Save writes the configuration to the given YAML file path. The file may
// contain tokens, so it is only readable by the owner.
func (c *Config) Save(path string) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Transports is the set of recognized transport values.
var Transports = []string{"telegram", "telebot", "slack", "discord", "console"}

// validLevels and validFormats match what logging.New accepts.
var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validFormats = map[string]bool{"text": true, "json": true}
)

// Validate checks that the config has valid values and that the selected
// transport has its credentials.
func (c *Config) Validate() error {
	var errs []string

	switch c.Transport {
	case "telegram", "telebot":
		if c.Telegram.Token == "" {
			errs = append(errs, "telegram.token is required (or set TELEGRAM_BOT_TOKEN)")
		}
	case "slack":
		if c.Slack.BotToken == "" {
			errs = append(errs, "slack.bot_token is required (or set SLACK_BOT_TOKEN)")
		}
		if c.Slack.AppToken == "" {
			errs = append(errs, "slack.app_token is required for Socket Mode (or set SLACK_APP_TOKEN)")
		}
	case "discord":
		if c.Discord.Token == "" {
			errs = append(errs, "discord.token is required (or set DISCORD_BOT_TOKEN)")
		}
	case "console":
	default:
		errs = append(errs, fmt.Sprintf("transport %q must be one of: %s", c.Transport, strings.Join(Transports, ", ")))
	}

	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, "log.level must be one of: debug, info, warn, warning, error")
	}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, "log.format must be one of: text, json")
	}
	if c.Telegram.PollTimeout < 0 || c.Telegram.PollTimeout > 600 {
		errs = append(errs, "telegram.poll_timeout must be between 0 and 600")
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		errs = append(errs, "http.addr is required when http is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
