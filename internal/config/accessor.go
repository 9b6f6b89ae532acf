package config

import (
	"fmt"

	yamlv3 "gopkg.in/yaml.v3"
)

// Sanitize returns a copy of the config with credentials masked.
func Sanitize(cfg *Config) *Config {
	c := *cfg
	c.Telegram.Token = maskString(c.Telegram.Token)
	c.Slack.BotToken = maskString(c.Slack.BotToken)
	c.Slack.AppToken = maskString(c.Slack.AppToken)
	c.Discord.Token = maskString(c.Discord.Token)
	return &c
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// Render returns the sanitized config as YAML, for display.
func Render(cfg *Config) (string, error) {
	data, err := yamlv3.Marshal(Sanitize(cfg))
	if err != nil {
		return "", fmt.Errorf("marshalling config: %w", err)
	}
	return string(data), nil
}
