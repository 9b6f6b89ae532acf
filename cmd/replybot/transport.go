package main

import (
	"fmt"
	"log/slog"

	"replybot/internal/config"
	"replybot/internal/domain"
	"replybot/internal/transport"
)

// newTransport builds the transport selected by cfg.Transport.
func newTransport(cfg *config.Config, logger *slog.Logger) (domain.Transport, error) {
	switch cfg.Transport {
	case "telegram":
		return transport.NewTelegram(transport.TelegramConfig{
			Token:       cfg.Telegram.Token,
			PollTimeout: cfg.Telegram.PollTimeout,
			Logger:      logger,
		}), nil
	case "telebot":
		return transport.NewTelebot(transport.TelebotConfig{
			Token:       cfg.Telegram.Token,
			PollTimeout: cfg.Telegram.PollTimeout,
			Logger:      logger,
		}), nil
	case "slack":
		return transport.NewSlack(transport.SlackConfig{
			BotToken: cfg.Slack.BotToken,
			AppToken: cfg.Slack.AppToken,
			Logger:   logger,
		}), nil
	case "discord":
		return transport.NewDiscord(transport.DiscordConfig{
			Token:   cfg.Discord.Token,
			GuildID: cfg.Discord.GuildID,
			Logger:  logger,
		}), nil
	case "console":
		return transport.NewConsole(transport.ConsoleConfig{Logger: logger}), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
