// Package bot is the message router: it registers the /start and /help
// commands, the free-text classifier and the error notifier on a transport.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"replybot/internal/domain"
	"replybot/internal/logging"
	"replybot/internal/metrics"
)

// DefaultName is used when Config.Name is empty.
const DefaultName = "@ReplyBot"

// Config configures a Bot.
type Config struct {
	// Name is how the bot refers to itself in replies, e.g. "@ReplyBot".
	Name   string
	Logger *slog.Logger
}

// Bot holds only immutable data after New; handlers are safe to run
// concurrently.
type Bot struct {
	name   string
	rules  []Rule
	logger *slog.Logger
}

// New creates a Bot with the default rule set.
func New(cfg Config) *Bot {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Bot{
		name:   cfg.Name,
		rules:  DefaultRules(),
		logger: cfg.Logger,
	}
}

// Register installs every handler on t.
func (b *Bot) Register(t domain.Transport) {
	t.OnCommand("start", b.replyWith(t, b.handleStart))
	t.OnCommand("help", b.replyWith(t, b.handleHelp))
	t.OnText(b.replyWith(t, b.handleText))
	t.OnError(b.notifyError(t))

	b.logger.Info("handlers registered", "transport", t.Name(), "bot", b.name)
}

// responder builds the reply for u and names the rule that produced it.
type responder func(ctx context.Context, u domain.Update) (rule, reply string)

// replyWith adapts a responder into a HandlerFunc that sends the reply through t.
func (b *Bot) replyWith(t domain.Transport, r responder) domain.HandlerFunc {
	return func(ctx context.Context, u domain.Update) error {
		rule, reply := r(ctx, u)

		if err := t.Reply(ctx, u.ChatID, reply); err != nil {
			return fmt.Errorf("reply (%s): %w", rule, err)
		}
		metrics.RuleReplies(rule).Inc()
		logging.FromContext(ctx).Info("sent response",
			"rule", rule,
			"user", u.Sender.Name(),
		)
		return nil
	}
}

func (b *Bot) handleStart(ctx context.Context, u domain.Update) (string, string) {
	logging.FromContext(ctx).Info("user started the bot",
		"user", u.Sender.Name(),
		"user_id", u.Sender.ID,
	)
	return "start", b.WelcomeText(u.Sender)
}

func (b *Bot) handleHelp(ctx context.Context, u domain.Update) (string, string) {
	logging.FromContext(ctx).Info("help requested", "user_id", u.Sender.ID)
	return "help", HelpText()
}

func (b *Bot) handleText(ctx context.Context, u domain.Update) (string, string) {
	logging.FromContext(ctx).Info("message received",
		"user", u.Sender.Name(),
		"user_id", u.Sender.ID,
		"chat_id", u.ChatID,
		"text", u.Text,
	)
	return b.Classify(u)
}
