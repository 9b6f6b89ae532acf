package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"replybot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
	telegramDefaultTimeout = 30
)

// Telegram implements domain.Transport over the Bot API using long polling.
type Telegram struct {
	*Dispatcher

	token       string
	pollTimeout int
	logger      *slog.Logger

	mu  sync.RWMutex
	bot *tgbotapi.BotAPI
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token       string
	PollTimeout int // seconds
	Logger      *slog.Logger
}

// NewTelegram creates a Telegram transport. It connects in Run.
func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = telegramDefaultTimeout
	}
	logger := cfg.Logger.With("transport", "telegram")
	return &Telegram{
		Dispatcher:  NewDispatcher(logger),
		token:       cfg.Token,
		pollTimeout: cfg.PollTimeout,
		logger:      logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Run connects to Telegram and polls for updates until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.mu.Lock()
	t.bot = bot
	t.mu.Unlock()

	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started", "timeout", t.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram transport stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if du, ok := telegramUpdate(update, bot.Self.UserName); ok {
				t.Dispatch(ctx, du)
			}
		}
	}
}

// telegramUpdate converts a Bot API update. Only new messages with a sender
// and a chat are handled. Commands addressed to another bot
// ("/start@OtherBot") are skipped; self is this bot's username.
func telegramUpdate(update tgbotapi.Update, self string) (domain.Update, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return domain.Update{}, false
	}
	if msg.IsCommand() {
		if _, target, found := strings.Cut(msg.CommandWithAt(), "@"); found && !strings.EqualFold(target, self) {
			return domain.Update{}, false
		}
	}

	u := domain.Update{
		ID:       strconv.Itoa(update.UpdateID),
		Platform: "telegram",
		ChatID:   strconv.FormatInt(msg.Chat.ID, 10),
		Sender: domain.User{
			ID:          strconv.FormatInt(msg.From.ID, 10),
			DisplayName: msg.From.FirstName,
			Username:    msg.From.UserName,
		},
		Text:      msg.Text,
		Timestamp: msg.Time(),
	}
	if msg.IsCommand() {
		u.Command = strings.ToLower(msg.Command())
		u.Args = msg.CommandArguments()
	}
	return u, true
}

// Reply sends text to chatID, split into chunks below Telegram's length limit.
func (t *Telegram) Reply(ctx context.Context, chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat ID %q: %w", chatID, err)
	}

	t.mu.RLock()
	bot := t.bot
	t.mu.RUnlock()
	if bot == nil {
		return errors.New("telegram: not connected")
	}

	for _, chunk := range splitMessage(text, telegramMaxMsgLen) {
		if err := t.sendChunk(ctx, bot, id, chunk); err != nil {
			return err
		}
	}
	return nil
}

// sendChunk sends one chunk. Only rate-limit responses (HTTP 429) are retried,
// after the delay Telegram asks for; every other error is returned as is.
func (t *Telegram) sendChunk(ctx context.Context, bot *tgbotapi.BotAPI, chatID int64, text string) error {
	for attempt := 0; ; attempt++ {
		_, err := bot.Send(tgbotapi.NewMessage(chatID, text))
		if err == nil {
			return nil
		}

		var apiErr *tgbotapi.Error
		if !errors.As(err, &apiErr) || apiErr.Code != 429 || attempt >= telegramMaxSendRetries {
			return fmt.Errorf("telegram send: %w", err)
		}

		retryAfter := time.Duration(apiErr.RetryAfter) * time.Second
		if retryAfter <= 0 {
			retryAfter = time.Duration(attempt+1) * 3 * time.Second
		}
		t.logger.Warn("telegram rate limited, backing off",
			"retry_after", retryAfter, "attempt", attempt+1,
		)

		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
