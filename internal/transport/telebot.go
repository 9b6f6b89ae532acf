package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"replybot/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// Telebot implements domain.Transport for Telegram on top of telebot's own
// router. Registered commands become telebot endpoints at Run time.
type Telebot struct {
	*Dispatcher

	token       string
	pollTimeout time.Duration
	logger      *slog.Logger

	mu  sync.RWMutex
	bot *tele.Bot
}

// TelebotConfig configures the telebot transport.
type TelebotConfig struct {
	Token       string
	PollTimeout int // seconds
	Logger      *slog.Logger
}

// telebotMediaEndpoints are the non-text message kinds routed to the text
// handler with empty text.
var telebotMediaEndpoints = []string{
	tele.OnPhoto, tele.OnSticker, tele.OnDocument, tele.OnVoice, tele.OnVideo, tele.OnAudio,
}

// NewTelebot creates a Telegram transport backed by telebot.
func NewTelebot(cfg TelebotConfig) *Telebot {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = telegramDefaultTimeout
	}
	logger := cfg.Logger.With("transport", "telebot")
	return &Telebot{
		Dispatcher:  NewDispatcher(logger),
		token:       cfg.Token,
		pollTimeout: time.Duration(cfg.PollTimeout) * time.Second,
		logger:      logger,
	}
}

func (t *Telebot) Name() string { return "telebot" }

// Run connects, installs the endpoints and polls until ctx is cancelled.
func (t *Telebot) Run(ctx context.Context) error {
	b, err := tele.NewBot(tele.Settings{
		Token:  t.token,
		Poller: &tele.LongPoller{Timeout: t.pollTimeout},
		OnError: func(err error, c tele.Context) {
			// Handlers never return errors to telebot; this only sees
			// polling and API failures.
			t.Fail(ctx, nil, fmt.Errorf("telebot: %w", err))
		},
	})
	if err != nil {
		return fmt.Errorf("telebot init: %w", err)
	}
	t.mu.Lock()
	t.bot = b
	t.mu.Unlock()

	handler := func(c tele.Context) error {
		t.handle(ctx, c)
		return nil
	}
	for _, name := range t.Commands() {
		b.Handle("/"+name, handler)
	}
	b.Handle(tele.OnText, handler)
	for _, endpoint := range telebotMediaEndpoints {
		b.Handle(endpoint, handler)
	}

	t.logger.Info("telebot connected", "username", b.Me.Username, "commands", t.Commands())

	go func() {
		<-ctx.Done()
		t.logger.Info("telebot transport stopping")
		b.Stop()
	}()
	b.Start()
	return nil
}

func (t *Telebot) handle(ctx context.Context, c tele.Context) {
	u, ok := telebotUpdate(c.Update().ID, c.Message())
	if !ok {
		return
	}
	t.Dispatch(ctx, u)
}

// telebotUpdate converts a telebot message. Captions are not treated as text.
func telebotUpdate(updateID int, m *tele.Message) (domain.Update, bool) {
	if m == nil || m.Sender == nil || m.Chat == nil {
		return domain.Update{}, false
	}

	u := domain.Update{
		ID:       strconv.Itoa(updateID),
		Platform: "telegram",
		ChatID:   strconv.FormatInt(m.Chat.ID, 10),
		Sender: domain.User{
			ID:          strconv.FormatInt(m.Sender.ID, 10),
			DisplayName: m.Sender.FirstName,
			Username:    m.Sender.Username,
		},
		Text:      m.Text,
		Timestamp: m.Time(),
	}
	if name, args, ok := domain.ParseCommand(m.Text); ok {
		u.Command, u.Args = name, args
	}
	return u, true
}

func (t *Telebot) Reply(ctx context.Context, chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat ID %q: %w", chatID, err)
	}

	t.mu.RLock()
	b := t.bot
	t.mu.RUnlock()
	if b == nil {
		return errors.New("telebot: not connected")
	}

	for _, chunk := range splitMessage(text, telegramMaxMsgLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := b.Send(tele.ChatID(id), chunk); err != nil {
			return fmt.Errorf("telebot send: %w", err)
		}
	}
	return nil
}
