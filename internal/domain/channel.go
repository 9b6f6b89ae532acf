package domain

import "context"

// HandlerFunc handles a single inbound update.
type HandlerFunc func(ctx context.Context, u Update) error

// ErrorHandlerFunc is called when a HandlerFunc fails. u is nil when the
// failure could not be tied to an update (e.g. a receive error).
type ErrorHandlerFunc func(ctx context.Context, u *Update, err error)

// Transport is the interface for a messaging platform client (Telegram, Slack,
// Discord, console). It owns the receive loop and delivery; handlers only see
// Updates and reply through it.
type Transport interface {
	Name() string
	OnCommand(name string, h HandlerFunc)
	OnText(h HandlerFunc)
	OnError(h ErrorHandlerFunc)
	Reply(ctx context.Context, chatID string, text string) error
	// Run blocks until ctx is cancelled or the connection fails.
	Run(ctx context.Context) error
}
