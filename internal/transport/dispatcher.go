package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"replybot/internal/domain"
	"replybot/internal/logging"
	"replybot/internal/metrics"

	"github.com/google/uuid"
)

// Dispatcher holds the handlers registered on a transport and routes each
// Update to exactly one of them. Every concrete transport embeds one, which
// gives it the registration half of domain.Transport.
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]domain.HandlerFunc
	text     domain.HandlerFunc
	onError  domain.ErrorHandlerFunc
	logger   *slog.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		commands: make(map[string]domain.HandlerFunc),
		logger:   logger,
	}
}

// OnCommand registers h for "/name". The leading slash is optional.
func (d *Dispatcher) OnCommand(name string, h domain.HandlerFunc) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands[name] = h
}

// OnText registers the handler for non-command messages.
func (d *Dispatcher) OnText(h domain.HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = h
}

// OnError registers the handler invoked when any other handler fails.
func (d *Dispatcher) OnError(h domain.ErrorHandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = h
}

// Commands returns the registered command names, sorted.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler matching u. Handler errors and panics are passed
// to the error handler; nothing is returned to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, u domain.Update) {
	start := time.Now()
	metrics.UpdatesTotal.Inc()
	defer func() { metrics.HandleLatency.Observe(time.Since(start).Seconds()) }()

	logger := d.logger.With("request_id", uuid.NewString(), "platform", u.Platform, "update_id", u.ID)
	ctx = logging.WithContext(ctx, logger)

	h, kind := d.lookup(u)
	if h == nil {
		if u.IsCommand() {
			metrics.CommandsIgnored.Inc()
			logger.Debug("ignoring unregistered command", "command", u.Command)
		} else {
			logger.Debug("no handler registered", "kind", kind)
		}
		return
	}

	if err := d.call(ctx, h, u); err != nil {
		d.fail(ctx, &u, err)
	}
}

// Fail reports a failure that is not tied to a handler call, e.g. a receive
// error. u may be nil.
func (d *Dispatcher) Fail(ctx context.Context, u *domain.Update, err error) {
	d.fail(logging.WithContext(ctx, d.logger), u, err)
}

func (d *Dispatcher) lookup(u domain.Update) (domain.HandlerFunc, string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u.IsCommand() {
		return d.commands[u.Command], "command"
	}
	return d.text, "text"
}

func (d *Dispatcher) call(ctx context.Context, h domain.HandlerFunc, u domain.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanics.Inc()
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, u)
}

func (d *Dispatcher) fail(ctx context.Context, u *domain.Update, err error) {
	metrics.HandlerErrors.Inc()

	d.mu.RLock()
	onError := d.onError
	d.mu.RUnlock()

	if onError == nil {
		logging.FromContext(ctx).Error("update handling failed", "err", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("error handler panic", "panic", r, "err", err)
		}
	}()
	onError(ctx, u, err)
}
