package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"replybot/internal/domain"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

const slackMaxMsgLen = 4000

// Slack implements domain.Transport using Socket Mode.
type Slack struct {
	*Dispatcher

	botToken string
	appToken string
	logger   *slog.Logger

	mu     sync.RWMutex
	client *slack.Client
	botUID string // the bot's own user ID, to avoid replying to self
}

// SlackConfig configures the Slack transport.
type SlackConfig struct {
	BotToken string
	AppToken string
	Logger   *slog.Logger
}

// NewSlack creates a Slack transport.
func NewSlack(cfg SlackConfig) *Slack {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("transport", "slack")
	return &Slack{
		Dispatcher: NewDispatcher(logger),
		botToken:   cfg.BotToken,
		appToken:   cfg.AppToken,
		logger:     logger,
	}
}

func (s *Slack) Name() string { return "slack" }

// Run connects via Socket Mode and handles events until ctx is cancelled.
func (s *Slack) Run(ctx context.Context) error {
	api := slack.New(s.botToken, slack.OptionAppLevelToken(s.appToken))

	authResp, err := api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	s.mu.Lock()
	s.client = api
	s.botUID = authResp.UserID
	s.mu.Unlock()
	s.logger.Info("slack bot connected", "user", authResp.User, "user_id", authResp.UserID)

	socketClient := socketmode.New(api)

	ctx, cancel := context.WithCancel(ctx)
	eventsDone := make(chan struct{})
	defer func() {
		cancel()
		<-eventsDone
	}()
	go func() {
		defer close(eventsDone)
		s.handleSocketEvents(ctx, socketClient.Events, func(req socketmode.Request) {
			socketClient.Ack(req)
		})
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- socketClient.RunContext(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("slack transport stopping")
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("slack socket mode: %w", err)
	}
}

// handleSocketEvents acks and routes Socket Mode events until ctx is
// cancelled or events is closed.
func (s *Slack) handleSocketEvents(ctx context.Context, events <-chan socketmode.Event, ack func(socketmode.Request)) {
	for {
		var evt socketmode.Event
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			evt = e
		}

		switch evt.Type {
		case socketmode.EventTypeEventsAPI:
			eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			if evt.Request != nil {
				ack(*evt.Request)
			}
			s.handleEventsAPI(ctx, eventsAPIEvent)

		case socketmode.EventTypeSlashCommand:
			cmd, ok := evt.Data.(slack.SlashCommand)
			if !ok {
				continue
			}
			if evt.Request != nil {
				ack(*evt.Request)
			}
			s.Dispatch(ctx, slackCommandUpdate(cmd))

		case socketmode.EventTypeConnectionError:
			s.Fail(ctx, nil, fmt.Errorf("slack connection: %v", evt.Data))

		default:
			// Unacked requests make Socket Mode redeliver and eventually disconnect.
			if evt.Request != nil {
				ack(*evt.Request)
			}
		}
	}
}

func (s *Slack) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}

	s.mu.RLock()
	botUID := s.botUID
	s.mu.RUnlock()

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		u, ok := slackMessageUpdate(ev, botUID)
		if !ok {
			return
		}
		u.Sender.DisplayName = s.displayName(ctx, u.Sender.ID)
		s.Dispatch(ctx, u)

	case *slackevents.AppMentionEvent:
		if ev.User == botUID {
			return
		}
		// Strip the leading <@U123> mention.
		text := ev.Text
		if idx := strings.Index(text, ">"); idx >= 0 {
			text = strings.TrimSpace(text[idx+1:])
		}
		u := slackUpdate(ev.TimeStamp, ev.Channel, ev.User, text)
		u.Sender.DisplayName = s.displayName(ctx, ev.User)
		s.Dispatch(ctx, u)
	}
}

// slackMessageUpdate converts a message event. The bot's own messages and
// edits/deletions are skipped; file shares are kept as non-text messages when
// they carry no text. Messages mentioning the bot are skipped too: Slack also
// delivers them as an app_mention event, which is the one that gets handled.
func slackMessageUpdate(ev *slackevents.MessageEvent, botUID string) (domain.Update, bool) {
	if ev.User == "" || ev.User == botUID || ev.BotID != "" {
		return domain.Update{}, false
	}
	if botUID != "" && strings.Contains(ev.Text, "<@"+botUID+">") {
		return domain.Update{}, false
	}
	if ev.SubType != "" && ev.SubType != "file_share" {
		return domain.Update{}, false
	}
	return slackUpdate(ev.TimeStamp, ev.Channel, ev.User, ev.Text), true
}

func slackCommandUpdate(cmd slack.SlashCommand) domain.Update {
	u := slackUpdate(cmd.TriggerID, cmd.ChannelID, cmd.UserID, strings.TrimSpace(cmd.Command+" "+cmd.Text))
	u.Sender.Username = cmd.UserName
	return u
}

func slackUpdate(id, channel, user, text string) domain.Update {
	u := domain.Update{
		ID:        id,
		Platform:  "slack",
		ChatID:    channel,
		Sender:    domain.User{ID: user},
		Text:      text,
		Timestamp: time.Now(),
	}
	if name, args, ok := domain.ParseCommand(text); ok {
		u.Command, u.Args = name, args
	}
	return u
}

// displayName looks up the sender's profile name; failures fall back to the
// user ID via domain.User.Name.
func (s *Slack) displayName(ctx context.Context, userID string) string {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return ""
	}

	user, err := client.GetUserInfoContext(ctx, userID)
	if err != nil {
		s.logger.Debug("slack user lookup failed", "user", userID, "err", err)
		return ""
	}
	switch {
	case user.Profile.FirstName != "":
		return user.Profile.FirstName
	case user.Profile.DisplayName != "":
		return user.Profile.DisplayName
	default:
		return user.RealName
	}
}

func (s *Slack) Reply(ctx context.Context, chatID string, text string) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return errors.New("slack: not connected")
	}

	for _, chunk := range splitMessage(text, slackMaxMsgLen) {
		_, _, err := client.PostMessageContext(ctx, chatID, slack.MsgOptionText(chunk, false))
		if err != nil {
			return fmt.Errorf("slack send: %w", err)
		}
	}
	return nil
}
