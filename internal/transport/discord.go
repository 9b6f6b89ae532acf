package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"replybot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const discordMaxMsgLen = 2000

// Discord implements domain.Transport over a gateway session. Plain messages
// starting with "/" and application (slash) commands both reach OnCommand
// handlers.
type Discord struct {
	*Dispatcher

	token   string
	guildID string
	logger  *slog.Logger

	mu      sync.RWMutex
	session *discordgo.Session
}

// DiscordConfig configures the Discord transport.
type DiscordConfig struct {
	Token   string
	GuildID string // optional: restrict to one guild and register commands there
	Logger  *slog.Logger
}

// NewDiscord creates a Discord transport.
func NewDiscord(cfg DiscordConfig) *Discord {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("transport", "discord")
	return &Discord{
		Dispatcher: NewDispatcher(logger),
		token:      cfg.Token,
		guildID:    cfg.GuildID,
		logger:     logger,
	}
}

func (d *Discord) Name() string { return "discord" }

// Run opens the gateway session and blocks until ctx is cancelled.
func (d *Discord) Run(ctx context.Context) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		u, ok := discordMessageUpdate(m, s.State.User.ID, d.guildID)
		if !ok {
			return
		}
		d.Dispatch(ctx, u)
	})

	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		// Acknowledge now; the reply is posted to the channel by the handler.
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		}); err != nil {
			d.logger.Warn("discord interaction ack failed", "err", err)
		}
		d.Dispatch(ctx, discordInteractionUpdate(i))
		if err := s.InteractionResponseDelete(i.Interaction); err != nil {
			d.logger.Debug("discord interaction cleanup failed", "err", err)
		}
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	d.mu.Lock()
	d.session = session
	d.mu.Unlock()

	d.logger.Info("discord bot connected", "user", session.State.User.Username)
	d.registerSlashCommands(session)

	<-ctx.Done()
	d.logger.Info("discord transport stopping")
	return session.Close()
}

// discordMessageUpdate converts a message. The bot's own messages and messages
// from other guilds (when guildID is set) are skipped.
func discordMessageUpdate(m *discordgo.MessageCreate, selfID, guildID string) (domain.Update, bool) {
	if m.Author == nil || m.Author.ID == selfID || m.Author.Bot {
		return domain.Update{}, false
	}
	if guildID != "" && m.GuildID != "" && m.GuildID != guildID {
		return domain.Update{}, false
	}

	u := domain.Update{
		ID:        m.ID,
		Platform:  "discord",
		ChatID:    m.ChannelID,
		Sender:    discordUser(m.Author),
		Text:      m.Content,
		Timestamp: m.Timestamp,
	}
	if name, args, ok := domain.ParseCommand(m.Content); ok {
		u.Command, u.Args = name, args
	}
	return u, true
}

func discordInteractionUpdate(i *discordgo.InteractionCreate) domain.Update {
	data := i.ApplicationCommandData()

	var sender domain.User
	switch {
	case i.Member != nil && i.Member.User != nil:
		sender = discordUser(i.Member.User)
	case i.User != nil:
		sender = discordUser(i.User)
	}

	return domain.Update{
		ID:       i.ID,
		Platform: "discord",
		ChatID:   i.ChannelID,
		Sender:   sender,
		Text:     "/" + data.Name,
		Command:  data.Name,
	}
}

func discordUser(u *discordgo.User) domain.User {
	return domain.User{ID: u.ID, DisplayName: u.GlobalName, Username: u.Username}
}

// registerSlashCommands publishes every registered command. Without a guild ID
// they are global and can take up to an hour to appear.
func (d *Discord) registerSlashCommands(s *discordgo.Session) {
	for _, name := range d.Commands() {
		cmd := &discordgo.ApplicationCommand{
			Name:        name,
			Description: "Run /" + name,
		}
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, d.guildID, cmd); err != nil {
			d.logger.Warn("failed to register slash command", "command", name, "err", err)
		}
	}
}

func (d *Discord) Reply(ctx context.Context, chatID string, text string) error {
	d.mu.RLock()
	session := d.session
	d.mu.RUnlock()
	if session == nil {
		return errors.New("discord: not connected")
	}

	for _, chunk := range splitMessage(text, discordMaxMsgLen) {
		if _, err := session.ChannelMessageSend(chatID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord send: %w", err)
		}
	}
	return nil
}
