package bot

import (
	"context"

	"replybot/internal/domain"
	"replybot/internal/logging"
	"replybot/internal/metrics"
)

// ApologyText is sent to the conversation of an update whose handling failed.
const ApologyText = "❌ Sorry, something went wrong. Please try again later."

// notifyError logs the failure and, when the update has a conversation, sends
// one apology. A failed apology is logged and dropped.
func (b *Bot) notifyError(t domain.Transport) domain.ErrorHandlerFunc {
	return func(ctx context.Context, u *domain.Update, err error) {
		logger := logging.FromContext(ctx)
		if u == nil {
			logger.Error("transport error", "err", err)
			return
		}

		logger.Error("update caused error",
			"err", err,
			"chat_id", u.ChatID,
			"user_id", u.Sender.ID,
			"command", u.Command,
			"text", u.Text,
		)
		if u.ChatID == "" {
			return
		}

		metrics.ApologiesSent.Inc()
		if rerr := t.Reply(ctx, u.ChatID, ApologyText); rerr != nil {
			metrics.ApologyFailures.Inc()
			logger.Warn("apology not delivered", "chat_id", u.ChatID, "err", rerr)
		}
	}
}
