package bot

import (
	"fmt"

	"replybot/internal/domain"
)

// WelcomeText is the /start reply.
func (b *Bot) WelcomeText(sender domain.User) string {
	return fmt.Sprintf(`👋 Hello %s!

Welcome to %s!

I'm here to chat with you. Here's what I can do:
• Reply to your messages
• Answer your questions
• Have a conversation with you

Just send me a message and I'll respond! 💬

Commands:
/start - Show this welcome message
/help - Get help information`, sender.Name(), b.name)
}

// HelpText is the /help reply.
func HelpText() string {
	return `🤖 Bot Help

Available Commands:
/start - Start the bot and see welcome message
/help - Show this help message

How to use:
Simply send me any message and I'll respond to you!

Need assistance? Just ask me anything! 😊`
}
