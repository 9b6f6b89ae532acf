package bot

import (
	"fmt"
	"strings"

	"replybot/internal/domain"
)

// Rule is one entry of the free-text classifier. Rules are evaluated in
// order and the first match wins; order is part of the contract.
type Rule struct {
	Name string
	// Keywords are lower-case substrings; any one of them selects the rule.
	Keywords []string
	Reply    func(u domain.Update, botName string) string
}

// Matches reports whether lower (already lower-cased text) contains any keyword.
func (r Rule) Matches(lower string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

const (
	RuleNonText = "non-text"
	RuleEcho    = "echo"
)

const chatTail = "I received your message! Feel free to ask me anything or just chat with me! 😊"

// DefaultRules returns the classifier table. Matching is plain substring
// matching, so "this" selects the greeting through "hi".
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "greeting",
			Keywords: []string{"hello", "hi", "hey"},
			Reply: func(u domain.Update, _ string) string {
				return fmt.Sprintf("Hello %s! 👋 How can I help you today?", u.Sender.Name())
			},
		},
		{
			Name:     "status",
			Keywords: []string{"how are you"},
			Reply:    fixed("I'm doing great, thank you for asking! 😊 How are you?"),
		},
		{
			Name:     "identity",
			Keywords: []string{"what is your name", "who are you"},
			Reply: func(u domain.Update, botName string) string {
				return fmt.Sprintf("I'm %s, your friendly %s bot! 🤖", botName, platformTitle(u.Platform))
			},
		},
		{
			Name:     "thanks",
			Keywords: []string{"thank"},
			Reply:    fixed("You're welcome! Happy to help! 😊"),
		},
		{
			Name:     "farewell",
			Keywords: []string{"bye", "goodbye"},
			Reply:    fixed("Goodbye! Have a great day! 👋"),
		},
		{
			Name:     "question",
			Keywords: []string{"?"},
			Reply: func(u domain.Update, _ string) string {
				return fmt.Sprintf("That's an interesting question! You asked: '%s'\n\nI'm a simple bot, but I'm here to chat with you! 💬", u.Text)
			},
		},
	}
}

func fixed(reply string) func(domain.Update, string) string {
	return func(domain.Update, string) string { return reply }
}

// Classify picks the reply for a free-text update and returns the name of the
// rule that produced it.
func (b *Bot) Classify(u domain.Update) (rule, reply string) {
	if u.Text == "" {
		return RuleNonText, "I received your message! Currently I can only respond to text messages. Send me some text! 💬"
	}

	lower := strings.ToLower(u.Text)
	for _, r := range b.rules {
		if r.Matches(lower) {
			return r.Name, r.Reply(u, b.name)
		}
	}
	return RuleEcho, fmt.Sprintf("You said: '%s'\n\n%s", u.Text, chatTail)
}

func platformTitle(platform string) string {
	switch platform {
	case "telegram":
		return "Telegram"
	case "slack":
		return "Slack"
	case "discord":
		return "Discord"
	default:
		return "chat"
	}
}
