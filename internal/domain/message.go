package domain

import (
	"strings"
	"time"
)

// User identifies the sender of an update as reported by the platform.
type User struct {
	ID          string
	DisplayName string
	Username    string
}

// Name returns the best human-readable name for the user.
func (u User) Name() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Username != "":
		return u.Username
	default:
		return u.ID
	}
}

// Update is one inbound event from a transport.
type Update struct {
	ID        string
	Platform  string
	ChatID    string
	Sender    User
	Text      string // empty for non-text messages (photo, sticker, file)
	Command   string // lower-case name without "/", empty for free text
	Args      string
	Timestamp time.Time
}

// IsCommand reports whether the update carries a command token.
func (u Update) IsCommand() bool { return u.Command != "" }

// ParseCommand checks if text starts with "/" and splits it into a command
// name and the remaining arguments. A "@botname" suffix on the name is dropped.
// ok is false when text is not a command.
func ParseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text, " ")
	name = strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(rest), true
}
