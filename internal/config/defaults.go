package config

// DefaultBotName is used in welcome and identity replies when bot.name is unset.
const DefaultBotName = "@ReplyBot"

func Defaults() *Config {
	return &Config{
		Transport: "telegram",
		Bot: BotConfig{
			Name: DefaultBotName,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telegram: TelegramConfig{
			PollTimeout: 30,
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
	}
}
