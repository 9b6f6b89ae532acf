package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"replybot/internal/config"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your ReplyBot setup",
		Long: `Verifies that ReplyBot's configuration is valid and that the selected
transport's credentials are accepted by the platform. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("ReplyBot Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printWarn("Config file", fmt.Sprintf("not found at %s (using defaults and environment)", cfgPath))
				warned++
			} else {
				printPass("Config file", cfgPath)
				passed++
			}

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config load", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return fmt.Errorf("config could not be loaded")
			}
			if err := cfg.Validate(); err != nil {
				printFail("Config validation", err.Error())
				failed++
			} else {
				printPass("Config validation", "valid")
				passed++

				// 3. Credentials accepted by the platform
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				detail, err := checkCredentials(ctx, cfg)
				cancel()
				if err != nil {
					printFail("Credentials", err.Error())
					failed++
				} else {
					printPass("Credentials", detail)
					passed++
				}
			}

			// 4. Ops server address
			if cfg.HTTP.Enabled {
				if err := checkAddr(cfg.HTTP.Addr); err != nil {
					printWarn("HTTP addr", fmt.Sprintf("%s may be in use: %v", cfg.HTTP.Addr, err))
					warned++
				} else {
					printPass("HTTP addr", cfg.HTTP.Addr+" available")
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running ReplyBot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nReplyBot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! ReplyBot is ready to run.\n")
			}
			return nil
		},
	}
}

// checkCredentials asks the platform who the configured token belongs to.
func checkCredentials(ctx context.Context, cfg *config.Config) (string, error) {
	switch cfg.Transport {
	case "telegram", "telebot":
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return "", fmt.Errorf("telegram getMe: %w", err)
		}
		return "telegram bot @" + bot.Self.UserName, nil
	case "slack":
		resp, err := slack.New(cfg.Slack.BotToken).AuthTestContext(ctx)
		if err != nil {
			return "", fmt.Errorf("slack auth.test: %w", err)
		}
		return fmt.Sprintf("slack bot %s in %s", resp.User, resp.Team), nil
	case "discord":
		session, err := discordgo.New("Bot " + cfg.Discord.Token)
		if err != nil {
			return "", fmt.Errorf("discord session: %w", err)
		}
		me, err := session.User("@me", discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("discord users/@me: %w", err)
		}
		return "discord bot " + me.Username, nil
	default:
		return cfg.Transport + " needs no credentials", nil
	}
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
