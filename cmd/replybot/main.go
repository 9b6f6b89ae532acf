package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"replybot/internal/bot"
	"replybot/internal/config"
	"replybot/internal/domain"
	"replybot/internal/logging"
	"replybot/internal/server"
	"replybot/internal/transport"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     = slog.Default()
	configPath string // overridable via --config flag
	envFile    string
)

func main() {
	root := &cobra.Command{
		Use:   "replybot",
		Short: "ReplyBot: a rule-based auto-reply chat bot",
		Long:  "ReplyBot answers /start, /help and free text with canned replies on Telegram, Slack, Discord or the terminal.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ~/.replybot/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(runCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return config.ExpandPath(configPath)
	}
	return config.DefaultConfigPath()
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot on the configured transport",
		Long:  "Connects to the configured transport and replies to messages until interrupted. Press Ctrl+C to stop.",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", cfgPath, err)
	}

	logger, err = logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := newTransport(cfg, logger)
	if err != nil {
		return err
	}
	return serve(ctx, cfg, t)
}

// serve registers the bot on t and runs it, plus the ops server when enabled,
// until ctx is cancelled or the transport fails.
func serve(ctx context.Context, cfg *config.Config, t domain.Transport) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bot.New(bot.Config{Name: cfg.Bot.Name, Logger: logger}).Register(t)

	httpDone := make(chan error, 1)
	if cfg.HTTP.Enabled {
		srv := server.New(cfg.HTTP.Addr, logger)
		go func() {
			err := srv.Run(ctx)
			if err != nil {
				logger.Error("ops server failed", "err", err)
			}
			httpDone <- err
		}()
	} else {
		close(httpDone)
	}

	logger.Info("bot starting", "transport", t.Name(), "name", cfg.Bot.Name, "version", version)
	err := t.Run(ctx)
	cancel()
	<-httpDone

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s transport: %w", t.Name(), err)
	}
	logger.Info("bot stopped")
	return nil
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot in the terminal",
		Long:  "Runs the bot on the console transport. Type /quit to exit.",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not loaded, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	cfg.Transport = "console"
	cfg.HTTP.Enabled = false

	// Replies go to stdout; keep logs out of the way on stderr.
	level := "warn"
	if cfg.Log.Level == "debug" {
		level = "debug"
	}
	logger, err = logging.New(os.Stderr, level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("%s (console). Type /help for commands, /quit to exit.\n", cfg.Bot.Name)
	console := transport.NewConsole(transport.ConsoleConfig{Logger: logger, Prompt: true})
	return serve(ctx, cfg, console)
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and create configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
			if err := config.Defaults().Save(cfgPath); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\nSet telegram.token (or TELEGRAM_BOT_TOKEN) and run 'replybot doctor'.\n", cfgPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out, err := config.Render(cfg)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("replybot %s\n", version)
		},
	}
}
