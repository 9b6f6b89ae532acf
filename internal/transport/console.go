package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"replybot/internal/domain"
)

// ConsoleChatID is the conversation id used for every console update.
const ConsoleChatID = "console"

// Console implements domain.Transport on a terminal: each input line is one
// update and replies are printed to the output.
type Console struct {
	*Dispatcher

	in     io.Reader
	out    io.Writer
	user   domain.User
	prompt bool

	outMu sync.Mutex
	seq   int

	// readerDone is closed when the input goroutine of the last Run exits.
	readerDone chan struct{}
}

type ConsoleConfig struct {
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
	// User is the sender attached to every update. Defaults to $USER.
	User domain.User
	// Prompt prints "You> " before reading each line.
	Prompt bool
}

// NewConsole creates a console transport reading cfg.In and writing cfg.Out,
// defaulting to stdin and stdout.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.User.ID == "" {
		name := os.Getenv("USER")
		if name == "" {
			name = "user"
		}
		cfg.User = domain.User{ID: name, DisplayName: name, Username: name}
	}
	return &Console{
		Dispatcher: NewDispatcher(cfg.Logger.With("transport", "console")),
		in:         cfg.In,
		out:        cfg.Out,
		user:       cfg.User,
		prompt:     cfg.Prompt,
	}
}

func (c *Console) Name() string { return "console" }

// Run reads lines until EOF, "/quit", or ctx cancellation. The input
// goroutine stops once Run has returned; a read already blocked on the input
// ends with the next line or EOF.
func (c *Console) Run(ctx context.Context) error {
	c.printPrompt()

	done := make(chan struct{})
	defer close(done)

	lines := make(chan string)
	errCh := make(chan error, 1)
	c.readerDone = make(chan struct{})
	go func(readerDone chan struct{}) {
		defer close(readerDone)
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errCh <- scanner.Err()
	}(c.readerDone)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errCh:
					return err
				default:
					return nil
				}
			}

			line = strings.TrimSpace(line)
			switch line {
			case "":
				c.printPrompt()
				continue
			case "/quit", "/exit", "/q":
				return nil
			}

			c.seq++
			u := domain.Update{
				ID:        strconv.Itoa(c.seq),
				Platform:  "console",
				ChatID:    ConsoleChatID,
				Sender:    c.user,
				Text:      line,
				Timestamp: time.Now(),
			}
			if name, args, ok := domain.ParseCommand(line); ok {
				u.Command, u.Args = name, args
			}
			c.Dispatch(ctx, u)
			c.printPrompt()
		}
	}
}

func (c *Console) printPrompt() {
	if !c.prompt {
		return
	}
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprint(c.out, "You> ")
}

func (c *Console) Reply(ctx context.Context, chatID string, text string) error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, err := fmt.Fprintln(c.out, text)
	return err
}
