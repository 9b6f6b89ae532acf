package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"replybot/internal/config"
	"replybot/internal/transport"
)

func TestNewTransport_SelectsDriver(t *testing.T) {
	for _, name := range config.Transports {
		cfg := config.Defaults()
		cfg.Transport = name
		tr, err := newTransport(cfg, logger)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if tr.Name() != name {
			t.Errorf("expected %s transport, got %s", name, tr.Name())
		}
	}
}

func TestNewTransport_Unknown(t *testing.T) {
	cfg := config.Defaults()
	cfg.Transport = "irc"
	if _, err := newTransport(cfg, logger); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestServe_ConsoleConversation(t *testing.T) {
	var out bytes.Buffer
	console := transport.NewConsole(transport.ConsoleConfig{
		Logger: logger,
		In:     strings.NewReader("/start\nthanks\n/quit\n"),
		Out:    &out,
	})

	cfg := config.Defaults()
	cfg.Transport = "console"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := serve(ctx, cfg, console); err != nil {
		t.Fatalf("serve: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Welcome") {
		t.Errorf("expected welcome reply, got:\n%s", got)
	}
	if !strings.Contains(got, "You're welcome! Happy to help!") {
		t.Errorf("expected thanks reply, got:\n%s", got)
	}
}
