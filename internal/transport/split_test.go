package transport

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessage_Short(t *testing.T) {
	chunks := splitMessage("short message", 100)
	if len(chunks) != 1 || chunks[0] != "short message" {
		t.Errorf("unexpected chunks: %v", chunks)
	}
}

func TestSplitMessage_PrefersNewline(t *testing.T) {
	msg := strings.Repeat("a", 70) + "\n" + strings.Repeat("b", 70)
	chunks := splitMessage(msg, 100)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != strings.Repeat("a", 70)+"\n" {
		t.Errorf("expected cut after newline, got %q", chunks[0])
	}
	if strings.Join(chunks, "") != msg {
		t.Error("chunks do not reassemble the message")
	}
}

func TestSplitMessage_KeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("😊", 30) // 4 bytes each
	chunks := splitMessage(msg, 10)
	for _, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %q is not valid UTF-8", c)
		}
		if len(c) > 10 {
			t.Fatalf("chunk exceeds max length: %d", len(c))
		}
	}
	if strings.Join(chunks, "") != msg {
		t.Error("chunks do not reassemble the message")
	}
}
