package transport

import (
	"strings"
	"unicode/utf8"
)

// splitMessage splits a message into chunks that fit within maxLen bytes,
// preferring to cut on a newline in the second half of a chunk. Cuts never
// fall inside a UTF-8 sequence.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		} else {
			for cut > 1 && !utf8.RuneStart(msg[cut]) {
				cut--
			}
		}

		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}
