// Package command extracts addressed bot commands from message text.
package command

import "strings"

// Prefixes that mark a message as addressed to the bot. They are tried in
// order and the first match wins; the full-width form exists because some
// input methods swallow the ASCII dot.
var prefixes = []string{".bot", "。bot"}

// Parse determines whether text is an addressed command. It returns the
// lower-cased command name, the remaining whitespace-split params in their
// original casing, and ok=false when the text is not a command: no prefix
// matches case-insensitively, or nothing but whitespace follows the prefix.
// Parsing is idempotent; the same text always yields the same result.
func Parse(text string) (cmd string, params []string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", nil, false
	}

	lowered := strings.ToLower(trimmed)
	for _, prefix := range prefixes {
		if !strings.HasPrefix(lowered, prefix) {
			continue
		}
		rest := strings.TrimSpace(trimmed[len(prefix):])
		if rest == "" {
			return "", nil, false
		}
		fields := strings.Fields(rest)
		return strings.ToLower(fields[0]), fields[1:], true
	}
	return "", nil, false
}
