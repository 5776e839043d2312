// Package protocol defines the wire types exchanged with the chat platform:
// inbound events pushed by the platform and the response descriptors handlers
// produce before they are translated into outbound API calls.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Post types and message scopes used by the platform.
const (
	PostTypeMessage = "message"

	SourceGroup   = "group"
	SourcePrivate = "private"
)

// ID is a platform identity. The platform is inconsistent about whether it
// sends identities as JSON numbers or strings, so ID accepts both and always
// compares as a string.
type ID string

// UnmarshalJSON accepts a JSON number, string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id string: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Segment is one element of a structured message: a typed unit such as a
// text run, an image reference or an at-mention.
type Segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Event is one inbound record pushed by the platform. It is immutable once
// received: created by the listener, consumed by exactly one worker, then
// discarded.
type Event struct {
	// EventID is assigned by the listener for log correlation. It is not
	// part of the platform payload.
	EventID string `json:"-"`

	PostType    string `json:"post_type"`
	MessageType string `json:"message_type"`
	UserID      ID     `json:"user_id"`
	GroupID     ID     `json:"group_id"`

	// RawMessage carries the plain-text rendering when the platform
	// provides one. Message carries the structured segment array; it is
	// kept raw because some platform configurations send a plain string
	// here instead.
	RawMessage string          `json:"raw_message"`
	Message    json.RawMessage `json:"message"`
}

// PlainText returns the textual content of the event: RawMessage when
// present, otherwise the concatenated text of all text segments in order.
// Non-text segments are ignored. A structured message that cannot be decoded
// as a segment array yields the empty string.
func (e *Event) PlainText() string {
	if e.RawMessage != "" {
		return e.RawMessage
	}
	if len(e.Message) == 0 {
		return ""
	}

	var segments []Segment
	if err := json.Unmarshal(e.Message, &segments); err != nil {
		return ""
	}

	var b strings.Builder
	for _, seg := range segments {
		if seg.Type != "text" {
			continue
		}
		if text, ok := seg.Data["text"].(string); ok {
			b.WriteString(text)
		}
	}
	return b.String()
}
