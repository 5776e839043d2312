package protocol

import (
	"encoding/json"
	"testing"
)

func TestIDUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want ID
	}{
		{"number", `12345`, "12345"},
		{"string", `"12345"`, "12345"},
		{"large number stays exact", `9007199254740993`, "9007199254740993"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var id ID
			if err := json.Unmarshal([]byte(tt.data), &id); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.data, err)
			}
			if id != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.data, id, tt.want)
			}
		})
	}
}

func TestEventDecode(t *testing.T) {
	t.Parallel()

	raw := `{
		"post_type": "message",
		"message_type": "group",
		"user_id": 100,
		"group_id": "5",
		"raw_message": ".bot hello"
	}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ev.PostType != "message" || ev.MessageType != "group" {
		t.Errorf("unexpected event gates: %+v", ev)
	}
	if ev.UserID != "100" || ev.GroupID != "5" {
		t.Errorf("identities = (%q, %q), want (100, 5)", ev.UserID, ev.GroupID)
	}
	if ev.PlainText() != ".bot hello" {
		t.Errorf("PlainText() = %q", ev.PlainText())
	}
}

func TestEventPlainTextFromSegments(t *testing.T) {
	t.Parallel()

	raw := `{
		"post_type": "message",
		"message_type": "private",
		"user_id": 1,
		"message": [
			{"type": "at", "data": {"qq": "42"}},
			{"type": "text", "data": {"text": ".bot "}},
			{"type": "image", "data": {"file": "a.png"}},
			{"type": "text", "data": {"text": "hello world"}}
		]
	}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := ev.PlainText(); got != ".bot hello world" {
		t.Errorf("PlainText() = %q, want %q", got, ".bot hello world")
	}
}

func TestEventPlainTextStringMessage(t *testing.T) {
	t.Parallel()

	// Some platform configurations send message as a plain string; without
	// raw_message there is nothing to reconstruct.
	var ev Event
	if err := json.Unmarshal([]byte(`{"user_id": 1, "message": ".bot hi"}`), &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := ev.PlainText(); got != "" {
		t.Errorf("PlainText() = %q, want empty", got)
	}
}

func TestContextTextReply(t *testing.T) {
	t.Parallel()

	group := &Context{Source: SourceGroup, GroupID: "5", UserID: "9"}
	if r := group.TextReply("hi"); r.Action != ActionSendGroupMsg || r.Target != "5" || r.Text != "hi" {
		t.Errorf("group TextReply = %+v", r)
	}

	private := &Context{Source: SourcePrivate, UserID: "9"}
	if r := private.TextReply("hi"); r.Action != ActionSendPrivateMsg || r.Target != "9" {
		t.Errorf("private TextReply = %+v", r)
	}
}
