package protocol

// Action names understood by the outbound platform API.
const (
	ActionSendPrivateMsg = "send_private_msg"
	ActionSendGroupMsg   = "send_group_msg"
	ActionSendMsg        = "send_msg"
)

// Response is the abstract descriptor a handler produces for one outbound
// action. It is a tagged variant:
//
//   - text form: Action + Text, with an optional explicit Target. The
//     translator synthesizes the platform payload and falls back to the
//     originating context for a missing target.
//   - raw form: Action + Raw. The payload is opaque to the core and is
//     forwarded verbatim (forwarded multi-node messages, file uploads).
//
// A handler invocation yields an ordered slice of responses; slice order is
// send order.
type Response struct {
	Action string
	Target ID
	Text   string
	Raw    map[string]any
}

// IsRaw reports whether the response carries an opaque payload that must be
// forwarded without translation.
func (r Response) IsRaw() bool { return r.Raw != nil }

// TextSegment builds the single-segment message array used by text payloads.
func TextSegment(text string) []Segment {
	return []Segment{{Type: "text", Data: map[string]any{"text": text}}}
}
