package protocol

import "github.com/mattjoyce/botgw/internal/config"

// Context is the per-event execution context handed to handlers. It is
// created by the router once an event passes its gates, owned exclusively by
// the worker processing that event, and never shared across events. Params
// is filled exactly once during parsing; nothing mutates the context after
// that.
type Context struct {
	// Source is the delivery scope, SourceGroup or SourcePrivate.
	Source string
	// GroupID is set iff Source is SourceGroup.
	GroupID ID
	// UserID is always non-empty; events without one never reach a handler.
	UserID ID
	// Params are the command arguments in original casing.
	Params []string
	// Settings is the shared read-only process configuration.
	Settings *config.Config
}

// ReplyTarget returns the scope identity replies should address: the group
// for group messages, the sender otherwise.
func (c *Context) ReplyTarget() ID {
	if c.Source == SourceGroup {
		return c.GroupID
	}
	return c.UserID
}

// TextReply builds the scope-correct text response: send_group_msg to the
// group for group messages, send_private_msg to the sender otherwise.
func (c *Context) TextReply(text string) Response {
	action := ActionSendPrivateMsg
	if c.Source == SourceGroup {
		action = ActionSendGroupMsg
	}
	return Response{Action: action, Target: c.ReplyTarget(), Text: text}
}
