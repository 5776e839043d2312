// Package hello is the smallest bundled handler; it mostly exists so a
// fresh deployment can prove the pipeline end to end.
package hello

import (
	"context"
	"strings"

	"github.com/mattjoyce/botgw/internal/protocol"
)

// Handler answers the "hello" command.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "hello" }

// Handle greets the caller. ".bot hello world too!" gets the canonical
// answer; anything else greets whatever was said.
func (h *Handler) Handle(_ context.Context, cmd string, params []string, mctx *protocol.Context) ([]protocol.Response, error) {
	if cmd != "hello" {
		return nil, nil
	}

	var text string
	if len(params) >= 2 && strings.EqualFold(params[0], "world") && strings.EqualFold(params[1], "too!") {
		text = "hello world!"
	} else if len(params) == 0 {
		text = "hello there!"
	} else {
		text = "hello " + strings.Join(params, " ") + "!"
	}

	return []protocol.Response{mctx.TextReply(text)}, nil
}
