// Package admin implements the fixed table of privileged sub-commands.
// Unlike plugins the table is not extensible at runtime; membership in the
// super-admin list is checked by the router before Handle is reached.
package admin

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/protocol"
)

type subCommand func(params []string, mctx *protocol.Context) []protocol.Response

// Handler processes commands reserved for super administrators.
type Handler struct {
	commands map[string]subCommand
	logger   *slog.Logger
}

// New creates the admin handler with its fixed command table.
func New() *Handler {
	h := &Handler{logger: log.WithComponent("admin")}
	h.commands = map[string]subCommand{
		"ping":   h.ping,
		"status": h.status,
	}
	return h
}

// Handle resolves the sub-command (params[0]) and runs it. Missing or
// unknown sub-commands produce help-style text rather than failing.
func (h *Handler) Handle(params []string, mctx *protocol.Context) []protocol.Response {
	if len(params) == 0 {
		h.logger.Warn("admin command invoked without sub-command", "user_id", mctx.UserID)
		return []protocol.Response{mctx.TextReply("missing admin sub-command. try ping/status.")}
	}

	name := strings.ToLower(params[0])
	cmd, ok := h.commands[name]
	if !ok {
		cmd = h.unknown
	}
	h.logger.Info("admin sub-command resolved", "sub_command", name, "user_id", mctx.UserID)
	return cmd(params, mctx)
}

func (h *Handler) ping(_ []string, mctx *protocol.Context) []protocol.Response {
	return []protocol.Response{mctx.TextReply("pong")}
}

func (h *Handler) status(_ []string, mctx *protocol.Context) []protocol.Response {
	details := fmt.Sprintf("source=%s group=%s user=%s", mctx.Source, mctx.GroupID, mctx.UserID)
	return []protocol.Response{mctx.TextReply("bot online (" + details + ")")}
}

func (h *Handler) unknown(params []string, mctx *protocol.Context) []protocol.Response {
	return []protocol.Response{mctx.TextReply(
		fmt.Sprintf("unknown admin command: %s. try ping/status.", params[0]))}
}
