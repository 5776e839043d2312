// Package router ties the pipeline together: it gates raw events, parses
// the addressed command, authorizes the sender, and routes to the admin
// table or the plugin registry. One Process call handles one event start to
// finish on the calling worker; no state survives between events.
package router

import (
	"context"
	"log/slog"

	"github.com/mattjoyce/botgw/internal/access"
	"github.com/mattjoyce/botgw/internal/admin"
	"github.com/mattjoyce/botgw/internal/command"
	"github.com/mattjoyce/botgw/internal/config"
	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/protocol"
)

// AdminCommand is the reserved command name routed to the admin table.
const AdminCommand = "admin"

// PluginDispatcher walks an ordered handler set and returns the first
// claimed result, or nil when no handler claims the command.
type PluginDispatcher interface {
	Dispatch(ctx context.Context, cmd string, params []string, mctx *protocol.Context) []protocol.Response
}

// Sink receives the responses of a handled event for outbound delivery.
type Sink interface {
	Dispatch(ctx context.Context, responses []protocol.Response, mctx *protocol.Context)
}

// Router routes one inbound event through parse, authorize and dispatch.
type Router struct {
	cfg     *config.Config
	admin   *admin.Handler
	plugins PluginDispatcher
	sink    Sink
	logger  *slog.Logger
}

// New creates a Router. The plugin list behind plugins must be fixed before
// workers start; the router only ever reads it.
func New(cfg *config.Config, plugins PluginDispatcher, sink Sink) *Router {
	return &Router{
		cfg:     cfg,
		admin:   admin.New(),
		plugins: plugins,
		sink:    sink,
		logger:  log.WithComponent("router"),
	}
}

// Process runs the full per-event state machine. Every early return is a
// silent drop: logged, never answered, per the containment policy that only
// the unauthorized-admin case produces user-visible denial text.
func (r *Router) Process(ctx context.Context, ev *protocol.Event) {
	logger := r.logger.With("event_id", ev.EventID)

	if ev.PostType != protocol.PostTypeMessage {
		logger.Debug("ignoring non-message event", "post_type", ev.PostType)
		return
	}
	if ev.MessageType != protocol.SourceGroup && ev.MessageType != protocol.SourcePrivate {
		logger.Info("unsupported message type", "message_type", ev.MessageType)
		return
	}
	if ev.UserID == "" {
		logger.Error("event missing user_id")
		return
	}
	if ev.MessageType == protocol.SourceGroup && ev.GroupID == "" {
		logger.Error("group event missing group_id", "user_id", ev.UserID)
		return
	}

	cmd, params, ok := command.Parse(ev.PlainText())
	if !ok {
		logger.Debug("message is not an addressed command", "user_id", ev.UserID)
		return
	}

	mctx := &protocol.Context{
		Source:   ev.MessageType,
		UserID:   ev.UserID,
		Params:   params,
		Settings: r.cfg,
	}
	if ev.MessageType == protocol.SourceGroup {
		mctx.GroupID = ev.GroupID
	}

	if !r.authorized(mctx) {
		logger.Info("sender not authorized",
			"source", mctx.Source, "user_id", mctx.UserID, "group_id", mctx.GroupID)
		return
	}

	logger.Info("command parsed", "command", cmd, "params", params, "user_id", mctx.UserID)

	var responses []protocol.Response
	if cmd == AdminCommand {
		responses = r.routeAdmin(params, mctx, logger)
	} else {
		responses = r.plugins.Dispatch(ctx, cmd, params, mctx)
	}

	if len(responses) == 0 {
		logger.Debug("no responses generated", "command", cmd)
		return
	}
	r.sink.Dispatch(ctx, responses, mctx)
}

// authorized applies the scope rule list to the scope identity: the group
// for group messages, the sender for private ones.
func (r *Router) authorized(mctx *protocol.Context) bool {
	if mctx.Source == protocol.SourceGroup {
		return access.Allowed(r.cfg.Access.Group, mctx.GroupID.String())
	}
	return access.Allowed(r.cfg.Access.Private, mctx.UserID.String())
}

// routeAdmin gates the reserved command on super-admin membership. The
// denial is the one user-visible refusal in the system and is emitted here,
// bypassing the admin table.
func (r *Router) routeAdmin(params []string, mctx *protocol.Context, logger *slog.Logger) []protocol.Response {
	if !r.isSuperAdmin(mctx.UserID) {
		logger.Info("unauthorized admin attempt", "user_id", mctx.UserID)
		return []protocol.Response{mctx.TextReply("you are not authorized to use admin commands.")}
	}
	return r.admin.Handle(params, mctx)
}

func (r *Router) isSuperAdmin(userID protocol.ID) bool {
	for _, id := range r.cfg.Access.SuperAdmin {
		if id == userID.String() {
			return true
		}
	}
	return false
}
