// Package share uploads a configured file to the requesting chat via the
// platform's file-upload actions. It exercises the raw descriptor path: the
// upload payload is platform-specific and passes through the translator
// untouched.
package share

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mattjoyce/botgw/internal/config"
	"github.com/mattjoyce/botgw/internal/protocol"
)

// Handler answers the "share" command.
type Handler struct {
	cfg config.ShareConfig
}

func New(cfg config.ShareConfig) *Handler { return &Handler{cfg: cfg} }

func (h *Handler) Name() string { return "share" }

// Handle builds an upload_group_file or upload_private_file raw payload for
// the configured file. A missing file is reported in chat; that still
// counts as handled.
func (h *Handler) Handle(_ context.Context, cmd string, _ []string, mctx *protocol.Context) ([]protocol.Response, error) {
	if cmd != "share" {
		return nil, nil
	}

	absPath, err := filepath.Abs(h.cfg.Path)
	if err != nil {
		return []protocol.Response{mctx.TextReply("shared file path is invalid.")}, nil
	}
	if _, err := os.Stat(absPath); err != nil {
		return []protocol.Response{mctx.TextReply("the shared file is currently unavailable.")}, nil
	}

	name := filepath.Base(absPath)
	if mctx.Source == protocol.SourceGroup {
		return []protocol.Response{{
			Action: "upload_group_file",
			Raw: map[string]any{
				"group_id": mctx.GroupID.String(),
				"file":     absPath,
				"name":     name,
			},
		}}, nil
	}
	return []protocol.Response{{
		Action: "upload_private_file",
		Raw: map[string]any{
			"user_id": mctx.UserID.String(),
			"file":    absPath,
			"name":    name,
		},
	}}, nil
}
