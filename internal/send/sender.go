// Package send translates abstract response descriptors into concrete
// platform API calls. Delivery is best effort: every failure is logged and
// contained, nothing is retried, and one bad descriptor never blocks the
// rest of its batch.
package send

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mattjoyce/botgw/internal/config"
	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/protocol"
)

// requestTimeout bounds each outbound call so a slow platform API cannot
// stall a worker indefinitely.
const requestTimeout = 10 * time.Second

// Sender posts actions to the platform's HTTP API, one POST per descriptor
// at {base}/{action}.
type Sender struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a Sender targeting the configured send host/port.
func New(cfg *config.Config) *Sender {
	return NewWithBaseURL(cfg.SendBaseURL())
}

// NewWithBaseURL creates a Sender for an explicit base URL.
func NewWithBaseURL(baseURL string) *Sender {
	return &Sender{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  log.WithComponent("send"),
	}
}

// Dispatch sends each descriptor as an independent HTTP call, in slice
// order. Raw payloads are forwarded verbatim; text descriptors get their
// payload synthesized from the descriptor and the originating context.
func (s *Sender) Dispatch(ctx context.Context, responses []protocol.Response, mctx *protocol.Context) {
	for _, resp := range responses {
		if resp.Action == "" {
			s.logger.Error("response descriptor missing action")
			continue
		}

		if resp.IsRaw() {
			s.post(ctx, resp.Action, resp.Raw)
			continue
		}

		payload, err := buildTextPayload(resp, mctx)
		if err != nil {
			s.logger.Error("cannot build payload", "action", resp.Action, "error", err)
			continue
		}
		s.post(ctx, resp.Action, payload)
	}
}

// buildTextPayload synthesizes the platform payload for the three supported
// text actions. The descriptor target wins; the context fills the gap.
func buildTextPayload(resp protocol.Response, mctx *protocol.Context) (map[string]any, error) {
	message := protocol.TextSegment(resp.Text)

	switch resp.Action {
	case protocol.ActionSendPrivateMsg:
		target := resp.Target
		if target == "" {
			target = mctx.UserID
		}
		if target == "" {
			return nil, fmt.Errorf("missing user id for private message")
		}
		return map[string]any{"user_id": target.String(), "message": message}, nil

	case protocol.ActionSendGroupMsg:
		target := resp.Target
		if target == "" {
			target = mctx.GroupID
		}
		if target == "" {
			return nil, fmt.Errorf("missing group id for group message")
		}
		return map[string]any{"group_id": target.String(), "message": message}, nil

	case protocol.ActionSendMsg:
		source := mctx.Source
		if source == "" {
			source = protocol.SourcePrivate
		}
		payload := map[string]any{"message_type": source, "message": message}
		target := resp.Target
		if source == protocol.SourceGroup {
			if target == "" {
				target = mctx.GroupID
			}
			if target == "" {
				return nil, fmt.Errorf("missing group id for send_msg")
			}
			payload["group_id"] = target.String()
		} else {
			if target == "" {
				target = mctx.UserID
			}
			if target == "" {
				return nil, fmt.Errorf("missing user id for send_msg")
			}
			payload["user_id"] = target.String()
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unsupported action %q for automatic payload creation", resp.Action)
	}
}

// post performs one outbound call. Network errors and non-2xx statuses are
// logged and swallowed.
func (s *Sender) post(ctx context.Context, action string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal payload", "action", action, "error", err)
		return
	}

	url := s.baseURL + "/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("build request", "action", action, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Debug("posting action", "action", action, "bytes", len(body))
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("action delivery failed", "action", action, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Error("action rejected", "action", action, "status", resp.StatusCode)
		return
	}
	s.logger.Info("action sent", "action", action, "status", resp.StatusCode)
}
