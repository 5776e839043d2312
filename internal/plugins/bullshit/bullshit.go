// Package bullshit generates long-winded filler articles on a topic from a
// sentence-template corpus, delivered as a forwarded multi-node message so
// the wall of text collapses in chat clients.
package bullshit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/mattjoyce/botgw/internal/config"
	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/protocol"
)

// Branch thresholds for the article loop, out of 100.
const (
	paragraphThreshold = 5
	quoteThreshold     = 20
)

var aliases = map[string]bool{
	"bullshit": true,
	"gpb":      true,
}

// corpus is the template data: filler sentences, quotable sentences with
// "a"/"b" placeholders, and the phrases substituted into them.
type corpus struct {
	Bosh   []string `json:"bosh"`
	Famous []string `json:"famous"`
	Before []string `json:"before"`
	After  []string `json:"after"`
}

// Handler answers the "bullshit" command. The corpus is loaded lazily
// exactly once and kept as instance state.
type Handler struct {
	cfg    config.BullshitConfig
	logger *slog.Logger

	loadOnce sync.Once
	corpus   *corpus
	loadErr  error

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates the handler. The corpus file is not touched until the first
// invocation needs it.
func New(cfg config.BullshitConfig) *Handler {
	return &Handler{
		cfg:    cfg,
		logger: log.WithPlugin("bullshit"),
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
}

func (h *Handler) Name() string { return "bullshit" }

// Handle generates an article about the joined params. A missing topic or a
// broken corpus answers with guidance text; both count as handled.
func (h *Handler) Handle(_ context.Context, cmd string, params []string, mctx *protocol.Context) ([]protocol.Response, error) {
	if !aliases[cmd] {
		return nil, nil
	}

	if len(params) == 0 {
		return []protocol.Response{mctx.TextReply("give me a topic, e.g. `.bot bullshit the meaning of life`.")}, nil
	}

	h.loadOnce.Do(h.loadCorpus)
	if h.loadErr != nil {
		h.logger.Error("corpus unavailable", "path", h.cfg.CorpusPath, "error", h.loadErr)
		return []protocol.Response{mctx.TextReply("template corpus unavailable, check plugins.bullshit.corpus_path.")}, nil
	}

	topic := strings.Join(params, " ")
	article := h.buildArticle(topic)
	return h.forwardResponse(mctx, splitParagraphs(article)), nil
}

func (h *Handler) loadCorpus() {
	data, err := os.ReadFile(h.cfg.CorpusPath)
	if err != nil {
		h.loadErr = fmt.Errorf("read corpus: %w", err)
		return
	}
	var c corpus
	if err := json.Unmarshal(data, &c); err != nil {
		h.loadErr = fmt.Errorf("parse corpus: %w", err)
		return
	}
	if len(c.Bosh) == 0 {
		h.loadErr = fmt.Errorf("corpus has no filler sentences")
		return
	}
	h.corpus = &c
}

// buildArticle strings random corpus fragments together until the length
// budget is spent, then substitutes the topic for the "x" placeholder.
func (h *Handler) buildArticle(topic string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	for b.Len() < h.cfg.MaxLength {
		branch := h.rng.Intn(100)
		switch {
		case branch < paragraphThreshold:
			b.WriteString(".\n")
		case branch < quoteThreshold:
			b.WriteString(h.famousQuote())
		default:
			b.WriteString(h.corpus.Bosh[h.rng.Intn(len(h.corpus.Bosh))])
		}
	}
	return strings.ReplaceAll(b.String(), "x", topic)
}

// famousQuote fills the "a"/"b" placeholders of a quotable sentence with a
// random lead-in and follow-up.
func (h *Handler) famousQuote() string {
	if len(h.corpus.Famous) == 0 {
		return ""
	}
	sentence := h.corpus.Famous[h.rng.Intn(len(h.corpus.Famous))]
	before := "once said"
	if len(h.corpus.Before) > 0 {
		before = h.corpus.Before[h.rng.Intn(len(h.corpus.Before))]
	}
	after := "that inspired me."
	if len(h.corpus.After) > 0 {
		after = h.corpus.After[h.rng.Intn(len(h.corpus.After))]
	}
	sentence = strings.Replace(sentence, "a", before, 1)
	return strings.Replace(sentence, "b", after, 1)
}

func splitParagraphs(article string) []string {
	var paragraphs []string
	for _, part := range strings.Split(article, "\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) == 0 {
		return []string{article}
	}
	return paragraphs
}

// forwardResponse wraps the paragraphs into a raw forward-message payload,
// one node per paragraph.
func (h *Handler) forwardResponse(mctx *protocol.Context, paragraphs []string) []protocol.Response {
	nodes := make([]map[string]any, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		nodes = append(nodes, map[string]any{
			"type": "node",
			"data": map[string]any{
				"user_id":  mctx.UserID.String(),
				"nickname": "bullshit generator",
				"content":  protocol.TextSegment(paragraph),
			},
		})
	}

	if mctx.Source == protocol.SourceGroup {
		return []protocol.Response{{
			Action: "send_group_forward_msg",
			Raw:    map[string]any{"group_id": mctx.GroupID.String(), "messages": nodes},
		}}
	}
	return []protocol.Response{{
		Action: "send_private_forward_msg",
		Raw:    map[string]any{"user_id": mctx.UserID.String(), "messages": nodes},
	}}
}
