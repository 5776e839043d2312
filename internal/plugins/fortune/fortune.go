// Package fortune implements the daily-fortune handler. Each sender gets
// one random score per calendar day; the first draw is persisted and every
// later draw that day echoes it.
package fortune

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/protocol"
)

// bucket maps a score ceiling to its verdict text.
type bucket struct {
	ceiling int
	text    string
}

var buckets = []bucket{
	{20, "terrible luck!"},
	{40, "poor luck!"},
	{60, "so-so!"},
	{80, "good luck!"},
	{100, "great luck!"},
}

// Handler answers the "fortune" command from persisted per-day state.
type Handler struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// New creates the handler and ensures its table exists. The handler owns
// the draws table; nothing else touches it.
func New(ctx context.Context, db *sql.DB) (*Handler, error) {
	const schema = `CREATE TABLE IF NOT EXISTS fortune_draws (
  day     TEXT NOT NULL,
  user_id TEXT NOT NULL,
  score   INTEGER NOT NULL,
  PRIMARY KEY (day, user_id)
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("bootstrap fortune table: %w", err)
	}
	return &Handler{
		db:     db,
		logger: log.WithPlugin("fortune"),
		now:    time.Now,
	}, nil
}

func (h *Handler) Name() string { return "fortune" }

// Handle draws or re-reads today's score for the sender. Two workers racing
// on the same sender both settle on whichever insert won the primary key.
func (h *Handler) Handle(ctx context.Context, cmd string, _ []string, mctx *protocol.Context) ([]protocol.Response, error) {
	if cmd != "fortune" && cmd != "jrys" {
		return nil, nil
	}

	day := h.now().Format("2006-01-02")
	userID := mctx.UserID.String()

	score := rand.Intn(101)
	res, err := h.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO fortune_draws(day, user_id, score) VALUES(?, ?, ?);`,
		day, userID, score)
	if err != nil {
		return nil, fmt.Errorf("store draw: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("store draw: %w", err)
	}

	prefix := "today's fortune"
	if inserted == 0 {
		// Already drawn today; read the stored score back.
		prefix = "already drawn today"
		if err := h.db.QueryRowContext(ctx,
			`SELECT score FROM fortune_draws WHERE day = ? AND user_id = ?;`,
			day, userID).Scan(&score); err != nil {
			return nil, fmt.Errorf("load draw: %w", err)
		}
	}

	h.logger.Debug("fortune resolved", "user_id", userID, "score", score, "fresh", inserted == 1)
	text := fmt.Sprintf("%s: %d (%s)", prefix, score, verdict(score))
	return []protocol.Response{mctx.TextReply(text)}, nil
}

func verdict(score int) string {
	for _, b := range buckets {
		if score <= b.ceiling {
			return b.text
		}
	}
	return buckets[len(buckets)-1].text
}
