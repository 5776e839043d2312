// Package restart implements the multi-step life-restart game: start deals
// a talent offer, pick locks three talents, alloc spends the point pool and
// runs the whole life, random does all of it in one go. A session lives
// between steps, keyed by chat scope and sender, and is persisted so a
// process restart does not eat anyone's half-chosen life.
package restart

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/protocol"
)

// Session stages.
const (
	stageTalent   = "talent"
	stageAllocate = "allocate"
)

// Attribute limits, mirrored in the user-facing guidance.
const (
	maxPerAttribute = 10
	attributeCount  = 4
)

// forwardThreshold is the line count above which the reply switches to a
// forwarded multi-node message; linesPerNode sizes the nodes.
const (
	forwardThreshold = 10
	linesPerNode     = 4
)

var subAliases = map[string]string{
	"start": "start", "begin": "start",
	"pick": "pick", "choose": "pick",
	"alloc": "alloc", "allocate": "alloc", "attrs": "alloc", "points": "alloc",
	"status": "status", "state": "status",
	"end": "end", "cancel": "end", "stop": "end",
	"random": "random", "auto": "random",
}

// attrAliases maps user spellings to the canonical attribute order:
// charm, intellect, body, wealth.
var attrAliases = map[string]int{
	"chr": 0, "charm": 0, "looks": 0,
	"int": 1, "intellect": 1, "mind": 1,
	"str": 2, "body": 2, "constitution": 2,
	"mny": 3, "wealth": 3, "money": 3,
}

var attrOrder = [attributeCount]string{"charm", "intellect", "body", "wealth"}

// session is one in-flight run between steps. Options are not stored; the
// seed regenerates the identical offer on every step.
type session struct {
	Seed     int64  `json:"seed"`
	Stage    string `json:"stage"`
	Selected []int  `json:"selected"`
}

// Handler answers the "restart" command.
type Handler struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	seedFn func() int64
}

// New creates the handler and ensures its session table exists.
func New(ctx context.Context, db *sql.DB) (*Handler, error) {
	const schema = `CREATE TABLE IF NOT EXISTS restart_sessions (
  session_key TEXT PRIMARY KEY,
  state       TEXT NOT NULL
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("bootstrap restart table: %w", err)
	}
	return &Handler{
		db:     db,
		logger: log.WithPlugin("restart"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		seedFn: func() int64 { return time.Now().UnixNano() },
	}, nil
}

func (h *Handler) Name() string { return "restart" }

// Handle routes the sub-command. An unrecognized sub-command starts over,
// so a mistyped step never strands a player.
func (h *Handler) Handle(ctx context.Context, cmd string, params []string, mctx *protocol.Context) ([]protocol.Response, error) {
	if cmd != "restart" && cmd != "liferestart" {
		return nil, nil
	}

	sub := "start"
	if len(params) > 0 {
		if canonical, ok := subAliases[strings.ToLower(params[0])]; ok {
			sub = canonical
		}
	}

	switch sub {
	case "pick":
		return h.handlePick(ctx, params[1:], mctx)
	case "alloc":
		return h.handleAllocate(ctx, params[1:], mctx)
	case "random":
		return h.handleRandom(ctx, mctx)
	case "status":
		return h.handleStatus(ctx, mctx)
	case "end":
		return h.handleCancel(ctx, mctx)
	default:
		return h.handleStart(ctx, mctx)
	}
}

func (h *Handler) handleStart(ctx context.Context, mctx *protocol.Context) ([]protocol.Response, error) {
	seed := h.seedFn()
	s := &session{Seed: seed, Stage: stageTalent}
	if err := h.saveSession(ctx, sessionKey(mctx), s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	// The offer is always a single plain message; only life logs use the
	// forward form.
	return []protocol.Response{mctx.TextReply(strings.Join(describeOffer(offerTalents(seed)), "\n"))}, nil
}

func (h *Handler) handlePick(ctx context.Context, args []string, mctx *protocol.Context) ([]protocol.Response, error) {
	key := sessionKey(mctx)
	s, err := h.loadSession(ctx, key)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Stage != stageTalent {
		return []protocol.Response{mctx.TextReply("no talent offer is waiting; `.bot restart` deals a new one.")}, nil
	}
	if len(args) == 0 {
		return []protocol.Response{mctx.TextReply("give pick 3 numbers, e.g. `.bot restart pick 1 2 3`.")}, nil
	}

	indexes := make(map[int]bool)
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return []protocol.Response{mctx.TextReply("talent numbers must be integers.")}, nil
		}
		indexes[n] = true
	}
	if len(indexes) != 3 {
		return []protocol.Response{mctx.TextReply("pick exactly 3 distinct talents.")}, nil
	}

	offer := offerTalents(s.Seed)
	var selected []Talent
	var selectedIDs []int
	for n := range indexes {
		if n < 1 || n > len(offer) {
			return []protocol.Response{mctx.TextReply("a talent number is out of range, check the offer again.")}, nil
		}
	}
	// Deterministic order for the confirmation text.
	for i, t := range offer {
		if indexes[i+1] {
			selected = append(selected, t)
			selectedIDs = append(selectedIDs, t.ID)
		}
	}

	s.Selected = selectedIDs
	s.Stage = stageAllocate
	if err := h.saveSession(ctx, key, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	pool := pointPool(selected)
	msg := fmt.Sprintf("talents locked in: %s\n"+
		"points to allocate: %d, at most %d per attribute.\n"+
		"spend them with `.bot restart alloc 6 6 4 4` or `.bot restart alloc charm=6 intellect=6 body=4 wealth=4`.",
		talentNames(selected), pool, maxPerAttribute)
	return []protocol.Response{mctx.TextReply(msg)}, nil
}

func (h *Handler) handleAllocate(ctx context.Context, args []string, mctx *protocol.Context) ([]protocol.Response, error) {
	key := sessionKey(mctx)
	s, err := h.loadSession(ctx, key)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Stage != stageAllocate {
		return []protocol.Response{mctx.TextReply("pick your talents before allocating points.")}, nil
	}
	if len(args) == 0 {
		return []protocol.Response{mctx.TextReply("give an allocation, e.g. `.bot restart alloc 6 6 4 4` or `.bot restart alloc charm=5 intellect=5 body=5 wealth=5`.")}, nil
	}

	talents, err := talentsByID(s.Seed, s.Selected)
	if err != nil {
		h.logger.Error("session no longer matches its seed", "key", key, "error", err)
		_ = h.deleteSession(ctx, key)
		return []protocol.Response{mctx.TextReply("that session went stale; `.bot restart` starts a fresh one.")}, nil
	}

	alloc, errText := parseAllocation(args)
	if errText != "" {
		return []protocol.Response{mctx.TextReply(errText)}, nil
	}

	pool := pointPool(talents)
	spent := alloc.Charm + alloc.Intellect + alloc.Body + alloc.Wealth
	if spent != pool {
		return []protocol.Response{mctx.TextReply(fmt.Sprintf("you have %d points but allocated %d; adjust and retry.", pool, spent))}, nil
	}

	logs := simulate(s.Seed, talents, alloc)
	logs = append(logs, fmt.Sprintf("inherited talents: %s", talentNames(talents)))
	logs = append(logs, "this life has ended. `.bot restart` to live again.")

	if err := h.deleteSession(ctx, key); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}
	return h.reply(mctx, logs), nil
}

func (h *Handler) handleRandom(ctx context.Context, mctx *protocol.Context) ([]protocol.Response, error) {
	seed := h.seedFn()
	offer := offerTalents(seed)

	h.mu.Lock()
	picks := h.rng.Perm(len(offer))[:3]
	h.mu.Unlock()

	var talents []Talent
	for _, i := range picks {
		talents = append(talents, offer[i])
	}

	alloc := h.randomAllocation(pointPool(talents))
	logs := []string{
		fmt.Sprintf("random talents: %s", talentNames(talents)),
		fmt.Sprintf("random allocation: charm %d, intellect %d, body %d, wealth %d",
			alloc.Charm, alloc.Intellect, alloc.Body, alloc.Wealth),
	}
	logs = append(logs, simulate(seed, talents, alloc)...)
	logs = append(logs, "this life has ended. `.bot restart` to live again.")
	return h.reply(mctx, logs), nil
}

func (h *Handler) handleStatus(ctx context.Context, mctx *protocol.Context) ([]protocol.Response, error) {
	s, err := h.loadSession(ctx, sessionKey(mctx))
	if err != nil {
		return nil, err
	}
	switch {
	case s == nil:
		return []protocol.Response{mctx.TextReply("no life in progress; `.bot restart` starts one.")}, nil
	case s.Stage == stageTalent:
		return []protocol.Response{mctx.TextReply("waiting on your talent picks; use `.bot restart pick ...`.")}, nil
	case s.Stage == stageAllocate:
		return []protocol.Response{mctx.TextReply("waiting on your point allocation; use `.bot restart alloc ...`.")}, nil
	default:
		return []protocol.Response{mctx.TextReply("this session is in a strange place; `.bot restart` resets it.")}, nil
	}
}

func (h *Handler) handleCancel(ctx context.Context, mctx *protocol.Context) ([]protocol.Response, error) {
	key := sessionKey(mctx)
	s, err := h.loadSession(ctx, key)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return []protocol.Response{mctx.TextReply("nothing to cancel.")}, nil
	}
	if err := h.deleteSession(ctx, key); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}
	return []protocol.Response{mctx.TextReply("your life in progress has been discarded.")}, nil
}

// parseAllocation accepts either four bare numbers in attribute order or
// key=value pairs; mixing the two forms is rejected.
func parseAllocation(tokens []string) (Stats, string) {
	var values [attributeCount]int

	bare := true
	for _, token := range tokens {
		if strings.Contains(token, "=") {
			bare = false
			break
		}
	}

	if bare {
		if len(tokens) != attributeCount {
			return Stats{}, "shorthand form needs exactly 4 numbers, e.g. `6 6 4 4`."
		}
		for i, token := range tokens {
			n, err := strconv.Atoi(token)
			if err != nil {
				return Stats{}, "attribute values must be integers."
			}
			if n < 0 || n > maxPerAttribute {
				return Stats{}, fmt.Sprintf("%s must be between 0 and %d.", attrOrder[i], maxPerAttribute)
			}
			values[i] = n
		}
		return Stats{Charm: values[0], Intellect: values[1], Body: values[2], Wealth: values[3]}, ""
	}

	for _, token := range tokens {
		key, value, found := strings.Cut(token, "=")
		if !found {
			return Stats{}, "use either four bare numbers or key=value pairs, not both."
		}
		idx, ok := attrAliases[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return Stats{}, fmt.Sprintf("unknown attribute: %s", key)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return Stats{}, fmt.Sprintf("attribute values must be integers: %s", value)
		}
		if n < 0 || n > maxPerAttribute {
			return Stats{}, fmt.Sprintf("%s must be between 0 and %d.", attrOrder[idx], maxPerAttribute)
		}
		values[idx] = n
	}
	return Stats{Charm: values[0], Intellect: values[1], Body: values[2], Wealth: values[3]}, ""
}

// randomAllocation spreads the pool one point at a time over attributes
// that still have headroom.
func (h *Handler) randomAllocation(pool int) Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	var values [attributeCount]int
	for remaining := pool; remaining > 0; remaining-- {
		var open []int
		for i, v := range values {
			if v < maxPerAttribute {
				open = append(open, i)
			}
		}
		if len(open) == 0 {
			break
		}
		values[open[h.rng.Intn(len(open))]]++
	}
	return Stats{Charm: values[0], Intellect: values[1], Body: values[2], Wealth: values[3]}
}

// reply joins short results into one text message and wraps long ones in a
// forwarded multi-node message so the life log collapses in chat clients.
func (h *Handler) reply(mctx *protocol.Context, lines []string) []protocol.Response {
	if len(lines) <= forwardThreshold {
		return []protocol.Response{mctx.TextReply(strings.Join(lines, "\n"))}
	}

	var nodes []map[string]any
	for start := 0; start < len(lines); start += linesPerNode {
		end := start + linesPerNode
		if end > len(lines) {
			end = len(lines)
		}
		nodes = append(nodes, map[string]any{
			"type": "node",
			"data": map[string]any{
				"user_id":  mctx.UserID.String(),
				"nickname": "life restart",
				"content":  protocol.TextSegment(strings.Join(lines[start:end], "\n")),
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

// sessionKey scopes sessions per sender, and per group for group chats, so
// the same person can run separate lives in separate rooms.
func sessionKey(mctx *protocol.Context) string {
	if mctx.Source == protocol.SourceGroup {
		return fmt.Sprintf("group:%s:%s", mctx.GroupID, mctx.UserID)
	}
	return fmt.Sprintf("private:%s", mctx.UserID)
}

func (h *Handler) loadSession(ctx context.Context, key string) (*session, error) {
	var state string
	err := h.db.QueryRowContext(ctx,
		`SELECT state FROM restart_sessions WHERE session_key = ?;`, key).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s session
	if err := json.Unmarshal([]byte(state), &s); err != nil {
		// A corrupt row is dropped rather than wedging the player forever.
		h.logger.Error("discarding corrupt session", "key", key, "error", err)
		_ = h.deleteSession(ctx, key)
		return nil, nil
	}
	return &s, nil
}

func (h *Handler) saveSession(ctx context.Context, key string, s *session) error {
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = h.db.ExecContext(ctx,
		`INSERT INTO restart_sessions(session_key, state) VALUES(?, ?)
		 ON CONFLICT(session_key) DO UPDATE SET state = excluded.state;`,
		key, string(state))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (h *Handler) deleteSession(ctx context.Context, key string) error {
	_, err := h.db.ExecContext(ctx,
		`DELETE FROM restart_sessions WHERE session_key = ?;`, key)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
