package restart

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/botgw/internal/protocol"
	"github.com/mattjoyce/botgw/internal/storage"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "restart.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h, err := New(context.Background(), db)
	require.NoError(t, err)
	h.seedFn = func() int64 { return 42 }
	return h
}

func privateContext(userID string) *protocol.Context {
	return &protocol.Context{Source: protocol.SourcePrivate, UserID: protocol.ID(userID)}
}

func textOf(t *testing.T, resp []protocol.Response) string {
	t.Helper()
	require.Len(t, resp, 1)
	if resp[0].IsRaw() {
		var b strings.Builder
		nodes := resp[0].Raw["messages"].([]map[string]any)
		for _, node := range nodes {
			content := node["data"].(map[string]any)["content"].([]protocol.Segment)
			b.WriteString(content[0].Data["text"].(string))
			b.WriteString("\n")
		}
		return b.String()
	}
	return resp[0].Text
}

func TestOfferIsDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	first := offerTalents(42)
	second := offerTalents(42)
	require.Equal(t, first, second, "the same seed must rebuild the same offer")
	assert.Len(t, first, talentOffer)

	seen := map[int]bool{}
	for _, talent := range first {
		assert.False(t, seen[talent.ID], "offer repeats talent %d", talent.ID)
		seen[talent.ID] = true
	}
}

func TestStartDealsTalentOffer(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	resp, err := h.Handle(context.Background(), "restart", nil, privateContext("100"))
	require.NoError(t, err)

	text := textOf(t, resp)
	assert.Contains(t, text, "pick 3 talents")
	for i := 1; i <= talentOffer; i++ {
		assert.Contains(t, text, fmt.Sprintf("%d. ", i))
	}
}

func TestPickWithoutSessionGuides(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	resp, err := h.Handle(context.Background(), "restart", []string{"pick", "1", "2", "3"}, privateContext("100"))
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "no talent offer is waiting")
}

func TestPickValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", []string{"pick"}, "give pick 3 numbers"},
		{"not integers", []string{"pick", "a", "b", "c"}, "must be integers"},
		{"too few distinct", []string{"pick", "1", "1", "2"}, "exactly 3 distinct"},
		{"out of range", []string{"pick", "1", "2", "99"}, "out of range"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandler(t)
			mctx := privateContext("100")
			_, err := h.Handle(context.Background(), "restart", nil, mctx)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), "restart", tt.args, mctx)
			require.NoError(t, err)
			assert.Contains(t, textOf(t, resp), tt.want)
		})
	}
}

func TestFullRunClearsSession(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	mctx := privateContext("100")

	_, err := h.Handle(context.Background(), "restart", nil, mctx)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), "restart", []string{"pick", "1", "2", "3"}, mctx)
	require.NoError(t, err)
	picked := textOf(t, resp)
	assert.Contains(t, picked, "points to allocate")

	// The pool for this seed's first three options is known and fixed.
	offer := offerTalents(42)
	pool := pointPool(offer[:3])
	assert.Contains(t, picked, fmt.Sprintf("points to allocate: %d", pool))

	alloc := buildEvenAllocation(t, pool)
	resp, err = h.Handle(context.Background(), "restart", append([]string{"alloc"}, alloc...), mctx)
	require.NoError(t, err)
	life := textOf(t, resp)
	assert.Contains(t, life, "you were born")
	assert.Contains(t, life, "verdict:")
	assert.Contains(t, life, "inherited talents:")

	resp, err = h.Handle(context.Background(), "restart", []string{"status"}, mctx)
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "no life in progress")
}

// buildEvenAllocation spreads pool across the four attributes within the
// per-attribute cap.
func buildEvenAllocation(t *testing.T, pool int) []string {
	t.Helper()
	require.LessOrEqual(t, pool, maxPerAttribute*attributeCount, "pool exceeds what allocation can absorb")

	values := make([]int, attributeCount)
	for i := 0; pool > 0; i = (i + 1) % attributeCount {
		if values[i] < maxPerAttribute {
			values[i]++
			pool--
		}
	}
	out := make([]string, attributeCount)
	for i, v := range values {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func TestAllocateRejectsWrongTotal(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	mctx := privateContext("100")

	_, err := h.Handle(context.Background(), "restart", nil, mctx)
	require.NoError(t, err)
	_, err = h.Handle(context.Background(), "restart", []string{"pick", "1", "2", "3"}, mctx)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), "restart", []string{"alloc", "1", "1", "1", "1"}, mctx)
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "adjust and retry")

	// The session must survive a rejected allocation.
	resp, err = h.Handle(context.Background(), "restart", []string{"status"}, mctx)
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "point allocation")
}

func TestAllocateBeforePickGuides(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	mctx := privateContext("100")
	_, err := h.Handle(context.Background(), "restart", nil, mctx)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), "restart", []string{"alloc", "5", "5", "5", "5"}, mctx)
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "pick your talents")
}

func TestCancelDiscardsSession(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	mctx := privateContext("100")
	_, err := h.Handle(context.Background(), "restart", nil, mctx)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), "restart", []string{"end"}, mctx)
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "discarded")

	resp, err = h.Handle(context.Background(), "restart", []string{"end"}, mctx)
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "nothing to cancel")
}

func TestRandomRunLeavesNoSession(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	mctx := privateContext("100")

	resp, err := h.Handle(context.Background(), "restart", []string{"random"}, mctx)
	require.NoError(t, err)
	text := textOf(t, resp)
	assert.Contains(t, text, "random talents:")
	assert.Contains(t, text, "verdict:")

	resp, err = h.Handle(context.Background(), "restart", []string{"status"}, mctx)
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "no life in progress")
}

func TestSessionsAreScopedPerChat(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	private := privateContext("100")
	group := &protocol.Context{Source: protocol.SourceGroup, GroupID: "5", UserID: "100"}

	_, err := h.Handle(context.Background(), "restart", nil, private)
	require.NoError(t, err)

	// The same sender in a group chat has no session there.
	resp, err := h.Handle(context.Background(), "restart", []string{"status"}, group)
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "no life in progress")
}

func TestParseAllocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tokens  []string
		want    Stats
		wantErr string
	}{
		{"shorthand", []string{"6", "6", "4", "4"}, Stats{Charm: 6, Intellect: 6, Body: 4, Wealth: 4}, ""},
		{"key value", []string{"charm=5", "intellect=7", "body=4", "wealth=4"}, Stats{Charm: 5, Intellect: 7, Body: 4, Wealth: 4}, ""},
		{"short keys", []string{"chr=1", "int=2", "str=3", "mny=4"}, Stats{Charm: 1, Intellect: 2, Body: 3, Wealth: 4}, ""},
		{"shorthand wrong arity", []string{"6", "6"}, Stats{}, "exactly 4 numbers"},
		{"not integer", []string{"a", "6", "4", "4"}, Stats{}, "must be integers"},
		{"over cap", []string{"11", "3", "3", "3"}, Stats{}, "between 0 and 10"},
		{"unknown key", []string{"style=5"}, Stats{}, "unknown attribute"},
		{"negative", []string{"charm=-1"}, Stats{}, "between 0 and 10"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, errText := parseAllocation(tt.tokens)
			if tt.wantErr != "" {
				assert.Contains(t, errText, tt.wantErr)
				return
			}
			require.Empty(t, errText)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplySwitchesToForwardWhenLong(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	group := &protocol.Context{Source: protocol.SourceGroup, GroupID: "5", UserID: "9"}

	short := h.reply(group, []string{"a", "b"})
	require.Len(t, short, 1)
	assert.False(t, short[0].IsRaw())
	assert.Equal(t, "a\nb", short[0].Text)

	lines := make([]string, 11)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	long := h.reply(group, lines)
	require.Len(t, long, 1)
	require.True(t, long[0].IsRaw())
	assert.Equal(t, "send_group_forward_msg", long[0].Action)

	nodes := long[0].Raw["messages"].([]map[string]any)
	assert.Len(t, nodes, 3, "11 lines at 4 per node is 3 nodes")
}

func TestDeclinesOtherCommands(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	resp, err := h.Handle(context.Background(), "hello", nil, privateContext("100"))
	require.NoError(t, err)
	assert.Nil(t, resp)
}
