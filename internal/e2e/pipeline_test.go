// Package e2e exercises the whole inbound-to-outbound pipeline: listener,
// queue, worker pool, router, plugin registry and sender, with the platform
// API stubbed by httptest.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mattjoyce/botgw/internal/config"
	"github.com/mattjoyce/botgw/internal/listen"
	"github.com/mattjoyce/botgw/internal/plugin"
	"github.com/mattjoyce/botgw/internal/plugins/hello"
	"github.com/mattjoyce/botgw/internal/queue"
	"github.com/mattjoyce/botgw/internal/router"
	"github.com/mattjoyce/botgw/internal/send"
	"github.com/mattjoyce/botgw/internal/worker"
)

type outboundCall struct {
	action string
	body   map[string]any
}

// platformStub stands in for the platform's HTTP API.
type platformStub struct {
	mu     sync.Mutex
	calls  []outboundCall
	server *httptest.Server
}

func newPlatformStub(t *testing.T) *platformStub {
	t.Helper()
	ps := &platformStub{}
	ps.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		ps.mu.Lock()
		ps.calls = append(ps.calls, outboundCall{action: r.URL.Path[1:], body: body})
		ps.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ps.server.Close)
	return ps
}

func (ps *platformStub) snapshot() []outboundCall {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]outboundCall(nil), ps.calls...)
}

// waitForCalls polls until the stub has seen n calls or the deadline hits.
func (ps *platformStub) waitForCalls(t *testing.T, n int) []outboundCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls := ps.snapshot(); len(calls) >= n {
			return calls
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("platform stub saw %d calls, want %d", len(ps.snapshot()), n)
	return nil
}

// pipeline wires the full stack against the stub and returns the listener
// mux events are pushed through.
type pipeline struct {
	mux   http.Handler
	queue *queue.Queue
	pool  *worker.Pool
}

func startPipeline(t *testing.T, cfg *config.Config, stub *platformStub, handlers ...plugin.Handler) *pipeline {
	t.Helper()

	q := queue.New()
	rtr := router.New(cfg, plugin.NewRegistry(handlers...), send.NewWithBaseURL(stub.server.URL))
	pool := worker.New(q, rtr, cfg.Workers)

	// Same wiring as the real entrypoint: workers run until the queue
	// closes, independent of any request context.
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	srv := listen.New("127.0.0.1:0", q, cfg.Workers)
	return &pipeline{mux: srv.Routes(), queue: q, pool: pool}
}

func (p *pipeline) push(t *testing.T, event string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(event)))
	rec := httptest.NewRecorder()
	p.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("listener status = %d, want 200", rec.Code)
	}
}

// settle gives workers a moment to drain anything queued.
func (p *pipeline) settle() {
	deadline := time.Now().Add(time.Second)
	for p.queue.Depth() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
}

func baseConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Workers = 2
	cfg.Access.Group = []string{"all"}
	cfg.Access.Private = []string{"all"}
	cfg.Access.SuperAdmin = []string{"1"}
	return cfg
}

func TestUnhandledCommandProducesNoOutboundCall(t *testing.T) {
	t.Parallel()

	stub := newPlatformStub(t)
	p := startPipeline(t, baseConfig(), stub) // no handlers registered

	p.push(t, `{"post_type":"message","message_type":"private","user_id":"100","raw_message":".bot hello world"}`)
	p.settle()

	if calls := stub.snapshot(); len(calls) != 0 {
		t.Fatalf("outbound calls = %+v, want none", calls)
	}
}

func TestHandledCommandReachesPlatform(t *testing.T) {
	t.Parallel()

	stub := newPlatformStub(t)
	p := startPipeline(t, baseConfig(), stub, hello.New())

	p.push(t, `{"post_type":"message","message_type":"private","user_id":"100","raw_message":".bot hello world"}`)

	calls := stub.waitForCalls(t, 1)
	if calls[0].action != "send_private_msg" {
		t.Fatalf("action = %q, want send_private_msg", calls[0].action)
	}
	if calls[0].body["user_id"] != "100" {
		t.Errorf("user_id = %v, want 100", calls[0].body["user_id"])
	}

	message := calls[0].body["message"].([]any)
	segment := message[0].(map[string]any)
	if segment["type"] != "text" {
		t.Errorf("segment type = %v", segment["type"])
	}
	if text := segment["data"].(map[string]any)["text"]; text != "hello world!" {
		t.Errorf("text = %v, want hello world!", text)
	}
}

func TestUnauthorizedAdminDeniedInGroup(t *testing.T) {
	t.Parallel()

	stub := newPlatformStub(t)
	p := startPipeline(t, baseConfig(), stub)

	p.push(t, `{"post_type":"message","message_type":"group","user_id":"9","group_id":"5","raw_message":".bot admin status"}`)

	calls := stub.waitForCalls(t, 1)
	if calls[0].action != "send_group_msg" {
		t.Fatalf("action = %q, want send_group_msg", calls[0].action)
	}
	if calls[0].body["group_id"] != "5" {
		t.Errorf("group_id = %v, want 5", calls[0].body["group_id"])
	}
}

func TestBlacklistRules(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Access.Private = []string{"all", "7"}

	stub := newPlatformStub(t)
	p := startPipeline(t, cfg, stub, hello.New())

	// Blacklisted sender: dropped silently.
	p.push(t, `{"post_type":"message","message_type":"private","user_id":"7","raw_message":".bot hello"}`)
	p.settle()
	if calls := stub.snapshot(); len(calls) != 0 {
		t.Fatalf("blacklisted sender produced output: %+v", calls)
	}

	// Anyone else passes.
	p.push(t, `{"post_type":"message","message_type":"private","user_id":"8","raw_message":".bot hello"}`)
	calls := stub.waitForCalls(t, 1)
	if calls[0].body["user_id"] != "8" {
		t.Errorf("user_id = %v, want 8", calls[0].body["user_id"])
	}
}

func TestNumericIdentitiesNormalized(t *testing.T) {
	t.Parallel()

	stub := newPlatformStub(t)
	p := startPipeline(t, baseConfig(), stub, hello.New())

	// The platform sends numeric ids; rules and payloads see strings.
	p.push(t, `{"post_type":"message","message_type":"private","user_id":100,"raw_message":".bot hello"}`)

	calls := stub.waitForCalls(t, 1)
	if calls[0].body["user_id"] != "100" {
		t.Errorf("user_id = %v (%T), want string 100", calls[0].body["user_id"], calls[0].body["user_id"])
	}
}
