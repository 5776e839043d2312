package doctor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattjoyce/botgw/internal/config"
)

func healthyConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Access.Group = []string{"all"}
	cfg.Access.Private = []string{"all"}
	cfg.Access.SuperAdmin = []string{"1"}
	return cfg
}

func hasIssue(issues []Issue, field string) bool {
	for _, i := range issues {
		if i.Field == field {
			return true
		}
	}
	return false
}

func TestValidateHealthyConfig(t *testing.T) {
	t.Parallel()

	r := New(healthyConfig(t)).Validate()
	if !r.Valid {
		t.Fatalf("healthy config reported invalid: %+v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", r.Warnings)
	}
}

func TestValidateWarnsOnInertAccessRules(t *testing.T) {
	t.Parallel()

	cfg := healthyConfig(t)
	cfg.Access.Group = nil
	cfg.Access.Private = nil
	cfg.Access.SuperAdmin = nil

	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatal("access warnings must not make the config invalid")
	}
	if !hasIssue(r.Warnings, "access") {
		t.Errorf("missing empty-rules warning: %+v", r.Warnings)
	}
	if !hasIssue(r.Warnings, "access.superadmin") {
		t.Errorf("missing superadmin warning: %+v", r.Warnings)
	}
}

func TestValidateWarnsOnWildcardBind(t *testing.T) {
	t.Parallel()

	cfg := healthyConfig(t)
	cfg.Transport.ListenHost = "0.0.0.0"

	r := New(cfg).Validate()
	if !hasIssue(r.Warnings, "transport.listen_host") {
		t.Errorf("missing exposure warning: %+v", r.Warnings)
	}
}

func TestValidateRejectsBrokenCorpus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		write   bool
	}{
		{"missing file", "", false},
		{"invalid json", "{not json", true},
		{"no filler sentences", `{"bosh":[]}`, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "corpus.json")
			if tt.write {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			cfg := healthyConfig(t)
			cfg.Plugins.Bullshit.Enabled = true
			cfg.Plugins.Bullshit.CorpusPath = path

			r := New(cfg).Validate()
			if r.Valid {
				t.Fatal("broken corpus must fail diagnostics")
			}
			if !hasIssue(r.Errors, "plugins.bullshit.corpus_path") {
				t.Errorf("missing corpus error: %+v", r.Errors)
			}
		})
	}
}

func TestValidateWarnsOnUnresolvedChatKey(t *testing.T) {
	t.Parallel()

	cfg := healthyConfig(t)
	cfg.Plugins.Chat.Enabled = true
	cfg.Plugins.Chat.APIKey = "${MISSING_VAR}"

	r := New(cfg).Validate()
	if !hasIssue(r.Warnings, "plugins.chat.api_key") {
		t.Errorf("missing unresolved-key warning: %+v", r.Warnings)
	}
}

func TestFormatHuman(t *testing.T) {
	t.Parallel()

	cfg := healthyConfig(t)
	cfg.Access.SuperAdmin = nil

	out := FormatHuman(New(cfg).Validate())
	if !strings.Contains(out, "Configuration valid (1 warning(s))") {
		t.Errorf("unexpected report header: %q", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "access.superadmin") {
		t.Errorf("warning not rendered: %q", out)
	}
}
