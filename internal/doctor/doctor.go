// Package doctor runs deeper diagnostics over a loaded configuration than
// the load-time validation does: it inspects the files and credentials the
// enabled plugins point at and flags setups that will technically start but
// never do anything useful.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattjoyce/botgw/internal/config"
)

// Result holds the outcome of a diagnostics run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor inspects a loaded config.
type Doctor struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.checkAccess(r)
	d.checkWorkers(r)
	d.checkExposure(r)
	d.checkPlugins(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// checkAccess flags rule lists that make the gateway inert.
func (d *Doctor) checkAccess(r *Result) {
	if len(d.cfg.Access.Group) == 0 && len(d.cfg.Access.Private) == 0 {
		d.addWarning(r, "access", "access",
			"both group and private rule lists are empty; every command will be denied")
	}
	if len(d.cfg.Access.SuperAdmin) == 0 {
		d.addWarning(r, "access", "access.superadmin",
			"no super-admins configured; admin commands will always be refused")
	}
}

func (d *Doctor) checkWorkers(r *Result) {
	if d.cfg.Workers > 64 {
		d.addWarning(r, "workers", "workers",
			fmt.Sprintf("%d workers is unusually high for a chat bot", d.cfg.Workers))
	}
}

// checkExposure warns about binding the unauthenticated listener to all
// interfaces.
func (d *Doctor) checkExposure(r *Result) {
	host := d.cfg.Transport.ListenHost
	if host == "0.0.0.0" || host == "::" {
		d.addWarning(r, "transport", "transport.listen_host",
			"listener accepts events from any interface without authentication; prefer a loopback or firewalled address")
	}
}

// checkPlugins verifies the files and credentials enabled plugins depend on.
func (d *Doctor) checkPlugins(r *Result) {
	p := d.cfg.Plugins
	if !p.Hello.Enabled && !p.Fortune.Enabled && !p.Bullshit.Enabled && !p.Chat.Enabled && !p.Share.Enabled {
		d.addWarning(r, "plugins", "plugins",
			"no plugins enabled; only admin commands will answer")
	}

	if p.Bullshit.Enabled {
		d.checkBullshitCorpus(r, p.Bullshit.CorpusPath)
	}

	if p.Share.Enabled {
		if _, err := os.Stat(p.Share.Path); err != nil {
			d.addWarning(r, "plugins", "plugins.share.path",
				fmt.Sprintf("shared file %q is not readable: %v", p.Share.Path, err))
		}
	}

	if p.Chat.Enabled {
		switch {
		case p.Chat.APIKey == "":
			d.addWarning(r, "plugins", "plugins.chat.api_key",
				"chat is enabled without an API key; the command will answer with a misconfiguration notice")
		case strings.Contains(p.Chat.APIKey, "${"):
			d.addWarning(r, "plugins", "plugins.chat.api_key",
				"api_key still contains an unresolved ${VAR} reference; is the environment variable set?")
		}
	}
}

// checkBullshitCorpus parses the corpus up front so a broken file surfaces
// here instead of at first use.
func (d *Doctor) checkBullshitCorpus(r *Result, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		d.addError(r, "plugins", "plugins.bullshit.corpus_path",
			fmt.Sprintf("corpus %q is not readable: %v", path, err))
		return
	}

	var c struct {
		Bosh []string `json:"bosh"`
	}
	if err := json.Unmarshal(data, &c); err != nil {
		d.addError(r, "plugins", "plugins.bullshit.corpus_path",
			fmt.Sprintf("corpus %q is not valid JSON: %v", path, err))
		return
	}
	if len(c.Bosh) == 0 {
		d.addError(r, "plugins", "plugins.bullshit.corpus_path",
			fmt.Sprintf("corpus %q has no filler sentences", path))
	}
}

// FormatHuman returns a human-readable report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString("Configuration valid.\n")
		return b.String()
	case r.Valid:
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		writeIssue(&b, "ERROR", e)
	}
	for _, w := range r.Warnings {
		writeIssue(&b, "WARN ", w)
	}
	return b.String()
}

func writeIssue(b *strings.Builder, level string, i Issue) {
	if i.Field != "" {
		fmt.Fprintf(b, "  %s [%s] %s: %s\n", level, i.Category, i.Field, i.Message)
		return
	}
	fmt.Fprintf(b, "  %s [%s] %s\n", level, i.Category, i.Message)
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
