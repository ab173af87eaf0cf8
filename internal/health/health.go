// Package health reports component status for the /health command.
package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/brewcrew/barista/internal/store"
)

// DocCounter exposes the knowledge base document count.
type DocCounter interface {
	Count() int
}

// Result is one component check.
type Result struct {
	Name   string
	OK     bool
	Detail string
}

// Checker runs the component checks.
type Checker struct {
	store         store.Store
	docs          DocCounter
	llmConfigured bool
	version       string
}

// NewChecker creates a Checker.
func NewChecker(st store.Store, docs DocCounter, llmConfigured bool, version string) *Checker {
	return &Checker{store: st, docs: docs, llmConfigured: llmConfigured, version: version}
}

// Check runs every component check.
func (c *Checker) Check(ctx context.Context) []Result {
	results := []Result{}

	dbResult := Result{Name: "database", OK: true, Detail: "reachable"}
	if err := c.store.Ping(ctx); err != nil {
		dbResult.OK = false
		dbResult.Detail = err.Error()
	}
	results = append(results, dbResult)

	llmResult := Result{Name: "llm", OK: c.llmConfigured, Detail: "configured"}
	if !c.llmConfigured {
		llmResult.Detail = "no API key configured"
	}
	results = append(results, llmResult)

	count := c.docs.Count()
	results = append(results, Result{
		Name:   "knowledge base",
		OK:     true,
		Detail: fmt.Sprintf("%d document(s) indexed", count),
	})

	return results
}

// Healthy reports whether every check passed.
func Healthy(results []Result) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}

// Format renders the checks as a Slack markdown report.
func (c *Checker) Format(results []Result) string {
	var b strings.Builder
	if Healthy(results) {
		b.WriteString("✅ *All systems operational*")
	} else {
		b.WriteString("⚠️ *Some checks failed*")
	}
	if c.version != "" {
		fmt.Fprintf(&b, " (v%s)", c.version)
	}
	b.WriteString("\n")

	for _, r := range results {
		icon := "✅"
		if !r.OK {
			icon = "❌"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", icon, r.Name, r.Detail)
	}
	return b.String()
}
