package health

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brewcrew/barista/internal/store"
)

type fakeDocs struct{ count int }

func (f fakeDocs) Count() int { return f.count }

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Ping(ctx context.Context) error { return f.err }

func TestCheck_AllHealthy(t *testing.T) {
	c := NewChecker(store.NewMemoryStore(), fakeDocs{count: 4}, true, "1.2.3")
	results := c.Check(context.Background())

	if !Healthy(results) {
		t.Fatalf("expected healthy, got %+v", results)
	}

	report := c.Format(results)
	for _, want := range []string{"All systems operational", "v1.2.3", "4 document(s)"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestCheck_DatabaseDown(t *testing.T) {
	st := failingStore{Store: store.NewMemoryStore(), err: errors.New("disk io error")}
	c := NewChecker(st, fakeDocs{}, true, "")
	results := c.Check(context.Background())

	if Healthy(results) {
		t.Fatal("expected unhealthy")
	}
	report := c.Format(results)
	if !strings.Contains(report, "Some checks failed") || !strings.Contains(report, "disk io error") {
		t.Errorf("unexpected report:\n%s", report)
	}
}

func TestCheck_LLMNotConfigured(t *testing.T) {
	c := NewChecker(store.NewMemoryStore(), fakeDocs{}, false, "")
	results := c.Check(context.Background())

	if Healthy(results) {
		t.Fatal("expected unhealthy")
	}
	if !strings.Contains(c.Format(results), "no API key configured") {
		t.Error("llm detail missing")
	}
}
