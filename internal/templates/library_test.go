package templates

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sgupta906/oboarding-sub000/internal/model"
)

// recordingSink collects the templates pushed through the sink interface.
type recordingSink struct {
	mu       sync.Mutex
	upserted map[string]model.Template
	removed  []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{upserted: make(map[string]model.Template)}
}

func (s *recordingSink) UpsertTemplate(ctx context.Context, tmpl model.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserted[tmpl.ID] = tmpl
	return nil
}

func (s *recordingSink) RemoveTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, id)
	return nil
}

func (s *recordingSink) get(id string) (model.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmpl, ok := s.upserted[id]
	return tmpl, ok
}

func (s *recordingSink) removedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.removed...)
}

func writeTemplate(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write template file: %v", err)
	}
	return path
}

func quietConfig() *Config {
	return &Config{
		DebounceInterval: 20 * time.Millisecond,
		Logger:           log.New(io.Discard, "", 0),
	}
}

const engineeringYAML = `name: Engineering Onboarding
role: engineer
steps:
  - title: Laptop setup
    description: Collect and image the laptop
    owner: IT
  - title: Security training
    owner: Security
    link: https://training.example.com/security
`

func TestReadTemplateFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "engineering.yaml", engineeringYAML)

	tmpl, err := ReadTemplateFile(path)
	if err != nil {
		t.Fatalf("ReadTemplateFile failed: %v", err)
	}

	if tmpl.ID != "engineering" {
		t.Errorf("expected id from file name, got %q", tmpl.ID)
	}
	if tmpl.Name != "Engineering Onboarding" {
		t.Errorf("unexpected name %q", tmpl.Name)
	}
	if tmpl.Role != "engineer" {
		t.Errorf("unexpected role %q", tmpl.Role)
	}
	if len(tmpl.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(tmpl.Steps))
	}
	for i, s := range tmpl.Steps {
		if s.ID != i+1 {
			t.Errorf("step %d: expected id %d, got %d", i, i+1, s.ID)
		}
		if s.Status != model.StepPending {
			t.Errorf("step %q: expected pending, got %s", s.Title, s.Status)
		}
	}
	if tmpl.Steps[1].Link != "https://training.example.com/security" {
		t.Errorf("step link not carried over: %+v", tmpl.Steps[1])
	}
}

func TestReadTemplateFileRejectsMissingName(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "broken.yaml", "steps:\n  - title: Only step\n")

	if _, err := ReadTemplateFile(path); err == nil {
		t.Error("expected error for template with no name")
	}
}

func TestReadTemplateFileRejectsUntitledStep(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "broken.yaml", "name: Broken\nsteps:\n  - owner: IT\n")

	if _, err := ReadTemplateFile(path); err == nil {
		t.Error("expected error for step with no title")
	}
}

func TestFullSync(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "engineering.yaml", engineeringYAML)
	writeTemplate(t, dir, "sales.yml", "name: Sales Onboarding\nsteps:\n  - title: CRM access\n")
	writeTemplate(t, dir, "notes.txt", "not a template")
	writeTemplate(t, dir, "broken.yaml", "steps:\n  - title: No name\n")

	sink := newRecordingSink()
	lib, err := New(dir, sink, quietConfig())
	if err != nil {
		t.Fatalf("Failed to create library: %v", err)
	}

	if err := lib.FullSync(context.Background()); err != nil {
		t.Fatalf("FullSync failed: %v", err)
	}

	if _, ok := sink.get("engineering"); !ok {
		t.Error("engineering template not synced")
	}
	if tmpl, ok := sink.get("sales"); !ok || tmpl.Name != "Sales Onboarding" {
		t.Errorf("sales template not synced: %+v", tmpl)
	}
	if _, ok := sink.get("notes"); ok {
		t.Error("non-template file was synced")
	}
	// The broken file is logged and skipped, not fatal.
	if _, ok := sink.get("broken"); ok {
		t.Error("invalid template was synced")
	}
}

func TestFullSyncMissingDirectory(t *testing.T) {
	sink := newRecordingSink()
	lib, err := New(filepath.Join(t.TempDir(), "absent"), sink, quietConfig())
	if err != nil {
		t.Fatalf("Failed to create library: %v", err)
	}

	if err := lib.FullSync(context.Background()); err != nil {
		t.Errorf("FullSync of a missing directory should be a no-op, got: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for condition")
}

func TestWatchPicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	sink := newRecordingSink()
	lib, err := New(dir, sink, quietConfig())
	if err != nil {
		t.Fatalf("Failed to create library: %v", err)
	}
	if err := lib.Start(); err != nil {
		t.Fatalf("Failed to start library: %v", err)
	}
	defer lib.Stop()

	writeTemplate(t, dir, "engineering.yaml", engineeringYAML)

	waitFor(t, 5*time.Second, func() bool {
		_, ok := sink.get("engineering")
		return ok
	})
}

func TestWatchPicksUpEdit(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "sales.yaml", "name: Sales Onboarding\nsteps:\n  - title: CRM access\n")

	sink := newRecordingSink()
	lib, err := New(dir, sink, quietConfig())
	if err != nil {
		t.Fatalf("Failed to create library: %v", err)
	}
	if err := lib.Start(); err != nil {
		t.Fatalf("Failed to start library: %v", err)
	}
	defer lib.Stop()

	if _, ok := sink.get("sales"); !ok {
		t.Fatal("initial sync missed the existing file")
	}

	writeTemplate(t, dir, "sales.yaml", "name: Sales Onboarding v2\nsteps:\n  - title: CRM access\n")

	waitFor(t, 5*time.Second, func() bool {
		tmpl, ok := sink.get("sales")
		return ok && tmpl.Name == "Sales Onboarding v2"
	})
}

func TestWatchRemovesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "sales.yaml", "name: Sales Onboarding\nsteps:\n  - title: CRM access\n")

	sink := newRecordingSink()
	lib, err := New(dir, sink, quietConfig())
	if err != nil {
		t.Fatalf("Failed to create library: %v", err)
	}
	if err := lib.Start(); err != nil {
		t.Fatalf("Failed to start library: %v", err)
	}
	defer lib.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove template file: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		for _, id := range sink.removedIDs() {
			if id == "sales" {
				return true
			}
		}
		return false
	})
}
