package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedMessagesRender(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("error.ILLEGAL_MOVE", map[string]any{"Reason": "the path is blocked"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Illegal move (the path is blocked)." {
		t.Fatalf("unexpected text: %q", got)
	}
	got = c.Text("error.WRONG_STAKE", map[string]any{"StakeSet": true, "Amount": 10, "Token": "CHESS"}, "")
	if got != "The stake must be exactly 10 CHESS." {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestMissingKeyFallsBack(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("nope", nil); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if got := c.Text("nope", nil, "fallback"); got != "fallback" {
		t.Fatalf("Text fallback = %q", got)
	}
	// missingkey=error
	if got := c.Text("event.paired", map[string]any{"ID": 1}, "fb"); got != "fb" {
		t.Fatalf("expected fallback on missing data, got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("error:\n  NOT_ACTIVE: \"closed\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("error.NOT_ACTIVE", nil, ""); got != "closed" {
		t.Fatalf("override not applied: %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("error:\n  NOT_ACTIVE: \"dup\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate override error")
	}
}

func TestMissing(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := c.Missing("error.NOT_ACTIVE", "error.NOPE", "reason.path_blocked", "outcome.stalemate")
	if len(got) != 2 || got[0] != "error.NOPE" || got[1] != "outcome.stalemate" {
		t.Fatalf("Missing = %v", got)
	}
}
