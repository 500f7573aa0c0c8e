package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitWritesJSONFile(t *testing.T) {
	restore := Replace(nil)
	t.Cleanup(restore)

	path := filepath.Join(t.TempDir(), "logs", "arena.log")
	if err := Init(Options{Level: "debug", Format: "json", File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Info("match_create", zap.Uint64("match_id", 7))
	_ = L().Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(raw)
	if !strings.Contains(line, `"msg":"match_create"`) || !strings.Contains(line, `"match_id":7`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := parseLevel("nonsense"); got != zapcore.InfoLevel {
		t.Fatalf("parseLevel(nonsense) = %v", got)
	}
	if got := parseLevel(" WARN "); got != zapcore.WarnLevel {
		t.Fatalf("parseLevel(WARN) = %v", got)
	}
}
