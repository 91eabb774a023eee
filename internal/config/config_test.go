package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[log]
level = "debug"
format = "json"

[run]
program = "programs/net"
entry = ["main", "watch"]
max-cycles = 16

[journal]
path = "var/ncd.db"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", c.Log.Level)
	}
	if c.Log.Format != "json" {
		t.Errorf("log format = %q, want json", c.Log.Format)
	}
	if len(c.Run.Entry) != 2 || c.Run.Entry[0] != "main" {
		t.Errorf("run entry = %v, want [main watch]", c.Run.Entry)
	}
	if c.Run.MaxCycles != 16 {
		t.Errorf("run max-cycles = %d, want 16", c.Run.MaxCycles)
	}

	abs, _ := filepath.Abs(dir)
	if got, want := c.ProgramDir(), filepath.Join(abs, "programs/net"); got != want {
		t.Errorf("ProgramDir() = %q, want %q", got, want)
	}
	if got, want := c.JournalPath(), filepath.Join(abs, "var/ncd.db"); got != want {
		t.Errorf("JournalPath() = %q, want %q", got, want)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ``)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Log.Level != "info" {
		t.Errorf("default log level = %q, want info", c.Log.Level)
	}
	if c.Log.Format != "text" {
		t.Errorf("default log format = %q, want text", c.Log.Format)
	}
	if c.Run.MaxCycles != 0 {
		t.Errorf("default max-cycles = %d, want 0", c.Run.MaxCycles)
	}
	if c.JournalPath() != "" {
		t.Errorf("default JournalPath() = %q, want empty", c.JournalPath())
	}
	abs, _ := filepath.Abs(dir)
	if c.ProgramDir() != abs {
		t.Errorf("default ProgramDir() = %q, want %q", c.ProgramDir(), abs)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", `[log`, "parse error"},
		{"unknown key", "[run]\nentrypoint = \"main\"", "unknown keys"},
		{"bad level", "[log]\nlevel = \"loud\"", "log.level"},
		{"bad format", "[log]\nformat = \"xml\"", "log.format"},
		{"negative cycles", "[run]\nmax-cycles = -1", "max-cycles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for missing ncd.toml")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[run]\nentry = [\"main\"]")

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil {
		t.Fatal("FindAndLoad returned nil, want config from ancestor")
	}
	abs, _ := filepath.Abs(root)
	if c.Dir != abs {
		t.Errorf("config dir = %q, want %q", c.Dir, abs)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	// t.TempDir() could in theory sit below a directory with an ncd.toml;
	// only assert when nothing was found.
	if c != nil && c.Dir == "" {
		t.Error("found config without a directory")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	c := Default()
	c.Log.Format = "json"
	c.Log.Level = "warn"

	logger := c.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("unexpected json output: %s", out)
	}
}
