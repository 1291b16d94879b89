package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atlas/internal/ai"
)

// isolate points every config source at a temp dir and clears AI keys.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("ATLAS_STORAGE_DRIVER", "sqlite")
	t.Setenv("ATLAS_STORAGE_SQLITE_PATH", filepath.Join(dir, "atlas.db"))
	t.Setenv("ATLAS_BLOB_DRIVER", "memory")
	t.Setenv("ATLAS_LOG_LEVEL", "error")
	for _, key := range []string{"ATLAS_AI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "ATLAS_REDIS_URL", "REDIS_URL"} {
		t.Setenv(key, "")
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "atlas dev (commit none, go") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestPresetListAndLoad(t *testing.T) {
	isolate(t)

	out, err := run(t, "preset", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, name := range []string{"Fitness Enthusiast", "General Wellness", "Healthy Aging"} {
		if !strings.Contains(out, name) {
			t.Fatalf("missing %s in:\n%s", name, out)
		}
	}

	out, err = run(t, "preset", "load", "healthy aging")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.TrimSpace(out) != "Loaded Healthy Aging preset: 8 supplements for Robert Davis" {
		t.Fatalf("unexpected load output %q", out)
	}

	// Without an API key analysis fails with the configuration message, after
	// the preset was read back from sqlite.
	_, err = run(t, "analyze")
	if err == nil || err.Error() != ai.MsgAPIConfig {
		t.Fatalf("expected API configuration error, got %v", err)
	}

	if _, err := run(t, "preset", "load", "7"); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestScanWithoutKey(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "label.png")
	if err := os.WriteFile(path, []byte("\x89PNG"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := run(t, "scan", path)
	if err == nil || !strings.HasPrefix(err.Error(), "Label extraction failed: ") {
		t.Fatalf("expected extraction failure, got %v", err)
	}
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "a.PNG")
	other := filepath.Join(dir, "a.bin")
	for _, p := range []string{png, other} {
		if err := os.WriteFile(p, []byte("img"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got, err := readImage(png)
	if err != nil || got != "data:image/png;base64,aW1n" {
		t.Fatalf("png: %q %v", got, err)
	}
	got, err = readImage(other)
	if err != nil || got != "data:image/jpeg;base64,aW1n" {
		t.Fatalf("fallback: %q %v", got, err)
	}
	if _, err := readImage(filepath.Join(dir, "missing.jpg")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestPresetIndex(t *testing.T) {
	for arg, want := range map[string]int{"0": 0, "2": 2, "General Wellness": 1, "fitness enthusiast": 0} {
		got, err := presetIndex(arg)
		if err != nil || got != want {
			t.Fatalf("%q: got %d %v", arg, got, err)
		}
	}
	for _, arg := range []string{"-1", "3", "keto"} {
		if _, err := presetIndex(arg); err == nil {
			t.Fatalf("%q: expected error", arg)
		}
	}
}
