package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestPredicates(t *testing.T) {
	adapters := AnyOf("internal/adapters", "/cmd/")
	cases := []struct {
		in                string
		internal, adapter bool
	}{
		{"atlas/internal/core", true, false},
		{"atlas/internal/adapters/httpapi", true, true},
		{"atlas/internal/adaptersx", true, false},
		{"atlas/cmd", false, true},
		{"atlas/cmd/atlas", false, true},
		{"atlas/pkg/domain", false, false},
		{"example.com/internal/x", false, false},
	}
	for _, c := range cases {
		if got := InternalImport(c.in); got != c.internal {
			t.Errorf("InternalImport(%q)=%v want %v", c.in, got, c.internal)
		}
		if got := adapters(c.in); got != c.adapter {
			t.Errorf("AnyOf(%q)=%v want %v", c.in, got, c.adapter)
		}
	}
}

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"atlas/internal/core\"\n)\nvar _ = fmt.Sprint\nvar _ core.State\n")
	writeFile(t, dir, "a_test.go", "package tmp\nimport \"atlas/internal/adapters/httpapi\"\n")
	if err := os.Mkdir(filepath.Join(dir, "nested.go"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := directImportViolations(dir, InternalImport)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "atlas/internal/core (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	var r recorder
	failIfViolations(&r, "domain stays pure", viols)
	if !strings.Contains(r.msg, "domain stays pure") || !strings.Contains(r.msg, "a.go") {
		t.Fatalf("unexpected failure message %q", r.msg)
	}
	r = recorder{}
	failIfViolations(&r, "none", nil)
	if r.msg != "" {
		t.Fatalf("no violations must not fail")
	}

	AssertNoDirectImports(t, dir, AnyOf("cmd"), "cmd is never imported")
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImport); err == nil {
		t.Fatalf("expected read error")
	}
	dir := t.TempDir()
	writeFile(t, dir, "bad.go", "package tmp\nimport (\n")
	if _, err := directImportViolations(dir, InternalImport); err == nil {
		t.Fatalf("expected parse error")
	}
}
