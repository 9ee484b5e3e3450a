package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arnm-lang/arnm/internal/config"
)

const sampleSrc = `
fn add(a: i32, b: i32) -> i32 {
	return a + b;
}
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.arnm")
	if err := os.WriteFile(path, []byte(sampleSrc), 0o644); err != nil {
		t.Fatalf("unexpected error writing sample source: %v", err)
	}
	return path
}

func TestRunCheckOnlySucceedsOnValidSource(t *testing.T) {
	path := writeSample(t)
	code := run(options{Src: path, CheckOnly: true}, config.Default())
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestRunMissingSourceFails(t *testing.T) {
	code := run(options{Src: filepath.Join(t.TempDir(), "missing.arnm")}, config.Default())
	if code == 0 {
		t.Fatalf("expected a non-zero exit code for a missing source file")
	}
}

func TestRunEmitIRProducesModuleText(t *testing.T) {
	path := writeSample(t)
	out := captureStdout(t, func() {
		code := run(options{Src: path, EmitIR: true}, config.Default())
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
	})
	if !strings.Contains(out, "add") {
		t.Fatalf("expected emitted IR to mention function add, got:\n%s", out)
	}
}

func TestRunEmitAsmProducesAssembly(t *testing.T) {
	path := writeSample(t)
	out := captureStdout(t, func() {
		code := run(options{Src: path, EmitAsm: true}, config.Default())
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
	})
	if !strings.Contains(out, "add:") {
		t.Fatalf("expected emitted assembly to contain an add label, got:\n%s", out)
	}
}

// captureStdout redirects os.Stdout for the duration of fn and returns
// whatever it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("unexpected error creating pipe: %v", err)
	}
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = old

	buf := make([]byte, 64*1024)
	n, _ := r.Read(buf)
	return string(buf[:n])
}
