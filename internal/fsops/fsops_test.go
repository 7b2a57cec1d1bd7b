package fsops_test

import (
	"os"
	"path/filepath"
	"testing"

	"codetune/internal/fsops"
)

func TestOps_InMemory(t *testing.T) {
	mem := fsops.NewMem()
	ops := fsops.NewOps(mem)

	if err := mem.WriteFile("/jobs/fix.json", []byte(`{"code":"x=1","query":"tidy"}`), 0o644); err != nil {
		t.Fatalf("write job: %v", err)
	}

	content, readErr := ops.ReadSource("/jobs/fix.json")
	if readErr != nil {
		t.Fatalf("ReadSource: %v", readErr)
	}
	if content != `{"code":"x=1","query":"tidy"}` {
		t.Fatalf("ReadSource returned %q", content)
	}

	// WriteOutput must create missing parent directories.
	outputPath := "/results/nested/out.py"
	if writeErr := ops.WriteOutput(outputPath, "x = 1\n"); writeErr != nil {
		t.Fatalf("WriteOutput: %v", writeErr)
	}
	if !ops.FileExists(outputPath) {
		t.Fatalf("output file missing after WriteOutput")
	}
	written, readBackErr := ops.ReadSource(outputPath)
	if readBackErr != nil || written != "x = 1\n" {
		t.Fatalf("read back %q, %v", written, readBackErr)
	}

	if ops.FileExists("/absent.py") {
		t.Fatalf("FileExists reported a missing path as present")
	}
}

func TestOps_OSRoundTrip(t *testing.T) {
	ops := fsops.NewOps(fsops.NewOS())

	directory := t.TempDir()
	sourcePath := filepath.Join(directory, "sample.py")
	if err := os.WriteFile(sourcePath, []byte("x=1"), 0o644); err != nil {
		t.Fatalf("seed source file: %v", err)
	}

	content, readErr := ops.ReadSource(sourcePath)
	if readErr != nil || content != "x=1" {
		t.Fatalf("ReadSource returned %q, %v", content, readErr)
	}

	outputPath := filepath.Join(directory, "nested", "out.py")
	if writeErr := ops.WriteOutput(outputPath, "x = 1\n"); writeErr != nil {
		t.Fatalf("WriteOutput: %v", writeErr)
	}
	if !ops.FileExists(outputPath) {
		t.Fatalf("output file missing after WriteOutput")
	}
}

func TestPathHelpers(t *testing.T) {
	mem := fsops.NewMem()

	if ext := mem.Ext("sample.PY"); ext != ".PY" {
		t.Fatalf("Ext = %q", ext)
	}
	if dir := mem.Dir("/a/b/c.py"); dir != "/a/b" {
		t.Fatalf("Dir = %q", dir)
	}
	if clean := mem.Clean("/a//b/../c.py"); clean != "/a/c.py" {
		t.Fatalf("Clean = %q", clean)
	}
}
