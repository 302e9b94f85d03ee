package bundler

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestFs creates an in-memory filesystem holding the given files.
func setupTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	memFs := afero.NewMemMapFs()
	for path, content := range files {
		createTestFile(t, memFs, path, content)
	}
	return memFs
}

// createTestFile creates a file with the given path and content in the filesystem.
func createTestFile(t *testing.T, fs afero.Fs, path string, content string) {
	t.Helper()

	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

// newTestBundler creates a bundler over fs with a fixed clock.
func newTestBundler(t *testing.T, fs afero.Fs, cfg Config, opts ...Option) *Bundler {
	t.Helper()

	opts = append([]Option{WithFs(fs), WithNowFunc(fixedNowFunc)}, opts...)
	b, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("Failed to create bundler: %v", err)
	}
	return b
}

// observedLogger returns a debug logger and the entries it records.
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// assertOutcome asserts how an artifact was produced.
func assertOutcome(t *testing.T, a *Artifact, want Outcome, context string) {
	t.Helper()

	if a.Outcome() != want {
		t.Fatalf("Expected %s on %s, got %s", want, context, a.Outcome())
	}
}

// assertFileContent asserts that a file has the expected content.
func assertFileContent(t *testing.T, fs afero.Fs, path string, expected string) {
	t.Helper()

	actual, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	if diff := cmp.Diff(expected, string(actual)); diff != "" {
		t.Fatalf("File content for %s mismatch (-want +got):\n%s", path, diff)
	}
}

// assertStorageError asserts that err is a *StorageError for op.
func assertStorageError(t *testing.T, err error, op string) *StorageError {
	t.Helper()

	if err == nil {
		t.Fatalf("Expected %s error, got nil", op)
	}
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("Expected *StorageError, got %T: %v", err, err)
	}
	if se.Op != op {
		t.Fatalf("Expected %s error, got %s: %v", op, se.Op, err)
	}
	return se
}
