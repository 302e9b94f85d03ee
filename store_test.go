package bundler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// failingFs wraps a filesystem and fails selected operations.
type failingFs struct {
	afero.Fs
	failOpen   string // Open fails for names with this suffix
	failCreate bool   // OpenFile with O_CREATE fails
	failMkdir  string // MkdirAll fails for paths containing this
	failRename bool
}

func (f *failingFs) Open(name string) (afero.File, error) {
	if f.failOpen != "" && strings.HasSuffix(name, f.failOpen) {
		return nil, fmt.Errorf("mock Open error")
	}
	return f.Fs.Open(name)
}

func (f *failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if f.failCreate && flag&os.O_CREATE != 0 {
		return nil, fmt.Errorf("mock OpenFile error")
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *failingFs) MkdirAll(path string, perm os.FileMode) error {
	if f.failMkdir != "" && strings.Contains(path, f.failMkdir) {
		return fmt.Errorf("mock MkdirAll error")
	}
	return f.Fs.MkdirAll(path, perm)
}

func (f *failingFs) Rename(oldname, newname string) error {
	if f.failRename {
		return fmt.Errorf("mock Rename error")
	}
	return f.Fs.Rename(oldname, newname)
}

// countingRegistry returns a registry whose "count" script strategy
// records every invocation.
func countingRegistry(calls *int32) *Registry {
	r := NewRegistry()
	r.Register(TypeScript, "count", MinifierFunc(func(src string) (string, error) {
		atomic.AddInt32(calls, 1)
		return src, nil
	}))
	return r
}

// listFiles returns the names of regular files under dir.
func listFiles(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()

	var names []string
	err := afero.Walk(fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			names = append(names, info.Name())
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("Failed to walk %s: %v", dir, err)
	}
	return names
}

func TestStore_ResolveHit(t *testing.T) {
	memFs := setupTestFs(t, map[string]string{
		"/script/a.js": "a();",
		"/script/b.js": "b();",
	})
	var calls int32
	b := newTestBundler(t, memFs, Config{Minifier: "count"}, WithRegistry(countingRegistry(&calls)))
	b.AddFiles("a.js", "b.js")

	built, err := b.Bundle(false)
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	assertOutcome(t, built, Built, "first Bundle")
	if built.Size() != int64(len("/*\n/script/a.js\n/script/b.js\n*/\na();b();")) {
		t.Fatalf("Size() = %d", built.Size())
	}

	old := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := memFs.Chtimes(built.Path(), old, old); err != nil {
		t.Fatal(err)
	}

	// A hit never touches the members.
	if err := memFs.Remove("/script/b.js"); err != nil {
		t.Fatal(err)
	}

	hit, err := b.Bundle(false)
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	assertOutcome(t, hit, Hit, "second Bundle")
	if hit.Size() != built.Size() || hit.Path() != built.Path() {
		t.Fatalf("Hit artifact differs: %+v vs %+v", hit, built)
	}
	info, err := memFs.Stat(built.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Fatalf("Artifact rewritten on hit: modtime %v", info.ModTime())
	}
	if calls != 1 {
		t.Fatalf("Expected 1 minifier call, got %d", calls)
	}

	data, err := hit.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !strings.HasSuffix(string(data), "a();b();") {
		t.Fatalf("Read() = %q", data)
	}
}

func TestStore_ResolveOverwrite(t *testing.T) {
	memFs := setupTestFs(t, map[string]string{"/script/a.js": "one();"})
	b := newTestBundler(t, memFs, Config{ShowList: Bool(false)})
	b.AddFile("a.js")

	first, err := b.Bundle(false)
	if err != nil {
		t.Fatal(err)
	}
	old := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := memFs.Chtimes(first.Path(), old, old); err != nil {
		t.Fatal(err)
	}

	createTestFile(t, memFs, "/script/a.js", "two();")
	second, err := b.Bundle(true)
	if err != nil {
		t.Fatalf("Bundle(true) error = %v", err)
	}
	assertOutcome(t, second, Built, "overwrite")
	assertFileContent(t, memFs, second.Path(), "two();")

	info, err := memFs.Stat(second.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.ModTime().Equal(old) {
		t.Fatal("Expected a new artifact after overwrite")
	}
}

func TestStore_ResolveCompressOff(t *testing.T) {
	memFs := setupTestFs(t, map[string]string{"/script/a.js": "var  a = 1; // keep"})
	var calls int32
	b := newTestBundler(t, memFs, Config{
		Minifier: "count",
		Compress: Bool(false),
		ShowList: Bool(false),
	}, WithRegistry(countingRegistry(&calls)))
	b.AddFile("a.js")

	a, err := b.Bundle(false)
	if err != nil {
		t.Fatal(err)
	}
	assertFileContent(t, memFs, a.Path(), "var  a = 1; // keep")
	if calls != 0 {
		t.Fatalf("Minifier ran with compression off: %d calls", calls)
	}
}

func TestStore_ResolveReadFailure(t *testing.T) {
	memFs := setupTestFs(t, map[string]string{
		"/script/a.js": "a();",
		"/script/b.js": "b();",
	})
	b := newTestBundler(t, memFs, Config{})
	b.AddFiles("a.js", "b.js")

	// The member vanishes between validation and the build.
	if err := memFs.Remove("/script/b.js"); err != nil {
		t.Fatal(err)
	}

	_, err := b.Bundle(false)
	se := assertStorageError(t, err, "read")
	if se.Path != "/script/b.js" {
		t.Fatalf("StorageError.Path = %s, want /script/b.js", se.Path)
	}
	if !os.IsNotExist(se.Err) {
		t.Fatalf("Expected a not-exist cause, got %v", se.Err)
	}

	if exists, _ := afero.Exists(memFs, "/script/bundles/"+b.Identifier().String()); exists {
		t.Fatal("Artifact written despite a read failure")
	}
}

func TestStore_ResolveWriteFailure(t *testing.T) {
	testCases := []struct {
		name string
		fs   func(afero.Fs) afero.Fs
	}{
		{
			name: "directory creation",
			fs: func(base afero.Fs) afero.Fs {
				return &failingFs{Fs: base, failMkdir: "/bundles"}
			},
		},
		{
			name: "temp file creation",
			fs: func(base afero.Fs) afero.Fs {
				return &failingFs{Fs: base, failCreate: true}
			},
		},
		{
			name: "rename",
			fs: func(base afero.Fs) afero.Fs {
				return &failingFs{Fs: base, failRename: true}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			memFs := setupTestFs(t, map[string]string{"/script/a.js": "a();"})
			b := newTestBundler(t, tc.fs(memFs), Config{})
			b.AddFile("a.js")

			_, err := b.Bundle(false)
			se := assertStorageError(t, err, "write")
			if !strings.HasSuffix(se.Path, b.Identifier().String()) {
				t.Fatalf("StorageError.Path = %s", se.Path)
			}

			// Nothing is left behind, not even a temp file.
			if files := listFiles(t, memFs, "/script/bundles"); len(files) != 0 {
				t.Fatalf("Expected empty bundle dir, got %v", files)
			}
		})
	}
}

func TestStore_ManifestFailureIsNotFatal(t *testing.T) {
	memFs := setupTestFs(t, map[string]string{"/script/a.js": "a();"})
	log, logs := observedLogger()
	b := newTestBundler(t, &failingFs{Fs: memFs, failMkdir: manifestDirName},
		Config{Debug: true}, WithLogger(log))
	b.AddFile("a.js")

	a, err := b.Bundle(false)
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	assertOutcome(t, a, Built, "Bundle")
	if logs.FilterMessage("failed to record manifest").Len() != 1 {
		t.Fatalf("Expected a manifest warning, got %v", logs.All())
	}
}

func TestStore_Precompress(t *testing.T) {
	memFs := setupTestFs(t, map[string]string{
		"/style/a.css": strings.Repeat("a { color: red }\n", 50),
	})
	b := newTestBundler(t, memFs, Config{Type: TypeStyle, Precompress: []string{"gzip", "zstd"}})
	b.AddFile("a.css")

	a, err := b.Bundle(false)
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	want, err := a.Read()
	if err != nil {
		t.Fatal(err)
	}

	t.Run("gzip", func(t *testing.T) {
		p := a.EncodedPath("gzip")
		if p != a.Path()+".gz" {
			t.Fatalf("EncodedPath(gzip) = %s", p)
		}
		f, err := memFs.Open(p)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		r, err := gzip.NewReader(f)
		if err != nil {
			t.Fatal(err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("gzip copy differs from artifact")
		}
	})

	t.Run("zstd", func(t *testing.T) {
		p := a.EncodedPath("zstd")
		if p != a.Path()+".zst" {
			t.Fatalf("EncodedPath(zstd) = %s", p)
		}
		encoded, err := afero.ReadFile(memFs, p)
		if err != nil {
			t.Fatal(err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			t.Fatal(err)
		}
		defer dec.Close()

		got, err := dec.DecodeAll(encoded, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("zstd copy differs from artifact")
		}
	})

	t.Run("unconfigured encoding", func(t *testing.T) {
		if p := a.EncodedPath("br"); p != "" {
			t.Fatalf("EncodedPath(br) = %s, want empty", p)
		}
	})
}

func TestStore_SharedBuild(t *testing.T) {
	memFs := setupTestFs(t, map[string]string{
		"/script/a.js": "a();",
		"/script/b.js": "b();",
	})
	var calls int32
	store := NewStore(WithFs(memFs), WithRegistry(countingRegistry(&calls)), WithNowFunc(fixedNowFunc))
	cfg := Config{Minifier: "count"}

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			b, err := New(cfg, WithFs(memFs), WithStore(store))
			if err != nil {
				errs <- err
				return
			}
			b.AddFiles("a.js", "b.js")
			if _, err := b.Bundle(false); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("Bundle() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("Expected a single build, got %d", calls)
	}
}

func TestStore_ConcurrentProcesses(t *testing.T) {
	root := t.TempDir()
	osFs := afero.NewOsFs()

	var content strings.Builder
	var names []string
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("f%02d.js", i)
		body := fmt.Sprintf("var v%d = %q;\n", i, strings.Repeat("x", 4096))
		createTestFile(t, osFs, filepath.Join(root, "js", name), body)
		names = append(names, name)
		content.WriteString(body)
	}
	cfg := Config{AppRoot: root, SourceDir: "/js", BundleDir: "/out", Compress: Bool(false), ShowList: Bool(false)}
	want := content.String()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, 2*workers)
	for i := 0; i < workers; i++ {
		wg.Add(2)

		// Separate stores share nothing but the filesystem.
		go func(overwrite bool) {
			defer wg.Done()

			b, err := New(cfg, WithFs(osFs), WithStore(NewStore(WithFs(osFs))))
			if err != nil {
				errs <- err
				return
			}
			b.AddFiles(names...)
			if _, err := b.Bundle(overwrite); err != nil {
				errs <- err
			}
		}(i%2 == 0)

		go func() {
			defer wg.Done()

			set := NewFileSet(cfg, osFs, nil)
			set.Add(names...)
			dst := filepath.Join(root, "out", NewKeyGenerator(nil).Identifier(set).String())
			for j := 0; j < 20; j++ {
				data, err := afero.ReadFile(osFs, dst)
				if os.IsNotExist(err) {
					continue
				}
				if err != nil {
					errs <- err
					return
				}
				if string(data) != want {
					errs <- fmt.Errorf("observed partial artifact of %d bytes", len(data))
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}

	for _, name := range listFiles(t, osFs, filepath.Join(root, "out")) {
		if strings.Contains(name, ".tmp-") {
			t.Fatalf("Temp file left behind: %s", name)
		}
	}
}

func TestStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}

	root := t.TempDir()
	osFs := afero.NewOsFs()
	createTestFile(t, osFs, filepath.Join(root, "script", "a.js"), "a();")

	b, err := New(Config{AppRoot: root, Precompress: []string{"gzip"}}, WithFs(osFs))
	if err != nil {
		t.Fatal(err)
	}
	b.AddFile("a.js")
	a, err := b.Bundle(false)
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	id := a.Identifier().String()
	paths := []string{
		a.Path(),
		a.EncodedPath("gzip"),
		filepath.Join(root, "script", "bundles", manifestDirName, id[:2], id+".json"),
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0o644 {
			t.Errorf("%s has mode %v, want -rw-r--r--", p, perm)
		}
	}
}

func TestStore_EncodingsOnHit(t *testing.T) {
	memFs := setupTestFs(t, map[string]string{"/script/a.js": "a();"})

	plain := newTestBundler(t, memFs, Config{})
	plain.AddFile("a.js")
	if _, err := plain.Bundle(false); err != nil {
		t.Fatal(err)
	}

	// Same identifier, but the existing artifact was built without copies.
	gz := newTestBundler(t, memFs, Config{Precompress: []string{"gzip"}})
	gz.AddFile("a.js")
	a, err := gz.Bundle(false)
	if err != nil {
		t.Fatal(err)
	}
	assertOutcome(t, a, Hit, "precompress added later")
	if p := a.EncodedPath("gzip"); p != "" {
		t.Fatalf("EncodedPath(gzip) = %s for a copy that was never written", p)
	}

	rebuilt, err := gz.Bundle(true)
	if err != nil {
		t.Fatal(err)
	}
	hit, err := gz.Bundle(false)
	if err != nil {
		t.Fatal(err)
	}
	assertOutcome(t, hit, Hit, "after rebuild")
	if p := hit.EncodedPath("gzip"); p != rebuilt.Path()+".gz" {
		t.Fatalf("EncodedPath(gzip) = %q, want %q", p, rebuilt.Path()+".gz")
	}
	if p := hit.EncodedPath("zstd"); p != "" {
		t.Fatalf("EncodedPath(zstd) = %s, want none", p)
	}
}

// renameLog records the targets of successful renames.
type renameLog struct {
	afero.Fs
	mu      sync.Mutex
	targets []string
}

func (r *renameLog) Rename(oldname, newname string) error {
	if err := r.Fs.Rename(oldname, newname); err != nil {
		return err
	}
	r.mu.Lock()
	r.targets = append(r.targets, filepath.Base(newname))
	r.mu.Unlock()
	return nil
}

func TestStore_OverwritePublishesCopiesFirst(t *testing.T) {
	memFs := setupTestFs(t, map[string]string{"/script/a.js": "one();"})
	fs := &renameLog{Fs: memFs}
	b := newTestBundler(t, fs, Config{Precompress: []string{"gzip", "zstd"}})
	b.AddFile("a.js")

	a, err := b.Bundle(false)
	if err != nil {
		t.Fatal(err)
	}
	createTestFile(t, memFs, "/script/a.js", "two();")
	fs.targets = nil
	if _, err := b.Bundle(true); err != nil {
		t.Fatal(err)
	}

	id := a.Identifier().String()
	main := -1
	for i, name := range fs.targets {
		if name == id {
			main = i
		}
	}
	if main < 0 {
		t.Fatalf("Artifact never renamed into place: %v", fs.targets)
	}
	for _, ext := range []string{".gz", ".zst"} {
		found := false
		for _, name := range fs.targets[:main] {
			if name == id+ext {
				found = true
			}
		}
		if !found {
			t.Errorf("%s copy not published before the artifact: %v", ext, fs.targets)
		}
	}
}

func TestStore_OverwriteDropsUnrequestedCopies(t *testing.T) {
	memFs := setupTestFs(t, map[string]string{"/script/a.js": "one();"})

	gz := newTestBundler(t, memFs, Config{Precompress: []string{"gzip"}})
	gz.AddFile("a.js")
	first, err := gz.Bundle(false)
	if err != nil {
		t.Fatal(err)
	}
	gzPath := first.EncodedPath("gzip")

	createTestFile(t, memFs, "/script/a.js", "two();")
	plain := newTestBundler(t, memFs, Config{})
	plain.AddFile("a.js")
	if _, err := plain.Bundle(true); err != nil {
		t.Fatal(err)
	}

	if exists, _ := afero.Exists(memFs, gzPath); exists {
		t.Fatalf("Copy of the previous content survived overwrite: %s", gzPath)
	}
}
