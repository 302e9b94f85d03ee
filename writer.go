package bundler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// filePerm is the mode of every published artifact, copy and manifest.
const filePerm = 0o644

// writeFileAtomic writes data to dir/name through a temporary file in the
// same directory and renames it into place, so readers see either the old
// file, no file, or the complete new one. An existing file is replaced.
func writeFileAtomic(fs afero.Fs, dir, name string, data []byte) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	// Temp files are created owner-only; bundles are served by other users.
	if err := fs.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := fs.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to rename into place: %w", err)
	}
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}

// encoder produces a precompressed copy of an artifact, stored next to it
// with ext appended to the artifact name.
type encoder struct {
	ext    string
	encode func(data []byte) ([]byte, error)
}

var encoders = map[string]encoder{
	"gzip": {ext: ".gz", encode: gzipEncode},
	"zstd": {ext: ".zst", encode: zstdEncode},
}

// encoderNames returns the supported encodings in a stable order.
func encoderNames() []string {
	names := make([]string, 0, len(encoders))
	for name := range encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func gzipEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zstdEncode(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

// writeEncoded writes every configured precompressed copy of data.
func writeEncoded(fs afero.Fs, dir, name string, data []byte, encodings []string) error {
	wanted := make(map[string]bool, len(encodings))
	for _, enc := range encodings {
		e, ok := encoders[enc]
		if !ok {
			return fmt.Errorf("unknown precompress encoding: %q", enc)
		}
		wanted[enc] = true
		encoded, err := e.encode(data)
		if err != nil {
			return fmt.Errorf("failed to %s-encode %s: %w", enc, name, err)
		}
		if err := writeFileAtomic(fs, dir, name+e.ext, encoded); err != nil {
			return err
		}
	}
	// Copies left by an earlier build with other settings no longer match.
	for _, enc := range encoderNames() {
		if wanted[enc] {
			continue
		}
		if err := removeIfExists(fs, filepath.Join(dir, name+encoders[enc].ext)); err != nil {
			return err
		}
	}
	return nil
}

// removeIfExists deletes path, ignoring a missing file.
func removeIfExists(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
