package bundler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// manifestDirName holds build records inside the bundle directory. The
// leading dot keeps it apart from the web-visible artifacts.
const manifestDirName = ".manifests"

// Manifest records how a bundle was built.
type Manifest struct {
	Identifier Identifier `json:"identifier"`
	Type       Type       `json:"type"`
	Members    []Member   `json:"members"`
	Minifier   string     `json:"minifier,omitempty"` // Empty when compression was off
	ShowList   bool       `json:"showList"`
	Encodings  []string   `json:"encodings,omitempty"`
	Size       int64      `json:"size"`
	OutputHash string     `json:"outputHash"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Member describes one source file at build time.
type Member struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	Hash string `json:"hash"` // xxHash of the content
}

// contentHash returns the hex xxHash of data.
func contentHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// fileHash streams the file at path through xxHash. The result matches
// contentHash of the file's content.
func fileHash(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if err := hashFile(f, h); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// manifestDir returns the manifests directory of a configuration.
func (s *Store) manifestDir(cfg Config) string {
	return filepath.Join(s.bundleSysDir(cfg), manifestDirName)
}

// manifestPath returns the path to the manifest of id, sharded by the
// first two characters.
func (s *Store) manifestPath(cfg Config, id Identifier) (string, error) {
	name := string(id)
	if len(name) < 2 {
		return "", fmt.Errorf("invalid bundle identifier %q", name)
	}
	return filepath.Join(s.manifestDir(cfg), name[:2], name+".json"), nil
}

// saveManifest saves a manifest atomically.
func (s *Store) saveManifest(cfg Config, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	p, err := s.manifestPath(cfg, m.Identifier)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.fs, filepath.Dir(p), filepath.Base(p), data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// loadManifest loads the manifest of id.
// Returns ErrNoManifest if the bundle has none.
func (s *Store) loadManifest(cfg Config, id Identifier) (*Manifest, error) {
	p, err := s.manifestPath(cfg, id)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoManifest, id)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Manifest returns the build record of bundle id.
func (s *Store) Manifest(cfg Config, id Identifier) (*Manifest, error) {
	return s.loadManifest(cfg.WithDefaults(), id)
}

// Stale compares the members recorded for id with the files on disk and
// returns the paths that changed or disappeared since the bundle was built.
// Nothing is rebuilt: acting on the answer is up to the caller.
func (s *Store) Stale(cfg Config, id Identifier) (bool, []string, error) {
	cfg = cfg.WithDefaults()

	m, err := s.loadManifest(cfg, id)
	if err != nil {
		return false, nil, err
	}

	var changed []string
	for _, member := range m.Members {
		sum, err := fileHash(s.fs, s.sysPath(cfg, member.Path))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				changed = append(changed, member.Path)
				continue
			}
			return false, nil, readError(member.Path, err)
		}
		if sum != member.Hash {
			changed = append(changed, member.Path)
		}
	}

	return len(changed) > 0, changed, nil
}
