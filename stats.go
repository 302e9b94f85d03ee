package bundler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Stats represents bundle directory statistics.
type Stats struct {
	Entries     int           // Total number of recorded bundles
	TotalSize   int64         // Total size of all artifacts in bytes, precompressed copies excluded
	OldestEntry time.Duration // Age of the oldest bundle
	NewestEntry time.Duration // Age of the newest bundle
}

// Entry represents a single recorded bundle for iteration.
type Entry struct {
	Identifier Identifier
	Type       Type
	CreatedAt  time.Time
	Size       int64
	Members    int
}

// Stats returns statistics about the bundles recorded for cfg.
func (s *Store) Stats(cfg Config) (Stats, error) {
	cfg = cfg.WithDefaults()

	stats := Stats{}
	var oldest, newest time.Time

	err := s.walkManifests(cfg, func(m *Manifest) error {
		stats.Entries++
		stats.TotalSize += m.Size

		if oldest.IsZero() || m.CreatedAt.Before(oldest) {
			oldest = m.CreatedAt
		}
		if newest.IsZero() || m.CreatedAt.After(newest) {
			newest = m.CreatedAt
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	now := s.now()
	if !oldest.IsZero() {
		stats.OldestEntry = now.Sub(oldest)
	}
	if !newest.IsZero() {
		stats.NewestEntry = now.Sub(newest)
	}

	return stats, nil
}

// Entries returns every bundle recorded for cfg.
func (s *Store) Entries(cfg Config) ([]Entry, error) {
	cfg = cfg.WithDefaults()

	var entries []Entry
	err := s.walkManifests(cfg, func(m *Manifest) error {
		entries = append(entries, Entry{
			Identifier: m.Identifier,
			Type:       m.Type,
			CreatedAt:  m.CreatedAt,
			Size:       m.Size,
			Members:    len(m.Members),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Prune removes bundles built longer than olderThan ago.
// Returns the number of bundles removed.
func (s *Store) Prune(cfg Config, olderThan time.Duration) (int, error) {
	cfg = cfg.WithDefaults()
	cutoff := s.now().Add(-olderThan)

	var toRemove []Identifier
	err := s.walkManifests(cfg, func(m *Manifest) error {
		if m.CreatedAt.Before(cutoff) {
			toRemove = append(toRemove, m.Identifier)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return s.removeAll(cfg, toRemove)
}

// PruneStale removes bundles whose members changed since they were built.
// Returns the number of bundles removed.
func (s *Store) PruneStale(cfg Config) (int, error) {
	cfg = cfg.WithDefaults()

	var toRemove []Identifier
	err := s.walkManifests(cfg, func(m *Manifest) error {
		stale, _, err := s.Stale(cfg, m.Identifier)
		if err != nil {
			return err
		}
		if stale {
			toRemove = append(toRemove, m.Identifier)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return s.removeAll(cfg, toRemove)
}

// Delete removes the artifact of id, its precompressed copies and its
// manifest. Missing files are ignored.
func (s *Store) Delete(cfg Config, id Identifier) error {
	return s.remove(cfg.WithDefaults(), id)
}

func (s *Store) removeAll(cfg Config, ids []Identifier) (int, error) {
	count := 0
	for _, id := range ids {
		if err := s.remove(cfg, id); err != nil {
			return count, fmt.Errorf("failed to remove bundle %s: %w", id, err)
		}
		count++
	}
	return count, nil
}

func (s *Store) remove(cfg Config, id Identifier) error {
	manifest, err := s.manifestPath(cfg, id)
	if err != nil {
		return err
	}
	artifact := s.artifactPath(cfg, id)
	paths := []string{artifact}
	for _, e := range encoders {
		paths = append(paths, artifact+e.ext)
	}
	paths = append(paths, manifest)

	for _, p := range paths {
		if err := removeIfExists(s.fs, p); err != nil {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// walkManifests calls fn for every readable manifest of cfg.
// Corrupted manifests are skipped.
func (s *Store) walkManifests(cfg Config, fn func(m *Manifest) error) error {
	dir := s.manifestDir(cfg)
	exists, err := afero.DirExists(s.fs, dir)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	return afero.Walk(s.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}

		// Stray files that cannot name a bundle are not ours.
		id := Identifier(strings.TrimSuffix(info.Name(), ".json"))
		if len(id) < 2 {
			return nil
		}
		m, err := s.loadManifest(cfg, id)
		if err != nil {
			return nil
		}
		return fn(m)
	})
}
