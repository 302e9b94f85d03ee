package bundler

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// FileSet holds the validated, deduplicated, root-relative member paths of
// one bundle. Concatenation order is the order of first insertion.
//
// Missing files never fail an add: they are dropped and logged, so the set
// is always a best-effort valid input.
type FileSet struct {
	typ       Type
	appRoot   string
	sourceDir string
	fs        afero.Fs
	log       *zap.Logger
	paths     []string
	seen      map[string]struct{}
}

// NewFileSet creates an empty set resolving paths with the given
// configuration against fs.
func NewFileSet(cfg Config, fs afero.Fs, log *zap.Logger) *FileSet {
	cfg = cfg.WithDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSet{
		typ:       cfg.Type,
		appRoot:   cfg.AppRoot,
		sourceDir: cfg.SourceDir,
		fs:        fs,
		log:       log,
		seen:      make(map[string]struct{}),
	}
}

// Add resolves and appends paths. Relative paths are joined under the
// source directory, paths starting with "/" are used as-is.
func (s *FileSet) Add(paths ...string) {
	if len(paths) == 0 {
		return
	}
	s.log.Debug("adding files", zap.Strings("files", paths))

	for _, p := range paths {
		resolved := s.resolve(p)
		if _, dup := s.seen[resolved]; dup {
			continue
		}
		if !s.isFile(resolved) {
			s.log.Debug("file doesn't exist, removing from bundle", zap.String("path", resolved))
			continue
		}
		s.seen[resolved] = struct{}{}
		s.paths = append(s.paths, resolved)
	}
}

// AddFile adds a single file. It is a shortcut for Add(path).
func (s *FileSet) AddFile(p string) {
	s.Add(p)
}

// AddGlob adds every file matching pattern, in sorted order.
// Relative patterns are taken under the source directory; "**" matches any
// number of directories. An invalid pattern is an error, no match is not.
func (s *FileSet) AddGlob(pattern string) error {
	resolved := s.resolve(pattern)
	for _, part := range strings.Split(resolved, "/") {
		if _, err := path.Match(part, "probe"); err != nil {
			return fmt.Errorf("invalid glob pattern %s: %w", pattern, err)
		}
	}

	matches, err := s.expandGlob(resolved)
	if err != nil {
		return fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		s.log.Debug("glob matched no files", zap.String("pattern", resolved))
		return nil
	}

	sort.Strings(matches)
	s.Add(matches...)
	return nil
}

// Paths returns a copy of the member paths in concatenation order.
func (s *FileSet) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Len returns the number of members.
func (s *FileSet) Len() int {
	return len(s.paths)
}

// Type returns the content type of the set.
func (s *FileSet) Type() Type {
	return s.typ
}

// resolve turns a caller path into a root-relative path.
func (s *FileSet) resolve(p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Join(s.sourceDir, p)
}

// sysPath maps a root-relative path onto the filesystem.
func (s *FileSet) sysPath(rootRel string) string {
	return filepath.Join(s.appRoot, filepath.FromSlash(rootRel))
}

func (s *FileSet) isFile(rootRel string) bool {
	info, err := s.fs.Stat(s.sysPath(rootRel))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// expandGlob walks the static prefix of a root-relative pattern and returns
// the root-relative paths of matching files.
func (s *FileSet) expandGlob(pattern string) ([]string, error) {
	base := globBase(pattern)
	baseSys := s.sysPath(base)

	exists, err := afero.DirExists(s.fs, baseSys)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	var matches []string
	err = afero.Walk(s.fs, baseSys, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(baseSys, p)
		if err != nil {
			return err
		}
		rootRel := path.Join(base, filepath.ToSlash(rel))
		if matchesGlobPattern(rootRel, pattern) {
			matches = append(matches, rootRel)
		}
		return nil
	})

	return matches, err
}

// globBase returns the longest leading directory of pattern without
// wildcard characters.
func globBase(pattern string) string {
	parts := strings.Split(pattern, "/")
	var fixed []string
	for _, part := range parts[:len(parts)-1] {
		if strings.ContainsAny(part, "*?[") {
			break
		}
		fixed = append(fixed, part)
	}
	base := strings.Join(fixed, "/")
	if base == "" {
		return "/"
	}
	return base
}

// matchesGlobPattern checks if a path matches a pattern with ** support.
func matchesGlobPattern(p, pattern string) bool {
	return matchGlobParts(strings.Split(p, "/"), strings.Split(pattern, "/"), 0, 0)
}

// matchGlobParts recursively matches path parts against pattern parts.
func matchGlobParts(pathParts, patternParts []string, pathIdx, patternIdx int) bool {
	if patternIdx >= len(patternParts) {
		return pathIdx >= len(pathParts)
	}

	if pathIdx >= len(pathParts) {
		for i := patternIdx; i < len(patternParts); i++ {
			if patternParts[i] != "**" {
				return false
			}
		}
		return true
	}

	patternPart := patternParts[patternIdx]
	pathPart := pathParts[pathIdx]

	if patternPart == "**" {
		if matchGlobParts(pathParts, patternParts, pathIdx, patternIdx+1) {
			return true
		}
		return matchGlobParts(pathParts, patternParts, pathIdx+1, patternIdx)
	}

	matched, err := path.Match(patternPart, pathPart)
	if err != nil || !matched {
		return false
	}

	return matchGlobParts(pathParts, patternParts, pathIdx+1, patternIdx+1)
}
