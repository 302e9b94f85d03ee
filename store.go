package bundler

import (
	"bytes"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store resolves bundle identifiers to artifacts on persistent storage,
// building them on a miss.
//
// The only state shared between callers is the storage itself. Concurrent
// misses for one identifier inside a process share a single build; across
// processes every write goes through a temporary file and a rename, so no
// reader ever observes a partial artifact.
type Store struct {
	fs       afero.Fs
	registry *Registry
	log      *zap.Logger
	now      NowFunc
	group    singleflight.Group
}

// NewStore creates a store. Only WithFs, WithRegistry, WithLogger and
// WithNowFunc apply.
func NewStore(opts ...Option) *Store {
	o := newOptions(opts)
	log := o.log
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		fs:       o.fs,
		registry: o.registry,
		log:      log,
		now:      o.nowFunc,
	}
}

// Resolve returns the artifact for id, building it from set when it does not
// exist yet or when overwrite is true.
//
// On a hit the only I/O is existence checks on the artifact and its
// precompressed copies. On a miss every member is
// read; a missing or unreadable member fails the whole build with a
// *StorageError rather than producing a bundle with silently omitted
// content. Minification never fails the build.
func (s *Store) Resolve(id Identifier, set *FileSet, cfg Config, overwrite bool) (*Artifact, error) {
	cfg = cfg.WithDefaults()
	dst := s.artifactPath(cfg, id)

	if !overwrite {
		if info, err := s.stat(dst); err != nil {
			return nil, readError(dst, err)
		} else if info != nil {
			s.log.Debug("reusing bundle", zap.String("id", id.String()))
			return s.hit(cfg, id, set, dst, info.Size())
		}
	}

	key := dst + "#" + strconv.FormatBool(overwrite)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if !overwrite {
			// Another caller may have finished the build while we waited.
			if info, err := s.stat(dst); err != nil {
				return nil, readError(dst, err)
			} else if info != nil {
				return s.hit(cfg, id, set, dst, info.Size())
			}
		}
		return s.build(id, set, cfg)
	})
	if err != nil {
		return nil, err
	}

	// Callers sharing a build get their own copy.
	a := *v.(*Artifact)
	return &a, nil
}

// build materializes the artifact for id.
func (s *Store) build(id Identifier, set *FileSet, cfg Config) (*Artifact, error) {
	start := s.now()
	log := s.log.With(zap.String("id", id.String()))
	log.Debug("creating a new bundle", zap.Int("members", set.Len()))

	paths := set.Paths()
	contents, err := iter.MapErr(paths, func(p *string) ([]byte, error) {
		data, err := afero.ReadFile(s.fs, s.sysPath(cfg, *p))
		if err != nil {
			return nil, readError(*p, err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	members := make([]Member, len(paths))
	var code bytes.Buffer
	for i, data := range contents {
		members[i] = Member{Path: paths[i], Size: int64(len(data)), Hash: contentHash(data)}
		code.Write(data)
	}

	body := code.String()
	minifier := ""
	if cfg.CompressEnabled() {
		minifier = cfg.Minifier
		log.Debug("compressing bundle", zap.String("minifier", minifier))
		body = s.registry.Apply(cfg.Type, minifier, body, log)
	}

	var out bytes.Buffer
	if cfg.ShowListEnabled() {
		out.WriteString(fileListHeader(paths))
	}
	out.WriteString(body)
	data := out.Bytes()

	// Copies go first, so a published artifact never sits next to copies
	// of its previous content.
	dir := s.bundleSysDir(cfg)
	if err := writeEncoded(s.fs, dir, id.String(), data, cfg.Precompress); err != nil {
		return nil, writeError(s.artifactPath(cfg, id), err)
	}
	if err := writeFileAtomic(s.fs, dir, id.String(), data); err != nil {
		return nil, writeError(s.artifactPath(cfg, id), err)
	}

	m := &Manifest{
		Identifier: id,
		Type:       cfg.Type,
		Members:    members,
		Minifier:   minifier,
		ShowList:   cfg.ShowListEnabled(),
		Encodings:  cfg.Precompress,
		Size:       int64(len(data)),
		OutputHash: contentHash(data),
		CreatedAt:  s.now(),
	}
	if err := s.saveManifest(cfg, m); err != nil {
		// The artifact is complete; a missing manifest only costs Stale and Stats.
		log.Warn("failed to record manifest", zap.Error(err))
	}

	log.Debug("bundle created", zap.Duration("elapsed", s.now().Sub(start)), zap.Int("bytes", len(data)))
	return s.artifact(cfg, id, paths, Built, int64(len(data)), cfg.Precompress), nil
}

// fileListHeader returns the comment listing the members, one per line.
// Both script and style bundles use block comment syntax.
func fileListHeader(paths []string) string {
	return "/*\n" + strings.Join(paths, "\n") + "\n*/\n"
}

// hit describes an existing artifact. Only the precompressed copies found
// next to it are reported, whatever cfg asks for now.
func (s *Store) hit(cfg Config, id Identifier, set *FileSet, dst string, size int64) (*Artifact, error) {
	var encodings []string
	for _, name := range encoderNames() {
		p := dst + encoders[name].ext
		info, err := s.stat(p)
		if err != nil {
			return nil, readError(p, err)
		}
		if info != nil {
			encodings = append(encodings, name)
		}
	}
	return s.artifact(cfg, id, set.Paths(), Hit, size, encodings), nil
}

func (s *Store) artifact(cfg Config, id Identifier, members []string, outcome Outcome, size int64, encodings []string) *Artifact {
	return &Artifact{
		id:        id,
		path:      s.artifactPath(cfg, id),
		webPath:   path.Join(cfg.bundleWebDir(), id.String()),
		outcome:   outcome,
		size:      size,
		members:   members,
		encodings: encodings,
		fs:        s.fs,
	}
}

// stat returns nil info when path does not exist.
func (s *Store) stat(p string) (os.FileInfo, error) {
	info, err := s.fs.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return info, nil
}

// sysPath maps a root-relative path onto the filesystem.
func (s *Store) sysPath(cfg Config, rootRel string) string {
	return filepath.Join(cfg.AppRoot, filepath.FromSlash(rootRel))
}

// bundleSysDir returns the filesystem directory holding artifacts.
func (s *Store) bundleSysDir(cfg Config) string {
	return s.sysPath(cfg, cfg.bundleWebDir())
}

func (s *Store) artifactPath(cfg Config, id Identifier) string {
	return filepath.Join(s.bundleSysDir(cfg), id.String())
}
