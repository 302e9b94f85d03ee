package bundler

import (
	"fmt"

	"github.com/spf13/afero"
)

// Outcome tells how Resolve produced an artifact.
type Outcome int

const (
	// Hit means the artifact already existed and was left untouched.
	Hit Outcome = iota
	// Built means the artifact was (re)written by this call.
	Built
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Built:
		return "built"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Artifact is a persisted bundle.
// Users should not construct this directly - it's returned by Store.Resolve.
type Artifact struct {
	id        Identifier
	path      string
	webPath   string
	outcome   Outcome
	size      int64
	members   []string
	encodings []string
	fs        afero.Fs
}

// Identifier returns the bundle identifier, which is also its file name.
func (a *Artifact) Identifier() Identifier {
	return a.id
}

// Path returns the artifact location on the filesystem.
func (a *Artifact) Path() string {
	return a.path
}

// WebPath returns the root-relative path clients load the bundle from.
func (a *Artifact) WebPath() string {
	return a.webPath
}

// Outcome reports whether the artifact was reused or built.
func (a *Artifact) Outcome() Outcome {
	return a.outcome
}

// Size returns the artifact size in bytes.
func (a *Artifact) Size() int64 {
	return a.size
}

// Members returns the member paths in concatenation order.
func (a *Artifact) Members() []string {
	return append([]string(nil), a.members...)
}

// EncodedPath returns the location of the precompressed copy for the given
// encoding ("gzip", "zstd"), or "" if the store was not configured to
// write it.
func (a *Artifact) EncodedPath(encoding string) string {
	e, ok := encoders[encoding]
	if !ok {
		return ""
	}
	for _, enc := range a.encodings {
		if enc == encoding {
			return a.path + e.ext
		}
	}
	return ""
}

// Read returns the artifact content.
func (a *Artifact) Read() ([]byte, error) {
	data, err := afero.ReadFile(a.fs, a.path)
	if err != nil {
		return nil, readError(a.path, err)
	}
	return data, nil
}
