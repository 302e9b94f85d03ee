package bundler

import (
	"encoding/hex"
	"io"
	"sort"
	"strings"
)

// Identifier names a bundle. It is derived from the sorted member paths and
// the content type only, and doubles as the artifact file name.
type Identifier string

// String returns the identifier as a file name.
func (id Identifier) String() string {
	return string(id)
}

// pathDelimiter joins sorted member paths before fingerprinting.
const pathDelimiter = "."

// KeyGenerator derives bundle identifiers from file sets.
//
// Identifiers address file set membership, not file contents: editing a
// member leaves its bundle identifier unchanged and the existing artifact is
// served until it is deleted or rebuilt with overwrite.
type KeyGenerator struct {
	hashFunc HashFunc
}

// NewKeyGenerator creates a generator fingerprinting with hashFunc.
// A nil hashFunc selects xxHash.
func NewKeyGenerator(hashFunc HashFunc) *KeyGenerator {
	if hashFunc == nil {
		hashFunc = hashFuncs[HashXXH]
	}
	return &KeyGenerator{hashFunc: hashFunc}
}

// Identifier returns the bundle identifier for set.
// Two sets with the same members and type always yield the same identifier,
// whatever order the members were added in.
func (g *KeyGenerator) Identifier(set *FileSet) Identifier {
	return g.identifierFor(set.Paths(), set.Type())
}

func (g *KeyGenerator) identifierFor(paths []string, typ Type) Identifier {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	h := g.hashFunc()
	_, _ = io.WriteString(h, strings.Join(sorted, pathDelimiter))

	return Identifier(hex.EncodeToString(h.Sum(nil)) + "." + typ.Extension())
}
