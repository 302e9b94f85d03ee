package bundler

import (
	"crypto/md5"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// HashFunc defines a function that creates a new hash.Hash instance.
type HashFunc func() hash.Hash

// Names accepted in Config.Hash.
const (
	HashXXH    = "xxhash"
	HashBLAKE3 = "blake3"
	HashMD5    = "md5"
)

// blake3Size truncates BLAKE3 output to 128 bits, which is plenty for
// naming bundles.
const blake3Size = 16

var hashFuncs = map[string]HashFunc{
	HashXXH: func() hash.Hash { return xxhash.New() },
	HashBLAKE3: func() hash.Hash {
		return truncatedHash{Hash: blake3.New(), size: blake3Size}
	},
	HashMD5: md5.New,
}

func lookupHash(name string) (HashFunc, error) {
	fn, ok := hashFuncs[name]
	if !ok {
		return nil, fmt.Errorf("unknown hash function: %q", name)
	}
	return fn, nil
}

// truncatedHash keeps the first size bytes of the wrapped digest.
type truncatedHash struct {
	hash.Hash
	size int
}

func (t truncatedHash) Sum(b []byte) []byte {
	sum := t.Hash.Sum(nil)
	return append(b, sum[:t.size]...)
}

func (t truncatedHash) Size() int {
	return t.size
}

// Default size for the buffer used when hashing files
const defaultBufferSize = 32 * 1024 // 32KB

// bufferPool is a pool of byte slices used for file I/O during hashing
var bufferPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, defaultBufferSize)
		return &buffer
	},
}

// hashFile hashes the content from a reader using the provided hash function.
func hashFile(content io.Reader, h hash.Hash) error {
	bufPtr := bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer bufferPool.Put(bufPtr)

	_, err := io.CopyBuffer(h, content, buffer)
	if err != nil {
		return fmt.Errorf("failed to copy content: %w", err)
	}
	return nil
}
