package codegen

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/minio/highwayhash"
)

// digestKey is the fixed highwayhash key; digests only need to be stable,
// not secret.
var digestKey = []byte("uibuilder-filemap-digest-key-256")

// FileMap maps a relative file path to its content. It is the output
// contract of both generators.
type FileMap map[string]string

// Paths returns the file paths in sorted order.
func (m FileMap) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Digest hashes every path and content in sorted path order. Equal maps
// have equal digests.
func (m FileMap) Digest() (string, error) {
	h, err := highwayhash.New64(digestKey)
	if err != nil {
		return "", fmt.Errorf("creating digest: %w", err)
	}
	var lenBuf [8]byte
	for _, p := range m.Paths() {
		for _, part := range []string{p, m[p]} {
			binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(part)))
			h.Write(lenBuf[:])
			h.Write([]byte(part))
		}
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// Size returns the total content length in bytes.
func (m FileMap) Size() int {
	n := 0
	for _, c := range m {
		n += len(c)
	}
	return n
}
