// Package checksum computes the content fingerprint Drive reports as md5Checksum.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// Hash streams r through MD5 and returns the lower-case hex digest
func Hash(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile hashes the named file on fs
func HashFile(fs billy.Filesystem, name string) (hash string, err error) {
	f, err := fs.Open(name)
	if err != nil {
		return "", fmt.Errorf("checksum: open %q: %w", name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return Hash(f)
}

// Equal compares two hex digests case-insensitively. An empty digest never matches.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
