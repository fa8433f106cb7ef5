// Package destination abstracts the remote file store that mirrored files land in.
package destination

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound reports that a file or directory does not exist on the destination
var ErrNotFound = errors.New("destination: not found")

// IsNotFound reports whether err means the target was absent
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Entry is one item of a directory listing
type Entry struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"isDir"`
}

// Conn is an open session against the destination. A Conn is not safe for
// concurrent use; check one out of a Pool per goroutine.
type Conn interface {
	// EnsureDir creates dir and any missing parents; an existing dir is not an error
	EnsureDir(ctx context.Context, dir string) error
	List(ctx context.Context, dir string) ([]Entry, error)
	Retrieve(ctx context.Context, file string, w io.Writer) (int64, error)
	Store(ctx context.Context, file string, r io.Reader) error
	Rename(ctx context.Context, from, to string) error
	Remove(ctx context.Context, file string) error
	Close() error
}

// Dialer opens connections
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}

// Join builds a destination path from a folder key and a file name
func Join(dir, name string) string {
	return path.Join(dir, name)
}

// Find returns the entry called name, if listed
func Find(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Name == name && !e.IsDir {
			return e, true
		}
	}
	return Entry{}, false
}

// segments splits a slash path into cumulative prefixes: a/b/c -> a, a/b, a/b/c
func segments(dir string) []string {
	clean := path.Clean(dir)
	if clean == "." || clean == "/" {
		return nil
	}
	absolute := strings.HasPrefix(clean, "/")
	parts := strings.Split(strings.Trim(clean, "/"), "/")
	out := make([]string, 0, len(parts))
	for i := range parts {
		p := strings.Join(parts[:i+1], "/")
		if absolute {
			p = "/" + p
		}
		out = append(out, p)
	}
	return out
}
