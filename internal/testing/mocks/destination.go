package mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/dl-alexandre/sheetmirror/internal/destination"
)

// MockDestination is an in-memory destination store with failure injection.
// Every Conn it dials shares the same file tree.
type MockDestination struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
	ops   []string

	DialErr   error
	ListErr   func(dir string) error
	RetrErr   func(file string) error
	StoreErr  func(file string) error
	RenameErr func(from, to string) error
	RemoveErr func(file string) error
	EnsureErr func(dir string) error

	dials  int
	closes int
}

// NewMockDestination creates an empty store
func NewMockDestination() *MockDestination {
	return &MockDestination{
		files: make(map[string][]byte),
		dirs:  map[string]bool{".": true},
	}
}

func clean(p string) string {
	return strings.TrimPrefix(path.Clean(p), "/")
}

// Put seeds a file, creating its parent directories
func (m *MockDestination) Put(file string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file = clean(file)
	m.mkdirAll(path.Dir(file))
	m.files[file] = append([]byte(nil), content...)
}

// Content returns a stored file
func (m *MockDestination) Content(file string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[clean(file)]
	return b, ok
}

// Files lists stored file paths in sorted order
func (m *MockDestination) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for f := range m.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Ops returns the log of mutating and reading operations, e.g. "stor a/b.mp4"
func (m *MockDestination) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

// CountOps counts logged operations with the given verb
func (m *MockDestination) CountOps(verb string) int {
	n := 0
	for _, op := range m.Ops() {
		if strings.HasPrefix(op, verb+" ") {
			n++
		}
	}
	return n
}

// ResetOps clears the operation log
func (m *MockDestination) ResetOps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

// Dials reports how many connections were opened
func (m *MockDestination) Dials() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// Closes reports how many connections were closed
func (m *MockDestination) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Dial implements destination.Dialer
func (m *MockDestination) Dial(ctx context.Context) (destination.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dials++
	if m.DialErr != nil {
		return nil, m.DialErr
	}
	return &mockConn{dest: m}, nil
}

func (m *MockDestination) mkdirAll(dir string) {
	dir = clean(dir)
	for dir != "." && dir != "" {
		m.dirs[dir] = true
		dir = path.Dir(dir)
	}
}

func (m *MockDestination) record(format string, args ...interface{}) {
	m.ops = append(m.ops, fmt.Sprintf(format, args...))
}

func notExist(op, target string) error {
	return fmt.Errorf("mock: %s %q: %w", op, target, destination.ErrNotFound)
}

type mockConn struct {
	dest   *MockDestination
	closed bool
}

func (c *mockConn) EnsureDir(ctx context.Context, dir string) error {
	m := c.dest
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("mkdir %s", clean(dir))
	if m.EnsureErr != nil {
		if err := m.EnsureErr(dir); err != nil {
			return err
		}
	}
	m.mkdirAll(dir)
	return nil
}

func (c *mockConn) List(ctx context.Context, dir string) ([]destination.Entry, error) {
	m := c.dest
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = clean(dir)
	m.record("list %s", dir)
	if m.ListErr != nil {
		if err := m.ListErr(dir); err != nil {
			return nil, err
		}
	}
	if !m.dirs[dir] {
		return nil, notExist("list", dir)
	}

	var entries []destination.Entry
	for f, content := range m.files {
		if path.Dir(f) == dir {
			entries = append(entries, destination.Entry{Name: path.Base(f), Size: int64(len(content))})
		}
	}
	for d := range m.dirs {
		if d != dir && path.Dir(d) == dir {
			entries = append(entries, destination.Entry{Name: path.Base(d), IsDir: true})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (c *mockConn) Retrieve(ctx context.Context, file string, w io.Writer) (int64, error) {
	m := c.dest
	m.mu.Lock()
	file = clean(file)
	m.record("retr %s", file)
	var injected error
	if m.RetrErr != nil {
		injected = m.RetrErr(file)
	}
	content, ok := m.files[file]
	m.mu.Unlock()
	if injected != nil {
		return 0, injected
	}
	if !ok {
		return 0, notExist("retr", file)
	}
	return io.Copy(w, bytes.NewReader(content))
}

func (c *mockConn) Store(ctx context.Context, file string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m := c.dest
	m.mu.Lock()
	defer m.mu.Unlock()
	file = clean(file)
	m.record("stor %s", file)
	if m.StoreErr != nil {
		if err := m.StoreErr(file); err != nil {
			return err
		}
	}
	if !m.dirs[path.Dir(file)] {
		return notExist("stor", file)
	}
	m.files[file] = data
	return nil
}

func (c *mockConn) Rename(ctx context.Context, from, to string) error {
	m := c.dest
	m.mu.Lock()
	defer m.mu.Unlock()
	from, to = clean(from), clean(to)
	m.record("rename %s %s", from, to)
	if m.RenameErr != nil {
		if err := m.RenameErr(from, to); err != nil {
			return err
		}
	}
	content, ok := m.files[from]
	if !ok {
		return notExist("rename", from)
	}
	delete(m.files, from)
	m.files[to] = content
	return nil
}

func (c *mockConn) Remove(ctx context.Context, file string) error {
	m := c.dest
	m.mu.Lock()
	defer m.mu.Unlock()
	file = clean(file)
	m.record("dele %s", file)
	if m.RemoveErr != nil {
		if err := m.RemoveErr(file); err != nil {
			return err
		}
	}
	if _, ok := m.files[file]; !ok {
		return notExist("dele", file)
	}
	delete(m.files, file)
	return nil
}

func (c *mockConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.dest.mu.Lock()
	c.dest.closes++
	c.dest.mu.Unlock()
	return nil
}
