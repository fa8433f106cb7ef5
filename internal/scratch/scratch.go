// Package scratch holds transient copies of files while they move from Drive to
// the destination. Nothing written here is meant to outlive a single sync.
package scratch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const workDir = "work"

// Store creates scratch files on a billy filesystem
type Store struct {
	fs billy.Filesystem
}

// NewOS roots a store at dir on the local disk, creating it if needed
func NewOS(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("scratch: create %q: %w", dir, err)
	}
	return New(osfs.New(dir))
}

// NewMemory returns a store that never touches the disk
func NewMemory() *Store {
	s, _ := New(memfs.New())
	return s
}

// New wraps fs
func New(fs billy.Filesystem) (*Store, error) {
	if err := fs.MkdirAll(workDir, 0700); err != nil {
		return nil, fmt.Errorf("scratch: mkdirall %q: %w", workDir, err)
	}
	return &Store{fs: fs}, nil
}

// Filesystem exposes the underlying filesystem
func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
}

// File is a read/write scratch file
type File struct {
	billy.File
	store *Store
	once  sync.Once
	err   error
}

// Create opens a new empty scratch file. The returned release func closes and
// removes it and may be called more than once.
func (s *Store) Create(prefix string) (*File, func() error, error) {
	f, err := util.TempFile(s.fs, workDir, prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("scratch: create %q: %w", prefix, err)
	}
	sf := &File{File: f, store: s}
	return sf, sf.Release, nil
}

// Rewind seeks back to the start so the content can be read after writing
func (f *File) Rewind() error {
	_, err := f.Seek(0, io.SeekStart)
	return err
}

// Release closes and deletes the file
func (f *File) Release() error {
	f.once.Do(func() {
		closeErr := f.File.Close()
		if errors.Is(closeErr, os.ErrClosed) {
			closeErr = nil
		}
		removeErr := f.store.fs.Remove(f.Name())
		if errors.Is(removeErr, os.ErrNotExist) {
			removeErr = nil
		}
		f.err = errors.Join(closeErr, removeErr)
	})
	return f.err
}

// Leftovers lists scratch files that have not been released
func (s *Store) Leftovers() ([]string, error) {
	infos, err := s.fs.ReadDir(workDir)
	if err != nil {
		return nil, fmt.Errorf("scratch: readdir: %w", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}
