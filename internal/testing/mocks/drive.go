package mocks

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/dl-alexandre/sheetmirror/internal/sync/checksum"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
)

type driveFile struct {
	name    string
	content []byte
}

// MockDriveSource is an in-memory Drive that satisfies resolver.DriveSource
type MockDriveSource struct {
	mu    sync.Mutex
	files map[string]driveFile

	GetFunc      func(fileID string) (*types.RemoteFileDescriptor, error)
	DownloadFunc func(fileID string, w io.Writer) (int64, error)

	getCalls      int
	downloadCalls int
}

// NewMockDriveSource creates an empty mock Drive
func NewMockDriveSource() *MockDriveSource {
	return &MockDriveSource{files: make(map[string]driveFile)}
}

// AddFile stores a file and returns its descriptor
func (m *MockDriveSource) AddFile(fileID, name string, content []byte) *types.RemoteFileDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[fileID] = driveFile{name: name, content: append([]byte(nil), content...)}
	return m.describe(fileID)
}

// SetContent replaces the content of an existing file, keeping its name
func (m *MockDriveSource) SetContent(fileID string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.files[fileID]
	f.content = append([]byte(nil), content...)
	m.files[fileID] = f
}

func (m *MockDriveSource) describe(fileID string) *types.RemoteFileDescriptor {
	f, ok := m.files[fileID]
	if !ok {
		return nil
	}
	sum, _ := checksum.Hash(bytes.NewReader(f.content))
	return &types.RemoteFileDescriptor{
		ID:          fileID,
		Name:        f.name,
		Size:        int64(len(f.content)),
		MD5Checksum: sum,
	}
}

func notFound(fileID string) error {
	return utils.NewCLIError(utils.ErrCodeFileNotFound, "File not found").
		WithHTTPStatus(http.StatusNotFound).
		WithContext("fileId", fileID).
		Err()
}

// Get mocks files.get
func (m *MockDriveSource) Get(ctx context.Context, reqCtx *types.RequestContext, fileID string) (*types.RemoteFileDescriptor, error) {
	m.mu.Lock()
	m.getCalls++
	getFunc := m.GetFunc
	m.mu.Unlock()
	if getFunc != nil {
		return getFunc(fileID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	desc := m.describe(fileID)
	if desc == nil {
		return nil, notFound(fileID)
	}
	return desc, nil
}

// Download mocks files.get?alt=media
func (m *MockDriveSource) Download(ctx context.Context, reqCtx *types.RequestContext, fileID string, w io.Writer) (int64, error) {
	m.mu.Lock()
	m.downloadCalls++
	downloadFunc := m.DownloadFunc
	f, ok := m.files[fileID]
	m.mu.Unlock()
	if downloadFunc != nil {
		return downloadFunc(fileID, w)
	}
	if !ok {
		return 0, notFound(fileID)
	}
	n, err := w.Write(f.content)
	return int64(n), err
}

// Calls reports how many Get and Download calls were made
func (m *MockDriveSource) Calls() (gets, downloads int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls, m.downloadCalls
}
