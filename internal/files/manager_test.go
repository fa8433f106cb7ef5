package files

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dl-alexandre/sheetmirror/internal/api"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const testFileID = "1AbCdEfGhIjKlMnOpQrStUvWxYz"

func newTestManager(t *testing.T, handler http.HandlerFunc) (*Manager, *api.Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	client := api.NewClient(1, 0, nil)
	return NewManager(client, svc), client
}

func reqCtx() *types.RequestContext {
	return api.NewRequestContext("default", types.ServiceDrive, types.RequestTypeGetByID)
}

func TestManagerGet(t *testing.T) {
	var gotFields, gotKeys string
	m, client := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		gotFields = r.URL.Query().Get("fields")
		gotKeys = r.Header.Get(api.ResourceKeyHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"` + testFileID + `","name":"clip.mp4","mimeType":"video/mp4","size":"1024","md5Checksum":"0cc175b9c0f1b6a831c399e269772661"}`))
	})
	client.ResourceKeys().AddKey(testFileID, "0-key")

	desc, err := m.Get(context.Background(), reqCtx(), testFileID)
	require.NoError(t, err)

	assert.Equal(t, utils.DescriptorFields, gotFields)
	assert.Equal(t, testFileID+"/0-key", gotKeys)
	assert.Equal(t, "clip.mp4", desc.Name)
	assert.Equal(t, int64(1024), desc.Size)
	assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661", desc.MD5Checksum)
}

func TestManagerGet_NotFound(t *testing.T) {
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
	})

	_, err := m.Get(context.Background(), reqCtx(), testFileID)
	assert.True(t, utils.HasCode(err, utils.ErrCodeFileNotFound))
}

func TestManagerDownload(t *testing.T) {
	attempts := 0
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if r.URL.Query().Get("alt") != "media" {
			t.Errorf("expected alt=media, got %q", r.URL.RawQuery)
		}
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("blob-content"))
	})

	var buf bytes.Buffer
	n, err := m.Download(context.Background(), reqCtx(), testFileID, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len("blob-content")), n)
	assert.Equal(t, "blob-content", buf.String())
	assert.Equal(t, 2, attempts)
}

func TestConvertDriveFile(t *testing.T) {
	assert.Equal(t, &types.RemoteFileDescriptor{}, convertDriveFile(nil))

	got := convertDriveFile(&drive.File{Id: "x", Name: "a/b.png", Size: 3, Md5Checksum: "abc"})
	assert.Equal(t, "b.png", got.BaseName())
}
