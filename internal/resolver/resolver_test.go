package resolver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dl-alexandre/sheetmirror/internal/api"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fileID = "1AbCdEfGhIjKlMnOpQrStUvWxYz"

func TestParseLink(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		want    string
		wantErr bool
	}{
		{"view link", "https://drive.google.com/file/d/" + fileID + "/view?usp=sharing", fileID, false},
		{"bare segment", "/d/" + fileID, fileID, false},
		{"dashes and underscores", "https://drive.google.com/file/d/abc_DEF-123456789012345678901/view", "abc_DEF-123456789012345678901", false},
		{"exactly 25 chars", "/d/" + strings.Repeat("a", 25), strings.Repeat("a", 25), false},
		{"24 chars", "/d/" + strings.Repeat("a", 24), "", true},
		{"open?id form", "https://drive.google.com/open?id=" + fileID, "", true},
		{"empty", "", "", true},
		{"not a link", "hello world", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLink(tt.link)
			if tt.wantErr {
				assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidReferenceFormat), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubDrive struct {
	desc     *types.RemoteFileDescriptor
	getErr   error
	content  string
	getCalls int
	gotID    string
	gotKeys  string
}

func (s *stubDrive) Get(ctx context.Context, reqCtx *types.RequestContext, id string) (*types.RemoteFileDescriptor, error) {
	s.getCalls++
	s.gotID = id
	if s.getErr != nil {
		return nil, s.getErr
	}
	d := *s.desc
	return &d, nil
}

func (s *stubDrive) Download(ctx context.Context, reqCtx *types.RequestContext, id string, w io.Writer) (int64, error) {
	n, err := io.Copy(w, strings.NewReader(s.content))
	return n, err
}

func TestResolve(t *testing.T) {
	drive := &stubDrive{desc: &types.RemoteFileDescriptor{ID: fileID, Name: "clip.mp4", Size: 3, MD5Checksum: "abc"}}
	keys := api.NewResourceKeyManager()
	r := New(drive, keys)

	desc, err := r.Resolve(context.Background(), "https://drive.google.com/file/d/"+fileID+"/view?resourcekey=0-xyz")
	require.NoError(t, err)
	assert.Equal(t, fileID, drive.gotID)
	assert.Equal(t, "clip.mp4", desc.Name)

	key, ok := keys.GetKey(fileID)
	assert.True(t, ok)
	assert.Equal(t, "0-xyz", key)

	// No caching: a second resolve hits Drive again.
	_, err = r.Resolve(context.Background(), "/d/"+fileID)
	require.NoError(t, err)
	assert.Equal(t, 2, drive.getCalls)
}

func TestResolve_InvalidLinkSkipsDrive(t *testing.T) {
	drive := &stubDrive{}
	_, err := New(drive, nil).Resolve(context.Background(), "not-a-link")
	assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidReferenceFormat))
	assert.Zero(t, drive.getCalls)
}

func TestResolve_FetchError(t *testing.T) {
	notFound := utils.NewCLIError(utils.ErrCodeFileNotFound, "File not found").Err()
	drive := &stubDrive{getErr: notFound}

	_, err := New(drive, nil).Resolve(context.Background(), "/d/"+fileID)
	assert.True(t, utils.HasCode(err, utils.ErrCodeSourceFetchError))
	assert.True(t, utils.HasCode(err, utils.ErrCodeFileNotFound))

	_, err = New(&stubDrive{getErr: errors.New("dial tcp: timeout")}, nil).Resolve(context.Background(), "/d/"+fileID)
	assert.Equal(t, utils.ErrCodeSourceFetchError, utils.ErrorCode(err))
}

func TestDownload(t *testing.T) {
	drive := &stubDrive{content: "payload"}
	var buf bytes.Buffer
	n, err := New(drive, nil).Download(context.Background(), &types.RemoteFileDescriptor{ID: fileID}, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", buf.String())
}
