package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/dl-alexandre/sheetmirror/internal/destination"
	"github.com/dl-alexandre/sheetmirror/internal/resolver"
	"github.com/dl-alexandre/sheetmirror/internal/scratch"
	testhelpers "github.com/dl-alexandre/sheetmirror/internal/testing"
	"github.com/dl-alexandre/sheetmirror/internal/testing/mocks"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	drive   *mocks.MockDriveSource
	dest    *mocks.MockDestination
	scratch *scratch.Store
	mirror  *Mirror
	conn    destination.Conn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		drive:   mocks.NewMockDriveSource(),
		dest:    mocks.NewMockDestination(),
		scratch: scratch.NewMemory(),
	}
	f.mirror = New(resolver.New(f.drive, nil), f.scratch, nil)
	conn, err := f.dest.Dial(context.Background())
	require.NoError(t, err)
	f.conn = conn
	return f
}

func (f *fixture) video(seed, name, content string) types.FileReference {
	id := testhelpers.FileID(seed)
	f.drive.AddFile(id, name, []byte(content))
	return types.FileReference{Link: testhelpers.DriveLink(id), Kind: types.FileKindVideo}
}

func (f *fixture) assertNoScratch(t *testing.T) {
	t.Helper()
	left, err := f.scratch.Leftovers()
	require.NoError(t, err)
	assert.Empty(t, left, "scratch files must not outlive a sync")
}

func (f *fixture) content(t *testing.T, file string) string {
	t.Helper()
	b, ok := f.dest.Content(file)
	require.True(t, ok, "%s should exist", file)
	return string(b)
}

func TestBackupName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "clip(m).mp4"},
		{"README", "README(m)"},
		{"archive.tar.gz", "archive.tar(m).gz"},
		{".env", ".env(m)"},
		{"a b.png", "a b(m).png"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, BackupName(tt.in))
		})
	}
}

func TestSync_UploadsWhenAbsent(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "clip.mp4", "frames")

	out, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUploaded, out)
	assert.Equal(t, "frames", f.content(t, "folderA/clip.mp4"))
	f.assertNoScratch(t)
}

func TestSync_NameOverride(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "raw/clip.mp4", "frames")

	_, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "intro.mp4")
	require.NoError(t, err)
	assert.Equal(t, []string{"folderA/intro.mp4"}, f.dest.Files())
}

func TestSync_EmptyNameUsesBaseName(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "raw/clip.mp4", "frames")

	_, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"folderA/clip.mp4"}, f.dest.Files())
}

func TestSync_Idempotent(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "clip.mp4", "frames")

	out, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.NoError(t, err)
	require.Equal(t, OutcomeUploaded, out)
	f.dest.ResetOps()

	out, err = f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)
	assert.Zero(t, f.dest.CountOps("stor"))
	assert.Zero(t, f.dest.CountOps("rename"))
	assert.Zero(t, f.dest.CountOps("dele"))
	assert.Equal(t, 1, f.dest.CountOps("retr"), "equal sizes are verified by hash")
	f.assertNoScratch(t)
}

func TestSync_SameSizeDifferentContentReplaces(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "clip.mp4", "new-bytes")
	f.dest.Put("folderA/clip.mp4", []byte("old-bytes"))

	out, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, out)
	assert.Equal(t, "new-bytes", f.content(t, "folderA/clip.mp4"))
	assert.Equal(t, []string{"folderA/clip.mp4"}, f.dest.Files(), "backup is removed after upload")
	assert.Equal(t, 1, f.dest.CountOps("rename"))
	f.assertNoScratch(t)
}

func TestSync_SizeMismatchSkipsHash(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "clip.mp4", "much longer content")
	f.dest.Put("folderA/clip.mp4", []byte("short"))

	out, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, out)
	assert.Zero(t, f.dest.CountOps("retr"))
}

func TestSync_UploadFailureKeepsBackup(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "clip.mp4", "version-2")
	f.dest.Put("folderA/clip.mp4", []byte("version-1"))
	f.dest.StoreErr = func(file string) error { return errors.New("451 local error") }

	_, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeTransferFailed))
	assert.Equal(t, "version-1", f.content(t, "folderA/clip(m).mp4"), "a valid copy survives")
	assert.Zero(t, f.dest.CountOps("dele"))
	f.assertNoScratch(t)
}

func TestSync_RenameNotFoundIsSwallowed(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "clip.mp4", "version-2")
	f.dest.Put("folderA/clip.mp4", []byte("v1"))
	f.dest.RenameErr = func(from, to string) error {
		return fmt.Errorf("550: %w", destination.ErrNotFound)
	}

	out, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, out)
	assert.Equal(t, "version-2", f.content(t, "folderA/clip.mp4"))
	assert.Zero(t, f.dest.CountOps("dele"), "no backup was made so none is removed")
}

func TestSync_RenameFailureProceeds(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "clip.mp4", "version-2")
	f.dest.Put("folderA/clip.mp4", []byte("v1"))
	f.dest.RenameErr = func(from, to string) error { return errors.New("553 not allowed") }

	out, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, out)
	assert.Equal(t, "version-2", f.content(t, "folderA/clip.mp4"))
}

func TestSync_BackupRemovalFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "clip.mp4", "version-2")
	f.dest.Put("folderA/clip.mp4", []byte("v1"))
	f.dest.RemoveErr = func(file string) error { return errors.New("550 permission denied") }

	out, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, out)
	assert.Equal(t, []string{"folderA/clip(m).mp4", "folderA/clip.mp4"}, f.dest.Files())
}

func TestSync_ResolutionFailure(t *testing.T) {
	f := newFixture(t)
	ref := types.FileReference{Link: "https://example.com/not-a-drive-link", Kind: types.FileKindImage}

	_, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeResolutionFailed))
	assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidReferenceFormat))
	assert.Empty(t, f.dest.Ops(), "nothing touches the destination")
}

func TestSync_MissingSourceFile(t *testing.T) {
	f := newFixture(t)
	ref := types.FileReference{Link: testhelpers.DriveLink(testhelpers.FileID("gone")), Kind: types.FileKindVideo}

	_, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeResolutionFailed))
	assert.True(t, utils.HasCode(err, utils.ErrCodeSourceFetchError))
}

func TestSync_DownloadFailure(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "clip.mp4", "frames")
	f.drive.DownloadFunc = func(fileID string, w io.Writer) (int64, error) {
		return 0, errors.New("stream reset")
	}

	_, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeTransferFailed))
	assert.Empty(t, f.dest.Files())
	f.assertNoScratch(t)
}

func TestSync_VerificationReadFailureReplaces(t *testing.T) {
	f := newFixture(t)
	ref := f.video("clip", "clip.mp4", "same!")
	f.dest.Put("folderA/clip.mp4", []byte("same!"))
	f.dest.RetrErr = func(file string) error { return errors.New("425 can't open data connection") }

	out, err := f.mirror.Sync(context.Background(), f.conn, ref, "folderA", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, out)
	f.assertNoScratch(t)
}
