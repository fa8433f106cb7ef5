// Package mirror copies one Drive file onto the destination, transferring only
// when the destination copy is missing or differs.
package mirror

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/dl-alexandre/sheetmirror/internal/destination"
	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/dl-alexandre/sheetmirror/internal/scratch"
	"github.com/dl-alexandre/sheetmirror/internal/sync/checksum"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/dustin/go-humanize"
)

// Outcome is what a sync did to the destination
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeReplaced Outcome = "replaced"
	OutcomeUploaded Outcome = "uploaded"
)

// Source resolves links and streams file content
type Source interface {
	Resolve(ctx context.Context, link string) (*types.RemoteFileDescriptor, error)
	Download(ctx context.Context, desc *types.RemoteFileDescriptor, w io.Writer) (int64, error)
}

// Mirror syncs single files
type Mirror struct {
	source  Source
	scratch *scratch.Store
	logger  logging.Logger
}

// New creates a mirror
func New(source Source, store *scratch.Store, logger logging.Logger) *Mirror {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Mirror{source: source, scratch: store, logger: logger}
}

// BackupName inserts the backup marker before the extension: clip.mp4 -> clip(m).mp4
func BackupName(name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		return name + utils.BackupMarker
	}
	return base + utils.BackupMarker + ext
}

// Sync makes destFolder/destName hold the content of ref. An empty destName
// uses the source file's own name.
func (m *Mirror) Sync(ctx context.Context, conn destination.Conn, ref types.FileReference, destFolder, destName string) (Outcome, error) {
	desc, err := m.source.Resolve(ctx, ref.Link)
	if err != nil {
		return "", utils.NewCLIError(utils.ErrCodeResolutionFailed, "could not resolve source file").
			WithContext("link", ref.Link).
			WithContext("kind", string(ref.Kind)).
			WithCause(err).
			Err()
	}
	if destName == "" {
		destName = desc.BaseName()
	}
	target := destination.Join(destFolder, destName)
	fields := []logging.Field{
		logging.F("folder", destFolder),
		logging.F("name", destName),
		logging.F("fileId", desc.ID),
	}

	if err := conn.EnsureDir(ctx, destFolder); err != nil {
		return "", transferFailed("create destination folder", target, err)
	}
	entries, err := conn.List(ctx, destFolder)
	if err != nil {
		return "", transferFailed("list destination folder", target, err)
	}

	existing, exists := destination.Find(entries, destName)
	backup := ""
	if exists {
		if m.unchanged(ctx, conn, target, existing, desc) {
			m.logger.Info("File is up to date", fields...)
			return OutcomeSkipped, nil
		}

		candidate := destination.Join(destFolder, BackupName(destName))
		switch err := conn.Rename(ctx, target, candidate); {
		case err == nil:
			backup = candidate
		case destination.IsNotFound(err):
			m.logger.Debug("Existing file vanished before backup", append(fields, logging.F("error", err.Error()))...)
		default:
			m.logger.Warn("Could not back up existing file", append(fields, logging.F("error", err.Error()))...)
		}
	}

	n, err := m.transfer(ctx, conn, desc, target)
	if err != nil {
		if backup != "" {
			m.logger.Warn("Upload failed, backup left in place", append(fields, logging.F("backup", backup))...)
		}
		return "", err
	}

	if backup != "" {
		if err := conn.Remove(ctx, backup); err != nil {
			m.logger.Warn("Could not remove backup", append(fields, logging.F("backup", backup), logging.F("error", err.Error()))...)
		}
	}

	m.logger.Info("File transferred", append(fields, logging.F("size", humanize.Bytes(uint64(n))))...)
	if exists {
		return OutcomeReplaced, nil
	}
	return OutcomeUploaded, nil
}

// unchanged reports whether the destination already holds desc's content.
// Sizes are compared first; only equal sizes cost a download and hash.
func (m *Mirror) unchanged(ctx context.Context, conn destination.Conn, target string, existing destination.Entry, desc *types.RemoteFileDescriptor) bool {
	if existing.Size != desc.Size {
		m.logger.Debug("Size differs",
			logging.F("target", target),
			logging.F("destination", humanize.Bytes(uint64(existing.Size))),
			logging.F("source", humanize.Bytes(uint64(desc.Size))),
		)
		return false
	}

	f, release, err := m.scratch.Create("verify-")
	if err != nil {
		m.logger.Warn("Could not create scratch file for verification", logging.F("error", err.Error()))
		return false
	}
	defer release()

	if _, err := conn.Retrieve(ctx, target, f); err != nil {
		m.logger.Warn("Could not read destination copy for verification",
			logging.F("target", target),
			logging.F("error", err.Error()),
		)
		return false
	}
	if err := f.Close(); err != nil {
		m.logger.Warn("Could not flush verification copy", logging.F("error", err.Error()))
		return false
	}

	sum, err := checksum.HashFile(m.scratch.Filesystem(), f.Name())
	if err != nil {
		m.logger.Warn("Could not hash destination copy", logging.F("error", err.Error()))
		return false
	}
	_ = release()
	return checksum.Equal(sum, desc.MD5Checksum)
}

// transfer downloads desc to scratch and uploads it to target
func (m *Mirror) transfer(ctx context.Context, conn destination.Conn, desc *types.RemoteFileDescriptor, target string) (int64, error) {
	f, release, err := m.scratch.Create("sync-")
	if err != nil {
		return 0, transferFailed("create scratch file", target, err)
	}
	defer release()

	n, err := m.source.Download(ctx, desc, f)
	if err != nil {
		return 0, transferFailed("download from Drive", target, err)
	}
	if err := f.Rewind(); err != nil {
		return 0, transferFailed("rewind scratch file", target, err)
	}
	if err := conn.Store(ctx, target, f); err != nil {
		return 0, transferFailed("upload to destination", target, err)
	}
	return n, nil
}

func transferFailed(step, target string, err error) error {
	return utils.NewCLIError(utils.ErrCodeTransferFailed, "failed to "+step).
		WithContext("target", target).
		WithCause(err).
		Err()
}
