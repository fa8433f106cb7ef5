package resolver

import (
	"context"
	"io"
	"regexp"

	"github.com/dl-alexandre/sheetmirror/internal/api"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
)

// DriveSource is the subset of Drive the resolver needs
type DriveSource interface {
	Get(ctx context.Context, reqCtx *types.RequestContext, fileID string) (*types.RemoteFileDescriptor, error)
	Download(ctx context.Context, reqCtx *types.RequestContext, fileID string, w io.Writer) (int64, error)
}

// linkPattern matches the /d/<identifier> segment of a Drive sharing link
var linkPattern = regexp.MustCompile(`/d/([a-zA-Z0-9_-]{25,})`)

// ParseLink extracts the Drive file identifier from a sharing link
func ParseLink(link string) (string, error) {
	m := linkPattern.FindStringSubmatch(link)
	if m == nil {
		return "", utils.NewCLIError(utils.ErrCodeInvalidReferenceFormat,
			"link does not contain a /d/<id> segment").
			WithContext("link", link).
			Err()
	}
	return m[1], nil
}

// Resolver turns sharing links into fresh file descriptors
type Resolver struct {
	drive   DriveSource
	keys    *api.ResourceKeyManager
	profile string
}

// New creates a resolver. keys may be nil when resource keys are not tracked.
func New(drive DriveSource, keys *api.ResourceKeyManager) *Resolver {
	return &Resolver{drive: drive, keys: keys, profile: "default"}
}

// Resolve parses link and fetches the descriptor from Drive. Descriptors are never cached.
func (r *Resolver) Resolve(ctx context.Context, link string) (*types.RemoteFileDescriptor, error) {
	fileID, err := ParseLink(link)
	if err != nil {
		return nil, err
	}
	if r.keys != nil {
		r.keys.AddKey(fileID, api.ResourceKeyFromLink(link))
	}

	reqCtx := api.NewRequestContext(r.profile, types.ServiceDrive, types.RequestTypeGetByID)
	desc, err := r.drive.Get(ctx, reqCtx, fileID)
	if err != nil {
		return nil, utils.NewCLIError(utils.ErrCodeSourceFetchError, "failed to fetch file metadata").
			WithContext("fileId", fileID).
			WithContext("traceId", reqCtx.TraceID).
			WithCause(err).
			Err()
	}
	if desc.ID == "" {
		desc.ID = fileID
	}
	return desc, nil
}

// Download streams the descriptor's blob into w
func (r *Resolver) Download(ctx context.Context, desc *types.RemoteFileDescriptor, w io.Writer) (int64, error) {
	reqCtx := api.NewRequestContext(r.profile, types.ServiceDrive, types.RequestTypeDownload)
	return r.drive.Download(ctx, reqCtx, desc.ID, w)
}
