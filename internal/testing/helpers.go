package testing

import (
	"context"
	"strings"

	"github.com/dl-alexandre/sheetmirror/internal/types"
)

// TestContext creates a standard test context
func TestContext() context.Context {
	return context.Background()
}

// TestRequestContext creates a standard request context for testing
func TestRequestContext() *types.RequestContext {
	return &types.RequestContext{
		Profile:         "test-profile",
		Service:         types.ServiceDrive,
		InvolvedFileIDs: []string{},
		RequestType:     types.RequestTypeGetByID,
		TraceID:         "test-trace-id",
	}
}

// FileID pads seed into a well-formed Drive identifier (25+ chars of [A-Za-z0-9_-])
func FileID(seed string) string {
	if len(seed) >= 25 {
		return seed
	}
	return seed + strings.Repeat("x", 25-len(seed))
}

// DriveLink builds a sharing link for fileID
func DriveLink(fileID string) string {
	return "https://drive.google.com/file/d/" + fileID + "/view?usp=sharing"
}

// SheetRow builds a worksheet row: folder, video link, image link, name override
func SheetRow(cells ...string) types.Row {
	return types.Row(cells)
}
