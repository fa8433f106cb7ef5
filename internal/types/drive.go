package types

import (
	"fmt"
	"path"
)

// RemoteFileDescriptor describes the authoritative copy of a file in Drive
type RemoteFileDescriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType,omitempty"`
	Size        int64  `json:"size"`
	MD5Checksum string `json:"md5Checksum"`
}

// BaseName strips any directory component Drive allows in a name
func (d *RemoteFileDescriptor) BaseName() string {
	return path.Base(d.Name)
}

// FileKind tags which column a reference came from
type FileKind string

const (
	FileKindVideo FileKind = "video"
	FileKindImage FileKind = "image"
)

// FileReference is a link to a source file plus the column it came from
type FileReference struct {
	Link string   `json:"link"`
	Kind FileKind `json:"kind"`
}

func (f FileReference) String() string {
	return fmt.Sprintf("%s %s", f.Kind, f.Link)
}
