package sync

import (
	"strings"

	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
)

// Sheet columns, zero-based
const (
	colFolder = iota
	colVideo
	colImage
	colName
)

// Row is a parsed worksheet row
type Row struct {
	Index        int    `json:"index"`
	Folder       string `json:"folder"`
	VideoLink    string `json:"videoLink,omitempty"`
	ImageLink    string `json:"imageLink,omitempty"`
	NameOverride string `json:"nameOverride,omitempty"`
}

// Target is one file of a row and the name it gets at the destination.
// An empty DestName means the source file's own name.
type Target struct {
	Ref      types.FileReference
	DestName string
}

// ParseRow validates a raw row. The folder key is kept verbatim; links and the
// name override are trimmed.
func ParseRow(index int, cells types.Row) (Row, error) {
	row := Row{
		Index:        index,
		Folder:       cells.Cell(colFolder),
		VideoLink:    strings.TrimSpace(cells.Cell(colVideo)),
		ImageLink:    strings.TrimSpace(cells.Cell(colImage)),
		NameOverride: strings.TrimSpace(cells.Cell(colName)),
	}

	if strings.TrimSpace(row.Folder) == "" {
		return row, invalidRow(index, "folder key is empty")
	}
	if row.VideoLink == "" && row.ImageLink == "" {
		return row, invalidRow(index, "row has no video or image link")
	}
	return row, nil
}

func invalidRow(index int, msg string) error {
	return utils.NewCLIError(utils.ErrCodeInvalidRow, msg).
		WithContext("row", index+1).
		Err()
}

// Targets lists the row's files in column order. The name override applies to
// the first file only so two files never share a destination name.
func (r Row) Targets() []Target {
	var targets []Target
	if r.VideoLink != "" {
		targets = append(targets, Target{Ref: types.FileReference{Link: r.VideoLink, Kind: types.FileKindVideo}})
	}
	if r.ImageLink != "" {
		targets = append(targets, Target{Ref: types.FileReference{Link: r.ImageLink, Kind: types.FileKindImage}})
	}
	if len(targets) > 0 {
		targets[0].DestName = r.NameOverride
	}
	return targets
}

// isBlank reports whether every cell of the raw row is blank
func isBlank(cells types.Row) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
