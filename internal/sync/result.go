package sync

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dl-alexandre/sheetmirror/internal/sync/mirror"
	"github.com/dl-alexandre/sheetmirror/internal/types"
)

const (
	summaryNoChanges = "No changes detected in the sheet."
	summaryUpdated   = "Folders updated based on sheet changes."
)

// FileResult records what happened to one file of a row
type FileResult struct {
	Row     int            `json:"row"`
	Folder  string         `json:"folder"`
	Name    string         `json:"name,omitempty"`
	Kind    types.FileKind `json:"kind"`
	Link    string         `json:"link"`
	Outcome mirror.Outcome `json:"outcome,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
}

// Result describes one run
type Result struct {
	RunID       string       `json:"runId"`
	Mode        string       `json:"mode"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
	ChangedRows int          `json:"changedRows"`
	InvalidRows int          `json:"invalidRows"`
	Uploaded    int          `json:"uploaded"`
	Replaced    int          `json:"replaced"`
	Skipped     int          `json:"skipped"`
	Failed      int          `json:"failed"`
	Files       []FileResult `json:"files"`
}

func (r *Result) add(f FileResult) {
	r.Files = append(r.Files, f)
	if f.Error != "" {
		r.Failed++
		return
	}
	switch f.Outcome {
	case mirror.OutcomeUploaded:
		r.Uploaded++
	case mirror.OutcomeReplaced:
		r.Replaced++
	case mirror.OutcomeSkipped:
		r.Skipped++
	}
}

// Summary is the human-readable outcome of the run
func (r *Result) Summary() string {
	if r.ChangedRows == 0 {
		return summaryNoChanges
	}
	return fmt.Sprintf("%s %d rows changed: %d uploaded, %d replaced, %d skipped, %d failed, %d invalid rows.",
		summaryUpdated, r.ChangedRows, r.Uploaded, r.Replaced, r.Skipped, r.Failed, r.InvalidRows)
}

// Duration is how long the run took
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Result) AsTableRenderer() types.TableRenderer {
	return &resultTable{result: r}
}

type resultTable struct {
	result *Result
}

func (t *resultTable) Headers() []string {
	return []string{"Row", "Folder", "Kind", "Name", "Outcome", "Error"}
}

func (t *resultTable) Rows() [][]string {
	rows := make([][]string, len(t.result.Files))
	for i, f := range t.result.Files {
		rows[i] = []string{
			strconv.Itoa(f.Row + 1),
			f.Folder,
			string(f.Kind),
			f.Name,
			string(f.Outcome),
			f.Error,
		}
	}
	return rows
}

func (t *resultTable) EmptyMessage() string {
	return t.result.Summary()
}
