package records

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dl-alexandre/sheetmirror/internal/api"
	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/dl-alexandre/sheetmirror/internal/sheets"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
)

// Syncer copies a header-row range of a sheet into the record store
type Syncer struct {
	values        sheets.ValuesGetter
	store         *Store
	spreadsheetID string
	rangeNotation string
	collection    string
	logger        logging.Logger
}

// NewSyncer creates a syncer
func NewSyncer(values sheets.ValuesGetter, store *Store, spreadsheetID, rangeNotation, collection string, logger logging.Logger) *Syncer {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Syncer{
		values:        values,
		store:         store,
		spreadsheetID: spreadsheetID,
		rangeNotation: rangeNotation,
		collection:    collection,
		logger:        logger,
	}
}

// PushResult counts what a push did
type PushResult struct {
	Collection string   `json:"collection"`
	Headers    []string `json:"headers"`
	Rows       int      `json:"rows"`
	Inserted   int      `json:"inserted"`
	Updated    int      `json:"updated"`
	Unchanged  int      `json:"unchanged"`
	Skipped    int      `json:"skipped"`
}

// Summary is the human-readable outcome
func (r *PushResult) Summary() string {
	if r.Rows == 0 {
		return "No data found in the records sheet."
	}
	return fmt.Sprintf("Records synced to %s: %d inserted, %d updated, %d unchanged, %d skipped.",
		r.Collection, r.Inserted, r.Updated, r.Unchanged, r.Skipped)
}

func (r *PushResult) AsTableRenderer() types.TableRenderer {
	return &pushTable{r}
}

type pushTable struct{ r *PushResult }

func (t *pushTable) Headers() []string {
	return []string{"Collection", "Rows", "Inserted", "Updated", "Unchanged", "Skipped"}
}

func (t *pushTable) Rows() [][]string {
	return [][]string{{
		t.r.Collection,
		strconv.Itoa(t.r.Rows),
		strconv.Itoa(t.r.Inserted),
		strconv.Itoa(t.r.Updated),
		strconv.Itoa(t.r.Unchanged),
		strconv.Itoa(t.r.Skipped),
	}}
}

func (t *pushTable) EmptyMessage() string { return t.r.Summary() }

// Push reads the range and upserts every data row keyed by its first cell.
// Rows without a key are skipped.
func (s *Syncer) Push(ctx context.Context) (*PushResult, error) {
	if s.spreadsheetID == "" {
		return nil, utils.NewCLIError(utils.ErrCodeSourceUnavailable, "sheet identifier is not configured").Err()
	}

	reqCtx := api.NewRequestContext("default", types.ServiceSheets, types.RequestTypeSheetValues)
	values, err := s.values.GetValues(ctx, reqCtx, s.spreadsheetID, s.rangeNotation)
	if err != nil {
		return nil, utils.NewCLIError(utils.ErrCodeSourceUnavailable, "failed to read records sheet").
			WithContext("range", s.rangeNotation).
			WithCause(err).
			Err()
	}

	result := &PushResult{Collection: s.collection}
	rows := values.Rows()
	if len(rows) == 0 {
		s.logger.Info("No data found in the records sheet", logging.F("range", s.rangeNotation))
		return result, nil
	}
	headers := rows[0]
	result.Headers = headers
	result.Rows = len(rows) - 1

	for i, row := range rows[1:] {
		key := types.Row(row).Cell(0)
		if key == "" {
			result.Skipped++
			s.logger.Debug("Skipping record without key", logging.F("row", i+2))
			continue
		}

		outcome, err := s.store.Upsert(ctx, s.collection, key, MapRow(headers, row))
		if err != nil {
			return result, err
		}
		switch outcome {
		case Inserted:
			result.Inserted++
		case Updated:
			result.Updated++
		default:
			result.Unchanged++
		}
	}

	s.logger.Info(result.Summary(),
		logging.F("collection", s.collection),
		logging.F("rows", result.Rows),
	)
	return result, nil
}

// MapRow pairs headers with cells. Empty or absent cells map to nil; columns
// with an empty header are dropped.
func MapRow(headers, row []string) Document {
	doc := make(Document, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		cell := types.Row(row).Cell(i)
		if cell == "" {
			doc[h] = nil
			continue
		}
		doc[h] = cell
	}
	return doc
}
