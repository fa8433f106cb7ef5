package sheets

import (
	"context"

	"github.com/dl-alexandre/sheetmirror/internal/api"
	"github.com/dl-alexandre/sheetmirror/internal/types"
)

// Feed reads one fixed range of a spreadsheet as a row snapshot
type Feed struct {
	values        ValuesGetter
	spreadsheetID string
	rangeNotation string
	profile       string
}

// NewFeed creates a feed over spreadsheetID!rangeNotation
func NewFeed(values ValuesGetter, spreadsheetID, rangeNotation string) *Feed {
	return &Feed{
		values:        values,
		spreadsheetID: spreadsheetID,
		rangeNotation: rangeNotation,
		profile:       "default",
	}
}

// SourceID returns the spreadsheet identifier; empty means unconfigured
func (f *Feed) SourceID() string {
	return f.spreadsheetID
}

// Range returns the A1 range the feed reads
func (f *Feed) Range() string {
	return f.rangeNotation
}

// Fetch captures the current rows. Trailing empty cells are absent, as the API omits them.
func (f *Feed) Fetch(ctx context.Context) (types.RowSnapshot, error) {
	reqCtx := api.NewRequestContext(f.profile, types.ServiceSheets, types.RequestTypeSheetValues)
	values, err := f.values.GetValues(ctx, reqCtx, f.spreadsheetID, f.rangeNotation)
	if err != nil {
		return nil, err
	}

	rows := values.Rows()
	snapshot := make(types.RowSnapshot, len(rows))
	for i, row := range rows {
		snapshot[i] = types.Row(row)
	}
	return snapshot, nil
}
