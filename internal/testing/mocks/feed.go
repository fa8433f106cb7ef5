package mocks

import (
	"context"
	"sync"

	"github.com/dl-alexandre/sheetmirror/internal/types"
)

// MockFeed is a scriptable row source satisfying changes.Source
type MockFeed struct {
	mu      sync.Mutex
	id      string
	rows    types.RowSnapshot
	err     error
	fetches int
}

// NewMockFeed creates a feed with the given spreadsheet identifier
func NewMockFeed(id string) *MockFeed {
	return &MockFeed{id: id}
}

// SetRows replaces what the next Fetch returns
func (f *MockFeed) SetRows(rows ...types.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = types.RowSnapshot(rows).Clone()
	f.err = nil
}

// SetError makes Fetch fail until SetRows is called
func (f *MockFeed) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *MockFeed) SourceID() string {
	return f.id
}

func (f *MockFeed) Fetch(ctx context.Context) (types.RowSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows.Clone(), nil
}

// Fetches reports how many times Fetch ran
func (f *MockFeed) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// MockValues serves fixed cell ranges, satisfying sheets.ValuesGetter
type MockValues struct {
	mu     sync.Mutex
	Ranges map[string][][]interface{}
	Err    error
}

// NewMockValues creates an empty value source
func NewMockValues() *MockValues {
	return &MockValues{Ranges: make(map[string][][]interface{})}
}

// Set stores the cells returned for rangeNotation
func (v *MockValues) Set(rangeNotation string, values [][]interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Ranges[rangeNotation] = values
}

func (v *MockValues) GetValues(ctx context.Context, reqCtx *types.RequestContext, spreadsheetID, rangeNotation string) (*types.SheetValues, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Err != nil {
		return nil, v.Err
	}
	return &types.SheetValues{
		SpreadsheetID:  spreadsheetID,
		Range:          rangeNotation,
		MajorDimension: "ROWS",
		Values:         v.Ranges[rangeNotation],
	}, nil
}
