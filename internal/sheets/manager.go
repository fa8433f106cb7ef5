package sheets

import (
	"context"

	"github.com/dl-alexandre/sheetmirror/internal/api"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"google.golang.org/api/sheets/v4"
)

// ValuesGetter reads a range of cell values
type ValuesGetter interface {
	GetValues(ctx context.Context, reqCtx *types.RequestContext, spreadsheetID, rangeNotation string) (*types.SheetValues, error)
}

type Manager struct {
	client  *api.Client
	service *sheets.Service
}

func NewManager(client *api.Client, service *sheets.Service) *Manager {
	return &Manager{
		client:  client,
		service: service,
	}
}

// GetValues reads formatted cell values row by row
func (m *Manager) GetValues(ctx context.Context, reqCtx *types.RequestContext, spreadsheetID, rangeNotation string) (*types.SheetValues, error) {
	call := m.service.Spreadsheets.Values.Get(spreadsheetID, rangeNotation).
		MajorDimension("ROWS").
		Context(ctx)

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*sheets.ValueRange, error) {
		return call.Do()
	})
	if err != nil {
		return nil, err
	}

	return convertValueRange(spreadsheetID, result), nil
}

func convertValueRange(spreadsheetID string, vr *sheets.ValueRange) *types.SheetValues {
	if vr == nil {
		return &types.SheetValues{SpreadsheetID: spreadsheetID}
	}
	return &types.SheetValues{
		SpreadsheetID:  spreadsheetID,
		Range:          vr.Range,
		MajorDimension: vr.MajorDimension,
		Values:         vr.Values,
	}
}
