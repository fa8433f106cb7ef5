package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dl-alexandre/sheetmirror/internal/api"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *sheetsapi.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := sheetsapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return svc
}

func TestConvertValueRange(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		got := convertValueRange("s1", nil)
		assert.Equal(t, "s1", got.SpreadsheetID)
		assert.Empty(t, got.Values)
	})

	t.Run("values", func(t *testing.T) {
		got := convertValueRange("s1", &sheetsapi.ValueRange{
			Range:          "Sheet1!A1:D2",
			MajorDimension: "ROWS",
			Values:         [][]interface{}{{"a", "b"}, {}},
		})
		assert.Equal(t, "Sheet1!A1:D2", got.Range)
		assert.Equal(t, [][]string{{"a", "b"}, {}}, got.Rows())
	})
}

func TestManagerGetValues(t *testing.T) {
	var gotPath string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"range":"Sheet1!A1:D3","majorDimension":"ROWS","values":[["f1","https://drive.google.com/file/d/abc/view"],[],["f3","","img"]]}`))
	})

	m := NewManager(api.NewClient(0, 0, nil), svc)
	reqCtx := api.NewRequestContext("default", types.ServiceSheets, types.RequestTypeSheetValues)
	values, err := m.GetValues(context.Background(), reqCtx, "sheet-id", "Sheet1!A:D")
	require.NoError(t, err)

	assert.True(t, strings.Contains(gotPath, "/v4/spreadsheets/sheet-id/values/"), gotPath)
	rows := values.Rows()
	require.Len(t, rows, 3)
	assert.Empty(t, rows[1])
	assert.Equal(t, []string{"f3", "", "img"}, rows[2])
}

func TestManagerGetValues_NotFound(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	})

	m := NewManager(api.NewClient(0, 0, nil), svc)
	reqCtx := api.NewRequestContext("default", types.ServiceSheets, types.RequestTypeSheetValues)
	_, err := m.GetValues(context.Background(), reqCtx, "missing", "Sheet1!A:D")
	require.Error(t, err)
}

type stubValues struct {
	values *types.SheetValues
	err    error
	calls  []string
}

func (s *stubValues) GetValues(ctx context.Context, reqCtx *types.RequestContext, spreadsheetID, rangeNotation string) (*types.SheetValues, error) {
	s.calls = append(s.calls, spreadsheetID+"|"+rangeNotation)
	return s.values, s.err
}

func TestFeedFetch(t *testing.T) {
	stub := &stubValues{values: &types.SheetValues{Values: [][]interface{}{
		{"folder", "video", "image", "name"},
		{},
		{"folder2", nil, "image2"},
	}}}
	feed := NewFeed(stub, "sheet-id", "Sheet1!A:D")

	snap, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"sheet-id|Sheet1!A:D"}, stub.calls)
	require.Len(t, snap, 3)
	assert.Equal(t, types.Row{"folder", "video", "image", "name"}, snap[0])
	assert.Len(t, snap[1], 0)
	assert.Equal(t, "", snap[2].Cell(1))
	assert.Equal(t, "", snap[2].Cell(3))
	assert.Equal(t, "sheet-id", feed.SourceID())
}

func TestFeedFetch_Error(t *testing.T) {
	stub := &stubValues{err: errors.New("quota")}
	_, err := NewFeed(stub, "sheet-id", "Sheet1!A:D").Fetch(context.Background())
	assert.EqualError(t, err, "quota")
}
