package changes

import (
	"context"
	"errors"
	"testing"

	"github.com/dl-alexandre/sheetmirror/internal/testing/mocks"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(cells ...string) types.Row { return types.Row(cells) }

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		previous types.RowSnapshot
		current  types.RowSnapshot
		want     []int
	}{
		{
			name:     "identical",
			previous: types.RowSnapshot{row("a", "b"), row("c")},
			current:  types.RowSnapshot{row("a", "b"), row("c")},
			want:     []int{},
		},
		{
			name:     "one cell changed",
			previous: types.RowSnapshot{row("a", "b"), row("c")},
			current:  types.RowSnapshot{row("a", "B"), row("c")},
			want:     []int{0},
		},
		{
			name:     "appended rows",
			previous: types.RowSnapshot{row("a")},
			current:  types.RowSnapshot{row("a"), row("b"), row("c")},
			want:     []int{1, 2},
		},
		{
			name:     "removed rows are not reported",
			previous: types.RowSnapshot{row("a"), row("b"), row("c")},
			current:  types.RowSnapshot{row("a")},
			want:     []int{},
		},
		{
			name:     "trailing empty cell is a change",
			previous: types.RowSnapshot{row("a")},
			current:  types.RowSnapshot{row("a", "")},
			want:     []int{0},
		},
		{
			name:     "insert shifts every later row",
			previous: types.RowSnapshot{row("a"), row("b")},
			current:  types.RowSnapshot{row("new"), row("a"), row("b")},
			want:     []int{0, 1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.previous, tt.current)
			indices := make([]int, 0, len(got))
			for _, c := range got {
				indices = append(indices, c.Index)
				assert.Equal(t, tt.current[c.Index], c.Row)
			}
			assert.Equal(t, tt.want, indices)
		})
	}
}

func TestPoll_FirstPollIsBaseline(t *testing.T) {
	feed := mocks.NewMockFeed("sheet")
	feed.SetRows(row("f", "v"), row("g", "v2"))
	slot := NewSnapshotSlot()
	d := NewDetector(feed, slot, nil)

	changes, err := d.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, changes.Empty())
	assert.Equal(t, uint64(1), slot.Version())

	changes, err = d.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, changes.Empty(), "nothing changed")
}

func TestPoll_ReportsChangesAndReplacesBaseline(t *testing.T) {
	feed := mocks.NewMockFeed("sheet")
	feed.SetRows(row("f", "v1"))
	d := NewDetector(feed, NewSnapshotSlot(), nil)
	_, err := d.Poll(context.Background())
	require.NoError(t, err)

	feed.SetRows(row("f", "v2"), row("g", "v3"))
	changes, err := d.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, 0, changes[0].Index)
	assert.Equal(t, 1, changes[1].Index)

	changes, err = d.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, changes.Empty(), "baseline advanced after the previous poll")

	feed.SetRows(row("f", "v2"))
	changes, err = d.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, changes.Empty(), "shrinking reports nothing")

	feed.SetRows(row("f", "v2"), row("g", "v3"))
	changes, err = d.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 1, "re-added row counts as new after the baseline shrank")
	assert.Equal(t, 1, changes[0].Index)
}

func TestPoll_SourceUnavailable(t *testing.T) {
	t.Run("unset identifier", func(t *testing.T) {
		feed := mocks.NewMockFeed("")
		slot := NewSnapshotSlot()
		_, err := NewDetector(feed, slot, nil).Poll(context.Background())
		require.Error(t, err)
		assert.True(t, utils.HasCode(err, utils.ErrCodeSourceUnavailable))
		assert.Zero(t, feed.Fetches())
		assert.Zero(t, slot.Version())
	})

	t.Run("fetch error keeps baseline", func(t *testing.T) {
		feed := mocks.NewMockFeed("sheet")
		feed.SetRows(row("a"))
		slot := NewSnapshotSlot()
		d := NewDetector(feed, slot, nil)
		_, err := d.Poll(context.Background())
		require.NoError(t, err)

		cause := errors.New("503 backend error")
		feed.SetError(cause)
		_, err = d.Poll(context.Background())
		require.Error(t, err)
		assert.True(t, utils.HasCode(err, utils.ErrCodeSourceUnavailable))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, uint64(1), slot.Version())
		assert.Equal(t, 2, feed.Fetches(), "the detector does not retry")

		feed.SetRows(row("a"))
		changes, err := d.Poll(context.Background())
		require.NoError(t, err)
		assert.True(t, changes.Empty())
	})
}

func TestCapture_ReturnsEveryRowAndSeeds(t *testing.T) {
	feed := mocks.NewMockFeed("sheet")
	feed.SetRows(row("a"), row("b"))
	slot := NewSnapshotSlot()
	d := NewDetector(feed, slot, nil)

	all, err := d.Capture(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(1), slot.Version())

	changes, err := d.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, changes.Empty())
}

func TestSnapshotSlot_IsolatedFromCaller(t *testing.T) {
	slot := NewSnapshotSlot()
	snap := types.RowSnapshot{row("a")}
	slot.Store(snap)
	snap[0][0] = "mutated"

	got, version, ok := slot.Load()
	require.True(t, ok)
	assert.Equal(t, uint64(1), version)
	assert.Equal(t, "a", got[0][0])
}

func TestSnapshotSlot_EmptySnapshotIsABaseline(t *testing.T) {
	slot := NewSnapshotSlot()
	slot.Store(nil)
	_, _, ok := slot.Load()
	assert.True(t, ok)
}
