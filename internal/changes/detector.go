// Package changes detects which worksheet rows differ from the previous poll.
package changes

import (
	"context"
	"sync"

	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
)

// Source yields the current rows of a worksheet
type Source interface {
	// SourceID identifies the sheet; empty means the source is not configured
	SourceID() string
	Fetch(ctx context.Context) (types.RowSnapshot, error)
}

// SnapshotSlot owns the baseline a detector compares against. Each Store bumps
// the version so callers can tell whether a poll advanced it.
type SnapshotSlot struct {
	mu       sync.RWMutex
	snapshot types.RowSnapshot
	version  uint64
}

// NewSnapshotSlot creates an empty slot; the first poll only records a baseline
func NewSnapshotSlot() *SnapshotSlot {
	return &SnapshotSlot{}
}

// Load returns a copy of the stored snapshot and its version; ok is false before the first Store
func (s *SnapshotSlot) Load() (snapshot types.RowSnapshot, version uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone(), s.version, s.version > 0
}

// Store replaces the snapshot and returns the new version
func (s *SnapshotSlot) Store(snapshot types.RowSnapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot.Clone()
	if s.snapshot == nil {
		s.snapshot = types.RowSnapshot{}
	}
	s.version++
	return s.version
}

// Version returns how many snapshots have been stored
func (s *SnapshotSlot) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Detector compares successive snapshots of a Source
type Detector struct {
	source Source
	slot   *SnapshotSlot
	logger logging.Logger
}

// NewDetector creates a detector that keeps its baseline in slot
func NewDetector(source Source, slot *SnapshotSlot, logger logging.Logger) *Detector {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Detector{source: source, slot: slot, logger: logger}
}

// Slot returns the detector's snapshot slot
func (d *Detector) Slot() *SnapshotSlot {
	return d.slot
}

// Poll fetches the current rows and returns those that changed since the last
// successful poll. The first poll records a baseline and reports nothing.
func (d *Detector) Poll(ctx context.Context) (types.ChangeSet, error) {
	current, err := d.fetch(ctx)
	if err != nil {
		return nil, err
	}

	previous, _, hadBaseline := d.slot.Load()
	version := d.slot.Store(current)
	if !hadBaseline {
		d.logger.Info("Recorded baseline snapshot",
			logging.F("rows", len(current)),
			logging.F("version", version),
		)
		return types.ChangeSet{}, nil
	}

	changed := Diff(previous, current)
	d.logger.Debug("Polled sheet",
		logging.F("rows", len(current)),
		logging.F("changed", len(changed)),
		logging.F("version", version),
	)
	return changed, nil
}

// Capture fetches the current rows, stores them as the new baseline and returns
// every row as changed
func (d *Detector) Capture(ctx context.Context) (types.ChangeSet, error) {
	current, err := d.fetch(ctx)
	if err != nil {
		return nil, err
	}
	d.slot.Store(current)

	all := make(types.ChangeSet, len(current))
	for i, row := range current {
		all[i] = types.ChangedRow{Index: i, Row: row}
	}
	return all, nil
}

func (d *Detector) fetch(ctx context.Context) (types.RowSnapshot, error) {
	id := d.source.SourceID()
	if id == "" {
		return nil, utils.NewCLIError(utils.ErrCodeSourceUnavailable, "sheet identifier is not configured").Err()
	}
	current, err := d.source.Fetch(ctx)
	if err != nil {
		return nil, utils.NewCLIError(utils.ErrCodeSourceUnavailable, "failed to read sheet").
			WithContext("spreadsheetId", id).
			WithCause(err).
			Err()
	}
	return current, nil
}

// Diff returns rows of current that are new or differ from the row at the same
// index in previous, in ascending index order. Rows that vanished are not reported.
func Diff(previous, current types.RowSnapshot) types.ChangeSet {
	changed := types.ChangeSet{}
	for i, row := range current {
		if i < len(previous) && previous[i].Equal(row) {
			continue
		}
		changed = append(changed, types.ChangedRow{Index: i, Row: append(types.Row(nil), row...)})
	}
	return changed
}
