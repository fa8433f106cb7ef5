package types

import "fmt"

type SheetValues struct {
	SpreadsheetID  string          `json:"spreadsheetId"`
	Range          string          `json:"range"`
	MajorDimension string          `json:"majorDimension"`
	Values         [][]interface{} `json:"values"`
}

// Rows converts the raw API cells to strings. Nil cells become empty strings and
// trailing cells the API omitted stay omitted.
func (v *SheetValues) Rows() [][]string {
	rows := make([][]string, len(v.Values))
	for i, row := range v.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			if cell == nil {
				rows[i][j] = ""
			} else {
				rows[i][j] = fmt.Sprintf("%v", cell)
			}
		}
	}
	return rows
}

// Row is one worksheet row. A cell past the end of the slice is absent.
type Row []string

// Cell returns the cell at the zero-based column, or "" when absent
func (r Row) Cell(col int) string {
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Equal reports deep value equality
func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// RowSnapshot is an ordered capture of a worksheet range. A row's identity is its index.
type RowSnapshot []Row

// Clone returns a deep copy so a captured snapshot can't be mutated through a caller's slice
func (s RowSnapshot) Clone() RowSnapshot {
	if s == nil {
		return nil
	}
	out := make(RowSnapshot, len(s))
	for i, row := range s {
		out[i] = append(Row(nil), row...)
	}
	return out
}

// ChangedRow is a row that differs from the previous poll
type ChangedRow struct {
	Index int `json:"index"`
	Row   Row `json:"row"`
}

// ChangeSet lists changed rows in ascending index order
type ChangeSet []ChangedRow

func (c ChangeSet) Empty() bool {
	return len(c) == 0
}
