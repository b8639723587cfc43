// Package order imposes the deterministic ordering used for every emitted
// bucket.
package order

import (
	"cmp"
	"slices"

	"github.com/FocuswithJustin/LevelSheet/core/catalog"
)

// Table maps canonical titles to their rank. Titles not in the table are
// unranked and sort after every ranked title.
type Table struct {
	rank map[string]int
}

// NewTable builds a table where the index of each title is its rank. A
// title listed twice keeps its first rank. Empty titles consume a rank but
// are never ranked.
func NewTable(titles []string) *Table {
	t := &Table{rank: make(map[string]int, len(titles))}
	for i, title := range titles {
		if title == "" {
			continue
		}
		if _, ok := t.rank[title]; !ok {
			t.rank[title] = i
		}
	}
	return t
}

// Rank returns the rank of title and whether it is ranked.
func (t *Table) Rank(title string) (int, bool) {
	if t == nil {
		return 0, false
	}
	r, ok := t.rank[title]
	return r, ok
}

// Len returns the number of ranked titles.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rank)
}

// CompareTitles orders two titles: ranked titles by ascending rank, ranked
// before unranked, unranked titles by codepoint order.
func (t *Table) CompareTitles(a, b string) int {
	if a == b {
		return 0
	}
	ra, okA := t.Rank(a)
	rb, okB := t.Rank(b)
	switch {
	case okA && okB:
		return cmp.Compare(ra, rb)
	case okA:
		return -1
	case okB:
		return 1
	default:
		// Byte order of UTF-8 strings equals codepoint order.
		return cmp.Compare(a, b)
	}
}

// Compare orders two charts by title, then chart type (DX before STD), then
// difficulty (BAS through REM).
func (t *Table) Compare(a, b catalog.Chart) int {
	if c := t.CompareTitles(a.Song.Title, b.Song.Title); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Song.ChartType, b.Song.ChartType); c != 0 {
		return c
	}
	return cmp.Compare(a.Difficulty, b.Difficulty)
}

// Sort orders charts in place.
func (t *Table) Sort(charts []catalog.Chart) {
	slices.SortFunc(charts, t.Compare)
}
