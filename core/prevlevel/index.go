// Package prevlevel recovers the rating a chart carried in a prior game
// version. An Index is built once from a secondary feed and resolving
// against it never fails: a missing chart resolves to Missing.
package prevlevel

import (
	"github.com/FocuswithJustin/LevelSheet/core/catalog"
)

// Missing is the prior rating reported for charts absent from the index.
const Missing = "N/A"

// Index maps (title, chart type, difficulty) to a prior rating.
type Index struct {
	levels     map[catalog.Key]string
	overwrites int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{levels: make(map[catalog.Key]string)}
}

// Put records the prior rating for key. A later Put for the same key wins;
// replaced reports whether an earlier value was overwritten.
func (ix *Index) Put(key catalog.Key, rating string) (replaced bool) {
	if _, ok := ix.levels[key]; ok {
		replaced = true
		ix.overwrites++
	}
	ix.levels[key] = rating
	return replaced
}

// Lookup returns the prior rating for key and whether it is known.
func (ix *Index) Lookup(key catalog.Key) (string, bool) {
	if ix == nil {
		return "", false
	}
	r, ok := ix.levels[key]
	return r, ok
}

// Resolve returns the prior rating of chart, or Missing.
func (ix *Index) Resolve(chart catalog.Chart) string {
	if r, ok := ix.Lookup(chart.Key()); ok {
		return r
	}
	return Missing
}

// ResolveKey is Resolve for an explicit key.
func (ix *Index) ResolveKey(title string, ct catalog.ChartType, d catalog.Difficulty) string {
	if r, ok := ix.Lookup(catalog.Key{Title: title, ChartType: ct, Difficulty: d}); ok {
		return r
	}
	return Missing
}

// Len returns the number of distinct keys.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.levels)
}

// Overwrites returns how many Puts replaced an existing key.
func (ix *Index) Overwrites() int {
	if ix == nil {
		return 0
	}
	return ix.overwrites
}

// FromRecords builds an index from records of the same shape as the
// primary feed. Every present variant/difficulty with a non-empty rating is
// inserted. n may be nil, in which case titles are used exactly as the feed
// spells them.
func FromRecords(records []catalog.RawRecord, n catalog.TitleNormalizer) *Index {
	ix := NewIndex()
	for _, rec := range records {
		title := rec.Title
		if n != nil {
			title = n.Title(title)
		}
		for _, ct := range catalog.ChartTypes {
			v := rec.Variant(ct)
			for _, d := range catalog.Difficulties {
				if r, ok := v.Level(d); ok && r != "" {
					ix.Put(catalog.Key{Title: title, ChartType: ct, Difficulty: d}, r)
				}
			}
		}
	}
	return ix
}
