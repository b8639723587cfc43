// Package bucket groups charts into rating buckets after removing deleted
// songs.
package bucket

import (
	"slices"

	"github.com/FocuswithJustin/LevelSheet/core/catalog"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
)

// DefaultNames are the rating buckets tracked when none are configured.
var DefaultNames = []string{"12+", "13", "13+", "14", "14+", "15"}

// DeletionSet holds canonical titles that are excluded from every bucket.
type DeletionSet map[string]struct{}

// NewDeletionSet builds a deletion set from a list of titles.
func NewDeletionSet(titles []string) DeletionSet {
	set := make(DeletionSet, len(titles))
	for _, t := range titles {
		set[t] = struct{}{}
	}
	return set
}

// Contains reports whether title is deleted.
func (d DeletionSet) Contains(title string) bool {
	_, ok := d[title]
	return ok
}

// Filter drops every song whose title is in deleted. It returns the kept
// songs in input order and the number dropped.
func Filter(songs []catalog.Song, deleted DeletionSet) ([]catalog.Song, int) {
	if len(deleted) == 0 {
		return songs, 0
	}
	kept := make([]catalog.Song, 0, len(songs))
	for _, s := range songs {
		if deleted.Contains(s.Title) {
			continue
		}
		kept = append(kept, s)
	}
	return kept, len(songs) - len(kept)
}

// Set is a fixed collection of named buckets. Each bucket holds unique
// charts in insertion order.
type Set struct {
	names   []string
	buckets map[string]*bucket
}

type bucket struct {
	charts []catalog.Chart
	index  map[catalog.Key]int
}

// NewSet creates an empty bucket for every name. Duplicate names collapse
// into one bucket.
func NewSet(names []string) *Set {
	s := &Set{buckets: make(map[string]*bucket, len(names))}
	for _, n := range names {
		if _, ok := s.buckets[n]; ok {
			continue
		}
		s.names = append(s.names, n)
		s.buckets[n] = &bucket{index: make(map[catalog.Key]int)}
	}
	return s
}

// Names returns the bucket names in the order they were configured.
func (s *Set) Names() []string {
	return slices.Clone(s.names)
}

// Insert adds chart to the named bucket. Inserting a chart whose key is
// already present is a no-op and reports added=false. A present key with a
// different jacket is a ConflictError.
func (s *Set) Insert(name string, chart catalog.Chart) (bool, error) {
	b, ok := s.buckets[name]
	if !ok {
		return false, nil
	}
	key := chart.Key()
	if i, dup := b.index[key]; dup {
		prev := b.charts[i].Song.Jacket
		if prev != chart.Song.Jacket {
			return false, errors.NewConflict(key.String(), "jacket", prev, chart.Song.Jacket)
		}
		return false, nil
	}
	b.index[key] = len(b.charts)
	b.charts = append(b.charts, chart)
	return true, nil
}

// Add places every chart of song whose rating names a tracked bucket.
// Ratings that match no bucket are skipped for that difficulty only.
func (s *Set) Add(song catalog.Song) (int, error) {
	added := 0
	for _, c := range song.Charts() {
		ok, err := s.Insert(c.Rating(), c)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// Bucket returns a copy of the charts in the named bucket.
func (s *Set) Bucket(name string) []catalog.Chart {
	b, ok := s.buckets[name]
	if !ok {
		return nil
	}
	return slices.Clone(b.charts)
}

// Len returns the number of charts in the named bucket.
func (s *Set) Len(name string) int {
	if b, ok := s.buckets[name]; ok {
		return len(b.charts)
	}
	return 0
}

// Total returns the number of charts across all buckets.
func (s *Set) Total() int {
	n := 0
	for _, b := range s.buckets {
		n += len(b.charts)
	}
	return n
}

// Collect filters deleted songs and buckets the rest.
func Collect(songs []catalog.Song, names []string, deleted DeletionSet) (*Set, int, error) {
	kept, dropped := Filter(songs, deleted)
	set := NewSet(names)
	for _, song := range kept {
		if _, err := set.Add(song); err != nil {
			return nil, dropped, err
		}
	}
	return set, dropped, nil
}
