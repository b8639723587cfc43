// Package pipeline runs one batch pass from raw catalog records to ordered
// bucket listings. Every input is passed in explicitly and treated as
// immutable; nothing is read from global state.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/FocuswithJustin/LevelSheet/core/bucket"
	"github.com/FocuswithJustin/LevelSheet/core/catalog"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/normalize"
	"github.com/FocuswithJustin/LevelSheet/core/order"
	"github.com/FocuswithJustin/LevelSheet/core/prevlevel"
)

// Inputs are everything one run needs.
type Inputs struct {
	// Source names the adapter Records came from, for error messages.
	Source string
	// Records are the raw catalog entries.
	Records []catalog.RawRecord
	// Normalizer canonicalizes catalog titles.
	Normalizer *normalize.Normalizer
	// Prior resolves prior-version ratings. A nil index misses every chart.
	Prior *prevlevel.Index
	// Deleted titles are dropped before bucketing.
	Deleted bucket.DeletionSet
	// Order ranks titles. A nil table orders every title lexicographically.
	Order *order.Table
	// Buckets are the tracked rating names; empty means bucket.DefaultNames.
	Buckets []string
	// Logger receives per-stage diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Entry is one emitted chart with its resolved prior rating.
type Entry struct {
	Chart       catalog.Chart
	PriorRating string
}

// Listing is one ordered bucket.
type Listing struct {
	Bucket  string
	Entries []Entry
}

// Stats summarizes a run.
type Stats struct {
	Records    int `json:"records"`
	Songs      int `json:"songs"`
	Deleted    int `json:"deleted"`
	Charts     int `json:"charts"`
	PriorHits  int `json:"prior_hits"`
	PriorMiss  int `json:"prior_misses"`
	IndexSize  int `json:"prior_index_size"`
	RankedSeen int `json:"ranked_titles"`
}

// Result is the outcome of a run.
type Result struct {
	Listings []Listing
	Stats    Stats
}

// Run executes the pipeline. It fails only on malformed source records or
// conflicting bucket entries; prior-rating misses resolve to
// prevlevel.Missing.
func Run(ctx context.Context, in Inputs) (*Result, error) {
	log := in.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	names := in.Buckets
	if len(names) == 0 {
		names = bucket.DefaultNames
	}

	songs, err := catalog.Build(in.Source, in.Records, in.Normalizer)
	if err != nil {
		return nil, errors.Wrap(err, "building catalog")
	}
	log.Debug("catalog built", "records", len(in.Records), "songs", len(songs))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set, dropped, err := bucket.Collect(songs, names, in.Deleted)
	if err != nil {
		return nil, errors.Wrap(err, "bucketing charts")
	}
	log.Debug("charts bucketed", "deleted_songs", dropped, "charts", set.Total())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Stats: Stats{
		Records:   len(in.Records),
		Songs:     len(songs),
		Deleted:   dropped,
		Charts:    set.Total(),
		IndexSize: in.Prior.Len(),
	}}
	ranked := make(map[string]struct{})
	for _, name := range set.Names() {
		charts := set.Bucket(name)
		in.Order.Sort(charts)

		listing := Listing{Bucket: name, Entries: make([]Entry, len(charts))}
		for i, c := range charts {
			prior := in.Prior.Resolve(c)
			if prior == prevlevel.Missing {
				res.Stats.PriorMiss++
				reportMiss(log, in, c)
			} else {
				res.Stats.PriorHits++
			}
			if _, ok := in.Order.Rank(c.Song.Title); ok {
				ranked[c.Song.Title] = struct{}{}
			}
			listing.Entries[i] = Entry{Chart: c, PriorRating: prior}
		}
		res.Listings = append(res.Listings, listing)
	}
	res.Stats.RankedSeen = len(ranked)
	return res, nil
}

// reportMiss logs a prior-rating miss. When the canonical title is the
// target of a replacement and the index holds the uncorrected spelling, the
// miss is most likely caused by the prior feed bypassing normalization.
func reportMiss(log *slog.Logger, in Inputs, c catalog.Chart) {
	k := c.Key()
	for _, src := range in.Normalizer.SourcesOf(k.Title) {
		if r, ok := in.Prior.Lookup(catalog.Key{Title: src, ChartType: k.ChartType, Difficulty: k.Difficulty}); ok {
			log.Warn("prior rating missed under canonical title",
				"title", k.Title, "feed_title", src, "chart_type", k.ChartType.String(),
				"difficulty", k.Difficulty.String(), "feed_rating", r)
			return
		}
	}
	log.Debug("prior rating missing", "title", k.Title, "chart_type", k.ChartType.String(), "difficulty", k.Difficulty.String())
}
