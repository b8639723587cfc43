// Package catalog defines the song and chart model shared by every stage of
// the pipeline, and expands raw source records into songs.
package catalog

import "fmt"

// ChartType is one of the two independent rating tracks a song can carry.
// The zero value is Dx so that Dx orders before Std.
type ChartType int

const (
	// Dx is the deluxe chart track.
	Dx ChartType = iota
	// Std is the standard chart track.
	Std
)

// ChartTypes lists every chart type in canonical order.
var ChartTypes = []ChartType{Dx, Std}

// String returns the display code used in emitted listings.
func (t ChartType) String() string {
	switch t {
	case Dx:
		return "DX"
	case Std:
		return "STD"
	default:
		return fmt.Sprintf("ChartType(%d)", int(t))
	}
}

// ParseChartType parses a display code ("DX" or "STD").
func ParseChartType(s string) (ChartType, bool) {
	switch s {
	case "DX":
		return Dx, true
	case "STD":
		return Std, true
	}
	return 0, false
}

// Difficulty identifies one playable difficulty of a chart type.
// Declaration order is the tie-break order used when sorting.
type Difficulty int

const (
	Basic Difficulty = iota
	Advanced
	Expert
	Master
	Remaster
)

// Difficulties lists every difficulty in canonical order.
var Difficulties = []Difficulty{Basic, Advanced, Expert, Master, Remaster}

// MandatoryDifficulties are the four difficulties every present variant has.
var MandatoryDifficulties = Difficulties[:4]

var difficultyCodes = [...]string{"BAS", "ADV", "EXP", "MAS", "REM"}

// String returns the display code used in emitted listings.
func (d Difficulty) String() string {
	if d < Basic || d > Remaster {
		return fmt.Sprintf("Difficulty(%d)", int(d))
	}
	return difficultyCodes[d]
}

// ParseDifficulty parses a display code ("BAS" .. "REM").
func ParseDifficulty(s string) (Difficulty, bool) {
	for i, code := range difficultyCodes {
		if code == s {
			return Difficulty(i), true
		}
	}
	return 0, false
}

// Ratings holds the displayed rating string of every difficulty of one
// chart type. Remaster is empty when the song has no Re:Master chart.
type Ratings struct {
	Basic    string
	Advanced string
	Expert   string
	Master   string
	Remaster string
}

// Get returns the rating for d and whether that difficulty exists.
func (r Ratings) Get(d Difficulty) (string, bool) {
	switch d {
	case Basic:
		return r.Basic, true
	case Advanced:
		return r.Advanced, true
	case Expert:
		return r.Expert, true
	case Master:
		return r.Master, true
	case Remaster:
		return r.Remaster, r.Remaster != ""
	}
	return "", false
}

// Song is one chart type of one catalog entry.
type Song struct {
	Title     string
	Jacket    string
	ChartType ChartType
	Ratings   Ratings
}

// Charts returns the four mandatory charts plus the Re:Master chart when
// the song has one.
func (s Song) Charts() []Chart {
	charts := make([]Chart, 0, len(Difficulties))
	for _, d := range Difficulties {
		if _, ok := s.Ratings.Get(d); ok {
			charts = append(charts, Chart{Song: s, Difficulty: d})
		}
	}
	return charts
}

// Chart identifies one (song, difficulty) pair.
type Chart struct {
	Song       Song
	Difficulty Difficulty
}

// Key returns the identity of the chart.
func (c Chart) Key() Key {
	return Key{Title: c.Song.Title, ChartType: c.Song.ChartType, Difficulty: c.Difficulty}
}

// Rating returns the displayed rating of the chart.
func (c Chart) Rating() string {
	r, _ := c.Song.Ratings.Get(c.Difficulty)
	return r
}

// Key identifies a chart across feeds: (title, chart type, difficulty).
type Key struct {
	Title      string
	ChartType  ChartType
	Difficulty Difficulty
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Title, k.ChartType, k.Difficulty)
}

// RawVariant is the per-chart-type part of a raw record as a source adapter
// saw it. A difficulty missing from Levels was absent in the source.
type RawVariant struct {
	Levels map[Difficulty]string
}

// Level returns the raw rating for d and whether the source supplied it.
func (v *RawVariant) Level(d Difficulty) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.Levels[d]
	return s, ok
}

// Set records a raw rating for d.
func (v *RawVariant) Set(d Difficulty, level string) {
	if v.Levels == nil {
		v.Levels = make(map[Difficulty]string, len(Difficulties))
	}
	v.Levels[d] = level
}

// RawRecord is one catalog entry exactly as a source adapter produced it,
// before normalization. A nil variant is not present in the source.
type RawRecord struct {
	Title  string
	Jacket string
	Std    *RawVariant
	Dx     *RawVariant
}

// Variant returns the raw variant for t, or nil when it is absent.
func (r RawRecord) Variant(t ChartType) *RawVariant {
	if t == Dx {
		return r.Dx
	}
	return r.Std
}
