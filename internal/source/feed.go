package source

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/FocuswithJustin/LevelSheet/core/catalog"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
)

// feedSong is one element of the JSON song feed. Standard chart levels use
// the lev_ prefix and DX chart levels dx_lev_.
type feedSong struct {
	Title    *string `json:"title"`
	ImageURL string  `json:"image_url"`

	LevBas   string `json:"lev_bas"`
	LevAdv   string `json:"lev_adv"`
	LevExp   string `json:"lev_exp"`
	LevMas   string `json:"lev_mas"`
	LevRemas string `json:"lev_remas"`

	DxLevBas   string `json:"dx_lev_bas"`
	DxLevAdv   string `json:"dx_lev_adv"`
	DxLevExp   string `json:"dx_lev_exp"`
	DxLevMas   string `json:"dx_lev_mas"`
	DxLevRemas string `json:"dx_lev_remas"`
}

// variant builds a raw variant from five level fields. It returns nil when
// every field is empty. Empty fields stay absent.
func variant(levels ...string) *catalog.RawVariant {
	var v *catalog.RawVariant
	for i, s := range levels {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if v == nil {
			v = &catalog.RawVariant{}
		}
		v.Set(catalog.Difficulties[i], s)
	}
	return v
}

func (s feedSong) record() catalog.RawRecord {
	return catalog.RawRecord{
		Title:  *s.Title,
		Jacket: s.ImageURL,
		Std:    variant(s.LevBas, s.LevAdv, s.LevExp, s.LevMas, s.LevRemas),
		Dx:     variant(s.DxLevBas, s.DxLevAdv, s.DxLevExp, s.DxLevMas, s.DxLevRemas),
	}
}

// Feed reads the JSON song feed: an array of song objects.
type Feed struct{}

// Kind implements Adapter.
func (Feed) Kind() Kind { return KindFeed }

// DecodesEntities implements Adapter. Feed titles are already plain text.
func (Feed) DecodesEntities() bool { return false }

// Records implements Adapter.
func (Feed) Records(r io.Reader, name string) ([]catalog.RawRecord, error) {
	var songs []feedSong
	dec := json.NewDecoder(r)
	if err := dec.Decode(&songs); err != nil {
		return nil, &errors.SourceFormatError{Source: name, Message: "invalid song feed", Err: err}
	}
	records := make([]catalog.RawRecord, 0, len(songs))
	for i, s := range songs {
		if s.Title == nil {
			return nil, errors.NewSourceFormat(name, fmt.Sprintf("entry %d", i), "title", "missing title")
		}
		records = append(records, s.record())
	}
	return records, nil
}
