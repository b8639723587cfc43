package source

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/FocuswithJustin/LevelSheet/core/catalog"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/markup"
)

var (
	songsExpr  = markup.ByClass("songs")
	jacketExpr = markup.MustCompile(".//*[" + markup.ClassToken("jacket") + "]//img")
	titleExpr  = markup.ByClass("titleText")
	levelExpr  = markup.ByClass("songs-data-box-level")
)

// markupCells is the order of the level cells inside a level box.
var markupCells = catalog.Difficulties

// Markup reads one saved catalog page. Each child of the songs container is
// a song with a jacket image, a title and one level box per chart type.
type Markup struct{}

// Kind implements Adapter.
func (Markup) Kind() Kind { return KindMarkup }

// DecodesEntities implements Adapter. Page titles carry raw entities.
func (Markup) DecodesEntities() bool { return true }

// Records implements Adapter.
func (Markup) Records(r io.Reader, name string) ([]catalog.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", name, err)
	}
	doc, err := markup.Parse(data)
	if err != nil {
		return nil, &errors.SourceFormatError{Source: name, Message: "unparseable page", Err: err}
	}

	list := doc.First(songsExpr)
	if list == nil {
		return nil, errors.NewSourceFormat(name, "", "songs", "no song list found")
	}
	songs := list.Children()
	records := make([]catalog.RawRecord, 0, len(songs))
	for i, node := range songs {
		rec, err := markupRecord(name, i, node)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func markupRecord(name string, pos int, song *markup.Node) (catalog.RawRecord, error) {
	id := fmt.Sprintf("song %d", pos)

	titleNode := song.First(titleExpr)
	if titleNode == nil {
		return catalog.RawRecord{}, errors.NewSourceFormat(name, id, "title", "missing titleText")
	}
	rec := catalog.RawRecord{Title: titleNode.Text()}
	if t := strings.TrimSpace(rec.Title); t != "" {
		id = t
	}

	img := song.First(jacketExpr)
	if img == nil {
		return catalog.RawRecord{}, errors.NewSourceFormat(name, id, "jacket", "missing jacket image")
	}
	rec.Jacket = img.Attr("src")
	if rec.Jacket == "" {
		return catalog.RawRecord{}, errors.NewSourceFormat(name, id, "jacket", "image has no src")
	}

	for _, box := range song.Select(levelExpr) {
		ct, err := boxChartType(box)
		if err != nil {
			return catalog.RawRecord{}, errors.NewSourceFormat(name, id, "level box", err.Error())
		}
		v, err := boxLevels(box)
		if err != nil {
			return catalog.RawRecord{}, errors.NewSourceFormat(name, id, ct.String()+" levels", err.Error())
		}
		if rec.Variant(ct) != nil {
			return catalog.RawRecord{}, errors.NewSourceFormat(name, id, "level box", "duplicate "+ct.String()+" variant")
		}
		if ct == catalog.Dx {
			rec.Dx = v
		} else {
			rec.Std = v
		}
	}
	return rec, nil
}

// boxChartType reads the variant from the dx or std class token.
func boxChartType(box *markup.Node) (catalog.ChartType, error) {
	classes := box.Classes()
	switch {
	case slices.Contains(classes, "dx"):
		return catalog.Dx, nil
	case slices.Contains(classes, "std"):
		return catalog.Std, nil
	}
	return 0, fmt.Errorf("unknown chart type class %q", box.Attr("class"))
}

// boxLevels reads the first five element children of a level box. The four
// mandatory cells must exist; an empty Re:Master cell means the chart does
// not exist.
func boxLevels(box *markup.Node) (*catalog.RawVariant, error) {
	cells := box.Children()
	if len(cells) < len(catalog.MandatoryDifficulties) {
		return nil, fmt.Errorf("%d level cells, want at least %d", len(cells), len(catalog.MandatoryDifficulties))
	}
	v := &catalog.RawVariant{}
	for i, d := range markupCells {
		if i >= len(cells) {
			break
		}
		text := strings.TrimSpace(cells[i].Text())
		if d == catalog.Remaster && text == "" {
			continue
		}
		v.Set(d, text)
	}
	return v, nil
}
