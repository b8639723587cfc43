package catalog

import (
	"github.com/FocuswithJustin/LevelSheet/core/errors"
)

// TitleNormalizer maps a source title to its canonical form.
type TitleNormalizer interface {
	Title(string) string
}

// variantOrder is the order variants are expanded in.
var variantOrder = []ChartType{Std, Dx}

// Build expands every raw record into songs. source names the adapter the
// records came from and is used only in error messages. The first malformed
// record aborts the build.
func Build(source string, records []RawRecord, n TitleNormalizer) ([]Song, error) {
	songs := make([]Song, 0, len(records)*2)
	for _, rec := range records {
		out, err := BuildRecord(source, rec, n)
		if err != nil {
			return nil, err
		}
		songs = append(songs, out...)
	}
	return songs, nil
}

// BuildRecord expands one raw record into zero, one or two songs, one per
// present variant. A variant with none of its mandatory ratings contributes
// nothing; a variant with only some of them is a SourceFormatError.
func BuildRecord(source string, rec RawRecord, n TitleNormalizer) ([]Song, error) {
	title := rec.Title
	if n != nil {
		title = n.Title(title)
	}
	if title == "" {
		return nil, errors.NewSourceFormat(source, rec.Jacket, "title", "empty title")
	}

	var songs []Song
	for _, ct := range variantOrder {
		v := rec.Variant(ct)
		if v == nil {
			continue
		}
		ratings, ok, err := ratingsOf(v)
		if err != nil {
			err.Source = source
			err.Record = title
			err.Field = ct.String() + " " + err.Field
			return nil, err
		}
		if !ok {
			continue
		}
		songs = append(songs, Song{
			Title:     title,
			Jacket:    rec.Jacket,
			ChartType: ct,
			Ratings:   ratings,
		})
	}
	return songs, nil
}

// ratingsOf converts a raw variant. ok is false when the variant carries no
// mandatory rating at all.
func ratingsOf(v *RawVariant) (Ratings, bool, *errors.SourceFormatError) {
	var vals [4]string
	present := 0
	missing := Difficulty(-1)
	for i, d := range MandatoryDifficulties {
		s, ok := v.Level(d)
		if ok && s != "" {
			vals[i] = s
			present++
		} else if missing < 0 {
			missing = d
		}
	}
	if present == 0 {
		return Ratings{}, false, nil
	}
	if present < len(MandatoryDifficulties) {
		return Ratings{}, false, &errors.SourceFormatError{
			Field:   missing.String(),
			Message: "missing mandatory rating",
		}
	}
	rem, _ := v.Level(Remaster)
	return Ratings{
		Basic:    vals[0],
		Advanced: vals[1],
		Expert:   vals[2],
		Master:   vals[3],
		Remaster: rem,
	}, true, nil
}
