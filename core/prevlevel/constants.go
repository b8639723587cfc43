package prevlevel

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/LevelSheet/core/catalog"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
)

// plusThreshold is the fractional part above which a chart constant is
// displayed with a "+" suffix (x.7 and up).
const plusThreshold = 0.65

// RatingFromConstant converts an internal chart constant to the rating
// string the game displays, e.g. 13.7 -> "13+", 13.6 -> "13".
func RatingFromConstant(c float64) string {
	c = math.Abs(c)
	whole := math.Floor(c)
	r := strconv.Itoa(int(whole))
	if c-whole > plusThreshold {
		r += "+"
	}
	return r
}

// ParseConstantSheet reads a tab-separated sheet of
// "title<TAB>DX|STD<TAB>BAS..REM<TAB>constant" lines into an index. Blank
// lines are skipped; any other malformed line aborts with a
// SourceFormatError.
func ParseConstantSheet(r io.Reader, n catalog.TitleNormalizer) (*Index, error) {
	ix := NewIndex()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		key, rating, err := parseConstantLine(text, n)
		if err != nil {
			err.Message = fmt.Sprintf("line %d: %s", line, err.Message)
			return nil, err
		}
		ix.Put(key, rating)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewIO("read", "constant sheet", err)
	}
	return ix, nil
}

func parseConstantLine(text string, n catalog.TitleNormalizer) (catalog.Key, string, *errors.SourceFormatError) {
	fields := strings.Split(text, "\t")
	if len(fields) < 4 {
		return catalog.Key{}, "", errors.NewSourceFormat("constant sheet", "", "", fmt.Sprintf("expected 4 fields, got %d", len(fields)))
	}
	title := fields[0]
	if n != nil {
		title = n.Title(title)
	}
	ct, ok := catalog.ParseChartType(fields[1])
	if !ok {
		return catalog.Key{}, "", errors.NewSourceFormat("constant sheet", title, "chart type", fmt.Sprintf("unknown code %q", fields[1]))
	}
	d, ok := catalog.ParseDifficulty(fields[2])
	if !ok {
		return catalog.Key{}, "", errors.NewSourceFormat("constant sheet", title, "difficulty", fmt.Sprintf("unknown code %q", fields[2]))
	}
	c, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil || math.IsNaN(c) || math.IsInf(c, 0) {
		return catalog.Key{}, "", errors.NewSourceFormat("constant sheet", title, "constant", fmt.Sprintf("not a number: %q", fields[3]))
	}
	return catalog.Key{Title: title, ChartType: ct, Difficulty: d}, RatingFromConstant(c), nil
}
