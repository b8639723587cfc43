// Package emit writes pipeline results: one tab-delimited listing per
// bucket, a JSON run manifest and an optional SQLite snapshot.
package emit

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/pipeline"
)

// Shape selects the line layout of a listing.
type Shape int

const (
	// ShapeWithPrior writes '<title>\t<TYPE>\t<DIFF>\t<jacket>\t<prior>.
	// The leading apostrophe keeps spreadsheets from reinterpreting the
	// title.
	ShapeWithPrior Shape = iota
	// ShapePlain writes <title>\t<TYPE>\t<DIFF>\t<jacket>.
	ShapePlain
)

// String returns the configuration name of the shape.
func (s Shape) String() string {
	switch s {
	case ShapeWithPrior:
		return "prior"
	case ShapePlain:
		return "plain"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// ParseShape parses "prior" or "plain". An empty string is ShapeWithPrior.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "prior":
		return ShapeWithPrior, nil
	case "plain":
		return ShapePlain, nil
	}
	return ShapeWithPrior, errors.NewValidation("output.shape", fmt.Sprintf("unknown shape %q (want prior or plain)", s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Line formats one entry without the trailing newline.
func Line(e pipeline.Entry, shape Shape) string {
	c := e.Chart
	fields := []string{c.Song.Title, c.Song.ChartType.String(), c.Difficulty.String(), c.Song.Jacket}
	if shape == ShapeWithPrior {
		return "'" + strings.Join(fields, "\t") + "\t" + e.PriorRating
	}
	return strings.Join(fields, "\t")
}

// WriteListing writes every entry of l to w, one line each, in order.
func WriteListing(w io.Writer, l pipeline.Listing, shape Shape) error {
	bw := bufio.NewWriter(w)
	for _, e := range l.Entries {
		if _, err := bw.WriteString(Line(e, shape)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
