// Package lists loads the newline-delimited title lists a run consumes: the
// deletion list and the ordering table.
package lists

import (
	"bufio"
	"io"
	"strings"

	"github.com/FocuswithJustin/LevelSheet/core/bucket"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/order"
	"github.com/FocuswithJustin/LevelSheet/internal/source"
)

// ReadLines returns every line of r with a trailing carriage return removed.
// Blank lines are kept so callers can decide whether they carry meaning.
func ReadLines(r io.Reader, name string) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewIO("read", name, err)
	}
	return lines, nil
}

// ParseDeletionSet reads one title per line. Blank lines are ignored.
func ParseDeletionSet(r io.Reader, name string) (bucket.DeletionSet, error) {
	lines, err := ReadLines(r, name)
	if err != nil {
		return nil, err
	}
	titles := lines[:0]
	for _, l := range lines {
		if l != "" {
			titles = append(titles, l)
		}
	}
	return bucket.NewDeletionSet(titles), nil
}

// ParseOrderingTable reads one title per line; the zero-based line index is
// the rank, so blank lines still consume a rank.
func ParseOrderingTable(r io.Reader, name string) (*order.Table, error) {
	lines, err := ReadLines(r, name)
	if err != nil {
		return nil, err
	}
	return order.NewTable(lines), nil
}

// LoadDeletionSet reads the deletion list at path. An empty path yields an
// empty set.
func LoadDeletionSet(path string) (bucket.DeletionSet, error) {
	if path == "" {
		return bucket.DeletionSet{}, nil
	}
	f, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDeletionSet(f, path)
}

// LoadOrderingTable reads the ordering table at path. An empty path yields
// an empty table, which orders every title lexicographically.
func LoadOrderingTable(path string) (*order.Table, error) {
	if path == "" {
		return order.NewTable(nil), nil
	}
	f, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseOrderingTable(f, path)
}
