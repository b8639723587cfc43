package emit

import (
	"context"
	"os"
	"slices"

	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/pipeline"
	"github.com/FocuswithJustin/LevelSheet/core/sqlite"
)

const snapshotSchema = `
CREATE TABLE charts (
	bucket       TEXT    NOT NULL,
	position     INTEGER NOT NULL,
	title        TEXT    NOT NULL,
	chart_type   TEXT    NOT NULL,
	difficulty   TEXT    NOT NULL,
	jacket       TEXT    NOT NULL,
	prior_rating TEXT    NOT NULL,
	PRIMARY KEY (bucket, position)
);
CREATE INDEX charts_title ON charts (title, chart_type, difficulty);
`

// SQLite writes res to a fresh database at path with one row per listed
// chart. Any existing file at path is replaced.
func SQLite(ctx context.Context, path string, res *pipeline.Result) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewIO("remove", path, err)
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return errors.NewIO("open", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		return errors.Wrap(err, "creating snapshot schema")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting snapshot transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO charts
		(bucket, position, title, chart_type, difficulty, jacket, prior_rating)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "preparing snapshot insert")
	}
	defer stmt.Close()

	for _, l := range res.Listings {
		for i, e := range l.Entries {
			c := e.Chart
			if _, err := stmt.ExecContext(ctx, l.Bucket, i, c.Song.Title, c.Song.ChartType.String(),
				c.Difficulty.String(), c.Song.Jacket, e.PriorRating); err != nil {
				return errors.Wrapf(err, "inserting %s", c.Key())
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing snapshot")
	}
	return nil
}

// VerifySnapshot checks the snapshot at path against m and returns the
// manifest records whose bucket row count differs. Buckets present in the
// snapshot but absent from m are returned with the count found.
func VerifySnapshot(ctx context.Context, path string, m *Manifest) ([]FileRecord, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("snapshot", path)
		}
		return nil, errors.NewIO("stat", path, err)
	}
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT bucket, COUNT(*) FROM charts GROUP BY bucket`)
	if err != nil {
		return nil, &errors.SourceFormatError{Source: "snapshot", Record: path, Message: "unreadable charts table", Err: err}
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var bucket string
		var n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, errors.Wrap(err, "reading snapshot counts")
		}
		counts[bucket] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "reading snapshot counts")
	}

	var stale []FileRecord
	for _, f := range m.Files {
		if counts[f.Bucket] != f.Count {
			stale = append(stale, f)
		}
		delete(counts, f.Bucket)
	}
	extra := make([]string, 0, len(counts))
	for b := range counts {
		extra = append(extra, b)
	}
	slices.Sort(extra)
	for _, b := range extra {
		stale = append(stale, FileRecord{Bucket: b, Count: counts[b]})
	}
	return stale, nil
}
