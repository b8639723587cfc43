package emit

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/pipeline"
	"github.com/FocuswithJustin/LevelSheet/internal/validation"
)

// ManifestName is the file name of the run manifest inside the output
// directory.
const ManifestName = "manifest.json"

// DefaultExt is the listing file extension used when none is configured.
const DefaultExt = ".csv"

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// Options control how Dir writes a result.
type Options struct {
	// Ext is appended to each bucket name. Empty means DefaultExt.
	Ext string
	// Shape is the listing line layout.
	Shape Shape
	// RunID identifies the run in the manifest. Empty means a new UUID.
	RunID string
	// Tool names the program that produced the files.
	Tool ToolInfo
}

// ToolInfo describes the tool that wrote a manifest.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// FileRecord describes one emitted listing.
type FileRecord struct {
	Bucket string `json:"bucket"`
	File   string `json:"file"`
	Count  int    `json:"count"`
	BLAKE3 string `json:"blake3"`
}

// Manifest records what one run wrote.
type Manifest struct {
	RunID     string         `json:"run_id"`
	CreatedAt string         `json:"created_at"`
	Tool      ToolInfo       `json:"tool"`
	Shape     Shape          `json:"shape"`
	Stats     pipeline.Stats `json:"stats"`
	Files     []FileRecord   `json:"files"`
}

// Render formats every listing of res in memory, keyed by file name, in
// listing order. Nothing is written.
func Render(res *pipeline.Result, opts Options) ([]FileRecord, [][]byte, error) {
	ext := opts.Ext
	if ext == "" {
		ext = DefaultExt
	}
	records := make([]FileRecord, 0, len(res.Listings))
	contents := make([][]byte, 0, len(res.Listings))
	for _, l := range res.Listings {
		name := l.Bucket + ext
		if err := validation.ValidateFilename(name); err != nil {
			return nil, nil, &errors.ValidationError{Field: "bucket", Value: l.Bucket, Message: err.Error()}
		}
		var buf bytes.Buffer
		if err := WriteListing(&buf, l, opts.Shape); err != nil {
			return nil, nil, err
		}
		sum := blake3.Sum256(buf.Bytes())
		records = append(records, FileRecord{
			Bucket: l.Bucket,
			File:   name,
			Count:  len(l.Entries),
			BLAKE3: hex.EncodeToString(sum[:]),
		})
		contents = append(contents, buf.Bytes())
	}
	return records, contents, nil
}

// Dir writes <dir>/<bucket><ext> for every listing of res and returns the
// manifest describing them. Existing files are replaced atomically. The
// manifest itself is not written; see WriteManifest.
func Dir(dir string, res *pipeline.Result, opts Options) (*Manifest, error) {
	records, contents, err := Render(res, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewIO("create directory", dir, err)
	}
	for i, rec := range records {
		if err := writeFileAtomic(filepath.Join(dir, rec.File), contents[i]); err != nil {
			return nil, err
		}
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	return &Manifest{
		RunID:     runID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Tool:      opts.Tool,
		Shape:     opts.Shape,
		Stats:     res.Stats,
		Files:     records,
	}, nil
}

// WriteManifest writes m as <dir>/manifest.json.
func WriteManifest(dir string, m *Manifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding manifest")
	}
	path := filepath.Join(dir, ManifestName)
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("manifest", path)
		}
		return nil, errors.NewIO("read", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errors.SourceFormatError{Source: path, Message: "invalid manifest", Err: err}
	}
	return &m, nil
}

// Verify recomputes the digest of every file listed in m, relative to dir,
// and returns the records that no longer match.
func Verify(dir string, m *Manifest) ([]FileRecord, error) {
	var stale []FileRecord
	for _, rec := range m.Files {
		data, err := os.ReadFile(filepath.Join(dir, rec.File))
		if err != nil {
			if os.IsNotExist(err) {
				stale = append(stale, rec)
				continue
			}
			return nil, errors.NewIO("read", rec.File, err)
		}
		sum := blake3.Sum256(data)
		if hex.EncodeToString(sum[:]) != rec.BLAKE3 {
			stale = append(stale, rec)
		}
	}
	return stale, nil
}

// writeFileAtomic writes data to a temporary file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".emit-*")
	if err != nil {
		return errors.NewIO("create temp file", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewIO("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("chmod", tmpPath, err)
	}
	if err := osRename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("rename", path, err)
	}
	return nil
}
