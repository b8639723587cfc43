// Package source reads catalog records from the files a run is pointed at.
// Two adapters exist: saved catalog markup pages and the structured JSON
// feed. Both yield catalog.RawRecord values and leave normalization to the
// catalog builder.
package source

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"

	"github.com/ulikunitz/xz"
	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/LevelSheet/core/catalog"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/internal/validation"
)

// Kind names a source adapter.
type Kind string

const (
	// KindMarkup reads saved catalog pages.
	KindMarkup Kind = "markup"
	// KindFeed reads the JSON song feed.
	KindFeed Kind = "feed"
)

// Adapter turns one input document into raw records.
type Adapter interface {
	// Kind reports which adapter this is.
	Kind() Kind
	// Records decodes every record in r. name identifies r in errors.
	Records(r io.Reader, name string) ([]catalog.RawRecord, error)
	// DecodesEntities reports whether titles from this adapter still carry
	// markup entities that the normalizer has to decode.
	DecodesEntities() bool
}

// ForKind returns the adapter for k.
func ForKind(k Kind) (Adapter, error) {
	switch k {
	case KindMarkup:
		return Markup{}, nil
	case KindFeed:
		return Feed{}, nil
	}
	return nil, errors.NewUnsupported("source kind", string(k))
}

// Compression identifies how an input file is compressed.
type Compression string

const (
	// CompressionNone is a plain file.
	CompressionNone Compression = "none"
	// CompressionGzip is a gzip stream.
	CompressionGzip Compression = "gzip"
	// CompressionXZ is an xz stream.
	CompressionXZ Compression = "xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// DetectCompression inspects the leading bytes of magic.
func DetectCompression(magic []byte) Compression {
	if bytes.HasPrefix(magic, xzMagic) {
		return CompressionXZ
	}
	if bytes.HasPrefix(magic, gzipMagic) {
		return CompressionGzip
	}
	return CompressionNone
}

// File is an opened input, decompressed transparently.
type File struct {
	io.Reader
	Path        string
	Compression Compression
	closers     []io.Closer
}

// Close releases the file and any decompressor.
func (f *File) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading, detecting gzip and xz by magic bytes.
func Open(path string) (*File, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, &errors.ValidationError{Field: "path", Value: path, Message: err.Error()}
	}
	fh, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("input", path)
		}
		return nil, errors.NewIO("open", path, err)
	}

	br := bufio.NewReader(fh)
	magic, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		fh.Close()
		return nil, errors.NewIO("read magic bytes", path, err)
	}

	f := &File{Path: path, Compression: DetectCompression(magic), closers: []io.Closer{fh}}
	switch f.Compression {
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			fh.Close()
			return nil, errors.NewIO("open gzip stream", path, err)
		}
		f.Reader = zr
		f.closers = append(f.closers, zr)
	case CompressionXZ:
		zr, err := xz.NewReader(br)
		if err != nil {
			fh.Close()
			return nil, errors.NewIO("open xz stream", path, err)
		}
		f.Reader = zr
	default:
		f.Reader = br
	}
	return f, nil
}

// maxParallelReads bounds how many files ReadAll parses at once.
const maxParallelReads = 4

// ReadAll reads every path with a. Files are parsed concurrently, but records
// keep file order, then document order within a file.
func ReadAll(ctx context.Context, a Adapter, paths []string) ([]catalog.RawRecord, error) {
	perFile := make([][]catalog.RawRecord, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelReads)
	for i, p := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			recs, err := readFile(a, p)
			if err != nil {
				return err
			}
			perFile[i] = recs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []catalog.RawRecord
	for _, recs := range perFile {
		all = append(all, recs...)
	}
	return all, nil
}

func readFile(a Adapter, path string) ([]catalog.RawRecord, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return a.Records(f, path)
}
