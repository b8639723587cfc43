// Package run wires a loaded configuration to the pipeline: it reads every
// input once, runs the pipeline and writes the outputs.
package run

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/LevelSheet/core/catalog"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/normalize"
	"github.com/FocuswithJustin/LevelSheet/core/pipeline"
	"github.com/FocuswithJustin/LevelSheet/core/prevlevel"
	"github.com/FocuswithJustin/LevelSheet/internal/config"
	"github.com/FocuswithJustin/LevelSheet/internal/emit"
	"github.com/FocuswithJustin/LevelSheet/internal/lists"
	"github.com/FocuswithJustin/LevelSheet/internal/logging"
	"github.com/FocuswithJustin/LevelSheet/internal/source"
)

// Options adjust a build beyond what the configuration says.
type Options struct {
	// DryRun runs the pipeline without writing anything.
	DryRun bool
	// RunID identifies the run; empty means a new UUID.
	RunID string
	// Tool is recorded in the manifest.
	Tool emit.ToolInfo
}

// Report is what a build produced.
type Report struct {
	RunID        string
	Result       *pipeline.Result
	Manifest     *emit.Manifest
	ManifestPath string
	SQLitePath   string
}

// Normalizer returns the catalog title normalizer for cfg.
func Normalizer(cfg *config.Config, a source.Adapter) *normalize.Normalizer {
	return normalize.New(cfg.TitleReplacements(), a.DecodesEntities())
}

// LoadInputs reads every input cfg names and returns them ready for
// pipeline.Run.
func LoadInputs(ctx context.Context, cfg *config.Config) (pipeline.Inputs, error) {
	adapter, err := source.ForKind(source.Kind(cfg.Source.Kind))
	if err != nil {
		return pipeline.Inputs{}, err
	}
	records, err := source.ReadAll(ctx, adapter, cfg.SourcePaths())
	if err != nil {
		return pipeline.Inputs{}, errors.Wrap(err, "reading catalog")
	}
	logging.InputLoaded(ctx, "catalog", strings.Join(cfg.SourcePaths(), ","), len(records), "source", cfg.Source.Kind)

	n := Normalizer(cfg, adapter)

	prior, err := LoadPrior(ctx, cfg)
	if err != nil {
		return pipeline.Inputs{}, errors.Wrap(err, "reading prior ratings")
	}
	if cfg.Prior.Path == "" {
		logging.WarnContext(ctx, "no prior data configured; every prior rating will be "+prevlevel.Missing)
	} else {
		logging.InputLoaded(ctx, "prior", cfg.Prior.Path, prior.Len(), "prior_kind", cfg.Prior.Kind, "overwrites", prior.Overwrites())
	}

	deleted, err := lists.LoadDeletionSet(cfg.Deleted)
	if err != nil {
		return pipeline.Inputs{}, errors.Wrap(err, "reading deletion list")
	}
	logging.InputLoaded(ctx, "deleted", cfg.Deleted, len(deleted))

	ordering, err := lists.LoadOrderingTable(cfg.Ordering)
	if err != nil {
		return pipeline.Inputs{}, errors.Wrap(err, "reading ordering table")
	}
	logging.InputLoaded(ctx, "ordering", cfg.Ordering, ordering.Len())

	return pipeline.Inputs{
		Source:     cfg.Source.Kind,
		Records:    records,
		Normalizer: n,
		Prior:      prior,
		Deleted:    deleted,
		Order:      ordering,
		Buckets:    cfg.Buckets,
		Logger:     logging.LoggerFromContext(ctx),
	}, nil
}

// LoadPrior builds the prior-version index cfg names. An empty path yields
// an empty index, so every chart resolves to prevlevel.Missing.
func LoadPrior(ctx context.Context, cfg *config.Config) (*prevlevel.Index, error) {
	if cfg.Prior.Path == "" {
		return prevlevel.NewIndex(), nil
	}

	// The replacement table applies to prior titles only on request. Markup
	// titles are always trimmed and entity-decoded, like catalog markup.
	var n catalog.TitleNormalizer
	switch {
	case cfg.Prior.NormalizeTitles:
		n = normalize.New(cfg.TitleReplacements(), cfg.Prior.Kind == config.PriorMarkup)
	case cfg.Prior.Kind == config.PriorMarkup:
		n = normalize.New(nil, true)
	}

	switch cfg.Prior.Kind {
	case config.PriorFeed, config.PriorMarkup:
		adapter, err := source.ForKind(source.Kind(cfg.Prior.Kind))
		if err != nil {
			return nil, err
		}
		records, err := source.ReadAll(ctx, adapter, []string{cfg.Prior.Path})
		if err != nil {
			return nil, err
		}
		return prevlevel.FromRecords(records, n), nil
	case config.PriorConstants:
		f, err := source.Open(cfg.Prior.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return prevlevel.ParseConstantSheet(f, n)
	case config.PriorScript:
		f, err := source.Open(cfg.Prior.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, errors.NewIO("read", cfg.Prior.Path, err)
		}
		return prevlevel.ParseLevelsScript(string(data), n)
	}
	return nil, errors.NewUnsupported("prior kind", cfg.Prior.Kind)
}

// Build runs one full build for cfg.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Report, error) {
	start := time.Now()
	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	ctx = logging.WithRunID(ctx, runID)
	logging.RunStarted(ctx, cfg.Source.Kind, "dry_run", opts.DryRun, "buckets", len(cfg.Buckets))

	in, err := LoadInputs(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	rep := &Report{RunID: runID, Result: res}
	if opts.DryRun {
		logging.RunFinished(ctx, time.Since(start), "charts", res.Stats.Charts, "dry_run", true)
		return rep, nil
	}

	m, err := emit.Dir(cfg.Output.Dir, res, emit.Options{
		Ext:   cfg.Output.Ext,
		Shape: cfg.Shape(),
		RunID: runID,
		Tool:  opts.Tool,
	})
	if err != nil {
		return nil, errors.Wrap(err, "writing listings")
	}
	rep.Manifest = m
	for _, f := range m.Files {
		logging.ListingWritten(ctx, f.Bucket, filepath.Join(cfg.Output.Dir, f.File), f.Count)
	}

	if cfg.Output.Manifest {
		path, err := emit.WriteManifest(cfg.Output.Dir, m)
		if err != nil {
			return nil, errors.Wrap(err, "writing manifest")
		}
		rep.ManifestPath = path
	}
	if cfg.Output.SQLite != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output.SQLite), 0o755); err != nil {
			return nil, errors.NewIO("create directory", filepath.Dir(cfg.Output.SQLite), err)
		}
		if err := emit.SQLite(ctx, cfg.Output.SQLite, res); err != nil {
			return nil, errors.Wrap(err, "writing snapshot")
		}
		rep.SQLitePath = cfg.Output.SQLite
	}

	logging.RunFinished(ctx, time.Since(start),
		"charts", res.Stats.Charts, "prior_hits", res.Stats.PriorHits, "prior_misses", res.Stats.PriorMiss)
	return rep, nil
}
