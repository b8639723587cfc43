// Package config loads the YAML run file that tells a build where its
// inputs are and how to write its outputs.
package config

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/LevelSheet/core/bucket"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/normalize"
	"github.com/FocuswithJustin/LevelSheet/internal/emit"
	"github.com/FocuswithJustin/LevelSheet/internal/logging"
	"github.com/FocuswithJustin/LevelSheet/internal/source"
	"github.com/FocuswithJustin/LevelSheet/internal/validation"
)

// Prior data kinds.
const (
	PriorFeed      = "feed"
	PriorMarkup    = "markup"
	PriorConstants = "constants"
	PriorScript    = "script"
)

// ValidPriorKinds lists every accepted prior.kind.
var ValidPriorKinds = []string{PriorFeed, PriorMarkup, PriorConstants, PriorScript}

// Config holds everything one build run reads.
type Config struct {
	// Source is the current catalog.
	Source SourceConfig `yaml:"source"`

	// Prior is the previous-version rating data.
	Prior PriorConfig `yaml:"prior"`

	// Deleted is the deletion list path; empty deletes nothing.
	Deleted string `yaml:"deleted"`

	// Ordering is the ordering table path; empty orders lexicographically.
	Ordering string `yaml:"ordering"`

	// Buckets are the tracked rating names.
	Buckets []string `yaml:"buckets"`

	// Replacements are merged over the compiled-in title corrections.
	Replacements map[string]string `yaml:"replacements,omitempty"`

	// Output controls what is written.
	Output OutputConfig `yaml:"output"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig selects the catalog adapter and its inputs.
type SourceConfig struct {
	Kind  string   `yaml:"kind"`  // markup, feed
	Pages []string `yaml:"pages"` // markup pages, one per genre
	Feed  string   `yaml:"feed"`  // JSON feed path
}

// PriorConfig selects the prior-version data.
type PriorConfig struct {
	Kind            string `yaml:"kind"` // feed, markup, constants, script
	Path            string `yaml:"path"`
	NormalizeTitles bool   `yaml:"normalize_titles"`
}

// OutputConfig controls the emitted files.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Ext      string `yaml:"ext"`
	Shape    string `yaml:"shape"` // prior, plain
	Manifest bool   `yaml:"manifest"`
	SQLite   string `yaml:"sqlite"` // snapshot path; empty disables
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the layout the tool has always used: genre pages and
// list files under data/ and listings under charts/.
func Default() *Config {
	genres := []string{"pop", "nico", "touhou", "gv", "mai", "gc"}
	pages := make([]string, len(genres))
	for i, g := range genres {
		pages[i] = filepath.Join("data", g+".html")
	}
	return &Config{
		Source: SourceConfig{
			Kind:  string(source.KindMarkup),
			Pages: pages,
		},
		Prior: PriorConfig{
			Kind: PriorConstants,
			Path: filepath.Join("data", "intl_lv_info.csv"),
		},
		Deleted:  filepath.Join("data", "intl_del.txt"),
		Ordering: filepath.Join("data", "ordering.txt"),
		Buckets:  slices.Clone(bucket.DefaultNames),
		Output: OutputConfig{
			Dir:      "charts",
			Ext:      emit.DefaultExt,
			Shape:    emit.ShapeWithPrior.String(),
			Manifest: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML run file over Default. Relative paths in the file are
// resolved against the file's directory.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("config", path)
		}
		return nil, errors.NewIO("read", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &errors.SourceFormatError{Source: path, Message: "invalid config", Err: err}
	}

	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// resolve makes every relative input and output path relative to base.
func (c *Config) resolve(base string) {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, p := range c.Source.Pages {
		c.Source.Pages[i] = join(p)
	}
	c.Source.Feed = join(c.Source.Feed)
	c.Prior.Path = join(c.Prior.Path)
	c.Deleted = join(c.Deleted)
	c.Ordering = join(c.Ordering)
	c.Output.Dir = join(c.Output.Dir)
	c.Output.SQLite = join(c.Output.SQLite)
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewIO("create directory", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// Write encodes the configuration as YAML to w.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return enc.Close()
}

// Validate checks that the configuration describes a runnable build.
func (c *Config) Validate() error {
	switch source.Kind(c.Source.Kind) {
	case source.KindMarkup:
		if len(c.Source.Pages) == 0 {
			return errors.NewValidation("source.pages", "markup source needs at least one page")
		}
	case source.KindFeed:
		if c.Source.Feed == "" {
			return errors.NewValidation("source.feed", "feed source needs a feed path")
		}
	default:
		return errors.NewValidation("source.kind", fmt.Sprintf("invalid source kind: %q (valid: markup, feed)", c.Source.Kind))
	}
	for _, p := range c.SourcePaths() {
		if err := validation.ValidatePath(p); err != nil {
			return &errors.ValidationError{Field: "source", Value: p, Message: err.Error()}
		}
	}

	if c.Prior.Path != "" && !slices.Contains(ValidPriorKinds, c.Prior.Kind) {
		return errors.NewValidation("prior.kind", fmt.Sprintf("invalid prior kind: %q (valid: %s)", c.Prior.Kind, strings.Join(ValidPriorKinds, ", ")))
	}

	if len(c.Buckets) == 0 {
		return errors.NewValidation("buckets", "at least one bucket is required")
	}
	seen := make(map[string]bool, len(c.Buckets))
	for _, b := range c.Buckets {
		if seen[b] {
			return &errors.ValidationError{Field: "buckets", Value: b, Message: "duplicate bucket " + b}
		}
		seen[b] = true
		if err := validation.ValidateFilename(b + c.Output.Ext); err != nil {
			return &errors.ValidationError{Field: "buckets", Value: b, Message: err.Error()}
		}
	}

	if c.Output.Dir == "" {
		return errors.NewValidation("output.dir", "output directory is required")
	}
	if c.Output.Ext != "" && !strings.HasPrefix(c.Output.Ext, ".") {
		return errors.NewValidation("output.ext", fmt.Sprintf("extension %q must start with a dot", c.Output.Ext))
	}
	if _, err := emit.ParseShape(c.Output.Shape); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.NewValidation("logging.level", err.Error())
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return errors.NewValidation("logging.format", err.Error())
	}
	return nil
}

// SourcePaths returns the catalog input files for the configured kind.
func (c *Config) SourcePaths() []string {
	if source.Kind(c.Source.Kind) == source.KindFeed {
		return []string{c.Source.Feed}
	}
	return c.Source.Pages
}

// Shape returns the parsed output shape.
func (c *Config) Shape() emit.Shape {
	s, _ := emit.ParseShape(c.Output.Shape)
	return s
}

// TitleReplacements returns the compiled-in corrections with the
// configured ones merged over them.
func (c *Config) TitleReplacements() map[string]string {
	repl := normalize.DefaultReplacements()
	maps.Copy(repl, c.Replacements)
	return repl
}
