// Command levelsheet builds per-rating chart listings from a saved song
// catalog and the previous version's rating data.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/FocuswithJustin/LevelSheet/core/catalog"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/normalize"
	"github.com/FocuswithJustin/LevelSheet/internal/config"
	"github.com/FocuswithJustin/LevelSheet/internal/emit"
	"github.com/FocuswithJustin/LevelSheet/internal/logging"
	"github.com/FocuswithJustin/LevelSheet/internal/run"
)

const version = "0.4.0"

// defaultConfigFile is read when present and no --config is given.
const defaultConfigFile = "levelsheet.yaml"

// stdout is where command output goes; logs go to stderr.
var stdout io.Writer = os.Stdout

// cli defines the command-line interface for levelsheet.
type cli struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"Run configuration file (YAML)" type:"path" env:"LEVELSHEET_CONFIG"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error (overrides config)"`
	LogFormat string `name:"log-format" help:"Log format: text, json (overrides config)"`

	Build   BuildCmd   `cmd:"" help:"Build the bucket listings"`
	Lookup  LookupCmd  `cmd:"" help:"Look up prior-version ratings for a title"`
	Verify  VerifyCmd  `cmd:"" help:"Check emitted listings against the run manifest"`
	Show    ShowCmd    `cmd:"" help:"Print the effective configuration"`
	Init    InitCmd    `cmd:"" help:"Write a default configuration file"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// CLI holds the parsed command line.
var CLI cli

// loadConfig reads the configuration named by --config, falling back to
// ./levelsheet.yaml and then the built-in defaults, and applies the global
// logging flags.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case CLI.Config != "":
		cfg, err = config.Load(CLI.Config)
	case fileExists(defaultConfigFile):
		cfg, err = config.Load(defaultConfigFile)
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if CLI.LogLevel != "" {
		cfg.Logging.Level = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		cfg.Logging.Format = CLI.LogFormat
	}
	return cfg, nil
}

// initLogging applies the configured level and format.
func initLogging(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return errors.NewValidation("log-level", err.Error())
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return errors.NewValidation("log-format", err.Error())
	}
	logging.InitLogger(level, format)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// BuildCmd runs the pipeline and writes the listings.
type BuildCmd struct {
	Out        string `name:"out" short:"o" help:"Output directory (overrides config)" type:"path" env:"LEVELSHEET_OUT"`
	Shape      string `name:"shape" help:"Listing shape: prior or plain (overrides config)"`
	SQLite     string `name:"sqlite" help:"Also write a SQLite snapshot to this path" type:"path"`
	NoManifest bool   `name:"no-manifest" help:"Do not write manifest.json"`
	DryRun     bool   `name:"dry-run" short:"n" help:"Run the pipeline but write nothing"`
}

func (c *BuildCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Out != "" {
		cfg.Output.Dir = c.Out
	}
	if c.Shape != "" {
		cfg.Output.Shape = c.Shape
	}
	if c.SQLite != "" {
		cfg.Output.SQLite = c.SQLite
	}
	if c.NoManifest {
		cfg.Output.Manifest = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	rep, err := run.Build(context.Background(), cfg, run.Options{
		DryRun: c.DryRun,
		Tool:   emit.ToolInfo{Name: "levelsheet", Version: version},
	})
	if err != nil {
		return err
	}

	names := make([]string, 0, len(rep.Result.Listings))
	for _, l := range rep.Result.Listings {
		names = append(names, l.Bucket+ext(cfg))
	}
	fmt.Fprint(stdout, renderSummary(rep, names, c.DryRun))
	return nil
}

func ext(cfg *config.Config) string {
	if cfg.Output.Ext == "" {
		return emit.DefaultExt
	}
	return cfg.Output.Ext
}

// LookupCmd prints the prior-version rating of every chart of a title.
type LookupCmd struct {
	Title      string `arg:"" help:"Song title as it appears in the catalog"`
	Type       string `name:"type" short:"t" help:"Restrict to one chart type (DX or STD)"`
	Difficulty string `name:"difficulty" short:"d" help:"Restrict to one difficulty (BAS, ADV, EXP, MAS, REM)"`
}

func (c *LookupCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	types := catalog.ChartTypes
	if c.Type != "" {
		ct, ok := catalog.ParseChartType(strings.ToUpper(c.Type))
		if !ok {
			return errors.NewValidation("type", fmt.Sprintf("unknown chart type %q", c.Type))
		}
		types = []catalog.ChartType{ct}
	}
	diffs := catalog.Difficulties
	if c.Difficulty != "" {
		d, ok := catalog.ParseDifficulty(strings.ToUpper(c.Difficulty))
		if !ok {
			return errors.NewValidation("difficulty", fmt.Sprintf("unknown difficulty %q", c.Difficulty))
		}
		diffs = []catalog.Difficulty{d}
	}

	ix, err := run.LoadPrior(context.Background(), cfg)
	if err != nil {
		return err
	}
	title := c.Title
	if cfg.Prior.NormalizeTitles {
		title = normalize.New(cfg.TitleReplacements(), false).Title(title)
	}
	for _, ct := range types {
		for _, d := range diffs {
			fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\n", title, ct, d, ix.ResolveKey(title, ct, d))
		}
	}
	return nil
}

// VerifyCmd recomputes the digests recorded in a manifest.
type VerifyCmd struct {
	Dir    string `arg:"" optional:"" help:"Output directory holding manifest.json (default: configured output dir)" type:"path"`
	SQLite string `name:"sqlite" help:"Also check the row counts of this SQLite snapshot" type:"path"`
}

func (c *VerifyCmd) Run() error {
	dir := c.Dir
	if dir == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir = cfg.Output.Dir
	}
	m, err := emit.ReadManifest(filepath.Join(dir, emit.ManifestName))
	if err != nil {
		return err
	}
	stale, err := emit.Verify(dir, m)
	if err != nil {
		return err
	}
	for _, f := range stale {
		fmt.Fprintf(stdout, "STALE %s\n", f.File)
	}
	if len(stale) > 0 {
		return fmt.Errorf("%d of %d listings do not match run %s", len(stale), len(m.Files), m.RunID)
	}
	fmt.Fprintf(stdout, "OK %d listings match run %s\n", len(m.Files), m.RunID)

	if c.SQLite == "" {
		return nil
	}
	stale, err = emit.VerifySnapshot(context.Background(), c.SQLite, m)
	if err != nil {
		return err
	}
	for _, f := range stale {
		fmt.Fprintf(stdout, "STALE snapshot bucket %s\n", f.Bucket)
	}
	if len(stale) > 0 {
		return fmt.Errorf("snapshot %s does not match run %s", c.SQLite, m.RunID)
	}
	fmt.Fprintf(stdout, "OK snapshot %s matches run %s\n", c.SQLite, m.RunID)
	return nil
}

// ShowCmd prints the effective configuration as YAML.
type ShowCmd struct{}

func (c *ShowCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.Write(stdout)
}

// InitCmd writes the built-in defaults as a configuration file.
type InitCmd struct {
	Path  string `arg:"" optional:"" help:"File to write (default: levelsheet.yaml)" type:"path"`
	Force bool   `name:"force" short:"f" help:"Overwrite an existing file"`
}

func (c *InitCmd) Run() error {
	path := c.Path
	if path == "" {
		path = defaultConfigFile
	}
	if fileExists(path) && !c.Force {
		return errors.NewValidation("path", fmt.Sprintf("%s already exists (use --force to overwrite)", path))
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "levelsheet version %s\n", version)
	return nil
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI,
		kong.Name("levelsheet"),
		kong.Description("Build per-rating chart listings with prior-version ratings"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
