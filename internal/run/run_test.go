package run

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/LevelSheet/core/catalog"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/prevlevel"
	"github.com/FocuswithJustin/LevelSheet/internal/config"
	"github.com/FocuswithJustin/LevelSheet/internal/emit"
	"github.com/FocuswithJustin/LevelSheet/internal/logging"
	"github.com/FocuswithJustin/LevelSheet/internal/source"
)

// songHTML renders one song of a catalog page. Each levels argument is
// "dx:4,8,12,13" or "std:...".
func songHTML(title, jacket string, boxes ...string) string {
	var b strings.Builder
	b.WriteString(`<div class="song"><div><div><div class="songs-data-box">`)
	b.WriteString(`<div class="songs-data-box-jacket jacket"><img src="` + jacket + `"></div>`)
	b.WriteString(`<div class="songs-data-box-title"><div class="songs-data title"><span class="titleText">` + title + `</span></div></div>`)
	for _, box := range boxes {
		kind, lv, _ := strings.Cut(box, ":")
		b.WriteString(`<div class="songs-data-box-level ` + kind + `">`)
		cells := strings.Split(lv, ",")
		for len(cells) < 5 {
			cells = append(cells, "")
		}
		for _, c := range cells {
			b.WriteString("<div>" + c + "</div>")
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></div></div></div>`)
	return b.String()
}

func pageHTML(songs ...string) string {
	return `<div class="data"><div><div><div class="songs">` + strings.Join(songs, "\n") + `</div></div></div></div>`
}

func write(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fixture lays out a complete data directory and returns a config for it.
func fixture(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	page := pageHTML(
		songHTML("A", "a.png", "std:5,7,10,13"),
		songHTML("B", "b.png", "dx:4,8,12,13,14+"),
		songHTML("GIGANTØMAKHIA", "g.png", "dx:6,9,13,14+"),
		songHTML("Tom &amp;amp; Jerry", "t.png", "std:3,6,9,13+"),
		songHTML("Removed", "r.png", "dx:5,8,12,13"),
	)
	cfg := config.Default()
	cfg.Source.Pages = []string{write(t, filepath.Join(dir, "pop.html"), page)}
	cfg.Prior.Path = write(t, filepath.Join(dir, "intl_lv_info.csv"),
		"B\tDX\tMAS\t12.7\nGIGANTØMAKHIA\tDX\tMAS\t14.2\nA\tSTD\tMAS\t12.5\n")
	cfg.Deleted = write(t, filepath.Join(dir, "intl_del.txt"), "Removed\n")
	cfg.Ordering = write(t, filepath.Join(dir, "ordering.txt"), "B\nA\n")
	cfg.Output.Dir = filepath.Join(dir, "charts")
	cfg.Output.SQLite = filepath.Join(dir, "out", "snapshot.db")
	return cfg
}

func TestBuild(t *testing.T) {
	cfg := fixture(t)
	rep, err := Build(context.Background(), cfg, Options{RunID: "r-1", Tool: emit.ToolInfo{Name: "levelsheet", Version: "test"}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "13.csv"))
	if err != nil {
		t.Fatal(err)
	}
	want := "'B\tDX\tMAS\tb.png\t12+\n" +
		"'A\tSTD\tMAS\ta.png\t12\n" +
		"'GIGANTOMAKHIA\tDX\tEXP\tg.png\tN/A\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("13.csv mismatch (-want +got):\n%s", diff)
	}

	got, err = os.ReadFile(filepath.Join(cfg.Output.Dir, "13+.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "'Tom &amp; Jerry\tSTD\tMAS\tt.png\tN/A\n" {
		t.Errorf("13+.csv = %q", got)
	}

	// The prior sheet spells the title uncorrected, so the canonical title
	// misses.
	got, err = os.ReadFile(filepath.Join(cfg.Output.Dir, "14+.csv"))
	if err != nil {
		t.Fatal(err)
	}
	want = "'B\tDX\tREM\tb.png\tN/A\n'GIGANTOMAKHIA\tDX\tMAS\tg.png\tN/A\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("14+.csv mismatch (-want +got):\n%s", diff)
	}

	if rep.RunID != "r-1" || rep.Result.Stats.Deleted != 1 {
		t.Errorf("report = %+v", rep)
	}
	m, err := emit.ReadManifest(rep.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if m.RunID != "r-1" || len(m.Files) != len(cfg.Buckets) {
		t.Errorf("manifest = %+v", m)
	}
	if stale, err := emit.Verify(cfg.Output.Dir, m); err != nil || len(stale) != 0 {
		t.Errorf("Verify() = %v, %v", stale, err)
	}
	if _, err := os.Stat(rep.SQLitePath); err != nil {
		t.Errorf("snapshot missing: %v", err)
	}
}

func TestBuildNormalizedPriorTitles(t *testing.T) {
	cfg := fixture(t)
	cfg.Prior.NormalizeTitles = true
	rep, err := Build(context.Background(), cfg, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range rep.Result.Listings {
		if l.Bucket != "14+" {
			continue
		}
		for _, e := range l.Entries {
			if e.Chart.Song.Title == "GIGANTOMAKHIA" && e.PriorRating != "14" {
				t.Errorf("normalized prior rating = %q, want 14", e.PriorRating)
			}
		}
	}
}

func TestBuildDryRunWritesNothing(t *testing.T) {
	cfg := fixture(t)
	rep, err := Build(context.Background(), cfg, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Manifest != nil || rep.ManifestPath != "" {
		t.Errorf("dry run produced a manifest: %+v", rep)
	}
	if _, err := os.Stat(cfg.Output.Dir); !os.IsNotExist(err) {
		t.Errorf("dry run created the output directory: %v", err)
	}
	if len(rep.RunID) != 36 {
		t.Errorf("RunID = %q, want a generated UUID", rep.RunID)
	}
}

func TestBuildMalformedPageAborts(t *testing.T) {
	cfg := fixture(t)
	write(t, cfg.Source.Pages[0], pageHTML(songHTML("Broken", "x.png", "dx:4,8,,13")))
	_, err := Build(context.Background(), cfg, Options{})
	if !errors.Is(err, errors.ErrSourceFormat) {
		t.Fatalf("Build() error = %v, want ErrSourceFormat", err)
	}
	if _, statErr := os.Stat(cfg.Output.Dir); !os.IsNotExist(statErr) {
		t.Error("aborted run must not write listings")
	}
}

func TestBuildMissingInput(t *testing.T) {
	cfg := fixture(t)
	cfg.Ordering = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := Build(context.Background(), cfg, Options{DryRun: true}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Build() error = %v, want ErrNotFound", err)
	}
}

func TestLoadPriorKinds(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		kind  string
		file  string
		body  string
		title string
		want  map[string]string
	}{
		{
			name: "feed",
			kind: config.PriorFeed,
			file: "prior.json",
			body: `[{"title": "A", "dx_lev_bas": "3", "dx_lev_adv": "7", "dx_lev_exp": "10", "dx_lev_mas": "12+"}]`,
			want: map[string]string{"DX/MAS": "12+", "STD/MAS": prevlevel.Missing},
		},
		{
			name: "constants",
			kind: config.PriorConstants,
			file: "prior.tsv",
			body: "A\tSTD\tMAS\t12.8\n",
			want: map[string]string{"STD/MAS": "12+", "DX/MAS": prevlevel.Missing},
		},
		{
			name: "script",
			kind: config.PriorScript,
			file: "levels.js",
			body: `var in_lv = [{dx:1, lv:[3.0, 7.0, 10.5, -12.7, 0, 0], n:"A"}];`,
			want: map[string]string{"DX/MAS": "12+", "DX/EXP": "10"},
		},
		{
			name: "markup",
			kind: config.PriorMarkup,
			file: "prior.html",
			body: pageHTML(songHTML("A", "a.png", "std:3,6,9,12")),
			want: map[string]string{"STD/MAS": "12"},
		},
		{
			name:  "markup entity title",
			kind:  config.PriorMarkup,
			file:  "prior-entity.html",
			body:  pageHTML(songHTML("Tom &amp; Jerry", "t.png", "std:3,6,9,13")),
			title: "Tom & Jerry",
			want:  map[string]string{"STD/MAS": "13"},
		},
		{
			name:  "markup padded title",
			kind:  config.PriorMarkup,
			file:  "prior-padded.html",
			body:  pageHTML(songHTML("\n   Spaced  \n", "s.png", "std:3,6,9,13")),
			title: "Spaced",
			want:  map[string]string{"STD/MAS": "13"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Prior = config.PriorConfig{Kind: tt.kind, Path: write(t, filepath.Join(dir, tt.file), tt.body)}
			ix, err := LoadPrior(context.Background(), cfg)
			if err != nil {
				t.Fatalf("LoadPrior() error = %v", err)
			}
			title := tt.title
			if title == "" {
				title = "A"
			}
			for k, want := range tt.want {
				ctName, dName, _ := strings.Cut(k, "/")
				ct, _ := catalog.ParseChartType(ctName)
				d, _ := catalog.ParseDifficulty(dName)
				if got := ix.ResolveKey(title, ct, d); got != want {
					t.Errorf("ResolveKey(%q, %s) = %q, want %q", title, k, got, want)
				}
			}
		})
	}

	cfg := config.Default()
	cfg.Prior = config.PriorConfig{}
	ix, err := LoadPrior(context.Background(), cfg)
	if err != nil || ix.Len() != 0 {
		t.Errorf("LoadPrior() without path = %v, %v", ix, err)
	}
}

func TestLoadInputsFeedSource(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Source = config.SourceConfig{
		Kind: string(source.KindFeed),
		Feed: write(t, filepath.Join(dir, "songs.json"), `[{"title": "Tom &amp; Jerry", "lev_bas": "1", "lev_adv": "2", "lev_exp": "3", "lev_mas": "4"}]`),
	}
	cfg.Prior = config.PriorConfig{}
	cfg.Deleted = ""
	cfg.Ordering = ""

	in, err := LoadInputs(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	// Feed titles are plain text; entities are not decoded.
	if got := in.Normalizer.Title(in.Records[0].Title); got != "Tom &amp; Jerry" {
		t.Errorf("feed title normalized to %q", got)
	}
}

func TestBuildMarkupPriorMatchesCatalog(t *testing.T) {
	dir := t.TempDir()
	page := pageHTML(
		songHTML("Tom &amp; Jerry", "t.png", "std:3,6,9,13"),
		songHTML("\n   Spaced  \n", "s.png", "std:3,6,9,13"),
	)
	cfg := config.Default()
	cfg.Source.Pages = []string{write(t, filepath.Join(dir, "pop.html"), page)}
	cfg.Prior = config.PriorConfig{Kind: config.PriorMarkup, Path: write(t, filepath.Join(dir, "prior.html"), page)}
	cfg.Deleted = ""
	cfg.Ordering = ""
	cfg.Output.Dir = filepath.Join(dir, "charts")

	rep, err := Build(context.Background(), cfg, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	var got []string
	for _, l := range rep.Result.Listings {
		for _, e := range l.Entries {
			got = append(got, l.Bucket+"|"+e.Chart.Song.Title+"|"+e.PriorRating)
		}
	}
	want := []string{"13|Spaced|13", "13|Tom & Jerry|13"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadInputsLogsPriorKind(t *testing.T) {
	var buf bytes.Buffer
	logging.InitLoggerTo(&buf, logging.LevelInfo, logging.FormatJSON)
	defer logging.InitLogger(logging.LevelInfo, logging.FormatText)

	if _, err := LoadInputs(context.Background(), fixture(t)); err != nil {
		t.Fatalf("LoadInputs() error = %v", err)
	}
	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, `"msg":"input_loaded"`) && strings.Contains(l, `"kind":"prior"`) {
			line = l
		}
	}
	if line == "" {
		t.Fatalf("no prior input_loaded record in %q", buf.String())
	}
	if strings.Count(line, `"kind":`) != 1 || !strings.Contains(line, `"prior_kind":"constants"`) {
		t.Errorf("prior input_loaded record = %s", line)
	}
}
