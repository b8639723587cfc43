package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/LevelSheet/core/errors"
	"github.com/FocuswithJustin/LevelSheet/core/sqlite"
	"github.com/FocuswithJustin/LevelSheet/internal/config"
	"github.com/FocuswithJustin/LevelSheet/internal/emit"
)

// Test helper functions

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create test dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

// runCLI parses args exactly as main does and runs the selected command,
// returning what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"LEVELSHEET_CONFIG", "LEVELSHEET_OUT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	defer func() { stdout = orig }()

	CLI = cli{}
	parser, err := kong.New(&CLI, kong.Name("levelsheet"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	if err != nil {
		t.Fatalf("kong.New() error = %v", err)
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return buf.String(), err
	}
	err = ctx.Run(ctx)
	return buf.String(), err
}

const testPage = `<div class="data"><div><div><div class="songs">
<div><div><div><div class="songs-data-box">
  <div class="songs-data-box-jacket jacket"><img src="a.png"></div>
  <div class="songs-data-box-title"><div class="songs-data title"><span class="titleText">Alpha</span></div></div>
  <div class="songs-data-box-level std"><div>5</div><div>8</div><div>11</div><div>13</div><div></div></div>
  <div class="songs-data-box-level dx"><div>6</div><div>9</div><div>12+</div><div>14</div><div>14+</div></div>
</div></div></div></div>
</div></div></div></div>`

// setupProject writes a config and its inputs into a fresh directory.
func setupProject(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	createTestFile(t, dir, "data/pop.html", testPage)
	createTestFile(t, dir, "data/intl_lv_info.csv", "Alpha\tSTD\tMAS\t12.9\nAlpha\tDX\tMAS\t13.4\n")
	createTestFile(t, dir, "data/intl_del.txt", "")
	createTestFile(t, dir, "data/ordering.txt", "Alpha\n")
	configPath = createTestFile(t, dir, "levelsheet.yaml", `
source:
  kind: markup
  pages: [data/pop.html]
prior:
  kind: constants
  path: data/intl_lv_info.csv
deleted: data/intl_del.txt
ordering: data/ordering.txt
output:
  dir: charts
  manifest: true
logging:
  level: error
`)
	return dir, configPath
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("expected version %s in output: %q", version, out)
	}
}

func TestBuildCmd(t *testing.T) {
	dir, configPath := setupProject(t)

	out, err := runCLI(t, "--config", configPath, "build")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(out, "13.csv") || !strings.Contains(out, "2 songs") {
		t.Errorf("unexpected summary: %q", out)
	}

	got, err := os.ReadFile(filepath.Join(dir, "charts", "13.csv"))
	if err != nil {
		t.Fatalf("13.csv not written: %v", err)
	}
	if string(got) != "'Alpha\tSTD\tMAS\ta.png\t12+\n" {
		t.Errorf("13.csv = %q", got)
	}
	got, err = os.ReadFile(filepath.Join(dir, "charts", "14+.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "'Alpha\tDX\tREM\ta.png\tN/A\n" {
		t.Errorf("14+.csv = %q", got)
	}

	out, err = runCLI(t, "--config", configPath, "verify")
	if err != nil {
		t.Fatalf("verify failed: %v (%s)", err, out)
	}
	if !strings.HasPrefix(out, "OK 6 listings") {
		t.Errorf("verify output = %q", out)
	}

	createTestFile(t, dir, "charts/14.csv", "tampered\n")
	out, err = runCLI(t, "--config", configPath, "verify")
	if err == nil || !strings.Contains(out, "STALE 14.csv") {
		t.Errorf("verify after tamper = %q, %v", out, err)
	}
}

func TestBuildCmdOverrides(t *testing.T) {
	dir, configPath := setupProject(t)
	out := filepath.Join(dir, "elsewhere")
	snapshot := filepath.Join(dir, "snap", "charts.db")

	if _, err := runCLI(t, "--config", configPath, "build", "--out", out, "--shape", "plain", "--sqlite", snapshot, "--no-manifest"); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(out, "13.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Alpha\tSTD\tMAS\ta.png\n" {
		t.Errorf("plain 13.csv = %q", got)
	}
	if _, err := os.Stat(filepath.Join(out, emit.ManifestName)); !os.IsNotExist(err) {
		t.Error("--no-manifest still wrote a manifest")
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestBuildCmdDryRun(t *testing.T) {
	dir, configPath := setupProject(t)
	out, err := runCLI(t, "--config", configPath, "build", "--dry-run")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !strings.Contains(out, "dry run: nothing written") {
		t.Errorf("dry run output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "charts")); !os.IsNotExist(err) {
		t.Error("dry run created the output directory")
	}
}

func TestBuildCmdErrors(t *testing.T) {
	_, configPath := setupProject(t)

	if _, err := runCLI(t, "--config", configPath, "build", "--shape", "wide"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("bad shape error = %v, want ErrInvalidInput", err)
	}
	if _, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "build"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing config error = %v, want ErrNotFound", err)
	}
}

func TestBuildCmdEnv(t *testing.T) {
	dir, configPath := setupProject(t)
	out := filepath.Join(dir, "from-env")

	t.Setenv("LEVELSHEET_CONFIG", configPath)
	t.Setenv("LEVELSHEET_OUT", out)
	CLI = cli{}
	parser, err := kong.New(&CLI, kong.Name("levelsheet"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := parser.Parse([]string{"build"})
	if err != nil {
		t.Fatal(err)
	}
	orig := stdout
	stdout = &bytes.Buffer{}
	defer func() { stdout = orig }()
	if err := ctx.Run(ctx); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "13.csv")); err != nil {
		t.Errorf("LEVELSHEET_OUT not honored: %v", err)
	}
}

func TestLookupCmd(t *testing.T) {
	_, configPath := setupProject(t)

	out, err := runCLI(t, "--config", configPath, "lookup", "Alpha", "--type", "dx", "--difficulty", "mas")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if out != "Alpha\tDX\tMAS\t13\n" {
		t.Errorf("lookup output = %q", out)
	}

	out, err = runCLI(t, "--config", configPath, "lookup", "Alpha")
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 10 {
		t.Errorf("expected 10 lines, got %d: %q", len(lines), out)
	}
	if !strings.Contains(out, "Alpha\tSTD\tMAS\t12+\n") || !strings.Contains(out, "Alpha\tSTD\tBAS\tN/A\n") {
		t.Errorf("lookup output = %q", out)
	}

	if _, err := runCLI(t, "--config", configPath, "lookup", "Alpha", "--type", "utage"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("bad type error = %v", err)
	}
}

func TestShowCmd(t *testing.T) {
	dir, configPath := setupProject(t)
	out, err := runCLI(t, "--config", configPath, "show")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "kind: markup") || !strings.Contains(out, filepath.Join(dir, "charts")) {
		t.Errorf("show output = %q", out)
	}
}

func TestVerifyCmdSnapshot(t *testing.T) {
	dir, configPath := setupProject(t)
	snapshot := filepath.Join(dir, "charts.db")
	if _, err := runCLI(t, "--config", configPath, "build", "--sqlite", snapshot); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	out, err := runCLI(t, "--config", configPath, "verify", "--sqlite", snapshot)
	if err != nil {
		t.Fatalf("verify failed: %v (%s)", err, out)
	}
	if !strings.Contains(out, "OK snapshot "+snapshot) {
		t.Errorf("verify output = %q", out)
	}

	db, err := sqlite.Open(snapshot)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`DELETE FROM charts WHERE bucket = '13'`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	out, err = runCLI(t, "--config", configPath, "verify", "--sqlite", snapshot)
	if err == nil || !strings.Contains(out, "STALE snapshot bucket 13\n") {
		t.Errorf("verify after delete = %q, %v", out, err)
	}

	if _, err := runCLI(t, "--config", configPath, "verify", "--sqlite", filepath.Join(dir, "none.db")); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing snapshot error = %v, want ErrNotFound", err)
	}
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "levelsheet.yaml")

	out, err := runCLI(t, "init", path)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if out != "wrote "+path+"\n" {
		t.Errorf("init output = %q", out)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Source.Kind != "markup" || cfg.Output.Dir != filepath.Join(filepath.Dir(path), "charts") {
		t.Errorf("loaded config = %+v", cfg)
	}

	if _, err := runCLI(t, "init", path); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("init over existing file error = %v, want ErrInvalidInput", err)
	}
	if _, err := runCLI(t, "init", path, "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}
}
