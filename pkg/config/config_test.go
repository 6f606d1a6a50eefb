package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mediasort/pkg/config"
	"mediasort/pkg/imports"
	"mediasort/pkg/layout"
	"mediasort/pkg/storage"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config file in temp HOME")
	}
	if want := filepath.Join(home, ".config", "mediasort", "config.toml"); resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}
	if got := cfg.DateLayout(); got != (layout.Layout{Year: true, Month: true, Nested: true}) {
		t.Fatalf("unexpected default layout: %+v", got)
	}
	if cfg.DuplicateMode() != imports.DuplicatesOff {
		t.Fatalf("unexpected duplicate mode %q", cfg.DuplicateMode())
	}
	if cfg.CollisionPolicy() != storage.CollisionSuffix {
		t.Fatalf("unexpected collision policy %q", cfg.CollisionPolicy())
	}
	if cfg.Extract.Workers != 4 || !cfg.Catalog.Enabled {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if got := cfg.OutputFor("/photos"); got != filepath.Join("/photos", "Years") {
		t.Fatalf("OutputFor = %q", got)
	}
}

func TestLoadPrefersProjectFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, filepath.Join(home, ".config", "mediasort", "config.toml"), "[extract]\nworkers = 2\n")
	writeConfig(t, "mediasort.toml", "[extract]\nworkers = 8\n")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || filepath.Base(resolved) != "mediasort.toml" {
		t.Fatalf("resolved %q (exists=%v), want project file", resolved, exists)
	}
	if cfg.Extract.Workers != 8 {
		t.Fatalf("workers = %d, want 8", cfg.Extract.Workers)
	}
}

func TestLoadExplicitPathExpandsHome(t *testing.T) {
	home := isolate(t)
	writeConfig(t, filepath.Join(home, "sort.toml"), `
[paths]
output_dir = "~/Sorted"

[layout]
year = true
month = false
day = true
nested = false

[duplicates]
mode = "Quarantine"

[move]
on_collision = "reject"
`)

	cfg, _, exists, err := config.Load("~/sort.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected explicit file to exist")
	}
	if cfg.Paths.OutputDir != filepath.Join(home, "Sorted") {
		t.Fatalf("output_dir = %q", cfg.Paths.OutputDir)
	}
	if cfg.OutputFor("/elsewhere") != filepath.Join(home, "Sorted") {
		t.Fatalf("OutputFor ignored output_dir")
	}
	if cfg.DateLayout() != (layout.Layout{Year: true, Day: true}) {
		t.Fatalf("layout = %+v", cfg.DateLayout())
	}
	if cfg.DuplicateMode() != imports.DuplicatesQuarantine || cfg.CollisionPolicy() != storage.CollisionReject {
		t.Fatalf("mode=%q policy=%q", cfg.DuplicateMode(), cfg.CollisionPolicy())
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	isolate(t)
	if _, _, _, err := config.Load("nope.toml"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"no granularity":  "[layout]\nyear = false\nmonth = false\nday = false\n",
		"duplicate mode":  "[duplicates]\nmode = \"shred\"\n",
		"collision":       "[move]\non_collision = \"overwrite\"\n",
		"workers":         "[extract]\nworkers = -1\n",
		"log level":       "[logging]\nlevel = \"loud\"\n",
		"log format":      "[logging]\nformat = \"xml\"\n",
		"heic originals":  "[heic]\noriginals = \"keep\"\n",
		"unknown section": "[mystery]\nkey = 1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			writeConfig(t, "mediasort.toml", body)
			if _, _, _, err := config.Load(""); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadNoGranularityWrapsSentinel(t *testing.T) {
	isolate(t)
	writeConfig(t, "mediasort.toml", "[layout]\nyear = false\nmonth = false\n")
	_, _, _, err := config.Load("")
	if !errors.Is(err, layout.ErrNoGranularity) {
		t.Fatalf("err = %v, want ErrNoGranularity", err)
	}
}

func TestCreateSampleMatchesDefaults(t *testing.T) {
	isolate(t)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[layout]") {
		t.Fatal("sample is missing the layout section")
	}

	var sample config.Config
	if err := toml.Unmarshal(data, &sample); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if sample != config.Default() {
		t.Fatalf("sample differs from defaults:\n%+v\n%+v", sample, config.Default())
	}

	cfg, _, exists, err := config.Load(target)
	if err != nil || !exists {
		t.Fatalf("Load(sample) = %v, exists=%v", err, exists)
	}
	if cfg.HEIC.Binary != "magick" || cfg.DeleteHEICOriginals() {
		t.Fatalf("unexpected heic config: %+v", cfg.HEIC)
	}
}
