package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func write(t *testing.T, dir, name, text string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadTOML(t *testing.T) {
	p := write(t, t.TempDir(), "codescope.toml", `
[analysis]
tasks = ["cfg", "lint"]
jobs = 3
max_diagnostics = 200
exclude = ["build", "*_pb2.py"]

[timeouts]
function = "250ms"

[complexity]
max_cyclomatic = 12

[lint]
disable = ["unresolved-call"]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(cfg.Analysis.Tasks, []string{"cfg", "lint"}) || cfg.Analysis.Jobs != 3 {
		t.Fatalf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Timeouts.Function != 250*time.Millisecond {
		t.Fatalf("timeout = %s", cfg.Timeouts.Function)
	}
	if cfg.Complexity.MaxCyclomatic != 12 || cfg.Complexity.MaxNesting != 4 {
		t.Fatalf("complexity = %+v (unset keys should keep defaults)", cfg.Complexity)
	}
	if cfg.Path != p {
		t.Fatalf("path = %q", cfg.Path)
	}
}

func TestLoadYAML(t *testing.T) {
	p := write(t, t.TempDir(), "codescope.yaml", `
analysis:
  tasks: [callgraph]
timeouts:
  function: 2s
complexity:
  max_nesting: 2
  max_fan_out: 7
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeouts.Function != 2*time.Second || cfg.Complexity.MaxNesting != 2 || cfg.Complexity.MaxFanOut != 7 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestEmptyYAMLKeepsDefaults(t *testing.T) {
	cfg, err := Load(write(t, t.TempDir(), "codescope.yml", ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Complexity != Default().Complexity {
		t.Fatalf("complexity = %+v", cfg.Complexity)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name, file, text string
		field            string
		target           error
	}{
		{"unknown toml key", "a.toml", "[analysis]\nworkers = 2\n", "", ErrInvalidValue},
		{"unknown yaml key", "b.yaml", "lint:\n  enable: [x]\n", "", nil},
		{"negative jobs", "c.toml", "[analysis]\njobs = -1\n", "analysis.jobs", ErrInvalidValue},
		{"bad rule", "d.toml", "[lint]\ndisable = [\"nope\"]\n", "lint.disable", ErrInvalidValue},
		{"bad pattern", "e.toml", "[analysis]\nexclude = [\"[\"]\n", "analysis.exclude", ErrInvalidValue},
		{"bad extension", "f.json", "{}", "", ErrInvalidValue},
	}
	for _, tc := range cases {
		_, err := Load(write(t, dir, tc.file, tc.text))
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("%s: err = %v, want ConfigurationError", tc.name, err)
			continue
		}
		if ce.Field != tc.field {
			t.Errorf("%s: field = %q, want %q", tc.name, ce.Field, tc.field)
		}
		if tc.target != nil && !errors.Is(err, tc.target) {
			t.Errorf("%s: %v does not wrap %v", tc.name, err, tc.target)
		}
	}

	_, err := Load(filepath.Join(dir, "absent.toml"))
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("missing file: %v", err)
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := write(t, root, "codescope.yaml", "{}\n")
	src := write(t, root, "pkg/sub/mod.py", "x = 1\n")

	got, ok, err := Find(src)
	if err != nil || !ok {
		t.Fatalf("Find = %q, %v, %v", got, ok, err)
	}
	if got != want {
		t.Fatalf("Find = %q, want %q", got, want)
	}

	// ближайший каталог выигрывает
	tomlFile := write(t, root, "pkg/codescope.toml", "")
	if got, _, _ := Find(filepath.Dir(src)); got != tomlFile {
		t.Fatalf("Find = %q, want %q", got, tomlFile)
	}
}

func TestDiscoverDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Discover("", dir)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	if cfg.Path == "" && (cfg.Timeouts != want.Timeouts || cfg.Complexity != want.Complexity) {
		t.Fatalf("defaults = %+v", cfg)
	}
	explicit := write(t, dir, "custom.toml", "[analysis]\njobs = 1\n")
	cfg, err = Discover(explicit, "/nonexistent")
	if err != nil || cfg.Analysis.Jobs != 1 {
		t.Fatalf("Discover explicit = %+v, %v", cfg, err)
	}
}

func TestExcluded(t *testing.T) {
	a := Analysis{Exclude: []string{"build", "*_pb2.py", "tests/fixtures/*"}}
	cases := map[string]bool{
		"build/gen.py":          true,
		"pkg/build/x.py":        true,
		"api/user_pb2.py":       true,
		"tests/fixtures/bad.py": true,
		"tests/test_x.py":       false,
		"pkg/builder.py":        false,
	}
	for rel, want := range cases {
		if got := a.Excluded(rel); got != want {
			t.Errorf("Excluded(%q) = %v, want %v", rel, got, want)
		}
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := &ConfigurationError{Task: "flow", Err: ErrUnknownTask}
	if err.Error() != `configuration error: task "flow": unknown task` {
		t.Fatalf("message = %q", err.Error())
	}
	if !errors.Is(err, ErrUnknownTask) {
		t.Fatal("should unwrap to ErrUnknownTask")
	}
}
