package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JD-Gaming/jd-gaming/internal/activation"
	"github.com/JD-Gaming/jd-gaming/internal/nn"
)

func TestDefaultsAreValid(t *testing.T) {
	for _, task := range []string{"addition", "arkanoid", "xor"} {
		cfg := Defaults(task)
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s defaults invalid: %v", task, err)
		}
		if cfg.Layers == "" {
			t.Fatalf("%s has no default layers", task)
		}
	}
	if cfg := Defaults("arkanoid"); cfg.Networks != 75 || cfg.Rounds != 20 || cfg.Generations != 2000 || cfg.Workers != 1 {
		t.Fatalf("unexpected arkanoid defaults %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Train)
		want   string
	}{
		{name: "no task", mutate: func(c *Train) { c.Task = "" }, want: "task is required"},
		{name: "tiny population", mutate: func(c *Train) { c.Networks = 1 }, want: "networks"},
		{name: "no rounds", mutate: func(c *Train) { c.Rounds = 0 }, want: "rounds"},
		{name: "resume past end", mutate: func(c *Train) { c.FirstGeneration = 2000 }, want: "generations"},
		{name: "no workers", mutate: func(c *Train) { c.Workers = 0 }, want: "workers"},
		{name: "bad policy", mutate: func(c *Train) { c.Queue = "lifo" }, want: "lifo"},
		{name: "rate above one", mutate: func(c *Train) { c.MutationRate = 1.5 }, want: "mutation rate"},
		{name: "no layers", mutate: func(c *Train) { c.Layers = " " }, want: "layers"},
		{name: "too many bits", mutate: func(c *Train) { c.StartBits = 9 }, want: "start bits"},
		{name: "unknown store", mutate: func(c *Train) { c.Store = "s3" }, want: "s3"},
		{name: "store without path", mutate: func(c *Train) { c.Store = "sqlite"; c.StorePath = "" }, want: "needs a path"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults("addition")
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestParseLayers(t *testing.T) {
	params, err := ParseLayers("400x5%, 200x50:sigmoid|tanh ,1x200:any", 6149)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []nn.LayerParams{
		{Neurons: 400, FanIn: 307, Mask: activation.Any},
		{Neurons: 200, FanIn: 50, Mask: activation.MaskOf(activation.Sigmoid, activation.Tanh)},
		{Neurons: 1, FanIn: 200, Mask: activation.Any},
	}
	if len(params) != len(want) {
		t.Fatalf("expected %d layers, got %d", len(want), len(params))
	}
	for i := range want {
		if params[i] != want[i] {
			t.Fatalf("layer %d: got %+v, want %+v", i, params[i], want[i])
		}
	}
	if again, err := ParseLayers(FormatLayers(params), 6149); err != nil || again[1] != params[1] {
		t.Fatalf("formatted layers do not parse back: %v %+v", err, again)
	}
}

func TestParseLayersSmallPercentageIsAtLeastOne(t *testing.T) {
	params, err := ParseLayers("3x1%", 10)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if params[0].FanIn != 1 {
		t.Fatalf("expected fan-in 1, got %d", params[0].FanIn)
	}
}

func TestParseLayersRejects(t *testing.T) {
	for _, spec := range []string{
		"",
		"8x16,",
		"8",
		"0x4",
		"8x0",
		"8x-1",
		"8x150%",
		"8x4:mystery",
		"8x17",
		"8x16,4x9",
	} {
		if _, err := ParseLayers(spec, 16); !errors.Is(err, ErrLayerSpec) {
			t.Fatalf("%q: expected ErrLayerSpec, got %v", spec, err)
		}
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadINI(t *testing.T) {
	path := writeFile(t, "train.ini", `
task = addition

[train]
networks = 30
rounds = 5
mutation_rate = 0.02
queue = priority
store = sqlite
store_path = runs.db
`)
	cfg, err := Load(path, Defaults("arkanoid"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Task != "addition" || cfg.Networks != 30 || cfg.Rounds != 5 || cfg.MutationRate != 0.02 || cfg.Queue != "priority" || cfg.Store != "sqlite" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Layers != defaultLayers["addition"] {
		t.Fatalf("expected addition layers after task switch, got %q", cfg.Layers)
	}
	if cfg.Generations != 2000 {
		t.Fatalf("unset key lost its default: %d", cfg.Generations)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "train.yaml", `
task: xor
networks: 12
layers: "2x2:tanh,1x2:sigmoid"
save_all: true
`)
	cfg, err := Load(path, Defaults("addition"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Task != "xor" || cfg.Networks != 12 || cfg.Layers != "2x2:tanh,1x2:sigmoid" || !cfg.SaveAll {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := Load(writeFile(t, "train.toml", ""), cfg); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "train.yaml", "task: addition\nnetworks: 12\nrounds: 3\n")
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := NewFlags(fs)
	if err := fs.Parse([]string{"-config", path, "-rounds", "7", "-seed", "0xBEEF"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := flags.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Task != "addition" || cfg.Networks != 12 || cfg.Rounds != 7 || cfg.Seed != 0xbeef {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Layers != defaultLayers["addition"] {
		t.Fatalf("unexpected layers %q", cfg.Layers)
	}
}

func TestFlagsTaskSelectsDefaults(t *testing.T) {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := NewFlags(fs)
	if err := fs.Parse([]string{"-task", "XOR"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := flags.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Task != "xor" || cfg.Networks != 50 || cfg.Layers != defaultLayers["xor"] {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestParseSeed(t *testing.T) {
	for text, want := range map[string]int64{"1a": 0x1a, "0x1A": 0x1a, " ff ": 0xff} {
		got, err := ParseSeed(text)
		if err != nil || got != want {
			t.Fatalf("%q: got %d, %v", text, got, err)
		}
	}
	if _, err := ParseSeed("xyz"); err == nil {
		t.Fatal("expected error for non-hex seed")
	}
}
