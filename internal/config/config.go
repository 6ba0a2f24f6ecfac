package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/JD-Gaming/jd-gaming/internal/jobqueue"
	"github.com/JD-Gaming/jd-gaming/internal/nn"
	"github.com/JD-Gaming/jd-gaming/internal/scape"
	"github.com/JD-Gaming/jd-gaming/internal/storage"
)

var (
	ErrInvalid         = errors.New("invalid training configuration")
	ErrUnsupportedFile = errors.New("unsupported config file type")
)

// Train holds every knob of a training run.
type Train struct {
	Task            string  `ini:"task" yaml:"task"`
	Networks        int     `ini:"networks" yaml:"networks"`
	Rounds          int     `ini:"rounds" yaml:"rounds"`
	Generations     int     `ini:"generations" yaml:"generations"`
	FirstGeneration int     `ini:"first_generation" yaml:"first_generation"`
	Workers         int     `ini:"workers" yaml:"workers"`
	Seed            int64   `ini:"seed" yaml:"seed"`
	Queue           string  `ini:"queue" yaml:"queue"`
	QueueCapacity   int     `ini:"queue_capacity" yaml:"queue_capacity"`
	MutationRate    float64 `ini:"mutation_rate" yaml:"mutation_rate"`
	Layers          string  `ini:"layers" yaml:"layers"`

	Store     string `ini:"store" yaml:"store"`
	StorePath string `ini:"store_path" yaml:"store_path"`
	// SaveAll writes every network of a generation instead of only the best.
	SaveAll     bool   `ini:"save_all" yaml:"save_all"`
	MetricsAddr string `ini:"metrics_addr" yaml:"metrics_addr"`

	StartBits  int `ini:"start_bits" yaml:"start_bits"`
	GridWidth  int `ini:"grid_width" yaml:"grid_width"`
	GridHeight int `ini:"grid_height" yaml:"grid_height"`
	MaxFrames  int `ini:"max_frames" yaml:"max_frames"`
}

var defaultLayers = map[string]string{
	"addition": "64x16:sigmoid,32x64:sigmoid,8x32:sigmoid",
	"arkanoid": "400x5%,200x50,25x100,1x25",
	"xor":      "4x2:tanh,1x4:sigmoid",
}

// Defaults returns the configuration a run of task starts from.
func Defaults(task string) Train {
	task = strings.ToLower(strings.TrimSpace(task))
	cfg := Train{
		Task:          task,
		Networks:      75,
		Rounds:        20,
		Generations:   2000,
		Workers:       1,
		Queue:         jobqueue.Linear.String(),
		QueueCapacity: 64,
		MutationRate:  nn.DefaultMutationRate,
		Layers:        defaultLayers[task],
		Store:         "dir",
		StorePath:     "brains",
	}
	if task == "xor" {
		cfg.Networks = 50
		cfg.Rounds = 1
		cfg.Generations = 300
	}
	return cfg
}

// Load reads path on top of cfg. The format follows the extension: .ini, or
// .yaml/.yml. Keys missing from the file keep their current value. When the
// file changes the task and leaves layers unset, the new task's default
// layers are used.
func Load(path string, cfg Train) (Train, error) {
	before := cfg.Task
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".cfg", ".conf":
		cfg, err = loadINI(path, cfg)
	case ".yaml", ".yml":
		cfg, err = loadYAML(path, cfg)
	default:
		return cfg, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	if err != nil {
		return cfg, err
	}
	cfg.Task = strings.ToLower(strings.TrimSpace(cfg.Task))
	if cfg.Task != before && cfg.Layers == defaultLayers[before] {
		cfg.Layers = defaultLayers[cfg.Task]
	}
	return cfg, nil
}

func loadINI(path string, cfg Train) (Train, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	// Keys may live in [train] or at the top of the file.
	for _, name := range []string{ini.DefaultSection, "train"} {
		if !file.HasSection(name) {
			continue
		}
		if err := file.Section(name).MapTo(&cfg); err != nil {
			return cfg, fmt.Errorf("map [%s] section: %w", name, err)
		}
	}
	return cfg, nil
}

func loadYAML(path string, cfg Train) (Train, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Options returns the task construction options carried by cfg.
func (c Train) Options() scape.Options {
	return scape.Options{
		StartBits:  c.StartBits,
		GridWidth:  c.GridWidth,
		GridHeight: c.GridHeight,
		MaxFrames:  c.MaxFrames,
	}
}

// Policy parses the queue policy name.
func (c Train) Policy() (jobqueue.Policy, error) {
	return jobqueue.ParsePolicy(c.Queue)
}

// Validate checks every value that does not depend on the task shape.
// ParseLayers checks the layers once the input width is known.
func (c Train) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Task == "" {
		add("task is required")
	}
	if c.Networks < 2 {
		add("networks must be at least 2, got %d", c.Networks)
	}
	if c.Rounds < 1 {
		add("rounds must be positive, got %d", c.Rounds)
	}
	if c.FirstGeneration < 0 {
		add("first generation must not be negative, got %d", c.FirstGeneration)
	}
	if c.Generations <= c.FirstGeneration {
		add("generations (%d) must exceed the first generation (%d)", c.Generations, c.FirstGeneration)
	}
	if c.Workers < 1 {
		add("workers must be positive, got %d", c.Workers)
	}
	if c.QueueCapacity < 0 {
		add("queue capacity must not be negative, got %d", c.QueueCapacity)
	}
	if _, err := c.Policy(); err != nil {
		add("%v", err)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		add("mutation rate must be within [0,1], got %g", c.MutationRate)
	}
	if strings.TrimSpace(c.Layers) == "" {
		add("layers are required")
	}
	if c.StartBits < 0 || c.StartBits > scape.AdditionBits {
		add("start bits must be within [0,%d], got %d", scape.AdditionBits, c.StartBits)
	}
	if c.GridWidth < 0 || c.GridHeight < 0 {
		add("grid size must not be negative, got %dx%d", c.GridWidth, c.GridHeight)
	}
	if _, err := storage.NewStore(c.Store, c.StorePath); err != nil {
		add("%v", err)
	} else if c.Store != "" && c.Store != "memory" && c.StorePath == "" {
		add("store %q needs a path", c.Store)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
