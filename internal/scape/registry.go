package scape

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownTask = errors.New("unknown task")

// Options tunes task construction. Zero values select the defaults.
type Options struct {
	// StartBits is the first curriculum level of the addition task.
	StartBits int
	// GridWidth and GridHeight size the downscaled Arkanoid sensor.
	GridWidth  int
	GridHeight int
	// MaxFrames ends an Arkanoid game that is still running. Negative means
	// no limit.
	MaxFrames int
}

var constructors = map[string]func(Options) (Task, error){
	"addition": func(o Options) (Task, error) { return NewAddition(o.StartBits) },
	"arkanoid": func(o Options) (Task, error) { return NewArkanoid(o.GridWidth, o.GridHeight, o.MaxFrames) },
	"xor":      func(Options) (Task, error) { return XOR{}, nil },
}

// New builds the named task.
func New(name string, opts Options) (Task, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownTask, name, strings.Join(Names(), ", "))
	}
	return ctor(opts)
}

// Names lists the registered tasks in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
