package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"

	"github.com/JD-Gaming/jd-gaming/internal/nn"
)

func (c command) inspect(_ context.Context, args []string) error {
	fs := c.flagSet("inspect")
	neurons := fs.Bool("neurons", false, "list every neuron")
	layerIndex := fs.Int("layer", -1, "only list the neurons of this layer")
	maxWeights := fs.Int("max-weights", 8, "weights shown per neuron, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths, err := requireArgs(fs, "network file")
	if err != nil {
		return err
	}

	for _, path := range paths {
		net, err := nn.LoadFile(path)
		if err != nil {
			return err
		}
		if *layerIndex >= net.NumLayers() {
			return fmt.Errorf("inspect: %s has %d layers, no layer %d", path, net.NumLayers(), *layerIndex)
		}

		summary := uitable.New()
		summary.AddRow("network", path)
		summary.AddRow("inputs", net.NumInputs())
		summary.AddRow("outputs", net.NumOutputs())
		summary.AddRow("layers", net.NumLayers())
		summary.AddRow("parameters", humanize.Comma(int64(net.ParamCount())))
		summary.AddRow("encoded size", humanize.Bytes(uint64(net.EncodedSize())))
		fmt.Fprintln(c.stdout, summary)
		fmt.Fprintln(c.stdout)

		layers := uitable.New()
		layers.AddRow("LAYER", "NEURONS", "FAN-IN", "SOURCE", "ACTIVATIONS", "WIRING")
		for i := 0; i < net.NumLayers(); i++ {
			l := net.Layer(i)
			layers.AddRow(i, l.Size(), l.FanIn(), l.SourceWidth(), l.AllowedActivations(), wiring(l))
		}
		fmt.Fprintln(c.stdout, layers)

		if !*neurons && *layerIndex < 0 {
			continue
		}
		for i := 0; i < net.NumLayers(); i++ {
			if *layerIndex >= 0 && i != *layerIndex {
				continue
			}
			fmt.Fprintf(c.stdout, "\nlayer %d\n", i)
			fmt.Fprintln(c.stdout, neuronTable(net.Layer(i), *maxWeights))
		}
	}
	return nil
}

// wiring summarises how many neurons of l use the identity wiring.
func wiring(l *nn.Layer) string {
	identity := 0
	for n := 0; n < l.Size(); n++ {
		if l.Seed(n) == 0 {
			identity++
		}
	}
	switch identity {
	case 0:
		return "seeded"
	case l.Size():
		return "identity"
	default:
		return fmt.Sprintf("mixed (%d identity)", identity)
	}
}

func neuronTable(l *nn.Layer, maxWeights int) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 120
	table.AddRow("NEURON", "SEED", "ACTIVATION", "BIAS", "WEIGHTS")
	for n := 0; n < l.Size(); n++ {
		table.AddRow(n, fmt.Sprintf("0x%016x", l.Seed(n)), l.Activation(n), fmt.Sprintf("%.4f", l.Bias(n)), formatWeights(l.Weights(n), l.Connections(n), maxWeights))
	}
	return table
}

func formatWeights(weights []float32, sources []int, limit int) string {
	shown := len(weights)
	if limit > 0 && shown > limit {
		shown = limit
	}
	parts := make([]string, 0, shown+1)
	for i := 0; i < shown; i++ {
		parts = append(parts, fmt.Sprintf("%d:%.4f", sources[i], weights[i]))
	}
	if rest := len(weights) - shown; rest > 0 {
		parts = append(parts, fmt.Sprintf("(+%d more)", rest))
	}
	return strings.Join(parts, " ")
}
