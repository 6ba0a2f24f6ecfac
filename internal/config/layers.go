package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JD-Gaming/jd-gaming/internal/activation"
	"github.com/JD-Gaming/jd-gaming/internal/nn"
)

var ErrLayerSpec = errors.New("invalid layer spec")

// ParseLayers parses a comma separated list of "neurons x fanin[:mask]"
// entries, the same form nn.LayerParams.String prints. A fan-in written as a
// percentage ("5%") is that share of the width feeding the layer, rounded
// down and at least 1. inputs is the width feeding the first layer.
func ParseLayers(spec string, inputs int) ([]nn.LayerParams, error) {
	if inputs < 1 {
		return nil, fmt.Errorf("%w: input width must be positive, got %d", ErrLayerSpec, inputs)
	}
	entries := strings.Split(spec, ",")
	params := make([]nn.LayerParams, 0, len(entries))
	source := inputs
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			return nil, fmt.Errorf("%w: layer %d is empty", ErrLayerSpec, i)
		}
		p, err := parseLayer(entry, source)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d %q: %v", ErrLayerSpec, i, entry, err)
		}
		if p.FanIn > source {
			return nil, fmt.Errorf("%w: layer %d %q: %v (%d > %d)", ErrLayerSpec, i, entry, nn.ErrFanIn, p.FanIn, source)
		}
		params = append(params, p)
		source = p.Neurons
	}
	return params, nil
}

func parseLayer(entry string, source int) (nn.LayerParams, error) {
	shape, maskSpec, _ := strings.Cut(entry, ":")
	neuronsText, fanInText, ok := strings.Cut(strings.ToLower(shape), "x")
	if !ok {
		return nn.LayerParams{}, errors.New("want neurons x fanin")
	}
	neurons, err := strconv.Atoi(strings.TrimSpace(neuronsText))
	if err != nil || neurons < 1 {
		return nn.LayerParams{}, fmt.Errorf("bad neuron count %q", neuronsText)
	}
	fanIn, err := parseFanIn(strings.TrimSpace(fanInText), source)
	if err != nil {
		return nn.LayerParams{}, err
	}
	mask, err := activation.ParseMask(maskSpec)
	if err != nil {
		return nn.LayerParams{}, err
	}
	return nn.LayerParams{Neurons: neurons, FanIn: fanIn, Mask: mask}, nil
}

func parseFanIn(text string, source int) (int, error) {
	if pct, ok := strings.CutSuffix(text, "%"); ok {
		share, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil || share <= 0 || share > 100 {
			return 0, fmt.Errorf("bad fan-in percentage %q", text)
		}
		return max(1, int(float64(source)*share/100)), nil
	}
	fanIn, err := strconv.Atoi(text)
	if err != nil || fanIn < 1 {
		return 0, fmt.Errorf("bad fan-in %q", text)
	}
	return fanIn, nil
}

// FormatLayers is the inverse of ParseLayers for concrete fan-ins.
func FormatLayers(params []nn.LayerParams) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}
