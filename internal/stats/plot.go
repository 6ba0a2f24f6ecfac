package stats

import (
	"errors"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var ErrEmptySeries = errors.New("no scored generations to plot")

// PlotFitness draws best and mean fitness per generation, with a band of one
// standard deviation around the mean. The image format follows the extension
// of outPath (png, svg, pdf...).
func PlotFitness(s Series, title, outPath string) error {
	if s.Len() == 0 {
		return ErrEmptySeries
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Fitness"

	bestPts := make(plotter.XYs, s.Len())
	meanPts := make(plotter.XYs, s.Len())
	upperPts := make(plotter.XYs, s.Len())
	lowerPts := make(plotter.XYs, s.Len())
	for i, gen := range s.Generation {
		x := float64(gen)
		bestPts[i] = plotter.XY{X: x, Y: s.Best[i]}
		meanPts[i] = plotter.XY{X: x, Y: s.Mean[i]}
		upperPts[i] = plotter.XY{X: x, Y: s.Mean[i] + s.StdDev[i]}
		lowerPts[i] = plotter.XY{X: x, Y: s.Mean[i] - s.StdDev[i]}
	}

	bestLine, err := plotter.NewLine(bestPts)
	if err != nil {
		return err
	}
	bestLine.Color = color.RGBA{R: 200, A: 255}
	meanLine, err := plotter.NewLine(meanPts)
	if err != nil {
		return err
	}
	meanLine.Color = color.RGBA{B: 200, A: 255}
	upperLine, err := plotter.NewLine(upperPts)
	if err != nil {
		return err
	}
	lowerLine, err := plotter.NewLine(lowerPts)
	if err != nil {
		return err
	}
	for _, band := range []*plotter.Line{upperLine, lowerLine} {
		band.Color = color.Gray{Y: 160}
		band.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	}

	p.Add(plotter.NewGrid(), upperLine, lowerLine, bestLine, meanLine)
	p.Legend.Add("best", bestLine)
	p.Legend.Add("mean", meanLine)
	p.Legend.Add("mean ± stddev", upperLine)
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 4*vg.Inch, outPath)
}
