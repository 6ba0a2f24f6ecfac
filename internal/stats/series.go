package stats

import (
	"fmt"
	"io"

	"github.com/JD-Gaming/jd-gaming/internal/model"
)

// Series is the fitness history of a run, one entry per generation.
type Series struct {
	Generation []int
	Best       []float64
	Mean       []float64
	StdDev     []float64
	Min        []float64
	Max        []float64
}

func (s Series) Len() int { return len(s.Generation) }

// SeriesFromDiagnostics collects the history of diagnostics, skipping
// generations that produced no valid score.
func SeriesFromDiagnostics(diagnostics []model.GenerationDiagnostics) Series {
	var s Series
	for _, d := range diagnostics {
		if d.Scored == 0 {
			continue
		}
		s.Generation = append(s.Generation, d.Generation)
		s.Best = append(s.Best, d.BestScore)
		s.Mean = append(s.Mean, d.MeanScore)
		s.StdDev = append(s.StdDev, d.StdDev)
		s.Min = append(s.Min, d.MinScore)
		s.Max = append(s.Max, d.MaxScore)
	}
	return s
}

// WriteSeries writes the history as whitespace separated blocks that
// gnuplot can index directly.
func WriteSeries(w io.Writer, title string, s Series) error {
	if _, err := fmt.Fprintf(w, "#Best Fitness Vs Generation, Run:%s\n", title); err != nil {
		return err
	}
	if err := writeColumn(w, s.Generation, s.Best); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "\n\n#Avg Fitness Vs Generation, Run:%s\n", title); err != nil {
		return err
	}
	if err := writeColumnWithStd(w, s.Generation, s.Mean, s.StdDev); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "\n\n#Min Fitness Vs Generation, Run:%s\n", title); err != nil {
		return err
	}
	if err := writeColumn(w, s.Generation, s.Min); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "\n\n#Max Fitness Vs Generation, Run:%s\n", title); err != nil {
		return err
	}
	return writeColumn(w, s.Generation, s.Max)
}

func writeColumnWithStd(w io.Writer, index []int, values, std []float64) error {
	length := min(len(index), len(values), len(std))
	for i := 0; i < length; i++ {
		if _, err := fmt.Fprintf(w, "%d %g %g\n", index[i], values[i], std[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeColumn(w io.Writer, index []int, values []float64) error {
	length := min(len(index), len(values))
	for i := 0; i < length; i++ {
		if _, err := fmt.Fprintf(w, "%d %g\n", index[i], values[i]); err != nil {
			return err
		}
	}
	return nil
}
