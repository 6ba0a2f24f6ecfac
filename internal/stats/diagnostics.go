package stats

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/JD-Gaming/jd-gaming/internal/evo"
	"github.com/JD-Gaming/jd-gaming/internal/model"
)

// Generation is the raw outcome of one evaluated generation.
type Generation struct {
	Number    int
	Scores    []float64
	Cancelled int
	Failed    int
	Level     int
	Elapsed   time.Duration
	Minimise  bool
}

// Summarize reduces a generation's scores to diagnostics. Invalid scores
// (negative, NaN or infinite) are left out of every statistic; a generation without a
// single valid score reports zeros and BestScore = evo.Unscored.
func Summarize(g Generation) model.GenerationDiagnostics {
	d := model.GenerationDiagnostics{
		Generation: g.Number,
		BestScore:  evo.Unscored,
		Cancelled:  g.Cancelled,
		Failed:     g.Failed,
		Level:      g.Level,
		ElapsedMS:  g.Elapsed.Milliseconds(),
	}

	valid := make([]float64, 0, len(g.Scores))
	for _, s := range g.Scores {
		if evo.Valid(s) && !math.IsInf(s, 1) {
			valid = append(valid, s)
		}
	}
	d.Scored = len(valid)
	if len(valid) == 0 {
		return d
	}

	slices.Sort(valid)
	d.MinScore = floats.Min(valid)
	d.MaxScore = floats.Max(valid)
	d.MedianScore = stat.Quantile(0.5, stat.Empirical, valid, nil)
	if len(valid) == 1 {
		d.MeanScore = valid[0]
	} else {
		d.MeanScore, d.StdDev = stat.MeanStdDev(valid, nil)
	}
	if g.Minimise {
		d.BestScore = d.MinScore
	} else {
		d.BestScore = d.MaxScore
	}
	return d
}
