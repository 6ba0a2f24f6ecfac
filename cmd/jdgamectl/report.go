package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"

	"github.com/JD-Gaming/jd-gaming/internal/model"
	"github.com/JD-Gaming/jd-gaming/internal/scape"
	"github.com/JD-Gaming/jd-gaming/internal/stats"
	"github.com/JD-Gaming/jd-gaming/internal/storage"
)

func (c command) runs(ctx context.Context, args []string) error {
	fs := c.flagSet("runs")
	var sf storeFlags
	sf.register(fs)
	limit := fs.Int("limit", 20, "max runs to list, newest first")
	jsonOut := fs.Bool("json", false, "emit runs as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return fmt.Errorf("runs: limit must be > 0")
	}

	store, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	// newest first
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	if len(runs) > *limit {
		runs = runs[:*limit]
	}

	if *jsonOut {
		return writeJSON(c, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(c.stdout, "no runs found")
		return nil
	}
	table := uitable.New()
	table.AddRow("RUN", "TASK", "STATUS", "NETWORKS", "GENERATIONS", "BEST", "STARTED", "UPDATED")
	for _, run := range runs {
		generations := run.LastGen - run.FirstGen + 1
		table.AddRow(run.ID, run.Task, run.Status, run.PopulationSize,
			humanize.Comma(int64(max(generations, 0))), formatScore(run.BestScore),
			run.StartedAt.Local().Format("2006-01-02 15:04"), humanize.Time(run.UpdatedAt))
	}
	fmt.Fprintln(c.stdout, table)
	return nil
}

func (c command) diagnostics(ctx context.Context, args []string) error {
	fs := c.flagSet("diagnostics")
	var sf storeFlags
	sf.register(fs)
	runID := fs.String("run", "", "run id")
	last := fs.Int("last", 0, "only show the last n generations")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireRunID(fs, *runID); err != nil {
		return err
	}

	diags, err := loadDiagnostics(ctx, sf, *runID)
	if err != nil {
		return err
	}
	if *last > 0 && len(diags) > *last {
		diags = diags[len(diags)-*last:]
	}
	if *jsonOut {
		return writeJSON(c, diags)
	}
	table := uitable.New()
	table.AddRow("GEN", "BEST", "MEAN", "MEDIAN", "STDDEV", "MIN", "MAX", "SCORED", "CANCELLED", "FAILED", "LEVEL", "TIME")
	for _, d := range diags {
		table.AddRow(d.Generation, formatScore(d.BestScore), fmt.Sprintf("%.4g", d.MeanScore),
			fmt.Sprintf("%.4g", d.MedianScore), fmt.Sprintf("%.3g", d.StdDev),
			fmt.Sprintf("%.4g", d.MinScore), fmt.Sprintf("%.4g", d.MaxScore),
			d.Scored, d.Cancelled, d.Failed, d.Level, fmt.Sprintf("%dms", d.ElapsedMS))
	}
	fmt.Fprintln(c.stdout, table)
	return nil
}

func (c command) plot(ctx context.Context, args []string) error {
	fs := c.flagSet("plot")
	var sf storeFlags
	sf.register(fs)
	runID := fs.String("run", "", "run id")
	out := fs.String("out", "fitness.png", "image file (.png, .svg or .pdf)")
	data := fs.String("data", "", "also write the series as gnuplot data to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireRunID(fs, *runID); err != nil {
		return err
	}

	diags, err := loadDiagnostics(ctx, sf, *runID)
	if err != nil {
		return err
	}
	series := stats.SeriesFromDiagnostics(diags)
	if err := stats.PlotFitness(series, "run "+*runID, *out); err != nil {
		return err
	}
	if *data != "" {
		f, err := os.Create(*data)
		if err != nil {
			return err
		}
		if err := stats.WriteSeries(f, *runID, series); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.stdout, "plotted %d generations to %s\n", series.Len(), *out)
	return nil
}

func (c command) tasks(_ context.Context, args []string) error {
	fs := c.flagSet("tasks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	table := uitable.New()
	table.AddRow("TASK", "INPUTS", "OUTPUTS", "GOAL")
	for _, name := range scape.Names() {
		task, err := scape.New(name, scape.Options{})
		if err != nil {
			return err
		}
		goal := "maximise"
		if task.Minimise() {
			goal = "minimise"
		}
		table.AddRow(name, humanize.Comma(int64(task.Inputs())), task.Outputs(), goal)
	}
	fmt.Fprintln(c.stdout, table)
	return nil
}

func loadDiagnostics(ctx context.Context, sf storeFlags, runID string) ([]model.GenerationDiagnostics, error) {
	store, err := sf.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()
	diags, ok, err := store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no diagnostics for run %s", runID)
	}
	return diags, nil
}

func formatScore(v float64) string {
	if v < 0 {
		return "-"
	}
	return fmt.Sprintf("%.4g", v)
}

func writeJSON(c command, v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
