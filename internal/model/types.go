package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunFinished    RunStatus = "finished"
	RunInterrupted RunStatus = "interrupted"
	RunFailed      RunStatus = "failed"
)

// Run describes one training session.
type Run struct {
	VersionedRecord
	ID             string    `json:"id"`
	Task           string    `json:"task"`
	Seed           int64     `json:"seed"`
	PopulationSize int       `json:"population_size"`
	Rounds         int       `json:"rounds"`
	Inputs         int       `json:"inputs"`
	Layers         string    `json:"layers"`
	Minimise       bool      `json:"minimise"`
	FirstGen       int       `json:"first_generation"`
	LastGen        int       `json:"last_generation"`
	BestScore      float64   `json:"best_score"`
	Status         RunStatus `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NetworkRecord is a saved network and the score it earned. Blob holds the
// binary network encoding.
type NetworkRecord struct {
	VersionedRecord
	RunID      string    `json:"run_id"`
	Generation int       `json:"generation"`
	Index      int       `json:"index"`
	Seed       int64     `json:"seed"`
	Score      float64   `json:"score"`
	Rounds     int       `json:"rounds"`
	SavedAt    time.Time `json:"saved_at"`
	Blob       []byte    `json:"-"`
}

// ScorePerRound is the score averaged over the rounds played.
func (r NetworkRecord) ScorePerRound() float64 {
	if r.Rounds <= 0 {
		return r.Score
	}
	return r.Score / float64(r.Rounds)
}

type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestScore   float64 `json:"best_score"`
	MeanScore   float64 `json:"mean_score"`
	MedianScore float64 `json:"median_score"`
	MinScore    float64 `json:"min_score"`
	MaxScore    float64 `json:"max_score"`
	StdDev      float64 `json:"std_dev"`
	Scored      int     `json:"scored"`
	Cancelled   int     `json:"cancelled"`
	Failed      int     `json:"failed"`
	Level       int     `json:"level,omitempty"`
	ElapsedMS   int64   `json:"elapsed_ms"`
}
