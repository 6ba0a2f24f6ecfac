package storage

import (
	"cmp"
	"encoding/json"
	"errors"
	"slices"

	"github.com/JD-Gaming/jd-gaming/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned is the record header new records are stamped with.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.Run) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.Run, error) {
	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func EncodeNetworkMeta(r model.NetworkRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeNetworkMeta(data []byte) (model.NetworkRecord, error) {
	var rec model.NetworkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.NetworkRecord{}, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return model.NetworkRecord{}, err
	}
	return rec, nil
}

func EncodeGenerationDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeGenerationDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func sortNetworks(records []model.NetworkRecord) {
	slices.SortFunc(records, func(a, b model.NetworkRecord) int {
		if c := cmp.Compare(a.Generation, b.Generation); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
}

func sortRuns(runs []model.Run) {
	slices.SortFunc(runs, func(a, b model.Run) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
}

type networkKey struct {
	generation int
	index      int
}

func EncodeNetworkIndex(records []model.NetworkRecord) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}

func DecodeNetworkIndex(data []byte) ([]model.NetworkRecord, error) {
	var records []model.NetworkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := checkVersion(rec.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return records, nil
}
