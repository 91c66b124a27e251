package storage

import (
	"encoding/json"
	"errors"

	"antcolony/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion is the version stamp new records are written with.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeGenome(g model.Genome) ([]byte, error) {
	return json.Marshal(g)
}

func DecodeGenome(data []byte) (model.Genome, error) {
	var genome model.Genome
	if err := json.Unmarshal(data, &genome); err != nil {
		return model.Genome{}, err
	}
	if err := checkVersion(genome.VersionedRecord); err != nil {
		return model.Genome{}, err
	}
	return genome, nil
}

func EncodeRunSummary(r model.RunSummary) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRunSummary(data []byte) (model.RunSummary, error) {
	var run model.RunSummary
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunSummary{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunSummary{}, err
	}
	return run, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
