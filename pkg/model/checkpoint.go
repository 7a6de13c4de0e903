package model

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Checkpoint is a crash-recovery snapshot of a training run: the weight
// vector, the learning rate, and the number of the last finished epoch,
// so training can resume at the next epoch without repeating finished
// ones. It carries no epoch metrics. It is independent of the canonical
// text-based model file format in Save/Load, which only ever carries
// weights.
type Checkpoint struct {
	Epoch        int                `msgpack:"epoch"`
	Weights      map[string]float64 `msgpack:"w"`
	LearningRate float64            `msgpack:"lr"`
}

// SaveCheckpoint msgpack-encodes a snapshot of m at the given epoch.
func SaveCheckpoint(w io.Writer, m *Model, epoch int) error {
	cp := Checkpoint{Epoch: epoch, Weights: m.Weights, LearningRate: m.LearningRate}
	return msgpack.NewEncoder(w).Encode(&cp)
}

// LoadCheckpoint decodes a snapshot and returns the resumed Model plus
// the epoch it was taken after.
func LoadCheckpoint(r io.Reader) (*Model, int, error) {
	var cp Checkpoint
	if err := msgpack.NewDecoder(r).Decode(&cp); err != nil {
		return nil, 0, fmt.Errorf("checkpoint: decode: %w", err)
	}
	if cp.Weights == nil {
		cp.Weights = make(map[string]float64)
	}
	return &Model{Weights: cp.Weights, LearningRate: cp.LearningRate}, cp.Epoch, nil
}

// SaveCheckpointFile is a convenience wrapper writing directly to path.
func SaveCheckpointFile(path string, m *Model, epoch int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return SaveCheckpoint(f, m, epoch)
}

// LoadCheckpointFile is a convenience wrapper reading directly from path.
func LoadCheckpointFile(path string) (*Model, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return LoadCheckpoint(f)
}
