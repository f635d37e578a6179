package forecast

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifacts bundles everything the forecaster needs from a training run:
// the fitted encoder, both models and the feature schema they agreed on.
// Loaded once per process and read-only afterwards; a retrain writes a new
// file and the running service swaps its reference atomically.
type Artifacts struct {
	Version      string        `json:"version"`
	TrainedAt    time.Time     `json:"trained_at"`
	Schema       FeatureSchema `json:"schema"`
	Encoder      *EncoderState `json:"encoder"`
	Models       *ModelPair    `json:"models"`
	TrainingRows int           `json:"training_rows"`
}

// SaveArtifacts writes the bundle as JSON, creating parent directories as
// needed. The write goes through a temp file and rename so a concurrent
// reader never sees a half-written bundle.
func SaveArtifacts(path string, a *Artifacts) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifacts: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifacts: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace artifacts: %w", err)
	}
	return nil
}

// LoadArtifacts reads a bundle back and validates that its parts are
// present and sized consistently with the schema.
func LoadArtifacts(path string) (*Artifacts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifacts: %w", err)
	}

	var a Artifacts
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifacts: %w", err)
	}
	if a.Encoder == nil || a.Models == nil || a.Models.Wholesale == nil || a.Models.Retail == nil {
		return nil, fmt.Errorf("artifact bundle %s is incomplete", path)
	}
	if len(a.Models.Wholesale.Weights) != len(a.Schema)+1 {
		return nil, NewSchemaMismatchErrorf(
			"wholesale model has %d weights for a %d-column schema",
			len(a.Models.Wholesale.Weights), len(a.Schema))
	}
	if len(a.Models.Retail.Weights) != len(a.Schema)+1 {
		return nil, NewSchemaMismatchErrorf(
			"retail model has %d weights for a %d-column schema",
			len(a.Models.Retail.Weights), len(a.Schema))
	}
	return &a, nil
}
