package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"safelink/internal/domain"
)

// Params is a complete trained parameter set: the fitted forest, the min/max
// scaler bounds, the decision offset, and the deployment-tunable scoring
// constants. The file is the only coupling between training and inference;
// the pipeline loads it and never retrains.
type Params struct {
	FeatureNames  []string  `json:"feature_names"`
	ScalerMin     []float64 `json:"scaler_min"`
	ScalerMax     []float64 `json:"scaler_max"`
	Trees         []Tree    `json:"trees"`
	SampleSize    int       `json:"sample_size"`
	Offset        float64   `json:"offset"`
	ScoreMin      float64   `json:"score_min"` // raw-score reference range for
	ScoreMax      float64   `json:"score_max"` // normalization onto [0, 100]
	RuleWeight    float64   `json:"rule_weight"`
	MLWeight      float64   `json:"ml_weight"`
	Contamination float64   `json:"contamination"`
	Samples       int       `json:"n_samples"`
	TrainedAt     time.Time `json:"trained_at"`
}

// Model is the loaded anomaly scorer. Its state is read-only after
// construction, so one instance serves concurrent scans without locking.
type Model struct {
	params Params
}

// NewModel validates a parameter set against the pipeline's feature schema.
// Any mismatch is fatal: a model fitted to a different input shape cannot
// produce a meaningful hybrid score.
func NewModel(p Params) (*Model, error) {
	if len(p.FeatureNames) != domain.NumFeatures {
		return nil, fmt.Errorf("model expects %d features, pipeline produces %d",
			len(p.FeatureNames), domain.NumFeatures)
	}
	for i, name := range p.FeatureNames {
		if name != domain.FeatureNames[i] {
			return nil, fmt.Errorf("feature order mismatch at %d: model %q, pipeline %q",
				i, name, domain.FeatureNames[i])
		}
	}
	if len(p.ScalerMin) != domain.NumFeatures || len(p.ScalerMax) != domain.NumFeatures {
		return nil, fmt.Errorf("scaler bounds have wrong width")
	}
	if len(p.Trees) == 0 {
		return nil, fmt.Errorf("parameter set contains no trees")
	}
	if p.SampleSize < 2 {
		return nil, fmt.Errorf("invalid sample size %d", p.SampleSize)
	}
	if p.ScoreMax <= p.ScoreMin {
		return nil, fmt.Errorf("invalid score normalization range [%v, %v]", p.ScoreMin, p.ScoreMax)
	}
	if p.RuleWeight <= 0 || p.MLWeight <= 0 {
		return nil, fmt.Errorf("hybrid weights must be positive")
	}
	return &Model{params: p}, nil
}

// Load reads a trained parameter file from disk.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model parameters: %w", err)
	}
	var p Params
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse model parameters: %w", err)
	}
	return NewModel(p)
}

// Save writes a parameter set to disk.
func Save(p Params, path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Params returns a copy of the loaded parameter set.
func (m *Model) Params() Params { return m.params }

func (m *Model) scale(x []float64) []float64 {
	scaled := make([]float64, len(x))
	for i := range x {
		span := m.params.ScalerMax[i] - m.params.ScalerMin[i]
		if span == 0 {
			continue
		}
		scaled[i] = (x[i] - m.params.ScalerMin[i]) / span
	}
	return scaled
}

// Score runs forest inference on one feature vector and normalizes the raw
// score onto [0, 100], 100 being most anomalous. Deterministic: identical
// input and parameters always produce identical output.
func (m *Model) Score(f domain.Features) (domain.Assessment, error) {
	x := f.Vector()
	if len(x) != len(m.params.ScalerMin) {
		return domain.Assessment{}, fmt.Errorf("feature vector width %d does not match model %d",
			len(x), len(m.params.ScalerMin))
	}

	raw := scoreSample(m.params.Trees, m.params.SampleSize, m.scale(x))
	decision := raw - m.params.Offset

	clamped := math.Max(m.params.ScoreMin, math.Min(m.params.ScoreMax, raw))
	normalized := (m.params.ScoreMax - clamped) / (m.params.ScoreMax - m.params.ScoreMin) * 100

	confidence := "Low"
	switch {
	case decision < -0.15:
		confidence = "High"
	case decision < 0:
		confidence = "Medium"
	}

	return domain.Assessment{
		Score:      round2(normalized),
		IsAnomaly:  decision < 0,
		Confidence: confidence,
		RawScore:   raw,
		Decision:   decision,
	}, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
