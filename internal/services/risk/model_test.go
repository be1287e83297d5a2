package risk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safelink/internal/domain"
)

func smallTrainConfig() TrainConfig {
	cfg := DefaultTrainConfig()
	cfg.Samples = 400
	cfg.Trees = 25
	cfg.SubsampleSize = 64
	return cfg
}

func trainedModel(t *testing.T) *Model {
	t.Helper()
	params, err := Train(smallTrainConfig())
	require.NoError(t, err)
	m, err := NewModel(params)
	require.NoError(t, err)
	return m
}

func benignFeatures() domain.Features {
	return domain.Features{
		URLLength:     30,
		HasHTTPS:      true,
		DomainAgeDays: 3000,
		HasValidSSL:   true,
		PathDepth:     1,
	}
}

func maliciousFeatures() domain.Features {
	return domain.Features{
		URLLength:          220,
		NumSubdomains:      5,
		DomainAgeDays:      3,
		RedirectCount:      7,
		IsBlacklisted:      true,
		HasIPInURL:         true,
		SuspiciousPatterns: 8,
		SpecialCharCount:   14,
		NumHyphens:         7,
		PathDepth:          8,
		PctEncodedCount:    9,
		HasAtSymbol:        true,
		IsURLShortener:     true,
	}
}

func TestScoreWithinBounds(t *testing.T) {
	m := trainedModel(t)
	for _, f := range []domain.Features{benignFeatures(), maliciousFeatures(), {}} {
		a, err := m.Score(f)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, a.Score, 0.0)
		assert.LessOrEqual(t, a.Score, 100.0)
	}
}

func TestScoreOrdersBenignBelowMalicious(t *testing.T) {
	m := trainedModel(t)

	benign, err := m.Score(benignFeatures())
	require.NoError(t, err)
	malicious, err := m.Score(maliciousFeatures())
	require.NoError(t, err)

	assert.Less(t, benign.Score, malicious.Score)
	assert.True(t, malicious.IsAnomaly)
	assert.Contains(t, []string{"High", "Medium"}, malicious.Confidence)
}

func TestScoreDeterministic(t *testing.T) {
	m := trainedModel(t)
	a1, err := m.Score(maliciousFeatures())
	require.NoError(t, err)
	a2, err := m.Score(maliciousFeatures())
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestTrainDeterministicForSeed(t *testing.T) {
	p1, err := Train(smallTrainConfig())
	require.NoError(t, err)
	p2, err := Train(smallTrainConfig())
	require.NoError(t, err)

	assert.Equal(t, p1.Offset, p2.Offset)
	assert.Equal(t, p1.ScalerMin, p2.ScalerMin)
	assert.Equal(t, p1.ScalerMax, p2.ScalerMax)
	require.Len(t, p2.Trees, len(p1.Trees))
	assert.Equal(t, p1.Trees[0], p2.Trees[0])
}

func TestSaveLoadRoundTrip(t *testing.T) {
	params, err := Train(smallTrainConfig())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, Save(params, path))

	m, err := Load(path)
	require.NoError(t, err)

	orig, err := NewModel(params)
	require.NoError(t, err)

	want, err := orig.Score(maliciousFeatures())
	require.NoError(t, err)
	got, err := m.Score(maliciousFeatures())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestNewModelRejectsBadParams(t *testing.T) {
	params, err := Train(smallTrainConfig())
	require.NoError(t, err)

	bad := params
	bad.FeatureNames = append([]string(nil), params.FeatureNames...)
	bad.FeatureNames[0] = "something_else"
	_, err = NewModel(bad)
	assert.ErrorContains(t, err, "feature order mismatch")

	bad = params
	bad.Trees = nil
	_, err = NewModel(bad)
	assert.ErrorContains(t, err, "no trees")

	bad = params
	bad.ScalerMin = bad.ScalerMin[:3]
	_, err = NewModel(bad)
	assert.ErrorContains(t, err, "scaler bounds")

	bad = params
	bad.RuleWeight = 0
	_, err = NewModel(bad)
	assert.ErrorContains(t, err, "weights")
}
