package risk

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"safelink/internal/domain"
)

// Offline fitting of the isolation forest. The scan pipeline never calls
// into this file; training is a separate operation that produces a parameter
// file for Load.

// TrainConfig controls the offline fit.
type TrainConfig struct {
	Samples       int
	Trees         int
	SubsampleSize int
	Contamination float64
	Seed          int64
	ScoreMin      float64
	ScoreMax      float64
	RuleWeight    float64
	MLWeight      float64
}

// DefaultTrainConfig mirrors the deployed model: 200 trees over a
// 2000-sample synthetic corpus with an assumed 20% anomaly share.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Samples:       2000,
		Trees:         200,
		SubsampleSize: 256,
		Contamination: 0.20,
		Seed:          42,
		ScoreMin:      -0.8,
		ScoreMax:      0.2,
		RuleWeight:    0.60,
		MLWeight:      0.40,
	}
}

// Train generates the synthetic corpus, fits the scaler and the forest, and
// derives the decision offset from the contamination quantile of the
// training scores. Deterministic for a fixed seed.
func Train(cfg TrainConfig) (Params, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	data := syntheticCorpus(rng, cfg.Samples)

	minB := make([]float64, domain.NumFeatures)
	maxB := make([]float64, domain.NumFeatures)
	copy(minB, data[0])
	copy(maxB, data[0])
	for _, row := range data[1:] {
		for i, v := range row {
			if v < minB[i] {
				minB[i] = v
			}
			if v > maxB[i] {
				maxB[i] = v
			}
		}
	}

	scaled := make([][]float64, len(data))
	for r, row := range data {
		s := make([]float64, len(row))
		for i, v := range row {
			if span := maxB[i] - minB[i]; span > 0 {
				s[i] = (v - minB[i]) / span
			}
		}
		scaled[r] = s
	}

	sub := cfg.SubsampleSize
	if sub > len(scaled) {
		sub = len(scaled)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sub))))

	trees := make([]Tree, cfg.Trees)
	for i := range trees {
		idx := rng.Perm(len(scaled))[:sub]
		trees[i] = fitTree(scaled, idx, maxDepth, rng)
	}

	// Offset at the contamination quantile so decision < 0 flags the
	// expected anomaly share of the training distribution.
	scores := make([]float64, len(scaled))
	for i, row := range scaled {
		scores[i] = scoreSample(trees, sub, row)
	}
	sort.Float64s(scores)
	offset := quantile(scores, cfg.Contamination)

	return Params{
		FeatureNames:  append([]string(nil), domain.FeatureNames...),
		ScalerMin:     minB,
		ScalerMax:     maxB,
		Trees:         trees,
		SampleSize:    sub,
		Offset:        offset,
		ScoreMin:      cfg.ScoreMin,
		ScoreMax:      cfg.ScoreMax,
		RuleWeight:    cfg.RuleWeight,
		MLWeight:      cfg.MLWeight,
		Contamination: cfg.Contamination,
		Samples:       cfg.Samples,
		TrainedAt:     time.Now().UTC(),
	}, nil
}

// fitTree grows one isolation tree over the given subsample with uniformly
// random splits, stopping at the depth limit or when a node can no longer
// be split.
func fitTree(data [][]float64, idx []int, maxDepth int, rng *rand.Rand) Tree {
	t := Tree{}
	var grow func(rows []int, depth int) int
	grow = func(rows []int, depth int) int {
		self := len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{Left: -1, Right: -1, Size: len(rows)})
		if depth >= maxDepth || len(rows) <= 1 {
			return self
		}

		// candidate features that still vary within this node
		var candidates []int
		for f := 0; f < domain.NumFeatures; f++ {
			lo, hi := data[rows[0]][f], data[rows[0]][f]
			for _, r := range rows[1:] {
				if data[r][f] < lo {
					lo = data[r][f]
				}
				if data[r][f] > hi {
					hi = data[r][f]
				}
			}
			if hi > lo {
				candidates = append(candidates, f)
			}
		}
		if len(candidates) == 0 {
			return self
		}

		feature := candidates[rng.Intn(len(candidates))]
		lo, hi := data[rows[0]][feature], data[rows[0]][feature]
		for _, r := range rows[1:] {
			if data[r][feature] < lo {
				lo = data[r][feature]
			}
			if data[r][feature] > hi {
				hi = data[r][feature]
			}
		}
		threshold := lo + rng.Float64()*(hi-lo)

		var left, right []int
		for _, r := range rows {
			if data[r][feature] <= threshold {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			return self
		}

		t.Nodes[self].Feature = feature
		t.Nodes[self].Threshold = threshold
		t.Nodes[self].Left = grow(left, depth+1)
		t.Nodes[self].Right = grow(right, depth+1)
		return self
	}
	grow(idx, 0)
	return t
}

// quantile interpolates linearly over sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// syntheticCorpus reproduces the reference training distribution: 60% benign
// rows, 25% suspicious, 15% malicious, in model feature order.
func syntheticCorpus(rng *rand.Rand, n int) [][]float64 {
	nSafe := int(float64(n) * 0.60)
	nSus := int(float64(n) * 0.25)
	nMal := n - nSafe - nSus

	uniform := func(lo, hi int) float64 { return float64(lo + rng.Intn(hi-lo)) }
	bern := func(p float64) float64 {
		if rng.Float64() < p {
			return 1
		}
		return 0
	}

	rows := make([][]float64, 0, n)
	for i := 0; i < nSafe; i++ {
		redirect := 0.0
		switch r := rng.Float64(); {
		case r < 0.2:
			redirect = 1
		case r < 0.3:
			redirect = 2
		}
		rows = append(rows, []float64{
			uniform(20, 60),    // url_length
			bern(0.3),          // num_subdomains
			bern(0.75),         // has_https
			uniform(365, 5000), // domain_age_days
			redirect,           // redirect_count
			0,                  // is_blacklisted
			0,                  // has_ip_in_url
			uniform(0, 2),      // suspicious_patterns
			bern(0.75),         // has_valid_ssl
			uniform(0, 4),      // special_char_count
			uniform(0, 2),      // num_hyphens
			uniform(0, 3),      // path_depth
			uniform(0, 2),      // pct_encoded_count
			0,                  // has_at_symbol
			0,                  // is_url_shortener
		})
	}
	for i := 0; i < nSus; i++ {
		rows = append(rows, []float64{
			uniform(60, 120),
			uniform(1, 3),
			bern(0.5),
			uniform(-1, 365),
			uniform(1, 5),
			0,
			bern(0.3),
			uniform(1, 4),
			bern(0.5),
			uniform(3, 8),
			uniform(2, 5),
			uniform(2, 6),
			uniform(1, 5),
			bern(0.4),
			bern(0.5),
		})
	}
	for i := 0; i < nMal; i++ {
		rows = append(rows, []float64{
			uniform(100, 300),
			uniform(3, 6),
			bern(0.3),
			uniform(-1, 60),
			uniform(3, 10),
			bern(0.7),
			bern(0.7),
			uniform(4, 10),
			bern(0.2),
			uniform(5, 20),
			uniform(3, 10),
			uniform(4, 10),
			uniform(3, 15),
			bern(0.6),
			bern(0.6),
		})
	}
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	return rows
}
