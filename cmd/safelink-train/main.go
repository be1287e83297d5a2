// Command safelink-train fits the isolation forest on a synthetic URL corpus
// and writes the frozen parameters consumed by the server at startup.
package main

import (
	"flag"
	"log"

	risksvc "safelink/internal/services/risk"
)

func main() {
	out := flag.String("out", "model/params.json", "where to write the trained parameters")
	samples := flag.Int("samples", 0, "synthetic corpus size (0 = default)")
	trees := flag.Int("trees", 0, "number of trees (0 = default)")
	seed := flag.Int64("seed", 0, "rng seed (0 = default)")
	flag.Parse()

	cfg := risksvc.DefaultTrainConfig()
	if *samples > 0 {
		cfg.Samples = *samples
	}
	if *trees > 0 {
		cfg.Trees = *trees
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	params, err := risksvc.Train(cfg)
	if err != nil {
		log.Fatalf("train error: %v", err)
	}
	if err := risksvc.Save(params, *out); err != nil {
		log.Fatalf("save error: %v", err)
	}
	log.Printf("wrote %s: %d trees over %d samples (offset %.4f)", *out, len(params.Trees), params.Samples, params.Offset)
}
