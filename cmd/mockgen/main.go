package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"sla-mcp/cmd/mockgen/engine"
	"sla-mcp/internal/history"
)

func main() {
	scenario := flag.String("scenario", "steady", "Scenario to generate: steady, pressure, dependency")
	outDir := flag.String("out", "./cache", "Cache directory the server reads (DATA_PATH/cache)")
	source := flag.String("source", "demo", "Source id to write")
	count := flag.Int("count", 200, "Number of issues to generate")
	seed := flag.Uint64("seed", 1, "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario: *scenario,
		Count:    *count,
		Seed:     *seed,
		Now:      time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Count: %d, Seed: %d) to %s as source '%s'...\n", cfg.Scenario, cfg.Count, cfg.Seed, *outDir, *source)

	store := history.NewStore()
	store.Upsert(*source, engine.Generate(cfg))
	if err := store.Save(*outDir, *source); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
