package main

import (
	"flag"
	"log"

	"github.com/groovegen/groovegen/internal/fixtures"
)

// fixturegen produces a small ladder of sample configs and their
// deterministic MIDI output, used by tests and demos.
func main() {
	outDir := flag.String("out", "./testdata/fixtures", "output directory for generated configs and midi")
	seed := flag.Int64("seed", 1337, "root seed for deterministic fixtures")
	flag.Parse()

	manifest, err := fixtures.Generate(fixtures.Config{OutputDir: *outDir, Seed: *seed})
	if err != nil {
		log.Fatalf("generate fixtures: %v", err)
	}

	log.Printf("fixturegen wrote %d fixtures to %s", len(manifest.Fixtures), *outDir)
}
