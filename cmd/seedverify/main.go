// Command seedverify checks a seed project directory's sha256 checksum
// manifest against the files on disk (SPEC_FULL.md §4.12).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/groovegen/groovegen/internal/seeddir"
)

func main() {
	seedDir := flag.String("seed-dir", "", "path to a seed project directory (seeds/<seed_id>)")
	flag.Parse()

	if *seedDir == "" {
		fmt.Fprintln(os.Stderr, "-seed-dir is required")
		os.Exit(2)
	}

	if err := seeddir.VerifyChecksums(*seedDir); err != nil {
		fmt.Fprintf(os.Stderr, "checksum verification failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}
