// Command titles-import loads the IMDb title.basics dataset, or a YAML
// fixture file, into the configured store.
package main

import (
	"flag"
	"fmt"
	"os"

	"imdb-titles/internal/app"
)

func main() {
	var opts app.ImportOptions
	flag.StringVar(&opts.Source, "source", "", "dataset path or URL (default DATASET_SOURCE)")
	flag.StringVar(&opts.Fixtures, "fixtures", "", "YAML fixture file to load instead of the dataset")
	flag.BoolVar(&opts.Reset, "reset", false, "drop and recreate the schema before importing")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	stats, err := application.Import(opts)
	_ = application.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "import failed:", err)
		os.Exit(1)
	}
	fmt.Printf("imported %d of %d rows (%d skipped) in %s\n", stats.Imported, stats.Rows, stats.Skipped, stats.Duration)
}
