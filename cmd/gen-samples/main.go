// gen-samples generates sample outputs of every export format for README documentation.
// Run: go run ./cmd/gen-samples -out docs/assets
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/flowdsl/internal/dsl"
	"github.com/rendis/flowdsl/internal/export"
	"github.com/rendis/flowdsl/internal/identity"
)

// sample is an order-handling flow: a decision with two labelled branches
// that meet again at the database write, plus a dashed retry loop.
const sample = `# order handling
@direction TB
@spacing 60

(Order received) -> [Validate order] -> {In stock?}
{In stock?} -> "yes" -> [Charge card] -> [[Orders DB]]
{In stock?} -> "no" -> [Notify restock] -> [[Orders DB]]
[Charge card] --> "declined" --> [Validate order]
[[Orders DB]] -> (Done)
`

// extensions maps each format to the file extension of its sample.
var extensions = map[export.Format]string{
	export.FormatJSON:    "json",
	export.FormatYAML:    "yaml",
	export.FormatMermaid: "mmd",
	export.FormatDOT:     "dot",
	export.FormatASCII:   "txt",
	export.FormatDSL:     "flow",
}

func main() {
	outDir := flag.String("out", filepath.Join("docs", "assets"), "output directory")
	flag.Parse()

	g := dsl.Parse(sample, dsl.WithIDGenerator(identity.Sequence("n")))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir error: %v\n", err)
		os.Exit(1)
	}

	for _, f := range export.Formats {
		var buf bytes.Buffer
		if err := export.Encode(&buf, g, f); err != nil {
			fmt.Fprintf(os.Stderr, "%s error: %v\n", f, err)
			os.Exit(1)
		}

		path := filepath.Join(*outDir, "sample."+extensions[f])
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("=== %s ===\nWritten: %s (%d bytes)\n", f, path, buf.Len())
	}
}
