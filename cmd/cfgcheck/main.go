// Command cfgcheck is a thin smoke-test binary wiring the preprocessor,
// parser, and analyzer together over one file. It is not the project's CLI
// driver (no PBO packaging, no workspace scanning, no progress reporting --
// those stay out of scope); it exists to exercise cfgc end to end.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/overturf/cfgc"
	"github.com/overturf/cfgc/diag"
	"github.com/overturf/cfgc/source"
)

func main() {
	includeRoot := flag.String("include-root", "", "additional root directory searched for angled #include paths")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatal("cfgcheck requires exactly 1 argument: the path to the root config file")
	}
	rootPath := cfgc.CanonicalPath(flag.Arg(0))

	var roots []string
	if *includeRoot != "" {
		roots = append(roots, *includeRoot)
	}
	resolver := cfgc.NewFSResolver(roots...)
	loader := cfgc.FSLoader{}

	reg := source.NewRegistry()
	sink := diag.NewCollectingSink()

	toks := cfgc.Preprocess(rootPath, resolver, loader, reg, nil, sink)
	f := cfgc.Parse(toks, sink)
	cfgc.Analyze(f, sink)

	for _, d := range sink.Diagnostics {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if sink.HasErrors() {
		os.Exit(1)
	}
}
