// Command cargo-expand is a cargo subcommand that shows the result of macro
// expansion, delegating the work to `cargo rustc -- --pretty=expanded` and
// post-processing the output through rustfmt and pygmentize when available.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ehuss/cargo-expand/internal/config"
	"github.com/ehuss/cargo-expand/internal/expand"
	"github.com/ehuss/cargo-expand/internal/filter"
	"github.com/ehuss/cargo-expand/internal/toolchain"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args))
}

func run(argv []string) int {
	// When re-invoked as a pipeline stage, the trailing sentinel selects
	// a filter mode: consume the diverted stream, drop the noise,
	// forward the rest to stderr.
	if mode := filter.DetectMode(argv); mode != filter.ModeRun {
		filter.Run(os.Stdin, os.Stderr, mode.Predicate())
		return 0
	}

	if hasVersionFlag(argv) {
		fmt.Printf("cargo-expand %s\n", version)
		return 0
	}

	cfg, err := config.Load(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargo-expand: %v\n", err)
		return 1
	}

	// Pretty-printed expansion needs a nightly toolchain. Unless the
	// active one might already be nightly, or the re-exec guard is set,
	// re-run through `cargo +nightly expand` and pass its code along.
	if toolchain.NeedsNightly(cfg) {
		code, err := toolchain.RunNightly(argv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cargo-expand: %v\n", err)
			return 1
		}
		return code
	}

	code, err := expand.Run(cfg, argv, os.Stdout, os.Stderr,
		isatty.IsTerminal(os.Stdout.Fd()), isatty.IsTerminal(os.Stderr.Fd()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargo-expand: %v\n", err)
		return 1
	}
	return code
}

// hasVersionFlag reports a --version as the first user argument, after the
// program name and the subcommand token cargo passes along.
func hasVersionFlag(argv []string) bool {
	user := argv[1:]
	if len(user) > 0 && user[0] == "expand" {
		user = user[1:]
	}
	return len(user) > 0 && user[0] == "--version"
}
