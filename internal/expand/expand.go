// Package expand orchestrates the expansion pipeline: it synthesizes the
// compiler invocation, probes for optional post-processors, and wires the
// resulting process chain together.
package expand

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ehuss/cargo-expand/internal/config"
	"github.com/ehuss/cargo-expand/internal/filter"
	"github.com/ehuss/cargo-expand/internal/pipeline"
	"github.com/ehuss/cargo-expand/internal/probe"
)

// Run executes the expansion chain and returns its exit code. argv is the
// program's full argument vector; stdout and stderr receive the chain's
// output, with stdoutTTY and stderrTTY describing their terminal attachment
// at invocation time. The chain is assembled incrementally: compiler
// invocation, then the tmp-file buffering stage when any post-processor is
// present, then formatter and highlighter as probed, each optional stage
// transparently re-pointing the current tail. The final stage's exit status
// is the program's own.
func Run(cfg *config.Config, argv []string, stdout, stderr io.Writer, stdoutTTY, stderrTTY bool) (int, error) {
	rustfmt, haveRustfmt := probe.Which(cfg, "rustfmt")

	// Probing the highlighter off-terminal (or under an explicit
	// --color=never) would corrupt redirected output with color codes.
	var pygmentize string
	havePygmentize := false
	if !ColorNever(argv) && stdoutTTY {
		pygmentize, havePygmentize = probe.Which(cfg, "pygmentize", "-l", "rust")
	}

	outfile := ""
	if haveRustfmt || havePygmentize {
		dir, err := os.MkdirTemp("", "cargo-expand")
		if err != nil {
			return 1, fmt.Errorf("create tmp dir: %w", err)
		}
		defer os.RemoveAll(dir)
		outfile = filepath.Join(dir, "expanded")
	}

	cmd := pipeline.New(cfg.Cargo, WrapArgs(argv, outfile, stderrTTY)...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if outfile != "" {
		// Redirect the expansion to the tmp file and buffer the chain
		// through cat, so build-script prints on stdout stay separate
		// from the expansion text. Cargo's stderr goes through the
		// noise filter.
		wait, err := cmd.PipeTo([]string{"cat"}, selfFilter(argv, filter.SentinelCargo))
		if err != nil {
			return 1, err
		}
		if _, err := cmd.Run(); err != nil {
			wait.Wait()
			return 1, err
		}
		wait.Wait()

		cmd = pipeline.New("cat", outfile)
		cmd.Stdout = stdout
		cmd.Stderr = stderr
	}

	if haveRustfmt {
		wait, err := cmd.PipeTo([]string{rustfmt}, nil)
		if err != nil {
			return 1, err
		}
		defer wait.Wait()

		// rustfmt's own diagnostics are dropped wholesale.
		fmtWait, err := cmd.PipeTo([]string{"cat"}, selfFilter(argv, filter.SentinelRustfmt))
		if err != nil {
			return 1, err
		}
		defer fmtWait.Wait()
	}

	if havePygmentize {
		wait, err := cmd.PipeTo([]string{pygmentize, "-l", "rust", "-O", "encoding=utf8"}, nil)
		if err != nil {
			return 1, err
		}
		defer wait.Wait()
	}

	return cmd.Run()
}

// selfFilter builds the argv for re-invoking this program as a diagnostic
// filter stage: the executable, the original arguments, and the trailing
// sentinel that selects the filter mode.
func selfFilter(argv []string, sentinel string) []string {
	exe, err := os.Executable()
	if err != nil {
		exe = argv[0]
	}
	out := make([]string, 0, len(argv)+1)
	out = append(out, exe)
	out = append(out, argv[1:]...)
	return append(out, sentinel)
}
