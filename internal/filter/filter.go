// Package filter implements the diagnostic filter the program runs as when
// re-invoked as a pipeline stage. A filter instance reads a child's diverted
// stderr line by line, drops known-benign noise, and forwards the rest to its
// own stderr.
package filter

import (
	"bufio"
	"io"
	"strings"
)

// Mode selects the program's behavior at startup.
type Mode int

const (
	ModeRun     Mode = iota // normal expansion run
	ModeCargo               // filter cargo's stderr
	ModeRustfmt             // filter rustfmt's stderr
)

// Sentinel arguments appended when the program re-invokes itself as a
// filter stage. Internal protocol, not user-facing.
const (
	SentinelCargo   = "--filter-cargo"
	SentinelRustfmt = "--filter-rustfmt"
)

// DetectMode inspects the trailing argument to decide which mode to run in.
func DetectMode(args []string) Mode {
	if len(args) == 0 {
		return ModeRun
	}
	switch args[len(args)-1] {
	case SentinelCargo:
		return ModeCargo
	case SentinelRustfmt:
		return ModeRustfmt
	}
	return ModeRun
}

// Predicate returns the ignore predicate for a filter mode.
func (m Mode) Predicate() func(string) bool {
	if m == ModeRustfmt {
		return IgnoreRustfmt
	}
	return IgnoreCargo
}

// Run copies lines from r to w, dropping every line the ignore predicate
// classifies as noise. Lines are forwarded verbatim, terminators included.
// A read error mid-stream ends the loop; the filter never fails.
func Run(r io.Reader, w io.Writer, ignore func(string) bool) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" && !ignore(line) {
			io.WriteString(w, line)
		}
		if err != nil {
			return
		}
	}
}

// IgnoreRustfmt drops every line: rustfmt's own diagnostics are never
// useful when it is formatting machine-generated expansion output.
func IgnoreRustfmt(string) bool {
	return true
}

// cargoNoise lists rustc advisories about output-filename ambiguity that
// always accompany the -o redirection and carry no information.
var cargoNoise = []string{
	"ignoring specified output filename because multiple outputs were requested",
	"ignoring specified output filename for 'link' output because multiple outputs were requested",
	"ignoring --out-dir flag due to -o flag.",
	"due to multiple output types requested, the explicitly specified output file name will be adapted for each output type",
}

// IgnoreCargo drops blank lines and the known-benign advisories emitted by
// the compiler when -o is combined with multiple output kinds. Everything
// else, errors included, is forwarded.
func IgnoreCargo(line string) bool {
	if strings.TrimSpace(line) == "" {
		return true
	}
	for _, s := range cargoNoise {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}
