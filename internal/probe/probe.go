// Package probe detects optional post-processing tools. A probe is
// best-effort: any failure means the tool is treated as absent, never
// reported to the user.
package probe

import (
	"os/exec"

	"github.com/ehuss/cargo-expand/internal/config"
)

// Which reports the resolved path of an optional tool, or absence.
//
// Resolution order: the probe is suppressed entirely under --help (printing
// help must have no side effects); an explicit override wins next, where an
// empty override forces absence and a non-empty one is used verbatim;
// otherwise the tool is spawned with probeArgs and all three standard
// streams discarded, and counts as present iff it exits successfully.
func Which(cfg *config.Config, tool string, probeArgs ...string) (string, bool) {
	if cfg.Help {
		return "", false
	}

	if path, ok := cfg.Override(tool); ok {
		if path == "" {
			return "", false
		}
		return path, true
	}

	cmd := exec.Command(tool, probeArgs...)
	// Stdin, stdout and stderr default to the null device.
	if err := cmd.Run(); err != nil {
		return "", false
	}
	return tool, true
}
