// Package toolchain decides whether the active build tool needs to be
// swapped for the nightly variant, and performs the guarded re-exec.
package toolchain

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/ehuss/cargo-expand/internal/config"
)

// DefinitelyNotNightly probes the active build tool's version. It returns
// true only when the version string positively identifies a legacy stable
// release; a probe that cannot be spawned or read counts as "might be
// nightly" so the program avoids a needless re-exec. The probe's exit
// status is irrelevant — whatever banner it printed is examined.
func DefinitelyNotNightly(cfg *config.Config) bool {
	var out bytes.Buffer
	cmd := exec.Command(cfg.Cargo, "--version")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return false
		}
	}
	if !utf8.Valid(out.Bytes()) {
		return false
	}
	version := out.String()
	return strings.HasPrefix(version, "cargo 1") && !strings.Contains(version, "nightly")
}

// NeedsNightly decides whether to re-exec under the nightly toolchain: only
// when the active one is definitely a stable release and the guard is not
// set. The guard both honors an explicit "run here" request and stops a
// re-exec child from re-execing again.
func NeedsNightly(cfg *config.Config) bool {
	return !cfg.NoRunNightly && DefinitelyNotNightly(cfg)
}

// RunNightly re-invokes the expansion through `cargo +nightly expand`,
// passing argv along minus the program name and the subcommand token. The
// re-exec guard variable is set on the child so it can never re-exec again.
// Returns the child's exit code, or 1/0 when it terminated without one.
func RunNightly(argv []string) (int, error) {
	args := []string{"+nightly", "expand"}
	rest := argv[1:]
	if len(rest) > 0 && rest[0] == "expand" {
		rest = rest[1:]
	}
	args = append(args, rest...)

	cmd := exec.Command("cargo", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), config.NoRunNightlyVar+"=")

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		// Terminated by signal: no reportable code.
		return 1, nil
	}
	return 1, err
}
