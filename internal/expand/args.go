package expand

import "strings"

// WrapArgs rewrites the program's argument vector into the argument list for
// `cargo rustc`. argv is the full vector; the program name and the leading
// subcommand token are skipped. User arguments up to a literal "--" are
// copied ahead of the synthesized flags, everything after it is passed
// through verbatim to the compiler, and nothing synthesized may land between
// the separator and that pass-through suffix.
//
// Synthesized on the way: the implicit default target name when the last
// copied flag was --test or --example, a --color setting when the user
// supplied none (always iff stderr is a terminal — stdout may already be
// redirected into the pipeline), the output redirection when outfile is
// set, and the unstable pretty-printed-expansion request.
func WrapArgs(argv []string, outfile string, stderrTTY bool) []string {
	args := []string{"rustc"}

	var rest []string
	if len(argv) > 2 {
		rest = argv[2:]
	}

	endsWithTest := false
	endsWithExample := false
	hasColor := false

	i := 0
	for ; i < len(rest); i++ {
		arg := rest[i]
		if arg == "--" {
			i++
			break
		}
		endsWithTest = arg == "--test"
		endsWithExample = arg == "--example"
		hasColor = hasColor || strings.HasPrefix(arg, "--color")
		args = append(args, arg)
	}

	if endsWithTest {
		// Expand the `test.rs` test by default.
		args = append(args, "test")
	}
	if endsWithExample {
		// Expand the `example.rs` example by default.
		args = append(args, "example")
	}

	if !hasColor {
		setting := "never"
		if stderrTTY {
			setting = "always"
		}
		args = append(args, "--color="+setting)
	}

	args = append(args, "--")
	if outfile != "" {
		args = append(args, "-o", outfile)
	}
	args = append(args, "-Zunstable-options", "--pretty=expanded")
	args = append(args, rest[i:]...)

	return args
}

// ColorNever reports whether the arguments explicitly disable color, as
// either a "--color never" pair or a single "--color=never" token. This is
// deliberately narrower than the --color prefix scan in WrapArgs: an
// explicit --color=always must still allow the highlighter.
func ColorNever(argv []string) bool {
	for i, arg := range argv {
		if arg == "--color=never" {
			return true
		}
		if arg == "--color" && i+1 < len(argv) && argv[i+1] == "never" {
			return true
		}
	}
	return false
}
