// Package pipeline builds and runs a chain of OS processes connected by
// pipes. A Cmd always designates the unstarted tail of the chain: PipeTo
// spawns the current tail with its output piped into a new tail, and Run
// executes the final tail and collects its exit code. Each PipeTo returns a
// Wait owning the processes it spawned; releasing every Wait exactly once,
// filter before primary, is the caller's side of the contract.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Cmd is the unstarted tail of a process chain.
//
// Stdin, Stdout and Stderr apply to stages whose streams are not claimed by
// the chain itself: Stdin feeds the first stage, Stdout receives the final
// stage's output, and Stderr receives any stage's undiverted error stream.
// They default to the parent's own streams.
type Cmd struct {
	cmd     *exec.Cmd
	pending []*os.File // read ends to release once the tail starts

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New starts a chain with a single stage.
func New(name string, args ...string) *Cmd {
	return &Cmd{
		cmd:    exec.Command(name, args...),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Wait owns the processes spawned while linking one stage of the chain.
// Waiting is ordered: the error-filter process first, since it is draining a
// pipe the primary process is still writing, then the primary. A failure to
// wait is reported on stderr but never changes the chain's outcome; a
// stage's own non-zero exit is not an error at all.
type Wait struct {
	procs []*exec.Cmd
	done  bool
}

// Wait releases every owned process, in order. Safe to call more than once
// and on a nil receiver; only the first call waits.
func (w *Wait) Wait() {
	if w == nil || w.done {
		return
	}
	w.done = true
	for _, p := range w.procs {
		if err := p.Wait(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				continue
			}
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// PipeTo spawns the current tail with its standard output redirected to a
// pipe and rebinds the tail to next, which will read that pipe on its
// standard input. When errFilter is non-empty, the spawned stage's standard
// error is redirected to a second pipe consumed by a filter process running
// errFilter as its argv, with the filter's own output discarded and its
// error stream bound to the Cmd's Stderr.
//
// A spawn failure aborts construction. Otherwise the returned Wait owns the
// filter (if any) and the spawned stage, in that order.
func (c *Cmd) PipeTo(next []string, errFilter []string) (*Wait, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	cur := c.cmd
	cur.Stdout = pw

	var er, ew *os.File
	if len(errFilter) > 0 {
		er, ew, err = os.Pipe()
		if err != nil {
			pr.Close()
			pw.Close()
			return nil, err
		}
		cur.Stderr = ew
	}

	if err := c.start(); err != nil {
		pr.Close()
		pw.Close()
		if ew != nil {
			er.Close()
			ew.Close()
		}
		return nil, err
	}
	pw.Close()

	w := &Wait{}
	if len(errFilter) > 0 {
		ew.Close()
		fc := exec.Command(errFilter[0], errFilter[1:]...)
		fc.Stdin = er
		fc.Stderr = c.Stderr
		if err := fc.Start(); err != nil {
			er.Close()
			pr.Close()
			// Reap the stage spawned above. With every pipe end
			// closed its writes fail rather than block, so this
			// wait cannot hang.
			w.procs = append(w.procs, cur)
			w.Wait()
			return nil, err
		}
		er.Close()
		w.procs = append(w.procs, fc)
	}
	w.procs = append(w.procs, cur)

	tail := exec.Command(next[0], next[1:]...)
	tail.Stdin = pr
	c.cmd = tail
	c.pending = append(c.pending, pr)

	return w, nil
}

// Run executes the tail of the chain to completion. A non-zero exit is the
// stage's own business and comes back as a code with a nil error; a stage
// terminated without a reportable code maps to 1. Failing to start the
// stage is an orchestrator error.
func (c *Cmd) Run() (int, error) {
	if err := c.start(); err != nil {
		return 1, err
	}
	err := c.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return 1, nil
	}
	return 1, err
}

// start launches the tail, filling any unclaimed streams from the Cmd
// defaults, and releases the parent's copy of the tail's input pipe.
func (c *Cmd) start() error {
	if c.cmd.Stdin == nil {
		c.cmd.Stdin = c.Stdin
	}
	if c.cmd.Stdout == nil {
		c.cmd.Stdout = c.Stdout
	}
	if c.cmd.Stderr == nil {
		c.cmd.Stderr = c.Stderr
	}
	err := c.cmd.Start()
	for _, f := range c.pending {
		f.Close()
	}
	c.pending = nil
	return err
}
