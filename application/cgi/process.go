package cgi

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	iolib "tinyhttpd/lib/io"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var (
	ErrPipe  = errors.New("creating pipe")
	ErrSpawn = errors.New("spawning program")

	// ErrExec means the program exists as a path but can't be run:
	// missing, not executable or not a valid binary.
	ErrExec = errors.New("executing program")
)

// StartError is a failure of [Start]. It matches its Kind, one of
// [ErrPipe], [ErrSpawn] or [ErrExec], and unwraps to the OS error.
type StartError struct {
	Kind  error
	cause error
}

func newStartError(kind, cause error) error {
	return errors.WithStack(&StartError{Kind: kind, cause: cause})
}

func (e *StartError) Error() string { return e.Kind.Error() + ": " + e.cause.Error() }

func (e *StartError) Is(target error) bool { return target == e.Kind }

func (e *StartError) Cause() error  { return e.cause }
func (e *StartError) Unwrap() error { return e.cause }

type Options struct {
	Env []string

	// Dir is the working directory. Defaults to the directory of the program.
	Dir string

	// Stderr receives the program's standard error. Nil discards it.
	Stderr io.Writer
}

// Process is one running program and the parent's ends of its pipes.
type Process struct {
	cmd *exec.Cmd

	// Stdin feeds the program. Closing it signals the end of the body.
	Stdin *os.File
	// Stdout yields what the program writes until it exits.
	Stdout *os.File

	once    sync.Once
	waitErr error
}

// Start runs the program at path with no arguments.
// The program's ends of both pipes are closed in the parent before Start
// returns.
func Start(path string, opts Options) (*Process, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolving program path")
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, newStartError(ErrPipe, err)
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, newStartError(ErrPipe, err)
	}

	dir := opts.Dir
	if dir == "" {
		dir = filepath.Dir(abs)
	}

	cmd := &exec.Cmd{
		Path:   abs,
		Args:   []string{abs},
		Dir:    dir,
		Env:    opts.Env,
		Stdin:  inR,
		Stdout: outW,
		Stderr: opts.Stderr,
	}

	err = cmd.Start()

	// The child has its own copies now.
	inR.Close()
	outW.Close()

	if err != nil {
		inW.Close()
		outR.Close()
		return nil, classifyStartError(err)
	}

	return &Process{cmd: cmd, Stdin: inW, Stdout: outR}, nil
}

func classifyStartError(err error) error {
	for _, errno := range []unix.Errno{unix.ENOENT, unix.EACCES, unix.ENOEXEC, unix.ENOTDIR, unix.EISDIR} {
		if errors.Is(err, errno) {
			return newStartError(ErrExec, err)
		}
	}
	return newStartError(ErrSpawn, err)
}

// Pid returns the program's process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Exchange writes body to the program and collects its output.
//
// The body goes out from a separate goroutine so a program that writes
// before it reads can't deadlock against us; the goroutine is joined before
// Exchange returns. At most limit bytes of output are kept, the rest is
// read and discarded so the program can run to completion.
func (p *Process) Exchange(body []byte, limit uint) (out []byte, discarded int64, err error) {
	var (
		wg       sync.WaitGroup
		writeErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer p.Stdin.Close()

		if len(body) == 0 {
			return
		}
		if _, err := iolib.WriteFull(p.Stdin, body); err != nil && !errors.Is(err, unix.EPIPE) {
			// EPIPE only means the program didn't want the rest.
			writeErr = errors.Wrap(err, "writing request body")
		}
	}()

	buf := bytes.NewBuffer(make([]byte, 0, min(limit, 8192)))
	_, discarded, err = iolib.CopyCapped(buf, p.Stdout, limit)
	wg.Wait()

	if err != nil {
		return buf.Bytes(), discarded, errors.Wrap(err, "reading program output")
	}
	if writeErr != nil {
		return buf.Bytes(), discarded, writeErr
	}

	return buf.Bytes(), discarded, nil
}

// Wait closes the parent's pipe ends and waits for the program to exit.
// A non-zero exit status is returned as an error wrapping *exec.ExitError.
// Only the first call waits; later calls return the same result.
func (p *Process) Wait() error {
	p.once.Do(func() {
		p.Stdin.Close()
		p.Stdout.Close()

		if err := p.cmd.Wait(); err != nil {
			p.waitErr = errors.Wrap(err, "waiting for program")
		}
	})

	return p.waitErr
}

// ExitCode returns the program's exit code, or -1 if it hasn't been
// waited on or was killed by a signal.
func (p *Process) ExitCode() int {
	if p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Close kills the program if it's still running and reaps it.
// It's safe to call after Wait and more than once.
func (p *Process) Close() error {
	if p.cmd.ProcessState == nil {
		// Nothing is left to do if it already exited.
		_ = p.cmd.Process.Kill()
	}
	_ = p.Wait()
	return nil
}
