package util

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// CmdSpec describes an external tool invocation.
type CmdSpec struct {
	Path    string   // Binary path
	Args    []string // Arguments
	Env     []string // Extra KEY=VALUE pairs appended to the inherited environment
	Dir     string   // Working directory; empty = inherit.
	Verbose bool     // Echo the command line and its output to the terminal

	StdoutLine    func(string) // Called for each stdout line (if non-nil)
	StderrLine    func(string) // Called for each stderr line (if non-nil)
	CaptureStdout bool         // Buffer stdout into CmdResult even when StdoutLine is set

	// Discard drops both streams without scanning them. Line callbacks
	// and capture are ignored.
	Discard bool
}

// CmdResult contains captured output and exit status.
type CmdResult struct {
	Stdout []byte
	Stderr []byte
	Code   int
	Err    error
}

// CmdRunner runs external tools. Components take one so tests can
// substitute scripted output for yt-dlp, ffmpeg and spleeter.
type CmdRunner interface {
	Run(ctx context.Context, spec CmdSpec) (CmdResult, error)
}

// RunnerFunc adapts a function to CmdRunner.
type RunnerFunc func(ctx context.Context, spec CmdSpec) (CmdResult, error)

func (f RunnerFunc) Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	return f(ctx, spec)
}

type execRunner struct{}

// NewDefaultRunner returns a CmdRunner backed by os/exec.
func NewDefaultRunner() CmdRunner { return execRunner{} }

func (execRunner) Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	return Run(ctx, spec)
}

// Run executes the command and waits for it. Stderr is always captured
// unless Discard is set. On non-zero exit the returned error carries the
// exit code and CmdResult is still populated.
func Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	if spec.Verbose {
		fmt.Fprintf(os.Stderr, "+ %s\n", ShellQuote(spec.Path, spec.Args))
	}

	if spec.Discard {
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
		return finish(cmd.Run(), nil, nil)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}
	if err := cmd.Start(); err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		captureOut := spec.CaptureStdout || spec.StdoutLine == nil
		scanLines(stdoutPipe, func(line string) {
			if spec.StdoutLine != nil {
				spec.StdoutLine(line)
			}
			if spec.Verbose {
				fmt.Fprintln(os.Stdout, line)
			}
			if captureOut {
				stdoutBuf.WriteString(line)
				stdoutBuf.WriteByte('\n')
			}
		})
	}()
	go func() {
		defer wg.Done()
		scanLines(stderrPipe, func(line string) {
			if spec.StderrLine != nil {
				spec.StderrLine(line)
			}
			if spec.Verbose {
				fmt.Fprintln(os.Stderr, line)
			}
			stderrBuf.WriteString(line)
			stderrBuf.WriteByte('\n')
		})
	}()

	// Readers must drain before Wait closes the pipes.
	wg.Wait()
	return finish(cmd.Wait(), stdoutBuf.Bytes(), stderrBuf.Bytes())
}

// scanLines feeds each line of r to fn. The buffer is sized for the
// single-line JSON documents yt-dlp prints for long videos.
func scanLines(r io.Reader, fn func(string)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		fn(sc.Text())
	}
	// Drain anything left after an over-long line so the child never blocks.
	_, _ = io.Copy(io.Discard, r)
}

func finish(waitErr error, stdout, stderr []byte) (CmdResult, error) {
	res := CmdResult{Stdout: stdout, Stderr: stderr, Err: waitErr}
	if waitErr == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		res.Code = exitErr.ExitCode()
	} else {
		res.Code = -1
	}
	return res, fmt.Errorf("command failed (exit %d): %w", res.Code, waitErr)
}

// ShellQuote renders a command line for logs.
func ShellQuote(path string, args []string) string {
	b := &strings.Builder{}
	b.WriteString(quote(path))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`(){}[]*&;|<>?!%") {
		return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
	}
	return s
}

// LastErrorLine returns the last line of output that starts with "ERROR:",
// falling back to the last non-empty line.
func LastErrorLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimSpace(lines[i])
		if strings.HasPrefix(l, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(l, "ERROR:"))
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
