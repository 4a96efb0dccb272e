// Package ffmpeg drives the ffmpeg and ffprobe binaries.
//
// Every invocation goes through a CommandRunner so a cancelled context kills the
// child process and tests can substitute canned output. Stderr is kept because
// ffmpeg reports both failures and loudnorm measurements there.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// stderrTailBytes bounds how much of a failing tool's stderr is kept in errors.
const stderrTailBytes = 2048

// CommandRunner executes a program and returns its captured output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.Bytes(), stderr.Bytes(), ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), stderr.Bytes(), &ToolError{
			Tool:     name,
			Args:     args,
			ExitCode: exitCode,
			Stderr:   tail(stderr.String(), stderrTailBytes),
			Err:      err,
		}
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// ToolError is returned when ffmpeg or ffprobe exits unsuccessfully.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, msg)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
