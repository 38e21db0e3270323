package runner

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"

	"roleflow/internal/errors"
	"roleflow/internal/models"
)

// Options controls a single invocation.
type Options struct {
	// DryRun returns the would-be command without spawning a process.
	DryRun bool
	// CaptureOutput buffers stdout/stderr instead of inheriting the
	// terminal (used by the AI generation flow).
	CaptureOutput bool
	// PrintCommand echoes the shell-quoted command line to stderr before
	// executing.
	PrintCommand bool
}

// Invoke executes a resolved invocation as a subprocess, feeding the stdin
// payload when the profile delivers the prompt that way, and waits for
// completion. No retries and no timeout: the tool is interactive and the
// child inherits the caller's termination signals.
//
// Dry runs spawn nothing and report exit code zero.
func Invoke(inv models.ResolvedInvocation, opts Options) (*models.InvocationResult, error) {
	result := &models.InvocationResult{
		Invocation: inv,
		DryRun:     opts.DryRun,
		Captured:   opts.CaptureOutput,
	}
	if opts.DryRun {
		return result, nil
	}

	if _, err := exec.LookPath(inv.Argv[0]); err != nil {
		return nil, errors.RunnerNotFound(inv.Argv[0])
	}

	if opts.PrintCommand {
		fmt.Fprintln(os.Stderr, "Executing:", CommandLine(inv.Argv))
	}

	cmd := exec.Command(inv.Argv[0], inv.Argv[1:]...)

	var stdout, stderr bytes.Buffer
	if opts.CaptureOutput {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if inv.Stdin != "" {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRunnerFailed, "failed to open runner stdin")
		}
		if err := cmd.Start(); err != nil {
			return nil, errors.RunnerNotFound(inv.Argv[0]).WithDetails(err.Error())
		}
		if _, err := io.WriteString(stdin, inv.Stdin); err != nil {
			stdin.Close()
			cmd.Wait()
			return nil, errors.Wrap(err, errors.ErrCodeRunnerFailed, "failed to write prompt to runner stdin")
		}
		stdin.Close()
	} else {
		cmd.Stdin = os.Stdin
		if err := cmd.Start(); err != nil {
			return nil, errors.RunnerNotFound(inv.Argv[0]).WithDetails(err.Error())
		}
	}

	err := cmd.Wait()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, errors.Wrap(err, errors.ErrCodeRunnerFailed, "failed to execute runner command")
		}
		result.ExitCode = exitErr.ExitCode()
		// The populated result accompanies the error so callers can
		// still inspect captured output and the exit code.
		return result, errors.RunnerFailed(result.ExitCode)
	}
	return result, nil
}
