package models

// ResolvedInvocation is the immutable output of compiling a template
// against runtime inputs: the final prompt, the profile actually selected
// for the run, and the argument vector ready for execution. Created fresh
// per run, never persisted.
type ResolvedInvocation struct {
	Prompt      string
	ProfileName string
	Profile     *Profile
	Argv        []string

	// Stdin carries the prompt when the profile's mode is "stdin";
	// empty when the prompt rides on the command line.
	Stdin string
}

// InvocationResult captures the outcome of an Invoke call. For a dry run
// no process is spawned and ExitCode is zero.
type InvocationResult struct {
	Invocation ResolvedInvocation
	ExitCode   int
	Stdout     string
	Stderr     string
	DryRun     bool
	Captured   bool

	// RepeatFor and RepeatEvery echo the cadence the run was scheduled
	// with, in their normalized textual form. Empty for one-shot runs.
	RepeatFor   string
	RepeatEvery string
}
