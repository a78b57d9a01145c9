package scheduler

// DefaultShebang is used when a template does not set one.
const DefaultShebang = "#!/bin/bash"

// CodeStep is one executable line of the job body.
type CodeStep struct {
	CmdLine   []string // Program and arguments, each quoted individually when rendered
	StdinName string   // Optional file redirected to the step's standard input
}

// JobTemplate is the generic job description handed over by a workflow engine.
// The scheduler only reads it.
type JobTemplate struct {
	JobName             string            // Rendered as --name
	Shebang             string            // First line of the script (DefaultShebang if empty)
	UUID                string            // Unique identifier of the calculation
	Resources           *JobResource      // Validated resource request
	MaxWallclockSeconds int               // 0 means no time request/limit
	Priority            int               // Higher runs earlier; 0 is the HQ default
	SchedOutputPath     string            // Rendered as --stdout
	SchedErrorPath      string            // Rendered as --stderr
	Environment         map[string]string // Exported below the header, sorted by key
	PrependText         string            // Raw text placed before the steps
	AppendText          string            // Raw text placed after the steps
	Steps               []CodeStep        // At least one
}
