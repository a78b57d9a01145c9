package scheduler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Justype/hqadapter/internal/utils"
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTemplate checks what RenderSubmitScript needs before any remote call.
func ValidateTemplate(tmpl *JobTemplate) error {
	if tmpl == nil {
		return NewValidationError("template", "job template is nil")
	}
	if tmpl.Resources == nil {
		return NewValidationError("resources", ErrMissingResources.Error())
	}
	if len(tmpl.Steps) == 0 {
		return NewValidationError("steps", ErrNoSteps.Error())
	}
	for i, step := range tmpl.Steps {
		if len(step.CmdLine) == 0 {
			return NewValidationError("steps", fmt.Sprintf("step %d has an empty command line", i+1))
		}
	}
	if tmpl.MaxWallclockSeconds < 0 {
		return NewValidationError("max_wallclock_seconds", "max_wallclock_seconds must not be negative")
	}
	for name := range tmpl.Environment {
		if !envNamePattern.MatchString(name) {
			return NewValidationError("environment", fmt.Sprintf("invalid environment variable name %q", name))
		}
	}
	return nil
}

// RenderSubmitScript assembles the full job script: shebang, the scheduler
// header, one blank line, then the body. Body sections (exports, prepend
// text, steps, append text) are separated by blank lines when present.
// The result has no trailing newline.
func RenderSubmitScript(s Scheduler, tmpl *JobTemplate) (string, error) {
	if err := ValidateTemplate(tmpl); err != nil {
		return "", err
	}

	shebang := tmpl.Shebang
	if shebang == "" {
		shebang = DefaultShebang
	}

	lines := []string{shebang}
	if header := s.SubmitScriptHeader(tmpl); header != "" {
		lines = append(lines, header)
	}

	var sections []string
	if len(tmpl.Environment) > 0 {
		sections = append(sections, renderExports(tmpl.Environment))
	}
	if text := strings.TrimRight(tmpl.PrependText, "\n"); text != "" {
		sections = append(sections, text)
	}
	steps := make([]string, len(tmpl.Steps))
	for i, step := range tmpl.Steps {
		steps[i] = renderStep(step)
	}
	sections = append(sections, strings.Join(steps, "\n"))
	if text := strings.TrimRight(tmpl.AppendText, "\n"); text != "" {
		sections = append(sections, text)
	}

	lines = append(lines, "")
	lines = append(lines, strings.Join(sections, "\n\n"))
	return strings.Join(lines, "\n"), nil
}

func renderExports(env map[string]string) string {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	exports := make([]string, len(names))
	for i, name := range names {
		exports[i] = fmt.Sprintf("export %s=%s", name, utils.ShellQuote(env[name]))
	}
	return strings.Join(exports, "\n")
}

func renderStep(step CodeStep) string {
	args := make([]string, len(step.CmdLine))
	for i, arg := range step.CmdLine {
		args[i] = utils.ShellQuote(arg)
	}
	line := strings.Join(args, " ")
	if step.StdinName != "" {
		line += " < " + utils.ShellQuote(step.StdinName)
	}
	return line
}
