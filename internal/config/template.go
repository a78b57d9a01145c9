package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/utils"
)

// templateFile mirrors the on-disk job template. yaml.v3 keeps key case,
// which matters for environment variable names; JSON parses as YAML.
type templateFile struct {
	JobName             string            `yaml:"job_name"`
	Shebang             string            `yaml:"shebang"`
	UUID                string            `yaml:"uuid"`
	Resources           map[string]any    `yaml:"resources"`
	MaxWallclockSeconds any               `yaml:"max_wallclock_seconds"`
	Priority            int               `yaml:"priority"`
	SchedOutputPath     string            `yaml:"sched_output_path"`
	SchedErrorPath      string            `yaml:"sched_error_path"`
	Environment         map[string]string `yaml:"environment"`
	PrependText         string            `yaml:"prepend_text"`
	AppendText          string            `yaml:"append_text"`
	Steps               []struct {
		CmdLine   []string `yaml:"cmdline"`
		StdinName string   `yaml:"stdin_name"`
	} `yaml:"steps"`
}

// LoadJobTemplate reads a job template from a YAML or JSON file.
//
// Resources go through scheduler.ValidateResources; its deprecation notices
// are returned to the caller unchanged. A missing uuid gets a random one.
// max_wallclock_seconds accepts seconds or any form utils.ParseDuration knows.
func LoadJobTemplate(path string) (*scheduler.JobTemplate, []string, error) {
	if !utils.IsYaml(path) && !utils.IsJSON(path) {
		return nil, nil, fmt.Errorf("unsupported template format %q (want .yaml, .yml or .json)", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read job template: %w", err)
	}
	return ParseJobTemplate(data)
}

// ParseJobTemplate is LoadJobTemplate on in-memory content.
func ParseJobTemplate(data []byte) (*scheduler.JobTemplate, []string, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("invalid job template: %w", err)
	}

	if len(f.Resources) == 0 {
		return nil, nil, scheduler.NewValidationError("resources", "job template has no resources")
	}
	res, notices, err := scheduler.ValidateResources(scheduler.ResourceFields(f.Resources))
	if err != nil {
		return nil, nil, err
	}

	wallclock, err := wallclockSeconds(f.MaxWallclockSeconds)
	if err != nil {
		return nil, nil, err
	}

	tmpl := &scheduler.JobTemplate{
		JobName:             f.JobName,
		Shebang:             f.Shebang,
		UUID:                f.UUID,
		Resources:           res,
		MaxWallclockSeconds: wallclock,
		Priority:            f.Priority,
		SchedOutputPath:     f.SchedOutputPath,
		SchedErrorPath:      f.SchedErrorPath,
		Environment:         f.Environment,
		PrependText:         f.PrependText,
		AppendText:          f.AppendText,
	}
	if tmpl.UUID == "" {
		tmpl.UUID = uuid.New().String()
	}
	for _, s := range f.Steps {
		tmpl.Steps = append(tmpl.Steps, scheduler.CodeStep{CmdLine: s.CmdLine, StdinName: s.StdinName})
	}

	if err := scheduler.ValidateTemplate(tmpl); err != nil {
		return nil, notices, err
	}
	return tmpl, notices, nil
}

func wallclockSeconds(raw any) (int, error) {
	switch val := raw.(type) {
	case nil:
		return 0, nil
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return 0, nil
		}
		d, err := utils.ParseDuration(val)
		if err != nil {
			return 0, scheduler.NewValidationError("max_wallclock_seconds", err.Error())
		}
		return int(d.Seconds()), nil
	case int:
		return val, nil
	case float64:
		if val != float64(int(val)) {
			return 0, scheduler.NewValidationError("max_wallclock_seconds", "max_wallclock_seconds must be whole seconds")
		}
		return int(val), nil
	default:
		return 0, scheduler.NewValidationError("max_wallclock_seconds", fmt.Sprintf("unsupported value %v", raw))
	}
}

// ResourceOverrides replaces parts of a template's resources from the
// command line. Zero values keep what the template asked for.
type ResourceOverrides struct {
	Cpus   int
	Memory string // "4G", "500M" or plain MB
}

// Apply swaps tmpl.Resources for a resource request carrying the overrides.
func (o ResourceOverrides) Apply(tmpl *scheduler.JobTemplate) error {
	if o.Cpus == 0 && o.Memory == "" {
		return nil
	}
	cpus := tmpl.Resources.NumCpus()
	if o.Cpus != 0 {
		cpus = o.Cpus
	}
	var mem *int
	if mb, ok := tmpl.Resources.Memory(); ok {
		mem = &mb
	}
	if o.Memory != "" {
		mb, err := utils.ParseSizeToMB(o.Memory)
		if err != nil {
			return scheduler.NewValidationError(scheduler.FieldMemoryMB, err.Error())
		}
		mem = &mb
	}
	res, err := scheduler.NewJobResource(cpus, mem)
	if err != nil {
		return err
	}
	tmpl.Resources = res
	return nil
}
