package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Justype/hqadapter/internal/scheduler"
)

const yamlTemplate = `
job_name: relax-si
uuid: 3f1c2a9e-0000-4000-8000-000000000001
resources:
  num_cpus: 4
  memory_mb: 2048
max_wallclock_seconds: "02:00:00"
priority: 5
environment:
  OMP_NUM_THREADS: "4"
prepend_text: module load qe
steps:
  - cmdline: [pw.x, -in, scf.in]
    stdin_name: ""
`

func TestParseJobTemplateYAML(t *testing.T) {
	tmpl, notices, err := ParseJobTemplate([]byte(yamlTemplate))
	if err != nil {
		t.Fatalf("ParseJobTemplate() error: %v", err)
	}
	if len(notices) != 0 {
		t.Errorf("notices = %v", notices)
	}
	if tmpl.JobName != "relax-si" || tmpl.Priority != 5 || tmpl.MaxWallclockSeconds != 7200 {
		t.Errorf("template = %+v", tmpl)
	}
	if tmpl.Resources.NumCpus() != 4 {
		t.Errorf("NumCpus() = %d", tmpl.Resources.NumCpus())
	}
	if mem, ok := tmpl.Resources.Memory(); !ok || mem != 2048 {
		t.Errorf("Memory() = %d, %v", mem, ok)
	}
	if tmpl.Environment["OMP_NUM_THREADS"] != "4" {
		t.Errorf("Environment = %v", tmpl.Environment)
	}
	if len(tmpl.Steps) != 1 || strings.Join(tmpl.Steps[0].CmdLine, " ") != "pw.x -in scf.in" {
		t.Errorf("Steps = %+v", tmpl.Steps)
	}
}

func TestLoadJobTemplateJSONLegacyResources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.json")
	content := `{
  "resources": {"num_machines": 2, "num_mpiprocs_per_machine": 8},
  "max_wallclock_seconds": 3600,
  "steps": [{"cmdline": ["echo", "hi"]}]
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tmpl, notices, err := LoadJobTemplate(path)
	if err != nil {
		t.Fatalf("LoadJobTemplate() error: %v", err)
	}
	if tmpl.Resources.NumCpus() != 16 {
		t.Errorf("NumCpus() = %d; want 16", tmpl.Resources.NumCpus())
	}
	if len(notices) != 1 || !strings.Contains(notices[0], "deprecated") {
		t.Errorf("notices = %v", notices)
	}
	if tmpl.MaxWallclockSeconds != 3600 {
		t.Errorf("MaxWallclockSeconds = %d", tmpl.MaxWallclockSeconds)
	}
	if tmpl.UUID == "" {
		t.Error("UUID was not generated")
	}
}

func TestParseJobTemplateErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no resources", "steps:\n  - cmdline: [ls]\n"},
		{"string cpus", "resources:\n  num_cpus: \"2\"\nsteps:\n  - cmdline: [ls]\n"},
		{"no steps", "resources:\n  num_cpus: 1\n"},
		{"bad wallclock", "resources:\n  num_cpus: 1\nmax_wallclock_seconds: later\nsteps:\n  - cmdline: [ls]\n"},
		{"fractional wallclock", "resources:\n  num_cpus: 1\nmax_wallclock_seconds: 1.5\nsteps:\n  - cmdline: [ls]\n"},
		{"bad env name", "resources:\n  num_cpus: 1\nenvironment:\n  1BAD: x\nsteps:\n  - cmdline: [ls]\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := ParseJobTemplate([]byte(c.content))
			var verr *scheduler.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error = %v; want ValidationError", err)
			}
		})
	}
}

func TestLoadJobTemplateUnsupportedExtension(t *testing.T) {
	if _, _, err := LoadJobTemplate("job.toml"); err == nil {
		t.Error("expected error for .toml template")
	}
}

func TestResourceOverrides(t *testing.T) {
	base := "resources:\n  num_cpus: 2\n  memory_mb: 100\nsteps:\n  - cmdline: [ls]\n"
	tests := []struct {
		name     string
		o        ResourceOverrides
		wantCpus int
		wantMem  int
		wantErr  bool
	}{
		{"none", ResourceOverrides{}, 2, 100, false},
		{"cpus", ResourceOverrides{Cpus: 8}, 8, 100, false},
		{"memory", ResourceOverrides{Memory: "4G"}, 2, 4096, false},
		{"both", ResourceOverrides{Cpus: 1, Memory: "512"}, 1, 512, false},
		{"bad memory", ResourceOverrides{Memory: "lots"}, 0, 0, true},
		{"negative cpus", ResourceOverrides{Cpus: -1}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, _, err := ParseJobTemplate([]byte(base))
			if err != nil {
				t.Fatal(err)
			}
			err = tt.o.Apply(tmpl)
			if tt.wantErr {
				if !scheduler.IsValidationError(err) {
					t.Errorf("Apply() error = %v; want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply() error: %v", err)
			}
			mem, _ := tmpl.Resources.Memory()
			if tmpl.Resources.NumCpus() != tt.wantCpus || mem != tt.wantMem {
				t.Errorf("resources = %d cpus, %d MB; want %d, %d", tmpl.Resources.NumCpus(), mem, tt.wantCpus, tt.wantMem)
			}
		})
	}
}
