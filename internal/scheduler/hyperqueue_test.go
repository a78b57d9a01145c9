package scheduler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Justype/hqadapter/internal/utils"
)

// newTestHyperQueueScheduler creates a scheduler with a fake hq path
// so no hq installation is needed
func newTestHyperQueueScheduler() *HyperQueueScheduler {
	return &HyperQueueScheduler{
		hqBin:         "/opt/hq/hq", // fake path for testing
		compactFilter: DefaultCompactFilter,
		caps:          DefaultCapabilities(),
	}
}

// captureOutput silences the printers and returns what went to stderr.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out, errOut bytes.Buffer
	restore := utils.SetOutput(&out, &errOut)
	t.Cleanup(restore)
	return &errOut
}

func mustResource(t *testing.T, cpus int, mem *int) *JobResource {
	t.Helper()
	res, err := NewJobResource(cpus, mem)
	if err != nil {
		t.Fatalf("NewJobResource(%d) failed: %v", cpus, err)
	}
	return res
}

func intPtr(v int) *int { return &v }

func TestHyperQueueSubmitScriptHeader(t *testing.T) {
	hq := newTestHyperQueueScheduler()

	tests := []struct {
		name string
		tmpl *JobTemplate
		want string
	}{
		{
			name: "wallclock cpus and memory",
			tmpl: &JobTemplate{
				MaxWallclockSeconds: 86400,
				Resources:           mustResource(t, 2, intPtr(256)),
			},
			want: "#HQ --time-request=86400s\n#HQ --time-limit=86400s\n#HQ --cpus=2\n#HQ --resource mem=256",
		},
		{
			name: "all fields",
			tmpl: &JobTemplate{
				JobName:             "relax-42",
				SchedOutputPath:     "_scheduler-stdout.txt",
				SchedErrorPath:      "_scheduler-stderr.txt",
				MaxWallclockSeconds: 60,
				Priority:            5,
				Resources:           mustResource(t, 4, intPtr(1024)),
			},
			want: strings.Join([]string{
				`#HQ --name="relax-42"`,
				"#HQ --stdout=_scheduler-stdout.txt",
				"#HQ --stderr=_scheduler-stderr.txt",
				"#HQ --time-request=60s",
				"#HQ --time-limit=60s",
				"#HQ --priority=5",
				"#HQ --cpus=4",
				"#HQ --resource mem=1024",
			}, "\n"),
		},
		{
			name: "cpus only",
			tmpl: &JobTemplate{Resources: mustResource(t, 1, nil)},
			want: "#HQ --cpus=1",
		},
		{
			name: "explicit zero memory is rendered",
			tmpl: &JobTemplate{Resources: mustResource(t, 1, intPtr(0))},
			want: "#HQ --cpus=1\n#HQ --resource mem=0",
		},
		{
			name: "negative priority",
			tmpl: &JobTemplate{Priority: -3, Resources: mustResource(t, 1, nil)},
			want: "#HQ --priority=-3\n#HQ --cpus=1",
		},
		{
			name: "quotes in name are escaped",
			tmpl: &JobTemplate{JobName: `say "hi"`, Resources: mustResource(t, 1, nil)},
			want: `#HQ --name="say \"hi\""` + "\n#HQ --cpus=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hq.SubmitScriptHeader(tt.tmpl)
			if got != tt.want {
				t.Errorf("SubmitScriptHeader() =\n%s\nwant:\n%s", got, tt.want)
			}
			if again := hq.SubmitScriptHeader(tt.tmpl); again != got {
				t.Errorf("SubmitScriptHeader() not deterministic:\n%s\nvs\n%s", got, again)
			}
		})
	}
}

func TestHyperQueueHeaderWithoutMemory(t *testing.T) {
	hq := newTestHyperQueueScheduler()
	for _, cpus := range []int{1, 2, 16, 128} {
		header := hq.SubmitScriptHeader(&JobTemplate{
			JobName:             "job",
			MaxWallclockSeconds: 3600,
			Resources:           mustResource(t, cpus, nil),
		})
		if strings.Contains(header, "mem=") || strings.Contains(header, "--resource") {
			t.Errorf("header for cpus=%d contains a memory directive:\n%s", cpus, header)
		}
	}
}

func TestHyperQueueCommands(t *testing.T) {
	hq := newTestHyperQueueScheduler()

	if got, want := hq.SubmitCommand("_hqsubmit.sh"), "/opt/hq/hq submit --output-mode=json _hqsubmit.sh"; got != want {
		t.Errorf("SubmitCommand() = %q; want %q", got, want)
	}

	list, err := hq.JobListCommand(nil, "")
	if err != nil {
		t.Fatalf("JobListCommand() error: %v", err)
	}
	if want := "/opt/hq/hq job list --filter waiting,running --output-mode=json"; list != want {
		t.Errorf("JobListCommand() = %q; want %q", list, want)
	}

	listIDs, err := hq.JobListCommand([]string{"1", "2"}, "")
	if err != nil {
		t.Fatalf("JobListCommand(ids) error: %v", err)
	}
	if listIDs != list {
		t.Errorf("JobListCommand(ids) = %q; want %q", listIDs, list)
	}

	if got, want := hq.KillCommand("7"), "/opt/hq/hq job cancel '7'"; got != want {
		t.Errorf("KillCommand() = %q; want %q", got, want)
	}

	info := hq.DetailedJobInfoCommand("7")
	if !strings.HasPrefix(info, "/opt/hq/hq job info '7' --output-mode json | ") {
		t.Errorf("DetailedJobInfoCommand() = %q", info)
	}
	if got, want := hq.KillCommand("1; touch /tmp/x"), `/opt/hq/hq job cancel '1; touch /tmp/x'`; got != want {
		t.Errorf("KillCommand() = %q; want %q", got, want)
	}
	if got := hq.DetailedJobInfoCommand("1 && rm x"); !strings.Contains(got, "job info '1 && rm x' ") {
		t.Errorf("DetailedJobInfoCommand() = %q", got)
	}
	if !strings.HasSuffix(info, DefaultCompactFilter) {
		t.Errorf("DetailedJobInfoCommand() missing compact filter: %q", info)
	}
}

func TestHyperQueueJobListByUser(t *testing.T) {
	hq := newTestHyperQueueScheduler()
	cmd, err := hq.JobListCommand(nil, "alice")
	if err == nil {
		t.Fatalf("JobListCommand(user) = %q; want error", cmd)
	}
	if !IsFeatureNotAvailable(err) {
		t.Errorf("error type = %T; want *FeatureNotAvailableError", err)
	}
	if !errors.Is(err, ErrQueryByUser) {
		t.Errorf("errors.Is(err, ErrQueryByUser) = false; err = %v", err)
	}
}

func TestHyperQueueParseSubmitOutput(t *testing.T) {
	hq := newTestHyperQueueScheduler()

	tests := []struct {
		name    string
		retval  int
		stdout  string
		stderr  string
		wantID  string
		wantErr error
	}{
		{name: "numeric id", stdout: `{"id": 1}`, wantID: "1"},
		{name: "string id", stdout: `{"id": "15"}`, wantID: "15"},
		{name: "trailing newline", stdout: "{\"id\": 123}\n", wantID: "123"},
		{name: "zero id", stdout: `{"id": 0}`, wantID: "0"},
		{name: "stderr is only a warning", stdout: `{"id": 3}`, stderr: "deprecated flag", wantID: "3"},
		{name: "missing id", stdout: `{"job": 1}`, wantErr: ErrJobIDParseFailed},
		{name: "null id", stdout: `{"id": null}`, wantErr: ErrJobIDParseFailed},
		{name: "not json", stdout: "Job submitted successfully, job ID: 1", wantErr: ErrJobIDParseFailed},
		{name: "empty", stdout: "", wantErr: ErrJobIDParseFailed},
		{name: "trailing garbage", stdout: `{"id":1} junk`, wantErr: ErrJobIDParseFailed},
		{name: "two documents", stdout: "{\"id\":1}\n{\"id\":2}", wantErr: ErrJobIDParseFailed},
		{name: "negative id", stdout: `{"id": -3}`, wantErr: ErrJobIDParseFailed},
		{name: "non-zero exit", retval: 1, stdout: `{"id": 1}`, stderr: "boom", wantErr: ErrNonZeroExit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			id, err := hq.ParseSubmitOutput(tt.retval, tt.stdout, tt.stderr)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("ParseSubmitOutput() = %q; want error", id)
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseSubmitOutput() error = %v; want %v", err, tt.wantErr)
				}
				if !IsSchedulerError(err) {
					t.Errorf("error type = %T; want *SchedulerError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSubmitOutput() error: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("ParseSubmitOutput() = %q; want %q", id, tt.wantID)
			}
		})
	}
}

func TestHyperQueueParseSubmitOutputKeepsStreams(t *testing.T) {
	hq := newTestHyperQueueScheduler()
	captureOutput(t)

	_, err := hq.ParseSubmitOutput(1, `{"id": 9}`, "server not running")
	var se *SchedulerError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v; want *SchedulerError", err)
	}
	if se.ExitCode != 1 {
		t.Errorf("ExitCode = %d; want 1", se.ExitCode)
	}
	if se.Stdout != `{"id": 9}` {
		t.Errorf("Stdout = %q", se.Stdout)
	}
	if se.Stderr != "server not running" {
		t.Errorf("Stderr = %q", se.Stderr)
	}
	if !strings.Contains(se.Error(), "server not running") {
		t.Errorf("Error() does not mention stderr: %s", se.Error())
	}
}

func TestHyperQueueParseSubmitOutputWarnsOnStderr(t *testing.T) {
	hq := newTestHyperQueueScheduler()
	errOut := captureOutput(t)

	if _, err := hq.ParseSubmitOutput(0, `{"id": 4}`, "some noise"); err != nil {
		t.Fatalf("ParseSubmitOutput() error: %v", err)
	}
	if !strings.Contains(errOut.String(), "some noise") {
		t.Errorf("expected a warning mentioning stderr, got %q", errOut.String())
	}
}

func TestHyperQueueParseJobListOutput(t *testing.T) {
	hq := newTestHyperQueueScheduler()

	tests := []struct {
		name   string
		stdout string
		want   []JobInfo
	}{
		{
			name:   "single waiting job",
			stdout: `[{"id":1,"name":"bash","task_count":1,"task_stats":{"waiting":1}}]`,
			want:   []JobInfo{{JobID: "1", Title: "bash", State: JobStateQueued, RawState: "WAITING"}},
		},
		{
			name:   "empty list",
			stdout: "[]",
			want:   []JobInfo{},
		},
		{
			name: "zero counts are ignored",
			stdout: `[{"id":2,"name":"pw","task_count":1,
				"task_stats":{"canceled":0,"failed":0,"finished":0,"running":1,"waiting":0}}]`,
			want: []JobInfo{{JobID: "2", Title: "pw", State: JobStateRunning, RawState: "RUNNING"}},
		},
		{
			name: "inconsistent entry is kept undetermined",
			stdout: `[
				{"id":1,"name":"a","task_count":1,"task_stats":{"waiting":1}},
				{"id":2,"name":"b","task_count":1,"task_stats":{"waiting":1,"running":1}},
				{"id":3,"name":"c","task_count":1,"task_stats":{"running":1}}
			]`,
			want: []JobInfo{
				{JobID: "1", Title: "a", State: JobStateQueued, RawState: "WAITING"},
				{JobID: "2", Title: "b", State: JobStateUndetermined, RawState: "RUNNING,WAITING", Inconsistent: true},
				{JobID: "3", Title: "c", State: JobStateRunning, RawState: "RUNNING"},
			},
		},
		{
			name: "multi-task job is kept undetermined",
			stdout: `[
				{"id":5,"name":"array","task_count":4,"task_stats":{"running":4}},
				{"id":6,"name":"single","task_count":1,"task_stats":{"finished":1}}
			]`,
			want: []JobInfo{
				{JobID: "5", Title: "array", State: JobStateUndetermined, RawState: "RUNNING", Inconsistent: true},
				{JobID: "6", Title: "single", State: JobStateDone, RawState: "FINISHED"},
			},
		},
		{
			name:   "missing task count",
			stdout: `[{"id":4,"name":"renamed","tasks":1,"task_stats":{"running":1}}]`,
			want:   []JobInfo{{JobID: "4", Title: "renamed", State: JobStateUndetermined, RawState: "RUNNING", Inconsistent: true}},
		},
		{
			name: "unreadable entry keeps its id, entries without one are dropped",
			stdout: `[
				{"id":"x","name":7,"task_count":"one"},
				{"name":"no-id","task_count":1,"task_stats":{"waiting":1}},
				{"id":[8],"name":"bad-id","task_count":1,"task_stats":{"waiting":1}},
				{"id":8,"name":"ok","task_count":1,"task_stats":{"waiting":1}}
			]`,
			want: []JobInfo{
				{JobID: "x", State: JobStateUndetermined, Inconsistent: true},
				{JobID: "8", Title: "ok", State: JobStateQueued, RawState: "WAITING"},
			},
		},
		{
			name:   "terminal states collapse to done",
			stdout: `[{"id":10,"name":"f","task_count":1,"task_stats":{"failed":1}},{"id":11,"name":"c","task_count":1,"task_stats":{"canceled":1}}]`,
			want: []JobInfo{
				{JobID: "10", Title: "f", State: JobStateDone, RawState: "FAILED"},
				{JobID: "11", Title: "c", State: JobStateDone, RawState: "CANCELED"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			got, err := hq.ParseJobListOutput(0, tt.stdout, "")
			if err != nil {
				t.Fatalf("ParseJobListOutput() error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseJobListOutput() returned %d jobs; want %d (%+v)", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("job[%d] = %+v; want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestHyperQueueParseJobListOutputErrors(t *testing.T) {
	hq := newTestHyperQueueScheduler()

	tests := []struct {
		name    string
		retval  int
		stdout  string
		wantErr error
	}{
		{name: "non-zero exit", retval: 1, stdout: "[]", wantErr: ErrNonZeroExit},
		{name: "not an array", stdout: `{"id":1}`, wantErr: ErrMalformedOutput},
		{name: "not json", stdout: "no jobs", wantErr: ErrMalformedOutput},
		{name: "empty output", stdout: "", wantErr: ErrMalformedOutput},
		{
			name:    "unknown state",
			stdout:  `[{"id":1,"name":"bash","task_count":1,"task_stats":{"paused":1}}]`,
			wantErr: ErrUnknownState,
		},
		{
			name: "unknown state alongside a known one",
			stdout: `[{"id":1,"name":"ok","task_count":1,"task_stats":{"waiting":1}},
				{"id":2,"name":"bad","task_count":1,"task_stats":{"running":1,"PAUSED":1}}]`,
			wantErr: ErrUnknownState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			jobs, err := hq.ParseJobListOutput(tt.retval, tt.stdout, "")
			if err == nil {
				t.Fatalf("ParseJobListOutput() = %+v; want error", jobs)
			}
			if !IsSchedulerError(err) {
				t.Errorf("error type = %T; want *SchedulerError", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v; want %v", err, tt.wantErr)
			}
			if jobs != nil {
				t.Errorf("jobs = %+v; want nil on error", jobs)
			}
		})
	}
}

func TestHyperQueueParseJobListUnknownStateIsParseError(t *testing.T) {
	hq := newTestHyperQueueScheduler()
	captureOutput(t)
	_, err := hq.ParseJobListOutput(0, `[{"id":1,"name":"x","task_count":1,"task_stats":{"paused":1}}]`, "")
	if !IsParseError(err) {
		t.Errorf("error = %v; want a wrapped *ParseError", err)
	}
}

func TestHyperQueueParseKillOutput(t *testing.T) {
	hq := newTestHyperQueueScheduler()

	tests := []struct {
		name   string
		retval int
		stdout string
		stderr string
		want   bool
	}{
		{name: "canceled", stderr: "Job 1 canceled", want: true},
		{name: "silent success", want: true},
		{name: "error on stderr", stderr: "ERROR: job not found", want: false},
		{name: "error in the middle", stderr: "2024-01-01 ERROR Job 3 not found", want: false},
		{name: "lowercase error is not a failure", stderr: "error-free run", want: true},
		{name: "non-zero exit", retval: 1, stderr: "connection refused", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			if got := hq.ParseKillOutput(tt.retval, tt.stdout, tt.stderr); got != tt.want {
				t.Errorf("ParseKillOutput(%d, %q) = %v; want %v", tt.retval, tt.stderr, got, tt.want)
			}
		})
	}
}

func TestHyperQueueParseDetailedJobInfoOutput(t *testing.T) {
	hq := newTestHyperQueueScheduler()

	t.Run("array with failed task", func(t *testing.T) {
		captureOutput(t)
		stdout := `[{"info":{"id":3,"name":"pw","task_count":1},"tasks":[{"id":0,"state":"failed","error":"Program terminated with exit code 137"}]}]`
		info := hq.ParseDetailedJobInfoOutput("3", 0, stdout, "")
		if !info.Decoded {
			t.Fatalf("Decoded = false; DecodeErr = %s", info.DecodeErr)
		}
		if info.Name != "pw" {
			t.Errorf("Name = %q; want pw", info.Name)
		}
		if len(info.Tasks) != 1 || info.Tasks[0].ID != "0" {
			t.Fatalf("Tasks = %+v", info.Tasks)
		}
		if got := info.RemoteStates(); len(got) != 1 || got[0] != "FAILED" {
			t.Errorf("RemoteStates() = %v; want [FAILED]", got)
		}
		if got := info.FailureCause(); got != "Program terminated with exit code 137" {
			t.Errorf("FailureCause() = %q", got)
		}
		if info.Stdout != stdout {
			t.Errorf("raw stdout not kept")
		}
	})

	t.Run("single object with state object", func(t *testing.T) {
		captureOutput(t)
		stdout := `{"info":{"id":4,"name":"bash"},"tasks":[{"id":0,"state":{"state":"canceled"}}]}`
		info := hq.ParseDetailedJobInfoOutput("4", 0, stdout, "")
		if !info.Decoded {
			t.Fatalf("Decoded = false; DecodeErr = %s", info.DecodeErr)
		}
		if got := info.FailureCause(); got != "CANCELED" {
			t.Errorf("FailureCause() = %q; want CANCELED", got)
		}
	})

	t.Run("finished task has no failure cause", func(t *testing.T) {
		captureOutput(t)
		info := hq.ParseDetailedJobInfoOutput("5", 0, `[{"info":{"id":5},"tasks":[{"id":0,"state":"finished"}]}]`, "")
		if got := info.FailureCause(); got != "" {
			t.Errorf("FailureCause() = %q; want empty", got)
		}
	})

	t.Run("undecodable output is kept raw", func(t *testing.T) {
		captureOutput(t)
		info := hq.ParseDetailedJobInfoOutput("6", 0, "Job 6 not found", "")
		if info.Decoded {
			t.Error("Decoded = true; want false")
		}
		if info.DecodeErr == "" {
			t.Error("DecodeErr is empty")
		}
		if info.Stdout != "Job 6 not found" {
			t.Errorf("Stdout = %q", info.Stdout)
		}
	})

	t.Run("non-zero exit", func(t *testing.T) {
		captureOutput(t)
		info := hq.ParseDetailedJobInfoOutput("7", 2, "", "no server")
		if info.Decoded || info.Retval != 2 || info.Stderr != "no server" {
			t.Errorf("info = %+v", info)
		}
	})
}

func TestNewHyperQueueSchedulerWithOptions(t *testing.T) {
	tests := []struct {
		name       string
		opts       HyperQueueOptions
		wantBin    string
		wantNoHT   bool
		wantErr    bool
		wantFilter string
	}{
		{name: "defaults", wantBin: "hq", wantNoHT: true, wantFilter: DefaultCompactFilter},
		{name: "old version", opts: HyperQueueOptions{Binary: "/usr/local/bin/hq", Version: "0.12.0"}, wantBin: "/usr/local/bin/hq", wantNoHT: false, wantFilter: DefaultCompactFilter},
		{name: "new version", opts: HyperQueueOptions{Version: "v0.19.0", CompactFilter: "jq -c ."}, wantBin: "hq", wantNoHT: true, wantFilter: "jq -c ."},
		{name: "bad version", opts: HyperQueueOptions{Version: "latest"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewHyperQueueSchedulerWithOptions(tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %+v", tt.opts)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			info := s.GetInfo()
			if info.Type != SchedulerName {
				t.Errorf("Type = %q; want %q", info.Type, SchedulerName)
			}
			if info.Binary != tt.wantBin {
				t.Errorf("Binary = %q; want %q", info.Binary, tt.wantBin)
			}
			if s.Capabilities().NoHyperThreadingFlag != tt.wantNoHT {
				t.Errorf("NoHyperThreadingFlag = %v; want %v", s.Capabilities().NoHyperThreadingFlag, tt.wantNoHT)
			}
			if s.compactFilter != tt.wantFilter {
				t.Errorf("compactFilter = %q; want %q", s.compactFilter, tt.wantFilter)
			}
		})
	}
}

// Compile-time check that HyperQueueScheduler satisfies Scheduler.
var _ Scheduler = (*HyperQueueScheduler)(nil)
