package utils

import (
	"testing"
	"time"
)

func TestParseSizeToMB(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"1024", 1024, false},
		{"500M", 500, false},
		{"500mb", 500, false},
		{"4G", 4096, false},
		{" 2gb ", 2048, false},
		{"1T", 1048576, false},
		{"1.5G", 0, true},
		{"lots", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSizeToMB(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSizeToMB(%q) = %d; want error", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSizeToMB(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSizeToMB(%q) = %d; want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"86400", 24 * time.Hour, false},
		{"2h", 2 * time.Hour, false},
		{"1h30m", 90 * time.Minute, false},
		{"02:00:00", 2 * time.Hour, false},
		{"0:30:15", 30*time.Minute + 15*time.Second, false},
		{"2:30", 2*time.Hour + 30*time.Minute, false},
		{"-5", 0, true},
		{"1:2:3:4", 0, true},
		{"a:00", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDuration(%q) = %v; want error", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDuration(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v; want %v", tt.input, got, tt.want)
		}
	}
}

func TestFormatHMS(t *testing.T) {
	tests := map[time.Duration]string{
		0:                "00:00:00",
		90 * time.Second: "00:01:30",
		48 * time.Hour:   "48:00:00",
		time.Hour + 2*time.Minute + 3*time.Second: "01:02:03",
	}
	for d, want := range tests {
		if got := FormatHMS(d); got != want {
			t.Errorf("FormatHMS(%v) = %q; want %q", d, got, want)
		}
	}
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"":           "''",
		"plain":      "'plain'",
		"two words":  "'two words'",
		"it's":       `'it'"'"'s'`,
		"$HOME":      "'$HOME'",
		"a;rm -rf /": "'a;rm -rf /'",
		"new\nline":  "'new\nline'",
	}
	for in, want := range tests {
		if got := ShellQuote(in); got != want {
			t.Errorf("ShellQuote(%q) = %q; want %q", in, got, want)
		}
	}
}
