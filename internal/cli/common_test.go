package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	orizonerrors "github.com/orizon-lang/wfcheck/internal/errors"
	"github.com/orizon-lang/wfcheck/internal/features"
)

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		debug   bool
		want    []string
		absent  []string
	}{
		{"quiet", false, false, []string{"[WARN]", "[ERROR]"}, []string{"[INFO]", "[DEBUG]"}},
		{"verbose", true, false, []string{"[INFO]", "[WARN]"}, []string{"[DEBUG]"}},
		{"debug", false, true, []string{"[DEBUG]", "dump:"}, []string{"[INFO]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			l := NewLogger(&out, tt.verbose, tt.debug)
			l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
			l.Info("info")
			l.Debug("debug")
			l.Warn("warn")
			l.Error("error")
			l.Dump("dump", []string{"T: 'a"})
			got := out.String()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("expected %q in %q", w, got)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(got, a) {
					t.Errorf("expected no %q in %q", a, got)
				}
			}
			if !strings.Contains(got, "03:04:05") {
				t.Errorf("expected timestamp, got %q", got)
			}
		})
	}

	var nilLogger *Logger
	nilLogger.Info("ignored")
	nilLogger.Warn("ignored")
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "yaml",
			data: "jobs: 4\nfeatures: [trivial_bounds]\nformat: json\n",
			check: func(t *testing.T, c *Config) {
				if c.Jobs != 4 || c.Format != "json" || c.RecursionLimit != DefaultRecursionLimit {
					t.Errorf("unexpected config %+v", c)
				}
				fs, err := c.FeatureSet()
				if err != nil || !fs.Enabled(features.TrivialBounds) {
					t.Errorf("expected trivial_bounds enabled, got %v (%v)", fs.Names(), err)
				}
			},
		},
		{
			name: "json",
			data: `{"language_version": "3.1.0", "max_errors": 5}`,
			check: func(t *testing.T, c *Config) {
				fs, _ := c.FeatureSet()
				if c.MaxErrors != 5 || !fs.Enabled(features.ArbitrarySelfTypes) {
					t.Errorf("unexpected config %+v", c)
				}
			},
		},
		{name: "bad color", data: "color: sometimes\n", wantErr: true},
		{name: "bad feature", data: "features: [nope]\n", wantErr: true},
		{name: "bad version", data: "language_version: one\n", wantErr: true},
		{name: "negative jobs", data: "jobs: -1\n", wantErr: true},
		{name: "malformed", data: "jobs: [\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			err := ParseConfig([]byte(tt.data), c)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				var se *orizonerrors.StandardError
				if !errors.As(err, &se) || se.Category != orizonerrors.CategoryConfig {
					t.Errorf("expected a CONFIG error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	c, err := LoadConfig("")
	if err != nil || c.LanguageVersion != features.DefaultLanguageVersion {
		t.Errorf("expected defaults, got %+v (%v)", c, err)
	}

	path := filepath.Join(t.TempDir(), "wfcheck.yaml")
	if err := os.WriteFile(path, []byte("verbose: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = LoadConfig(path)
	if err != nil || !c.Verbose {
		t.Errorf("expected verbose config, got %+v (%v)", c, err)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestPrintVersion(t *testing.T) {
	var out bytes.Buffer
	PrintVersion(&out, "wfcheck", false)
	if !strings.HasPrefix(out.String(), "wfcheck v"+Version) {
		t.Errorf("unexpected version output %q", out.String())
	}
	out.Reset()
	PrintVersion(&out, "wfcheck", true)
	if !strings.Contains(out.String(), `"tool": "wfcheck"`) {
		t.Errorf("unexpected JSON version output %q", out.String())
	}
}
