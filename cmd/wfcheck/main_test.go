package main

import (
	"context"
	"testing"

	"github.com/orizon-lang/wfcheck/internal/cli"
	"github.com/orizon-lang/wfcheck/internal/features"
)

func TestConfigureDefaults(t *testing.T) {
	cfg, err := configure(options{config: "../../examples/wfcheck.yaml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RecursionLimit != cli.DefaultRecursionLimit || cfg.LanguageVersion != features.DefaultLanguageVersion {
		t.Errorf("expected defaults from the example config, got %+v", cfg)
	}
}

func TestCheckExamples(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		features []string
		failed   bool
	}{
		{"scenarios", "../../examples/scenarios.yaml", nil, true},
		{"receivers without the feature", "../../examples/receivers.yaml", nil, true},
		{"receivers with the feature", "../../examples/receivers.yaml", []string{string(features.ArbitrarySelfTypes)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cli.DefaultConfig()
			cfg.Color = "never"
			cfg.Features = tt.features
			failed, err := checkAll(context.Background(), cfg, nil, []string{tt.file})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if failed != tt.failed {
				t.Errorf("expected failed=%v, got %v", tt.failed, failed)
			}
		})
	}
}

func TestCheckMissingFile(t *testing.T) {
	if _, err := checkAll(context.Background(), cli.DefaultConfig(), nil, []string{"does-not-exist.yaml"}); err == nil {
		t.Error("expected an error for a missing file")
	}
}
