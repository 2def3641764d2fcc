package features

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		explicit  []string
		enabled   []Feature
		disabled  []Feature
		expectErr bool
	}{
		{
			name:     "default version",
			disabled: []Feature{ArbitrarySelfTypes, AdtConstParams, TrivialBounds},
		},
		{
			name:     "explicit feature",
			explicit: []string{"arbitrary_self_types"},
			enabled:  []Feature{ArbitrarySelfTypes},
			disabled: []Feature{AdtConstParams},
		},
		{
			name:     "stabilized by version",
			version:  "3.1.0",
			enabled:  []Feature{ArbitrarySelfTypes, AdtConstParams},
			disabled: []Feature{TrivialBounds},
		},
		{name: "unknown feature", explicit: []string{"specialization"}, expectErr: true},
		{name: "bad version", version: "three", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.version, tt.explicit...)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, f := range tt.enabled {
				if !s.Enabled(f) {
					t.Errorf("expected %s to be enabled", f)
				}
			}
			for _, f := range tt.disabled {
				if s.Enabled(f) {
					t.Errorf("expected %s to be disabled", f)
				}
			}
		})
	}
}

func TestWith(t *testing.T) {
	s, err := None().With("trivial_bounds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Enabled(TrivialBounds) {
		t.Error("expected trivial_bounds to be enabled")
	}
	if got := s.Names(); len(got) != 1 || got[0] != "trivial_bounds" {
		t.Errorf("expected [trivial_bounds], got %v", got)
	}

	var nilSet *Set
	if nilSet.Enabled(TrivialBounds) {
		t.Error("expected nil set to have nothing enabled")
	}
}
