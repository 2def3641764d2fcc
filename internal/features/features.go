// Package features answers which opt-in language extensions are enabled.
// A feature is enabled explicitly by name or implicitly once the
// configured language version satisfies the feature's stabilization
// constraint.
package features

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Feature names an opt-in language extension.
type Feature string

const (
	// ArbitrarySelfTypes relaxes method receivers: any type that
	// dereferences to Self, raw pointers included, is accepted.
	ArbitrarySelfTypes Feature = "arbitrary_self_types"
	// AdtConstParams allows structural-match types as const parameter types.
	AdtConstParams Feature = "adt_const_params"
	// TrivialBounds allows where clauses that mention no parameter and do
	// not hold.
	TrivialBounds Feature = "trivial_bounds"
)

// DefaultLanguageVersion is used when no version is configured.
const DefaultLanguageVersion = "1.0.0"

type definition struct {
	name Feature
	// stable is the language-version constraint under which the feature
	// is on by default; empty for features that never stabilized.
	stable string
}

var known = []definition{
	{name: ArbitrarySelfTypes, stable: ">= 3.0.0"},
	{name: AdtConstParams, stable: ">= 3.0.0"},
	{name: TrivialBounds},
}

// Set is an immutable set of enabled features.
type Set struct {
	version *semver.Version
	enabled map[Feature]bool
}

// New returns the features enabled for a language version plus the
// explicitly named ones. Unknown names are an error.
func New(version string, names ...string) (*Set, error) {
	if version == "" {
		version = DefaultLanguageVersion
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid language version %q: %w", version, err)
	}

	s := &Set{version: v, enabled: make(map[Feature]bool)}
	for _, d := range known {
		if d.stable == "" {
			continue
		}
		c, err := semver.NewConstraint(d.stable)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", d.name, err)
		}
		if c.Check(v) {
			s.enabled[d.name] = true
		}
	}
	for _, n := range names {
		if !isKnown(Feature(n)) {
			return nil, fmt.Errorf("unknown feature %q", n)
		}
		s.enabled[Feature(n)] = true
	}
	return s, nil
}

// None returns a set with every feature disabled.
func None() *Set {
	s, _ := New(DefaultLanguageVersion)
	return s
}

func isKnown(f Feature) bool {
	for _, d := range known {
		if d.name == f {
			return true
		}
	}
	return false
}

// With returns a copy of s with more features enabled.
func (s *Set) With(names ...string) (*Set, error) {
	explicit := append(s.Names(), names...)
	return New(s.version.String(), explicit...)
}

// Enabled reports whether f is on. A nil set has nothing enabled.
func (s *Set) Enabled(f Feature) bool {
	return s != nil && s.enabled[f]
}

// Version returns the configured language version.
func (s *Set) Version() string { return s.version.String() }

// Names returns the enabled features in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.enabled))
	for f := range s.enabled {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}
