// Package wfcheck verifies that every declaration of a crate is
// well-formed: field, signature and where-clause types must satisfy the
// obligations their use implies, generic associated types must declare the
// outlives bounds their trait relies on, method receivers must dereference
// to Self, and a handful of declaration-shape rules must hold.
//
// Declarations are checked independently and in parallel. Each check owns
// a session that collects obligations, resolves them against the
// declaration's environment and reports what failed. Diagnostics are
// buffered per declaration and merged in declaration order.
package wfcheck

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/wfcheck/internal/cli"
	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	apperrors "github.com/orizon-lang/wfcheck/internal/errors"
	"github.com/orizon-lang/wfcheck/internal/features"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
	"github.com/orizon-lang/wfcheck/internal/variance"
)

// Options configure a Driver.
type Options struct {
	// Features enabled on top of the ones the crate declares itself.
	Features *features.Set
	// Jobs bounds the number of declarations checked at once; 0 means
	// GOMAXPROCS.
	Jobs int
	// RecursionLimit bounds solver and autoderef depth; 0 means the
	// solver default.
	RecursionLimit int
	// MaxErrors truncates the diagnostic list; 0 keeps everything.
	MaxErrors int
	Logger    *cli.Logger
}

// Driver runs the well-formedness pass over a crate.
type Driver struct {
	crate *hir.Crate
	opts  Options
}

// NewDriver creates a driver for crate.
func NewDriver(crate *hir.Crate, opts Options) *Driver {
	return &Driver{crate: crate, opts: opts}
}

// Result is the outcome of a run.
type Result struct {
	// Diagnostics in declaration order, then emission order.
	Diagnostics []*diagnostic.Diagnostic
	// ErrorCount includes errors dropped by MaxErrors.
	ErrorCount int
	failed     map[ty.DefID]bool
}

// Failed reports whether the declaration, or an item reported while
// checking it, produced an error. Body checking should be skipped for such
// declarations.
func (r *Result) Failed(def ty.DefID) bool { return r.failed[def] }

// HasErrors reports whether any declaration failed.
func (r *Result) HasErrors() bool { return r.ErrorCount > 0 }

// checker holds what every check of one run shares. All of it is read-only
// or safe for concurrent use.
type checker struct {
	crate    *hir.Crate
	solver   *traits.Solver
	features *features.Set
	variance *variance.Table
	log      *cli.Logger
}

// units returns the declarations to check in declaration order. Trait and
// impl items are checked on their own, right after their container.
func (d *Driver) units() []hir.Node {
	var out []hir.Node
	for _, n := range d.crate.Items() {
		out = append(out, n)
		switch n := n.(type) {
		case *hir.Trait:
			for _, it := range n.Items {
				out = append(out, it)
			}
		case *hir.Impl:
			for _, it := range n.Items {
				out = append(out, it)
			}
		}
	}
	return out
}

// Run checks every declaration. The error is reserved for host failures:
// an unknown feature, cancellation, or an internal invariant violation.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	fs := d.opts.Features
	if fs == nil {
		fs = features.None()
	}
	fs, err := fs.With(d.crate.Features...)
	if err != nil {
		return nil, fmt.Errorf("crate %s: %w", d.crate.Name, err)
	}

	ck := &checker{
		crate:    d.crate,
		solver:   traits.NewSolver(d.crate, d.opts.RecursionLimit),
		features: fs,
		variance: variance.Compute(d.crate),
		log:      d.opts.Logger,
	}
	ck.log.Debug("features: %v (language %s)", fs.Names(), fs.Version())

	units := d.units()
	bufs := make([]diagnostic.Buffer, len(units))

	jobs := d.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, u := range units {
		i, u := i, u
		g.Go(func() (err error) {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					err = apperrors.Internal(fmt.Sprintf("checking %s: %v", u.ID(), r))
				}
			}()
			ck.log.Debug("checking %s", u.ID())
			u.Accept(&itemChecker{ck: ck, sink: &bufs[i]})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	engine := diagnostic.NewDiagnosticEngine(diagnostic.DiagnosticConfig{MaxErrors: d.opts.MaxErrors})
	res := &Result{failed: make(map[ty.DefID]bool)}
	for i, u := range units {
		for _, diag := range bufs[i].Diagnostics() {
			engine.Emit(diag)
		}
		if bufs[i].HasErrors() {
			res.failed[u.ID()] = true
			for _, diag := range bufs[i].Diagnostics() {
				if diag.IsError() {
					res.failed[ty.DefID(diag.Item)] = true
				}
			}
		}
	}
	res.Diagnostics = engine.GetDiagnostics()
	res.ErrorCount = engine.ErrorCount()

	ck.log.Info("checked %d declarations of %s in %v: %d errors, %d failed",
		len(units), d.crate.Name, time.Since(start).Round(time.Microsecond), res.ErrorCount, len(res.failed))
	return res, nil
}

// itemChecker dispatches one declaration to its check.
type itemChecker struct {
	ck   *checker
	sink diagnostic.Sink
}

func (v *itemChecker) VisitAdt(a *hir.Adt) {
	v.ck.checkTypeDefn(a, v.sink)
	v.ck.checkParamsWF(a, v.sink)
}

func (v *itemChecker) VisitTrait(t *hir.Trait) {
	v.ck.checkTrait(t, v.sink)
	v.ck.checkParamsWF(t, v.sink)
}

func (v *itemChecker) VisitImpl(i *hir.Impl) {
	v.ck.checkImplItem(i, v.sink)
	v.ck.checkParamsWF(i, v.sink)
}

func (v *itemChecker) VisitFn(f *hir.Fn) {
	v.ck.checkItemFn(f, v.sink)
	v.ck.checkParamsWF(f, v.sink)
}

func (v *itemChecker) VisitStatic(s *hir.Static) {
	v.ck.checkItemType(s, v.sink)
}

func (v *itemChecker) VisitAssocItem(a *hir.AssocItem) {
	if a.InTrait {
		v.ck.checkTraitItem(a, v.sink)
	} else {
		v.ck.checkAssociatedItem(a, v.sink)
	}
	v.ck.checkParamsWF(a, v.sink)
}

// Foreign types have nothing to check.
func (v *itemChecker) VisitForeignType(*hir.ForeignType) {}

// emit reports a diagnostic that is not tied to a session.
func (ck *checker) emit(sink diagnostic.Sink, def ty.DefID, b *diagnostic.DiagnosticBuilder) {
	b.Item(string(def)).Emit(sink)
}
