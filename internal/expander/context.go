// Package expander implements the recursive DAG-expansion algorithm (C4):
// given plan entries naming specs and primitives, it builds the full
// action DAG (dependencies, source assembly, build/install/test
// primitives, and the decisions between alternative subtrees) grounded on
// e3.anod.context.AnodContext.
package expander

import (
	"context"
	"fmt"

	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/dag"
	"github.com/tsukumogami/pkgplan/internal/log"
	"github.com/tsukumogami/pkgplan/internal/plannererr"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

// RevisionResolver resolves a repository's "latest" revision sentinel to a
// concrete one before a Checkout action is built for it. internal/vcsinfo
// is the production implementation; expansion never blocks on network I/O
// unless a Context is configured with one via WithRevisionResolver.
type RevisionResolver interface {
	Resolve(ctx context.Context, repo *specmodel.RepoData) error
}

// noopRevisionResolver leaves repo_data untouched, including any "latest"
// sentinel. It is the default so that expansion over specs with no pinned
// repo_data (the common case in tests and for managed builders with no VCS
// metadata at all) never requires network access.
type noopRevisionResolver struct{}

func (noopRevisionResolver) Resolve(context.Context, *specmodel.RepoData) error { return nil }

// instanceKey is the memoisation key for a loaded/expanded spec instance,
// matching spec.md's (name, build, host, target, qualifier, kind) tuple.
type instanceKey struct {
	name      string
	env       specmodel.BaseEnv
	qualifier string
	primitive action.Primitive
}

// sourceRegistration records which spec declared a given source builder
// name, so the source-installation walk can tell an undeclared-dependency
// source apart from one registered by a spec the requesting spec declares
// as a direct dependency.
type sourceRegistration struct {
	specName string
}

// Context is the expansion state: the DAG under construction plus the
// bookkeeping tables spec.md §3.3 names (spec cache, dependencies map,
// sources map).
type Context struct {
	repo             specmodel.Repository
	defaultEnv       specmodel.BaseEnv
	rejectDuplicates bool
	logger           log.Logger
	revisions        RevisionResolver
	ctx              context.Context

	Tree *dag.DAG

	cache        map[instanceKey]string // instance key -> root uid
	specByUID    map[string]specmodel.Spec
	dependencies map[string]map[string]string // spec uid -> local_name -> dependency spec uid
	sources      map[string]sourceRegistration
	decisions    map[string]*action.Decision // decision root uid -> Decision
	planLines    map[string]string           // uid -> plan line that first tagged it
}

// Option configures a new Context.
type Option func(*Context)

// WithLogger overrides the default no-op logger.
func WithLogger(l log.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithRejectDuplicates enables spec.md's duplicate-plan-line conflict
// detection: two different plan lines producing the same action uid is an
// error rather than a silent last-write-wins.
func WithRejectDuplicates(reject bool) Option {
	return func(c *Context) { c.rejectDuplicates = reject }
}

// WithRevisionResolver overrides the default no-op RevisionResolver, e.g.
// with vcsinfo.New() to resolve "latest" repo_data sentinels against
// GitHub during expansion.
func WithRevisionResolver(r RevisionResolver) Option {
	return func(c *Context) { c.revisions = r }
}

// WithContext overrides the context.Context passed to the RevisionResolver
// for the remainder of this Context's expansion calls, e.g. to carry a
// deadline or cancellation over AddPlanAction. Defaults to
// context.Background().
func WithContext(ctx context.Context) Option {
	return func(c *Context) { c.ctx = ctx }
}

// New returns an empty expansion Context rooted at a single Root action.
func New(repo specmodel.Repository, defaultEnv specmodel.BaseEnv, opts ...Option) *Context {
	c := &Context{
		repo:         repo,
		defaultEnv:   defaultEnv,
		logger:       log.NewNoop(),
		revisions:    noopRevisionResolver{},
		ctx:          context.Background(),
		Tree:         dag.New(),
		cache:        make(map[instanceKey]string),
		specByUID:    make(map[string]specmodel.Spec),
		dependencies: make(map[string]map[string]string),
		sources:      make(map[string]sourceRegistration),
		decisions:    make(map[string]*action.Decision),
		planLines:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	must := c.Tree.AddVertex(action.RootUID, action.Root{})
	if must != nil {
		panic("expander: adding the root vertex cannot fail: " + must.Error())
	}
	return c
}

// Decisions returns every Decision node added during expansion, keyed by
// its uid, for the scheduler to resolve.
func (c *Context) Decisions() map[string]*action.Decision { return c.decisions }

// connect adds a into the tree (if not already present) with the given
// predecessors, which must already be in the tree.
func (c *Context) connect(a action.Action, predecessors ...string) error {
	uid := a.UID()
	if c.Tree.Contains(uid) {
		return c.Tree.UpdateVertex(uid, a, true, predecessors...)
	}
	return c.Tree.AddVertex(uid, a, predecessors...)
}

// linkToPlan tags uid with planLine, the way e3.anod.context.link_to_plan
// does. If rejectDuplicates is enabled and uid is already tagged with a
// different plan line, it returns a KindDAGInvariant PlannerError quoting
// both lines.
func (c *Context) linkToPlan(uid, planLine string) error {
	if planLine == "" {
		return nil
	}
	if existing, ok := c.planLines[uid]; ok {
		if existing != planLine && c.rejectDuplicates {
			return plannererr.New(plannererr.KindDAGInvariant, uid,
				fmt.Sprintf("plan line %q conflicts with earlier plan line %q for the same action", planLine, existing))
		}
		return nil
	}
	c.planLines[uid] = planLine
	c.Tree.AddTag(uid, planLine)
	return nil
}

// Load resolves the spec instance named by (name, env, qualifier,
// primitive): if a matching instance has already been expanded, its
// cached root uid is returned without doing any further work; otherwise
// the spec is loaded from the repository and, for primitive=="source",
// only its source_pkg_build builders are registered (no action node is
// created) — this is the "source-kind dependencies are load-only" rule.
// Any other primitive recurses into AddSpec to build the full subtree.
func (c *Context) Load(name string, env specmodel.BaseEnv, qualifier string, primitive action.Primitive) (string, error) {
	key := instanceKey{name: name, env: env, qualifier: qualifier, primitive: primitive}
	if uid, ok := c.cache[key]; ok {
		return uid, nil
	}

	spc, err := c.repo.Load(name)
	if err != nil {
		return "", err
	}

	if primitive == action.PrimitiveSource {
		// Load-only: register this spec's source builders so later
		// source-installation walks can resolve them by name, but add no
		// vertex — a source-kind dependency contributes no action.
		uid := spc.UID(env, qualifier, primitive)
		for _, b := range spc.SourcePkgBuilders() {
			c.sources[b.Name()] = sourceRegistration{specName: name}
		}
		c.specByUID[uid] = spc
		c.cache[key] = uid
		return uid, nil
	}

	return c.AddSpec(spc, env, qualifier, primitive, "", "", false, true)
}
