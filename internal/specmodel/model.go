// Package specmodel defines the data shapes the expander (C4) consumes: a
// Spec's declared primitives, dependencies and source builders, and the
// BaseEnv build/host/target triple every spec instance is evaluated
// against.
//
// The package defines interfaces only; internal/specfile provides the
// concrete TOML-backed implementation (C10).
package specmodel

import (
	"fmt"

	"github.com/tsukumogami/pkgplan/internal/action"
)

// BaseEnv is the build/host/target platform triple a spec instance is
// resolved against.
type BaseEnv struct {
	Build  string
	Host   string
	Target string
}

// DefaultPlatform is the sentinel value a Dependency's platform hint may
// carry, meaning "substitute the context's own default build platform"
// rather than "use the parent's platform for this slot".
const DefaultPlatform = "default"

// Require is the raw platform-relationship keyword a dependency
// declaration names; it maps to a Kind via Require.Kind.
type Require string

const (
	RequireBuildTree   Require = "build_tree"
	RequireInstallation Require = "installation"
	RequireSourcePkg   Require = "source_pkg"
)

// Kind is the resolved dependency category the expander switches on.
type Kind string

const (
	KindBuild   Kind = "build"
	KindInstall Kind = "install"
	KindSource  Kind = "source"
)

// Kind maps a Require keyword to its Kind, or returns an error if r is not
// one of the three recognized values.
func (r Require) Kind() (Kind, error) {
	switch r {
	case RequireBuildTree:
		return KindBuild, nil
	case RequireInstallation:
		return KindInstall, nil
	case RequireSourcePkg:
		return KindSource, nil
	default:
		return "", fmt.Errorf("specmodel: unknown dependency require %q", r)
	}
}

// Dependency is one edge a spec instance declares toward another spec.
type Dependency struct {
	Name           string
	ProductVersion string
	Build          string // platform hint; "", DefaultPlatform, or an explicit platform
	Host           string
	Target         string
	Qualifier      string
	LocalName      string
	Require        Require
	Track          bool
}

// NewDependency validates require and defaults LocalName to Name, matching
// e3.anod.deps.Dependency.__init__.
func NewDependency(name string, require Require, opts ...func(*Dependency)) (*Dependency, error) {
	if _, err := require.Kind(); err != nil {
		return nil, err
	}
	d := &Dependency{Name: name, Require: require, LocalName: name}
	for _, opt := range opts {
		opt(d)
	}
	if d.LocalName == "" {
		d.LocalName = d.Name
	}
	return d, nil
}

// Env resolves the BaseEnv this dependency should be loaded against, given
// the parent spec instance's own env and the context's configured default
// env. Each of build/host/target is resolved independently: the
// DefaultPlatform sentinel substitutes defaultEnv's build platform; an
// explicit hint substitutes the parent's matching platform field; an
// unset hint (empty string) leaves the parent's own platform for that slot
// unchanged.
func (d *Dependency) Env(parent BaseEnv, defaultEnv BaseEnv) BaseEnv {
	out := parent
	resolve := func(hint, parentField string) string {
		switch hint {
		case "":
			return parentField
		case DefaultPlatform:
			return defaultEnv.Build
		default:
			return parentField
		}
	}
	out.Build = resolve(d.Build, parent.Build)
	out.Host = resolve(d.Host, parent.Host)
	out.Target = resolve(d.Target, parent.Target)
	return out
}

// RepoData is the VCS metadata one of a SourceBuilder's checkout
// repositories carries: where to fetch it from and which revision to pin.
// Revision may be the sentinel "latest", meaning "ask the VCS host for the
// default branch's current head" (see internal/vcsinfo); the expander
// resolves that sentinel to a concrete revision before building a Checkout
// action, never at action-execution time.
type RepoData struct {
	Vcs      string // e.g. "git"
	URL      string
	Revision string
}

// SourceBuilder describes how one named set of sources is obtained.
// Managed builders can be assembled locally from Checkout()'s repositories;
// unmanaged builders (Managed() == false) can only ever be downloaded
// prebuilt.
type SourceBuilder interface {
	Name() string
	Checkout() []string
	// RepoData returns the VCS metadata for one of Checkout()'s repository
	// names, or nil if that repository carries none (e.g. a local-only or
	// already-pinned checkout with nothing left to resolve).
	RepoData(repoName string) *RepoData
	Managed() bool
}

// Source is one source a spec declares via its build_source_list /
// install_source_list, together with the builder (once resolved by name)
// that knows how to obtain it.
type Source struct {
	Name    string
	Dest    string
	Builder SourceBuilder
}

// Spec is one loaded package specification, evaluated against a specific
// BaseEnv/qualifier instance. The expander never mutates a Spec; all
// instance-specific state (uid, decisions, etc.) lives in the expander's
// own bookkeeping.
type Spec interface {
	// UID is this spec instance's unique identifier, incorporating name,
	// env, qualifier and primitive per the instance-key memoisation rule.
	UID(env BaseEnv, qualifier string, primitive action.Primitive) string
	Name() string
	HasPrimitive(p action.Primitive) bool
	// HasPackage reports whether this spec declares a component, i.e.
	// whether a successful build produces something uploadable.
	HasPackage() bool
	Component() string
	Dependencies() []*Dependency
	SourceList() []Source
	SourcePkgBuilders() []SourceBuilder
}

// Repository loads Specs by name, on demand.
type Repository interface {
	Load(name string) (Spec, error)
}
