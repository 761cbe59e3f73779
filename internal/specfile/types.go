// Package specfile is the concrete TOML-backed implementation of
// specmodel.Repository/specmodel.Spec, grounded on the teacher's
// internal/recipe package (TOML schema and on-demand loader pattern).
package specfile

import (
	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

// dependencyTOML is the on-disk shape of one [[dependencies]] entry.
type dependencyTOML struct {
	Name           string `toml:"name"`
	ProductVersion string `toml:"product_version"`
	Build          string `toml:"build"`
	Host           string `toml:"host"`
	Target         string `toml:"target"`
	Qualifier      string `toml:"qualifier"`
	LocalName      string `toml:"local_name"`
	Require        string `toml:"require"`
	Track          bool   `toml:"track"`
}

// repoDataTOML is the on-disk shape of one [[source_builders.repos]] entry:
// the VCS metadata for one of that builder's checkout repositories.
type repoDataTOML struct {
	Name     string `toml:"name"`
	Vcs      string `toml:"vcs"`
	URL      string `toml:"url"`
	Revision string `toml:"revision"`
}

// sourceBuilderTOML is the on-disk shape of one [[source_builders]] entry.
type sourceBuilderTOML struct {
	Name     string         `toml:"name"`
	Checkout []string       `toml:"checkout"`
	Managed  bool           `toml:"managed"`
	Repos    []repoDataTOML `toml:"repos"`
}

func (b sourceBuilderTOML) nameOf() string { return b.Name }

// builder adapts sourceBuilderTOML to specmodel.SourceBuilder.
type builder struct {
	name     string
	checkout []string
	managed  bool
	repoData map[string]*specmodel.RepoData
}

func (b *builder) Name() string       { return b.name }
func (b *builder) Checkout() []string { return b.checkout }
func (b *builder) Managed() bool      { return b.managed }

func (b *builder) RepoData(repoName string) *specmodel.RepoData {
	return b.repoData[repoName]
}

// sourceTOML is the on-disk shape of one [[sources]] entry (the spec's
// build_source_list / install_source_list).
type sourceTOML struct {
	Name    string `toml:"name"`
	Dest    string `toml:"dest"`
	Builder string `toml:"builder"`
}

// specTOML is the full on-disk shape of one *.spec.toml file.
type specTOML struct {
	Name           string              `toml:"name"`
	Component      string              `toml:"component"`
	Primitives     []string            `toml:"primitives"`
	Dependencies   []dependencyTOML    `toml:"dependencies"`
	SourceBuilders []sourceBuilderTOML `toml:"source_builders"`
	Sources        []sourceTOML        `toml:"sources"`
}

// spec adapts a parsed specTOML to specmodel.Spec.
type spec struct {
	raw            specTOML
	dependencies   []*specmodel.Dependency
	sourceBuilders map[string]*builder
	sources        []specmodel.Source
}

func (s *spec) Name() string { return s.raw.Name }

func (s *spec) UID(env specmodel.BaseEnv, qualifier string, primitive action.Primitive) string {
	uid := s.raw.Name + "." + string(primitive) + "." + env.Build
	if env.Host != env.Build {
		uid += "." + env.Host
	}
	if env.Target != env.Host {
		uid += "." + env.Target
	}
	if qualifier != "" {
		uid += "?" + qualifier
	}
	return uid
}

func (s *spec) HasPrimitive(p action.Primitive) bool {
	for _, declared := range s.raw.Primitives {
		if declared == string(p) {
			return true
		}
	}
	return false
}

func (s *spec) HasPackage() bool { return s.raw.Component != "" }
func (s *spec) Component() string { return s.raw.Component }

func (s *spec) Dependencies() []*specmodel.Dependency { return s.dependencies }
func (s *spec) SourceList() []specmodel.Source        { return s.sources }

func (s *spec) SourcePkgBuilders() []specmodel.SourceBuilder {
	out := make([]specmodel.SourceBuilder, 0, len(s.raw.SourceBuilders))
	for _, b := range s.raw.SourceBuilders {
		out = append(out, s.sourceBuilders[b.Name])
	}
	return out
}
