package specfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"github.com/tsukumogami/pkgplan/internal/plannererr"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

// Repository loads *.spec.toml files from a directory on demand, caching
// each by name, matching the teacher's internal/recipe.Loader's
// cache-or-load-from-disk shape.
type Repository struct {
	dir string

	mu    sync.Mutex
	cache map[string]*spec
}

// NewRepository returns a Repository rooted at dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir, cache: make(map[string]*spec)}
}

// Load implements specmodel.Repository.
func (r *Repository) Load(name string) (specmodel.Spec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.cache[name]; ok {
		return s, nil
	}

	path := filepath.Join(r.dir, name+".spec.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, plannererr.Wrap(plannererr.KindSpecLoad, name, fmt.Sprintf("read %s", path), err)
	}

	var raw specTOML
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, plannererr.Wrap(plannererr.KindSpecLoad, name, "parse TOML", err)
	}
	if raw.Name == "" {
		raw.Name = name
	}

	s, err := build(raw)
	if err != nil {
		return nil, err
	}
	r.cache[name] = s
	return s, nil
}

func build(raw specTOML) (*spec, error) {
	s := &spec{raw: raw, sourceBuilders: make(map[string]*builder)}

	for _, b := range raw.SourceBuilders {
		if b.Name == "" {
			return nil, plannererr.New(plannererr.KindSpecLoad, raw.Name, "source builder declared with no name")
		}
		repoData := make(map[string]*specmodel.RepoData, len(b.Repos))
		for _, rd := range b.Repos {
			repoData[rd.Name] = &specmodel.RepoData{Vcs: rd.Vcs, URL: rd.URL, Revision: rd.Revision}
		}
		s.sourceBuilders[b.Name] = &builder{name: b.Name, checkout: b.Checkout, managed: b.Managed, repoData: repoData}
	}

	seenLocalNames := make(map[string]string)
	for _, depRaw := range raw.Dependencies {
		dep, err := specmodel.NewDependency(depRaw.Name, specmodel.Require(depRaw.Require), func(d *specmodel.Dependency) {
			d.ProductVersion = depRaw.ProductVersion
			d.Build = depRaw.Build
			d.Host = depRaw.Host
			d.Target = depRaw.Target
			d.Qualifier = normalizeQualifier(depRaw.Qualifier)
			if depRaw.LocalName != "" {
				d.LocalName = depRaw.LocalName
			}
			d.Track = depRaw.Track
		})
		if err != nil {
			return nil, plannererr.Wrap(plannererr.KindDependencyShape, raw.Name, fmt.Sprintf("dependency %q", depRaw.Name), err)
		}
		if existing, dup := seenLocalNames[dep.LocalName]; dup {
			return nil, plannererr.New(plannererr.KindDependencyShape, raw.Name,
				fmt.Sprintf("local_name %q used by both %q and %q", dep.LocalName, existing, dep.Name))
		}
		seenLocalNames[dep.LocalName] = dep.Name
		s.dependencies = append(s.dependencies, dep)
	}

	for _, srcRaw := range raw.Sources {
		b := s.sourceBuilders[srcRaw.Builder]
		s.sources = append(s.sources, specmodel.Source{
			Name: srcRaw.Name,
			Dest: srcRaw.Dest,
			Builder: func() specmodel.SourceBuilder {
				if b == nil {
					return nil
				}
				return b
			}(),
		})
	}

	return s, nil
}

// normalizeQualifier parses qualifier as a semver constraint when it looks
// like one (e.g. "<2.0", ">=1.4,<2.0") and re-renders it in canonical
// form, so that two dependency declarations whose qualifiers are textually
// different but semantically identical still produce the same spec
// instance uid. It is applied to dependency qualifiers only; a plan
// entry's qualifier is used as written. A
// qualifier that does not parse as a constraint (a plain string tag, the
// common case) is returned unchanged.
func normalizeQualifier(q string) string {
	if q == "" {
		return q
	}
	c, err := semver.NewConstraint(q)
	if err != nil {
		return q
	}
	return c.String()
}
