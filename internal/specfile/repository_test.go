package specfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tsukumogami/pkgplan/internal/action"
)

func writeSpec(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".spec.toml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCachesByName(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "zlib", `
name = "zlib"
component = "zlib"
primitives = ["build", "install"]
`)
	repo := NewRepository(dir)
	s1, err := repo.Load("zlib")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := repo.Load("zlib")
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Fatal("expected Load to return the cached instance on a second call")
	}
	if !s1.HasPrimitive(action.PrimitiveBuild) {
		t.Fatal("expected zlib to declare the build primitive")
	}
	if !s1.HasPackage() {
		t.Fatal("expected zlib to declare a component")
	}
}

func TestLoadMissingSpecReturnsPlannerError(t *testing.T) {
	repo := NewRepository(t.TempDir())
	if _, err := repo.Load("missing"); err == nil {
		t.Fatal("expected error loading a nonexistent spec")
	}
}

func TestLoadRejectsDuplicateLocalName(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "app", `
name = "app"
primitives = ["build"]

[[dependencies]]
name = "libfoo"
require = "build_tree"
local_name = "dep"

[[dependencies]]
name = "libbar"
require = "build_tree"
local_name = "dep"
`)
	repo := NewRepository(dir)
	if _, err := repo.Load("app"); err == nil {
		t.Fatal("expected error for colliding local_name")
	}
}

func TestDependencyDefaultRequireMapping(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "app", `
name = "app"
primitives = ["build"]

[[dependencies]]
name = "libfoo"
require = "installation"
`)
	repo := NewRepository(dir)
	s, err := repo.Load("app")
	if err != nil {
		t.Fatal(err)
	}
	deps := s.Dependencies()
	if len(deps) != 1 {
		t.Fatalf("expected 1 dependency, got %d", len(deps))
	}
	kind, err := deps[0].Require.Kind()
	if err != nil {
		t.Fatal(err)
	}
	if kind != "install" {
		t.Fatalf("expected install kind, got %s", kind)
	}
}
