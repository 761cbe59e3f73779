package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/expander"
	"github.com/tsukumogami/pkgplan/internal/specfile"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

func writeSpec(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".spec.toml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func defaultEnv() specmodel.BaseEnv {
	return specmodel.BaseEnv{Build: "x86_64-linux", Host: "x86_64-linux", Target: "x86_64-linux"}
}

func neverResolve(*action.Decision) (action.Choice, bool) { return action.Left, false }

func TestSchedule_NoDecisionsPassesThrough(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "zlib", `
name = "zlib"
primitives = ["build"]
`)
	repo := specfile.NewRepository(dir)
	ctx := expander.New(repo, defaultEnv())
	uid, err := ctx.AddPlanAction(expander.PlanEntry{Name: "zlib", Primitive: action.PrimitiveBuild})
	if err != nil {
		t.Fatal(err)
	}

	out, err := Schedule(ctx.Tree, ctx.Decisions(), neverResolve)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Contains(uid) {
		t.Fatalf("expected %q to survive scheduling", uid)
	}
}

func TestSchedule_ResolvesInstallToDownload(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "zlib", `
name = "zlib"
component = "zlib"
primitives = ["build", "install"]
`)
	repo := specfile.NewRepository(dir)
	ctx := expander.New(repo, defaultEnv())
	uid, err := ctx.AddPlanAction(expander.PlanEntry{Name: "zlib", Primitive: action.PrimitiveInstall})
	if err != nil {
		t.Fatal(err)
	}

	out, err := Schedule(ctx.Tree, ctx.Decisions(), func(dec *action.Decision) (action.Choice, bool) {
		if dec.DescribeRight == "install" {
			return action.Right, true
		}
		return action.Left, false
	})
	if err != nil {
		t.Fatal(err)
	}

	preds := out.GetPredecessors(uid)
	if len(preds) != 1 {
		t.Fatalf("expected install to depend on exactly one resolved predecessor, got %v", preds)
	}
	if a, ok := out.VertexData[preds[0]].(action.Action); !ok || a.Kind() != action.KindDownloadBinary {
		t.Fatalf("expected the decision to resolve to DownloadBinary, got %v", out.VertexData[preds[0]])
	}
	for uid := range out.VertexData {
		if a, ok := out.VertexData[uid].(action.Action); ok && a.Kind() == action.KindDecision {
			t.Fatalf("expected no Decision vertices left in the execution graph, found %q", uid)
		}
	}
}

func TestSchedule_TriggerForcesBuildSideOverResolverDefault(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "toolchain", `
name = "toolchain"
component = "toolchain"
primitives = ["build", "install"]
`)
	writeSpec(t, dir, "app", `
name = "app"
primitives = ["build"]

[[dependencies]]
name = "toolchain"
require = "build_tree"
`)
	repo := specfile.NewRepository(dir)
	ctx := expander.New(repo, defaultEnv())
	if _, err := ctx.AddPlanAction(expander.PlanEntry{Name: "app", Primitive: action.PrimitiveBuild}); err != nil {
		t.Fatal(err)
	}

	alwaysDownload := func(dec *action.Decision) (action.Choice, bool) { return action.Right, true }
	out, err := Schedule(ctx.Tree, ctx.Decisions(), alwaysDownload)
	if err != nil {
		t.Fatal(err)
	}

	toolchainBuildUID := "toolchain.build.x86_64-linux"
	if !out.Contains(toolchainBuildUID) {
		t.Fatalf("expected the dependency trigger to force toolchain's build side into the execution graph")
	}
}

func TestSchedule_UnresolvedDecisionIsReported(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "zlib", `
name = "zlib"
component = "zlib"
primitives = ["build", "install"]
`)
	repo := specfile.NewRepository(dir)
	ctx := expander.New(repo, defaultEnv())
	if _, err := ctx.AddPlanAction(expander.PlanEntry{Name: "zlib", Primitive: action.PrimitiveInstall}); err != nil {
		t.Fatal(err)
	}

	if _, err := Schedule(ctx.Tree, ctx.Decisions(), neverResolve); err == nil {
		t.Fatal("expected an error when no resolver and no trigger can resolve the decision")
	}
}

func TestAlwaysDownloadBinary_ResolvesInstallOnlyRequestToDownload(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "zlib", `
name = "zlib"
component = "zlib"
primitives = ["build", "install"]
`)
	repo := specfile.NewRepository(dir)
	ctx := expander.New(repo, defaultEnv())
	uid, err := ctx.AddPlanAction(expander.PlanEntry{Name: "zlib", Primitive: action.PrimitiveInstall})
	if err != nil {
		t.Fatal(err)
	}

	out, err := Schedule(ctx.Tree, ctx.Decisions(), Combine(AlwaysDownloadSource, AlwaysDownloadBinary))
	if err != nil {
		t.Fatal(err)
	}
	preds := out.GetPredecessors(uid)
	if len(preds) != 1 {
		t.Fatalf("expected exactly one resolved predecessor, got %v", preds)
	}
	if a, ok := out.VertexData[preds[0]].(action.Action); !ok || a.Kind() != action.KindDownloadBinary {
		t.Fatalf("expected the decision to resolve to DownloadBinary, got %v", out.VertexData[preds[0]])
	}
}

func TestAlwaysBuildLocally_ResolvesInstallOnlyRequestToBuild(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "zlib", `
name = "zlib"
component = "zlib"
primitives = ["build", "install"]
`)
	repo := specfile.NewRepository(dir)
	ctx := expander.New(repo, defaultEnv())
	uid, err := ctx.AddPlanAction(expander.PlanEntry{Name: "zlib", Primitive: action.PrimitiveInstall})
	if err != nil {
		t.Fatal(err)
	}

	out, err := Schedule(ctx.Tree, ctx.Decisions(), Combine(AlwaysCreateSource, AlwaysBuildLocally))
	if err != nil {
		t.Fatal(err)
	}
	preds := out.GetPredecessors(uid)
	if len(preds) != 1 {
		t.Fatalf("expected exactly one resolved predecessor, got %v", preds)
	}
	if a, ok := out.VertexData[preds[0]].(action.Action); !ok || a.Kind() != action.KindBuild {
		t.Fatalf("expected the decision to resolve to a build action, got %v", out.VertexData[preds[0]])
	}
}

func TestCombine_FallsThroughToLaterResolverWhenEarlierDeclines(t *testing.T) {
	dec := &action.Decision{RootUID: "x", DescribeLeft: "build", DescribeRight: "install"}
	resolve := Combine(AlwaysDownloadSource, AlwaysDownloadBinary)
	choice, ok := resolve(dec)
	if !ok || choice != action.Right {
		t.Fatalf("expected the second resolver to pick up what the first declined, got (%v, %v)", choice, ok)
	}
}

func TestCombine_DeclinesWhenEveryResolverDeclines(t *testing.T) {
	dec := &action.Decision{RootUID: "x", DescribeLeft: "something_else", DescribeRight: "something_else"}
	resolve := Combine(AlwaysDownloadSource, AlwaysDownloadBinary)
	if _, ok := resolve(dec); ok {
		t.Fatal("expected Combine to decline when every resolver it wraps declines")
	}
}

func TestSchedule_UploadDependsOnlyOnItsOwnProducer(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "zlib", `
name = "zlib"
component = "zlib"
primitives = ["build"]
`)
	writeSpec(t, dir, "unrelated", `
name = "unrelated"
primitives = ["build"]
`)
	repo := specfile.NewRepository(dir)
	ctx := expander.New(repo, defaultEnv())
	if _, err := ctx.AddAnodAction("zlib", defaultEnv(), action.PrimitiveBuild, "", false, true, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.AddAnodAction("unrelated", defaultEnv(), action.PrimitiveBuild, "", false, false, ""); err != nil {
		t.Fatal(err)
	}

	out, err := Schedule(ctx.Tree, ctx.Decisions(), neverResolve)
	if err != nil {
		t.Fatal(err)
	}

	var uploadUID string
	for uid, data := range out.VertexData {
		if a, ok := data.(action.Action); ok && action.IsUpload(a.Kind()) {
			uploadUID = uid
		}
	}
	if uploadUID == "" {
		t.Fatal("expected an upload vertex in the execution graph")
	}

	// zlib declares a component, so the explicit build request expanded
	// into install-with-a-forced-build-decision (see AddSpec's
	// build-implies-install rewrite); the upload publishes that install,
	// and nothing else — the unrelated spec's build must not appear here.
	want := []string{"zlib.install.x86_64-linux"}
	got := out.GetPredecessors(uploadUID)
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("expected the upload's only predecessor to be %v, got %v", want, got)
	}
}
