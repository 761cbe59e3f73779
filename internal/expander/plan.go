package expander

import (
	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

// PlanEntry is one already-parsed plan action: naming a spec, the
// primitive to run against it, and the env/qualifier to evaluate it
// under. Parsing the plan DSL itself (anod_build(...), anod_install(...),
// ...) into PlanEntry values is left to the caller; AddPlanAction's job
// starts once an entry already exists as data.
type PlanEntry struct {
	Name           string
	Primitive      action.Primitive
	Qualifier      string
	Env            specmodel.BaseEnv
	SourcePackages bool
	Upload         bool
	// Line is the literal plan source line, used for diagnostics and
	// duplicate-action conflict detection.
	Line string
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

// attachToRoot adds uid as a predecessor of the single Root vertex every
// expansion DAG is built under, if it is not already one.
func (c *Context) attachToRoot(uid string) error {
	preds := appendUnique(c.Tree.GetPredecessors(action.RootUID), uid)
	return c.Tree.UpdateVertex(action.RootUID, action.Root{}, true, preds...)
}

// AddAnodAction expands a single top-level request against spec `name`:
// the primitive subtree itself, optionally its source packages, and
// optionally an Upload node publishing the result. It attaches the
// resulting root(s) as predecessors of Root.
func (c *Context) AddAnodAction(name string, env specmodel.BaseEnv, primitive action.Primitive, qualifier string, sourcePackages, upload bool, planLine string) (string, error) {
	spc, err := c.repo.Load(name)
	if err != nil {
		return "", err
	}

	rootUID, err := c.AddSpec(spc, env, qualifier, primitive, "", planLine, true, true)
	if err != nil {
		return "", err
	}
	if err := c.attachToRoot(rootUID); err != nil {
		return "", err
	}

	if err := c.resolveExplicitDecision(rootUID, primitive, planLine); err != nil {
		return "", err
	}

	if sourcePackages {
		srcUID, err := c.AddSpec(spc, env, qualifier, action.PrimitiveSource, "", planLine, true, true)
		if err != nil {
			return "", err
		}
		if err := c.attachToRoot(srcUID); err != nil {
			return "", err
		}
	}

	if upload {
		switch primitive {
		case action.PrimitiveBuild:
			// Only a build that actually declares a component has
			// anything to publish.
			if spc.HasPackage() {
				if err := c.attachUpload(action.UploadBinaryComponent{SpecUID: rootUID}, rootUID); err != nil {
					return "", err
				}
			}
		case action.PrimitiveSource:
			if err := c.attachUpload(action.UploadSourceComponent{SpecUID: rootUID}, rootUID); err != nil {
				return "", err
			}
		}
	}

	return rootUID, nil
}

// attachUpload connects uploadAction as a successor of producerUID and
// attaches it to Root, the way every other top-level request root is.
func (c *Context) attachUpload(uploadAction action.Action, producerUID string) error {
	if err := c.connect(uploadAction, producerUID); err != nil {
		return err
	}
	return c.attachToRoot(uploadAction.UID())
}

// resolveExplicitDecision records that an explicit build or install plan
// entry chose a side of whatever BuildOrDownload decision sits directly
// behind rootUID, the same way a dependency-driven requirement forces a
// side via Decision.AddTrigger/ApplyTriggers. primitive is the request as
// originally made, before AddSpec's build-implies-install rewrite, since
// that rewrite is exactly what a "build" request needs reflected here: the
// decision must resolve to its build side, not sit open for the resolver.
func (c *Context) resolveExplicitDecision(rootUID string, primitive action.Primitive, planLine string) error {
	var choice action.Choice
	switch primitive {
	case action.PrimitiveBuild:
		choice = action.Left
	case action.PrimitiveInstall:
		choice = action.Right
	default:
		return nil
	}
	for _, predUID := range c.Tree.GetPredecessors(rootUID) {
		if dec, ok := c.decisions[predUID]; ok {
			dec.SetDecision(choice, planLine)
		}
	}
	return nil
}

// AddPlanAction expands one already-parsed plan entry, filling unset
// env fields from the context's default build platform the way an
// unqualified anod_build(...) plan call would.
func (c *Context) AddPlanAction(entry PlanEntry) (string, error) {
	env := entry.Env
	if env.Build == "" {
		env.Build = c.defaultEnv.Build
	}
	if env.Host == "" {
		env.Host = env.Build
	}
	if env.Target == "" {
		env.Target = env.Host
	}
	return c.AddAnodAction(entry.Name, env, entry.Primitive, entry.Qualifier, entry.SourcePackages, entry.Upload, entry.Line)
}
