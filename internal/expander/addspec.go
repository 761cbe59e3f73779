package expander

import (
	"fmt"

	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/plannererr"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

// AddSpec expands one spec instance into the tree and returns the uid of
// the action that represents it (an AnodAction for build/test/install, or
// a CreateSources/CreateSource/DownloadSource for primitive=="source").
// explicit is true when this call originates from a plan entry rather than
// from a dependency walk, which controls whether an install request
// against a package-less spec is a hard error or a silent rewrite to
// build. expandBuild is true unless the caller already resolved the
// build/install split itself (the install primitive's own build-branch
// recursion passes false, since the spec it calls back into is by
// definition the same packaged spec that would otherwise be rewritten
// straight back to install).
func (c *Context) AddSpec(spc specmodel.Spec, env specmodel.BaseEnv, qualifier string, primitive action.Primitive, sourceName string, planLine string, explicit bool, expandBuild bool) (string, error) {
	if primitive == action.PrimitiveInstall && !spc.HasPackage() {
		if explicit {
			return "", plannererr.New(plannererr.KindPlanShape, spc.Name(),
				"install was requested for a spec with no package; request build instead")
		}
		primitive = action.PrimitiveBuild
	}

	// A build request against a spec that declares a package implicitly
	// also produces that package's install: the real subtree rooted here
	// is install, with build on its decision's forced-build side.
	if expandBuild && primitive == action.PrimitiveBuild && spc.HasPackage() {
		return c.AddSpec(spc, env, qualifier, action.PrimitiveInstall, sourceName, planLine, explicit, true)
	}

	key := instanceKey{name: spc.Name(), env: env, qualifier: qualifier, primitive: primitive}
	if primitive == action.PrimitiveSource {
		key.qualifier = qualifier + "\x00" + sourceName
	}
	if cached, ok := c.cache[key]; ok {
		if err := c.linkToPlan(cached, planLine); err != nil {
			return "", err
		}
		return cached, nil
	}

	specUID := spc.UID(env, qualifier, primitive)
	c.specByUID[specUID] = spc

	var rootUID string
	var err error
	if primitive == action.PrimitiveSource {
		rootUID, err = c.addSourcePrimitive(specUID, spc, env, qualifier, sourceName, planLine)
	} else {
		rootUID, err = c.addPrimitiveAction(specUID, spc, env, qualifier, primitive, planLine)
	}
	if err != nil {
		return "", err
	}

	c.cache[key] = rootUID
	if err := c.linkToPlan(rootUID, planLine); err != nil {
		return "", err
	}
	return rootUID, nil
}

// addPrimitiveAction builds the AnodAction subtree for build/test/install.
func (c *Context) addPrimitiveAction(specUID string, spc specmodel.Spec, env specmodel.BaseEnv, qualifier string, primitive action.Primitive, planLine string) (string, error) {
	root := action.AnodAction{SpecUID: specUID, Primitive: primitive}

	depPreds, err := c.walkDependencies(specUID, spc, env, qualifier, planLine)
	if err != nil {
		return "", err
	}

	switch primitive {
	case action.PrimitiveBuild:
		srcPreds, err := c.walkSources(specUID, spc, env, qualifier, planLine)
		if err != nil {
			return "", err
		}
		if err := c.connect(root, append(depPreds, srcPreds...)...); err != nil {
			return "", err
		}
		return root.UID(), nil

	case action.PrimitiveTest:
		if err := c.connect(root, depPreds...); err != nil {
			return "", err
		}
		return root.UID(), nil

	case action.PrimitiveInstall:
		preds := append([]string{}, depPreds...)
		download := action.DownloadBinary{SpecUID: specUID}

		if spc.HasPrimitive(action.PrimitiveBuild) {
			buildUID, err := c.AddSpec(spc, env, qualifier, action.PrimitiveBuild, "", "", false, false)
			if err != nil {
				return "", err
			}
			buildAction := action.AnodAction{SpecUID: buildUID, Primitive: action.PrimitiveBuild}
			if err := c.connect(download); err != nil {
				return "", err
			}
			dec := action.NewBuildOrDownload(specUID, buildAction, download, qualifier, env.Build, env.Host, env.Target)
			if err := c.connect(dec); err != nil {
				return "", err
			}
			c.decisions[dec.UID()] = dec
			preds = append(preds, dec.UID())
		} else {
			if err := c.connect(download); err != nil {
				return "", err
			}
			preds = append(preds, download.UID())
		}

		if err := c.connect(root, preds...); err != nil {
			return "", err
		}
		return root.UID(), nil

	default:
		return "", fmt.Errorf("expander: unhandled primitive %q", primitive)
	}
}
