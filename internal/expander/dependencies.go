package expander

import (
	"fmt"

	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/plannererr"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

// walkDependencies expands every dependency spc declares and returns the
// uids that ownerUID's action should depend on. Dependencies of kind
// "source" contribute no predecessor (they are load-only, registering
// source builders for the source-installation walk); "install" and
// "build" kind dependencies each expand their own subtree.
//
// A build-kind dependency whose spec declares a package gets rewritten to
// an install-rooted subtree (the normal way such a dependency is
// consumed: downloaded and installed rather than rebuilt from source).
// Since ownerUID actually needs the dependency's built tree, not merely
// its install, a trigger is registered on the resulting BuildOrDownload
// decision forcing its build side.
func (c *Context) walkDependencies(ownerUID string, spc specmodel.Spec, env specmodel.BaseEnv, qualifier string, planLine string) ([]string, error) {
	var preds []string
	local := make(map[string]string)

	for _, dep := range spc.Dependencies() {
		depEnv := dep.Env(env, c.defaultEnv)
		depQualifier := dep.Qualifier
		if depQualifier == "" {
			depQualifier = qualifier
		}

		kind, err := dep.Require.Kind()
		if err != nil {
			return nil, plannererr.Wrap(plannererr.KindDependencyShape, spc.Name(), "resolving dependency", err)
		}

		switch kind {
		case specmodel.KindSource:
			depUID, err := c.Load(dep.Name, depEnv, depQualifier, action.PrimitiveSource)
			if err != nil {
				return nil, err
			}
			local[dep.LocalName] = depUID

		case specmodel.KindInstall:
			depUID, err := c.Load(dep.Name, depEnv, depQualifier, action.PrimitiveInstall)
			if err != nil {
				return nil, err
			}
			local[dep.LocalName] = depUID
			preds = append(preds, depUID)

		case specmodel.KindBuild:
			depSpec, err := c.repo.Load(dep.Name)
			if err != nil {
				return nil, err
			}

			var depUID string
			if depSpec.HasPackage() {
				depUID, err = c.AddSpec(depSpec, depEnv, depQualifier, action.PrimitiveInstall, "", "", false, true)
				if err != nil {
					return nil, err
				}
				if dec, ok := c.decisions[depUID+".decision"]; ok {
					dec.AddTrigger(ownerUID, action.Left, planLine)
				}
			} else {
				depUID, err = c.AddSpec(depSpec, depEnv, depQualifier, action.PrimitiveBuild, "", "", false, true)
				if err != nil {
					return nil, err
				}
			}
			local[dep.LocalName] = depUID
			preds = append(preds, depUID)

		default:
			return nil, fmt.Errorf("expander: unhandled dependency kind %q", kind)
		}
	}

	if len(local) > 0 {
		if c.dependencies[ownerUID] == nil {
			c.dependencies[ownerUID] = make(map[string]string)
		}
		for name, uid := range local {
			c.dependencies[ownerUID][name] = uid
		}
	}

	return preds, nil
}
