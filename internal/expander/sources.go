package expander

import (
	"fmt"

	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/plannererr"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

// walkSources wires the InstallSource chain for every source spc's build
// declares, sharing the GetSource/CreateSource(OrDownload)/DownloadSource
// subtree across specs when two specs happen to name the same source
// builder. It returns the InstallSource uids ownerUID's build action
// should depend on.
func (c *Context) walkSources(ownerUID string, spc specmodel.Spec, env specmodel.BaseEnv, qualifier string, planLine string) ([]string, error) {
	var preds []string

	for _, src := range spc.SourceList() {
		if src.Builder == nil {
			return nil, plannererr.New(plannererr.KindDependencyShape, spc.Name(),
				fmt.Sprintf("source %q has no resolvable builder", src.Name))
		}

		if existing, ok := c.sources[src.Builder.Name()]; ok && existing.specName != spc.Name() {
			declared := false
			for _, depUID := range c.dependencies[ownerUID] {
				if dep, ok := c.specByUID[depUID]; ok && dep.Name() == existing.specName {
					declared = true
				}
			}
			if !declared {
				c.logger.Warn("source builder shared across specs",
					"builder", src.Builder.Name(), "first_spec", existing.specName, "spec", spc.Name())
			}
		} else {
			c.sources[src.Builder.Name()] = sourceRegistration{specName: spc.Name()}
		}

		getSource := action.GetSource{BuilderName: src.Builder.Name()}
		if !c.Tree.Contains(getSource.UID()) {
			if err := c.buildGetSource(src.Builder); err != nil {
				return nil, err
			}
		}

		install := action.InstallSource{
			SelfUID:    ownerUID + "." + src.Name + ".install",
			SpecUID:    ownerUID,
			SourceName: src.Name,
		}
		if err := c.connect(install, getSource.UID()); err != nil {
			return nil, err
		}
		preds = append(preds, install.UID())
	}

	return preds, nil
}

// buildGetSource adds the GetSource subtree for a builder the first time
// it is referenced: a CreateSourceOrDownload decision between locally
// assembling it (if the builder is managed, i.e. has repositories to
// check out) and downloading it prebuilt, or a bare DownloadSource node
// when the builder is unmanaged and can only ever be downloaded.
func (c *Context) buildGetSource(builder specmodel.SourceBuilder) error {
	getSource := action.GetSource{BuilderName: builder.Name()}
	download := action.DownloadSource{BuilderName: builder.Name()}

	if !builder.Managed() {
		if err := c.connect(download); err != nil {
			return err
		}
		return c.connect(getSource, download.UID())
	}

	var checkoutPreds []string
	for _, repo := range builder.Checkout() {
		co, err := c.buildCheckout(builder, repo)
		if err != nil {
			return err
		}
		if err := c.connect(co); err != nil {
			return err
		}
		checkoutPreds = append(checkoutPreds, co.UID())
	}

	create := action.CreateSource{SpecUID: getSource.UID(), SourceName: builder.Name()}
	if err := c.connect(create, checkoutPreds...); err != nil {
		return err
	}
	if err := c.connect(download); err != nil {
		return err
	}

	dec := action.NewCreateSourceOrDownload(getSource.UID(), create, download)
	if err := c.connect(dec); err != nil {
		return err
	}
	c.decisions[dec.UID()] = dec

	return c.connect(getSource, dec.UID())
}

// buildCheckout resolves repoName's "latest" revision sentinel (if any)
// against c.revisions before building the Checkout action, so a "latest"
// pin is always baked into the DAG as a concrete commit, never deferred to
// action execution.
func (c *Context) buildCheckout(builder specmodel.SourceBuilder, repoName string) (action.Checkout, error) {
	repoData := builder.RepoData(repoName)
	if repoData != nil {
		if err := c.revisions.Resolve(c.ctx, repoData); err != nil {
			return action.Checkout{}, plannererr.Wrap(plannererr.KindDependencyShape, repoName, "resolve repository revision", err)
		}
	}
	return action.Checkout{RepoName: repoName, RepoData: repoData}, nil
}

// addSourcePrimitive builds the subtree for an explicit "source" primitive
// request. With no sourceName, CreateSources aggregates one child per
// managed entry in spc.SourcePkgBuilders() (the spec's source_pkg_build
// table) — unmanaged builders are download-only and contribute no locally
// created source package, so they are skipped here entirely. A single
// named source resolves to a CreateSource (managed builder) or
// DownloadSource (unmanaged builder).
func (c *Context) addSourcePrimitive(specUID string, spc specmodel.Spec, env specmodel.BaseEnv, qualifier string, sourceName string, planLine string) (string, error) {
	if sourceName == "" {
		root := action.CreateSources{SpecUID: specUID}

		var managed []string
		for _, b := range spc.SourcePkgBuilders() {
			if b.Managed() {
				managed = append(managed, b.Name())
			}
		}
		if len(managed) == 0 {
			if err := c.connect(root); err != nil {
				return "", err
			}
			return root.UID(), nil
		}

		var preds []string
		for _, name := range managed {
			childUID, err := c.addSourcePrimitive(specUID, spc, env, qualifier, name, "")
			if err != nil {
				return "", err
			}
			preds = append(preds, childUID)
		}
		if err := c.connect(root, preds...); err != nil {
			return "", err
		}
		return root.UID(), nil
	}

	var found specmodel.SourceBuilder
	for _, b := range spc.SourcePkgBuilders() {
		if b.Name() == sourceName {
			found = b
			break
		}
	}
	if found == nil {
		return "", plannererr.New(plannererr.KindPlanShape, spc.Name(),
			fmt.Sprintf("unknown source_name %q", sourceName))
	}

	if !found.Managed() {
		dl := action.DownloadSource{BuilderName: found.Name()}
		if err := c.connect(dl); err != nil {
			return "", err
		}
		return dl.UID(), nil
	}

	var checkoutPreds []string
	for _, repo := range found.Checkout() {
		co, err := c.buildCheckout(found, repo)
		if err != nil {
			return "", err
		}
		if err := c.connect(co); err != nil {
			return "", err
		}
		checkoutPreds = append(checkoutPreds, co.UID())
	}
	root := action.CreateSource{SpecUID: specUID, SourceName: sourceName}
	if err := c.connect(root, checkoutPreds...); err != nil {
		return "", err
	}
	return root.UID(), nil
}
