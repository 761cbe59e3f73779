// Package vcsinfo resolves a Checkout repository's "latest" revision
// sentinel against its VCS host, so the expander can bake a concrete
// commit into the DAG instead of deferring resolution to action execution.
// Grounded on the teacher's internal/version.Resolver: the go-github client
// construction (optional GITHUB_TOKEN authentication) comes from there,
// narrowed to the one GitHub operation this package needs. The hardened
// HTTP transport is internal/httputil's NewSecureClient, which the teacher
// also builds its external-facing clients on.
package vcsinfo

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/tsukumogami/pkgplan/internal/httputil"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

// LatestRevision is the repo_data.revision sentinel meaning "resolve to
// the VCS host's current default-branch head commit".
const LatestRevision = "latest"

// Resolver resolves LatestRevision sentinels against GitHub.
type Resolver struct {
	client *github.Client
}

// New returns a Resolver using httputil's default request timeout. If the
// GITHUB_TOKEN environment variable is set, GitHub requests are
// authenticated with it; otherwise they run unauthenticated and subject
// to GitHub's lower anonymous rate limit.
func New() *Resolver {
	return NewWithTimeout(httputil.DefaultOptions().Timeout)
}

// NewWithTimeout is New with the outbound request timeout overridden,
// e.g. from config.GetAPITimeout().
func NewWithTimeout(timeout time.Duration) *Resolver {
	opts := httputil.DefaultOptions()
	opts.Timeout = timeout
	httpClient := httputil.NewSecureClient(opts)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	return &Resolver{client: github.NewClient(httpClient)}
}

// Resolve rewrites repo.Revision in place when it is the LatestRevision
// sentinel, replacing it with the concrete commit SHA at the GitHub
// repository's default branch head. repo_data whose Revision is already
// concrete, or that is nil, is left untouched. Only repo.Vcs == "git"
// repo_data pointed at a github.com URL can be resolved; anything else is
// an error, since there is no other host this Resolver knows how to ask.
func (r *Resolver) Resolve(ctx context.Context, repo *specmodel.RepoData) error {
	if repo == nil || repo.Revision != LatestRevision {
		return nil
	}
	if repo.Vcs != "git" {
		return fmt.Errorf("vcsinfo: cannot resolve %q revision for a %q repository", LatestRevision, repo.Vcs)
	}

	owner, name, err := parseGitHubURL(repo.URL)
	if err != nil {
		return err
	}

	repository, _, err := r.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("vcsinfo: look up %s/%s: %w", owner, name, err)
	}

	branch, _, err := r.client.Repositories.GetBranch(ctx, owner, name, repository.GetDefaultBranch(), false)
	if err != nil {
		return fmt.Errorf("vcsinfo: resolve default branch %q head for %s/%s: %w",
			repository.GetDefaultBranch(), owner, name, err)
	}

	sha := branch.GetCommit().GetSHA()
	if sha == "" {
		return fmt.Errorf("vcsinfo: %s/%s default branch %q has no head commit", owner, name, repository.GetDefaultBranch())
	}
	repo.Revision = sha
	return nil
}

// parseGitHubURL extracts owner/repo from a github.com repository URL.
func parseGitHubURL(raw string) (owner, name string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("vcsinfo: invalid repository URL %q: %w", raw, err)
	}
	if u.Hostname() != "github.com" {
		return "", "", fmt.Errorf("vcsinfo: %q is not a github.com repository URL", raw)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("vcsinfo: cannot parse owner/repo from %q", raw)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
