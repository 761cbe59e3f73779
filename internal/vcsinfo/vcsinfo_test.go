package vcsinfo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-github/v57/github"

	"github.com/tsukumogami/pkgplan/internal/specmodel"
)

func mockGitHubServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func newTestResolver(t *testing.T, serverURL string) *Resolver {
	t.Helper()
	client, err := github.NewClient(nil).WithEnterpriseURLs(serverURL, serverURL)
	if err != nil {
		t.Fatal(err)
	}
	return &Resolver{client: client}
}

func TestResolve_LeavesConcreteRevisionUntouched(t *testing.T) {
	repo := &specmodel.RepoData{Vcs: "git", URL: "https://github.com/owner/repo", Revision: "abc123"}
	r := New()
	if err := r.Resolve(context.Background(), repo); err != nil {
		t.Fatal(err)
	}
	if repo.Revision != "abc123" {
		t.Fatalf("expected concrete revision to be left untouched, got %q", repo.Revision)
	}
}

func TestResolve_NilRepoDataIsANoop(t *testing.T) {
	r := New()
	if err := r.Resolve(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestResolve_NonGitVcsIsRejected(t *testing.T) {
	repo := &specmodel.RepoData{Vcs: "svn", URL: "https://example.com/repo", Revision: LatestRevision}
	r := New()
	if err := r.Resolve(context.Background(), repo); err == nil {
		t.Fatal("expected an error resolving latest for a non-git repository")
	}
}

func TestResolve_RewritesLatestToDefaultBranchHead(t *testing.T) {
	server := mockGitHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/repos/owner/repo":
			defaultBranch := "main"
			_ = json.NewEncoder(w).Encode(&github.Repository{DefaultBranch: &defaultBranch})
		case r.URL.Path == "/repos/owner/repo/branches/main":
			sha := "deadbeefcafef00d"
			_ = json.NewEncoder(w).Encode(&github.Branch{
				Name:   github.String("main"),
				Commit: &github.RepositoryCommit{SHA: &sha},
			})
		default:
			http.NotFound(w, r)
		}
	})
	defer server.Close()

	repo := &specmodel.RepoData{Vcs: "git", URL: "https://github.com/owner/repo", Revision: LatestRevision}
	r := newTestResolver(t, server.URL)
	if err := r.Resolve(context.Background(), repo); err != nil {
		t.Fatal(err)
	}
	if repo.Revision != "deadbeefcafef00d" {
		t.Fatalf("expected revision rewritten to the branch head SHA, got %q", repo.Revision)
	}
}

func TestResolve_RejectsNonGitHubURL(t *testing.T) {
	repo := &specmodel.RepoData{Vcs: "git", URL: "https://gitlab.com/owner/repo", Revision: LatestRevision}
	r := New()
	if err := r.Resolve(context.Background(), repo); err == nil {
		t.Fatal("expected an error for a non-github.com URL")
	}
}
