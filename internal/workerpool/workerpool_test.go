package workerpool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tsukumogami/pkgplan/internal/dag"
)

func TestDriveVisitsEveryVertexInTopologicalOrder(t *testing.T) {
	d := dag.New()
	must(t, d.AddVertex("a", nil))
	must(t, d.AddVertex("b", nil, "a"))
	must(t, d.AddVertex("c", nil, "a"))
	must(t, d.AddVertex("d", nil, "b", "c"))

	var mu sync.Mutex
	visited := make(map[string]bool)
	var order []string

	err := Drive(context.Background(), d, 2, func(_ context.Context, uid string, _ any) error {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range d.GetPredecessors(uid) {
			if !visited[p] {
				t.Fatalf("visited %q before its predecessor %q", uid, p)
			}
		}
		visited[uid] = true
		order = append(order, uid)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 vertices visited, got %v", order)
	}
}

func TestDrivePropagatesVisitError(t *testing.T) {
	d := dag.New()
	must(t, d.AddVertex("a", nil))
	must(t, d.AddVertex("b", nil, "a"))

	boom := errors.New("boom")
	err := Drive(context.Background(), d, 2, func(_ context.Context, uid string, _ any) error {
		if uid == "a" {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
}

func TestDriveSingleWorkerStillCompletes(t *testing.T) {
	d := dag.New()
	must(t, d.AddVertex("a", nil))
	must(t, d.AddVertex("b", nil, "a"))
	must(t, d.AddVertex("c", nil, "b"))

	count := 0
	err := Drive(context.Background(), d, 1, func(_ context.Context, uid string, _ any) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("expected 3 visits, got %d", count)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
