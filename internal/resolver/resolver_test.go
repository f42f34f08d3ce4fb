package resolver

import (
	"context"
	"sync"
	"testing"

	"taskbridge/internal/domain"
	"taskbridge/internal/ports"
)

type fakeDescriber struct {
	mu         sync.Mutex
	calls      int
	containers map[string]ports.Container
	gate       chan struct{} // when set, describe blocks until closed
}

func (f *fakeDescriber) DescribeContainer(ctx context.Context, id string) (ports.Container, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return ports.Container{}, domain.NewNotFound("database", id)
	}
	return c, nil
}

func (f *fakeDescriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestResolveCachesAndTakesFirstSource(t *testing.T) {
	remote := &fakeDescriber{containers: map[string]ports.Container{
		"db-1": {ID: "db-1", Sources: []ports.DataSource{{ID: "res-1", Name: "primary"}, {ID: "res-2"}}},
	}}
	r := New(remote)

	got, err := r.Resolve(context.Background(), "db-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "res-1" {
		t.Fatalf("expected first source res-1, got %q", got)
	}

	// second resolve hits the cache
	if _, err := r.Resolve(context.Background(), "db-1"); err != nil {
		t.Fatal(err)
	}
	if remote.callCount() != 1 {
		t.Fatalf("expected a single describe call, got %d", remote.callCount())
	}

	entry, ok := r.Lookup("db-1")
	if !ok || entry.ResourceID != "res-1" || entry.ResourceName != "primary" {
		t.Fatalf("unexpected cache entry %+v", entry)
	}
}

func TestConcurrentResolveCollapsesToOneCall(t *testing.T) {
	gate := make(chan struct{})
	remote := &fakeDescriber{
		gate: gate,
		containers: map[string]ports.Container{
			"db-1": {ID: "db-1", Sources: []ports.DataSource{{ID: "res-1"}}},
		},
	}
	r := New(remote)

	const n = 16
	results := make(chan string, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Resolve(context.Background(), "db-1")
			results <- id
			errs <- err
		}()
	}

	close(gate)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	for id := range results {
		if id != "res-1" {
			t.Fatalf("unexpected resolution %q", id)
		}
	}
	if remote.callCount() != 1 {
		t.Fatalf("concurrent misses must collapse to one describe call, got %d", remote.callCount())
	}
}

func TestUnknownContainerIsNotCached(t *testing.T) {
	remote := &fakeDescriber{containers: map[string]ports.Container{}}
	r := New(remote)

	_, err := r.Resolve(context.Background(), "nope")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if _, ok := r.Lookup("nope"); ok {
		t.Fatal("failed resolution must not be cached")
	}

	// the next resolve tries the remote again
	_, _ = r.Resolve(context.Background(), "nope")
	if remote.callCount() != 2 {
		t.Fatalf("expected 2 describe calls, got %d", remote.callCount())
	}
}

func TestContainerWithoutSourcesIsResolutionError(t *testing.T) {
	remote := &fakeDescriber{containers: map[string]ports.Container{
		"db-empty": {ID: "db-empty"},
	}}
	r := New(remote)

	_, err := r.Resolve(context.Background(), "db-empty")
	if domain.KindOf(err) != domain.KindResolution {
		t.Fatalf("expected resolution error, got %v", err)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	remote := &fakeDescriber{containers: map[string]ports.Container{
		"db-1": {ID: "db-1", Sources: []ports.DataSource{{ID: "res-1"}}},
	}}
	r := New(remote)

	if _, err := r.Resolve(context.Background(), "db-1"); err != nil {
		t.Fatal(err)
	}
	r.Invalidate("db-1")

	remote.mu.Lock()
	remote.containers["db-1"] = ports.Container{ID: "db-1", Sources: []ports.DataSource{{ID: "res-2"}}}
	remote.mu.Unlock()

	got, err := r.Resolve(context.Background(), "db-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "res-2" {
		t.Fatalf("expected fresh resolution res-2, got %q", got)
	}
	if remote.callCount() != 2 {
		t.Fatalf("expected 2 describe calls, got %d", remote.callCount())
	}
}
