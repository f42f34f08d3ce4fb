// Package resolver maps container identifiers onto the addressable data
// source the remote API requires, caching resolutions for the process
// lifetime.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"taskbridge/internal/domain"
	"taskbridge/internal/ports"
)

// Describer is the slice of the remote contract the resolver needs.
type Describer interface {
	DescribeContainer(ctx context.Context, containerID string) (ports.Container, error)
}

// Entry is one cached resolution.
type Entry struct {
	ContainerID  string
	ResourceID   string
	ResourceName string
	ResolvedAt   time.Time
}

type cacheEntry struct {
	done  chan struct{}
	entry Entry
	err   error
}

// Resolver caches container → data source resolutions. Concurrent misses
// for the same container collapse into a single remote describe call; late
// callers wait for the in-flight resolution instead of issuing their own.
type Resolver struct {
	remote Describer

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

func New(remote Describer) *Resolver {
	return &Resolver{
		remote:  remote,
		entries: map[string]*cacheEntry{},
	}
}

// Resolve returns the data source id for containerID, describing the
// container remotely on a cache miss. When a container exposes several data
// sources the first one wins; this mirrors the remote API's ordering and is
// the documented selection policy.
func (r *Resolver) Resolve(ctx context.Context, containerID string) (string, error) {
	r.mu.Lock()
	ce, ok := r.entries[containerID]
	if !ok {
		ce = &cacheEntry{done: make(chan struct{})}
		r.entries[containerID] = ce
		r.mu.Unlock()

		ce.entry, ce.err = r.describe(ctx, containerID)
		if ce.err != nil {
			// failed resolutions are not cached
			r.mu.Lock()
			if r.entries[containerID] == ce {
				delete(r.entries, containerID)
			}
			r.mu.Unlock()
		}
		close(ce.done)
		return ce.entry.ResourceID, ce.err
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", domain.NewTimeout("waiting for container resolution", ctx.Err())
	case <-ce.done:
	}
	if ce.err != nil {
		return "", ce.err
	}
	return ce.entry.ResourceID, nil
}

// Lookup returns the cached entry without triggering a resolution.
func (r *Resolver) Lookup(containerID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ce, ok := r.entries[containerID]
	if !ok {
		return Entry{}, false
	}
	select {
	case <-ce.done:
	default:
		return Entry{}, false
	}
	if ce.err != nil {
		return Entry{}, false
	}
	return ce.entry, true
}

// Invalidate drops the cached resolution for containerID, forcing the next
// Resolve to describe the container again. Called after a remote call using
// the cached data source came back not-found.
func (r *Resolver) Invalidate(containerID string) {
	r.mu.Lock()
	delete(r.entries, containerID)
	r.mu.Unlock()
}

func (r *Resolver) describe(ctx context.Context, containerID string) (Entry, error) {
	info, err := r.remote.DescribeContainer(ctx, containerID)
	if err != nil {
		return Entry{}, err
	}
	if len(info.Sources) == 0 {
		return Entry{}, domain.NewResolution(
			fmt.Sprintf("container %q has no addressable data source", containerID), nil)
	}

	src := info.Sources[0]
	log.Ctx(ctx).Info().
		Str("container", containerID).
		Str("source", src.ID).
		Str("name", src.Name).
		Msg("resolved container to data source")

	return Entry{
		ContainerID:  containerID,
		ResourceID:   src.ID,
		ResourceName: src.Name,
		ResolvedAt:   time.Now(),
	}, nil
}
