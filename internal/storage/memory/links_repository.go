package memory

import (
	"context"
	"sync"
	"time"

	"github.com/IgorGrieder/link-registry/internal/processing/links"
	"github.com/google/uuid"
)

// LinksRepository keeps links in process memory. The key index plays the
// role of the unique constraint, so concurrent inserts of the same key see
// exactly one winner.
type LinksRepository struct {
	mu    sync.RWMutex
	links []*links.Link
	byKey map[string]int
	byID  map[string]int
}

func NewLinksRepository() *LinksRepository {
	return &LinksRepository{
		byKey: make(map[string]int),
		byID:  make(map[string]int),
	}
}

func (r *LinksRepository) Insert(_ context.Context, link *links.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byKey[link.Key]; taken {
		return links.ErrDuplicateKey
	}

	link.ID = uuid.NewString()
	r.links = append(r.links, clone(link))
	idx := len(r.links) - 1
	r.byKey[link.Key] = idx
	r.byID[link.ID] = idx
	return nil
}

func (r *LinksRepository) FindByURL(_ context.Context, owner *links.Owner, url string) (*links.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.links {
		if l.URL == url && inScope(l, owner) {
			return clone(l), nil
		}
	}
	return nil, links.ErrNotFound
}

func (r *LinksRepository) UpdateExpiresAt(_ context.Context, link *links.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[link.ID]
	if !ok {
		return links.ErrNotFound
	}
	stored := r.links[idx]
	stored.ExpiresAt = clonePtr(link.ExpiresAt)
	stored.UpdatedAt = link.UpdatedAt
	return nil
}

func (r *LinksRepository) FindByKey(_ context.Context, key string) (*links.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byKey[key]
	if !ok {
		return nil, links.ErrNotFound
	}
	return clone(r.links[idx]), nil
}

func (r *LinksRepository) ListUnexpired(_ context.Context, owner *links.Owner, at time.Time) ([]*links.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*links.Link, 0)
	for _, l := range r.links {
		if inScope(l, owner) && l.Unexpired(at) {
			out = append(out, clone(l))
		}
	}
	return out, nil
}

// Ping satisfies the readiness check.
func (r *LinksRepository) Ping(context.Context) error {
	return nil
}

func inScope(l *links.Link, owner *links.Owner) bool {
	if owner == nil {
		return true
	}
	return l.Owner != nil && *l.Owner == *owner
}

func clone(l *links.Link) *links.Link {
	c := *l
	if l.Owner != nil {
		o := *l.Owner
		c.Owner = &o
	}
	c.ExpiresAt = clonePtr(l.ExpiresAt)
	return &c
}

func clonePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

var _ links.LinkRepository = (*LinksRepository)(nil)
