package links

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("url is blank")
	ErrMalformedURL = errors.New("malformed url")
	ErrInvalidOwner = errors.New("owner requires both type and id")
	ErrDuplicateKey = errors.New("key already taken")
	ErrNotFound     = errors.New("link not found")
	ErrExpired      = errors.New("link expired")
)

// LinkRepository is the durable store behind the registry. Insert must
// return ErrDuplicateKey, and nothing else, when the key uniqueness
// constraint rejects the row.
type LinkRepository interface {
	Insert(ctx context.Context, link *Link) error
	// FindByURL returns the oldest link with the given url owned by owner,
	// or among all links when owner is nil.
	FindByURL(ctx context.Context, owner *Owner, url string) (*Link, error)
	UpdateExpiresAt(ctx context.Context, link *Link) error
	FindByKey(ctx context.Context, key string) (*Link, error)
	ListUnexpired(ctx context.Context, owner *Owner, at time.Time) ([]*Link, error)
}

// KeyDrawer produces key candidates. Every call must be an independent draw.
type KeyDrawer interface {
	Draw() (string, error)
}
