package links

import "time"

// Owner identifies the entity a link is attributed to. Links with a nil
// owner are global.
type Owner struct {
	Type string
	ID   string
}

type Link struct {
	ID        string
	Key       string
	URL       string
	Owner     *Owner
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unexpired reports whether the link has no expiry or expires strictly after at.
func (l *Link) Unexpired(at time.Time) bool {
	return l.ExpiresAt == nil || l.ExpiresAt.After(at)
}

type GenerateOptions struct {
	// ExpiresAt overwrites the expiry of a reused link and sets it on a new
	// one. Nil leaves a reused link untouched.
	ExpiresAt *time.Time
}

func sameOwner(a, b *Owner) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
