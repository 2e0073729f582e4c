package memory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/IgorGrieder/link-registry/internal/processing/links"
)

func TestInsert_DuplicateKey(t *testing.T) {
	repo := NewLinksRepository()
	ctx := context.Background()

	first := &links.Link{Key: "abcde", URL: "http://a.com/"}
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if first.ID == "" {
		t.Error("Insert() should assign an id")
	}

	err := repo.Insert(ctx, &links.Link{Key: "abcde", URL: "http://b.com/"})
	if !errors.Is(err, links.ErrDuplicateKey) {
		t.Errorf("Insert(dup) error = %v, want ErrDuplicateKey", err)
	}
}

func TestFindByURL_ScopeAndOrder(t *testing.T) {
	repo := NewLinksRepository()
	ctx := context.Background()
	alice := &links.Owner{Type: "user", ID: "alice"}
	bob := &links.Owner{Type: "user", ID: "bob"}

	mustInsert(t, repo, &links.Link{Key: "k1", URL: "http://x.com/", Owner: alice})
	mustInsert(t, repo, &links.Link{Key: "k2", URL: "http://x.com/", Owner: bob})
	mustInsert(t, repo, &links.Link{Key: "k3", URL: "http://x.com/", Owner: alice})

	got, err := repo.FindByURL(ctx, bob, "http://x.com/")
	if err != nil || got.Key != "k2" {
		t.Errorf("FindByURL(bob) = %v, %v; want k2", got, err)
	}
	got, err = repo.FindByURL(ctx, alice, "http://x.com/")
	if err != nil || got.Key != "k1" {
		t.Errorf("FindByURL(alice) = %v, %v; want oldest k1", got, err)
	}
	got, err = repo.FindByURL(ctx, nil, "http://x.com/")
	if err != nil || got.Key != "k1" {
		t.Errorf("FindByURL(global) = %v, %v; want k1", got, err)
	}
	if _, err := repo.FindByURL(ctx, &links.Owner{Type: "user", ID: "carol"}, "http://x.com/"); !errors.Is(err, links.ErrNotFound) {
		t.Errorf("FindByURL(carol) error = %v, want ErrNotFound", err)
	}
}

func TestFindByKey_ReturnsCopy(t *testing.T) {
	repo := NewLinksRepository()
	mustInsert(t, repo, &links.Link{Key: "k1", URL: "http://x.com/", Owner: &links.Owner{Type: "user", ID: "1"}})

	got, _ := repo.FindByKey(context.Background(), "k1")
	got.URL = "http://mutated/"
	got.Owner.ID = "2"

	again, _ := repo.FindByKey(context.Background(), "k1")
	if again.URL != "http://x.com/" || again.Owner.ID != "1" {
		t.Errorf("stored link was mutated through a returned copy: %+v", again)
	}
}

func TestUpdateExpiresAt(t *testing.T) {
	repo := NewLinksRepository()
	ctx := context.Background()
	link := &links.Link{Key: "k1", URL: "http://x.com/"}
	mustInsert(t, repo, link)

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	link.ExpiresAt = &exp
	if err := repo.UpdateExpiresAt(ctx, link); err != nil {
		t.Fatalf("UpdateExpiresAt() error: %v", err)
	}

	got, _ := repo.FindByKey(ctx, "k1")
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, exp)
	}

	if err := repo.UpdateExpiresAt(ctx, &links.Link{ID: "missing"}); !errors.Is(err, links.ErrNotFound) {
		t.Errorf("UpdateExpiresAt(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListUnexpired(t *testing.T) {
	repo := NewLinksRepository()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)
	owner := &links.Owner{Type: "user", ID: "1"}

	mustInsert(t, repo, &links.Link{Key: "never", URL: "http://a.com/", Owner: owner})
	mustInsert(t, repo, &links.Link{Key: "expired", URL: "http://b.com/", Owner: owner, ExpiresAt: &past})
	mustInsert(t, repo, &links.Link{Key: "later", URL: "http://c.com/", Owner: owner, ExpiresAt: &future})
	mustInsert(t, repo, &links.Link{Key: "global", URL: "http://d.com/"})

	got, err := repo.ListUnexpired(context.Background(), owner, now)
	if err != nil {
		t.Fatalf("ListUnexpired() error: %v", err)
	}
	if keys := keysOf(got); fmt.Sprint(keys) != "[never later]" {
		t.Errorf("ListUnexpired(owner) = %v, want [never later]", keys)
	}

	got, _ = repo.ListUnexpired(context.Background(), nil, now)
	if keys := keysOf(got); fmt.Sprint(keys) != "[never later global]" {
		t.Errorf("ListUnexpired(nil) = %v, want [never later global]", keys)
	}
}

func TestRegistry_AlphabetScenario(t *testing.T) {
	drawer, err := links.NewKeyDrawer("nanoid", "abc123", 6)
	if err != nil {
		t.Fatalf("NewKeyDrawer() error: %v", err)
	}
	registry := links.NewRegistry(NewLinksRepository(), drawer, nil)

	link, err := registry.Generate(context.Background(), "example.com/page", nil, links.GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if link.URL != "http://example.com/page" {
		t.Errorf("URL = %q, want %q", link.URL, "http://example.com/page")
	}
	if !regexp.MustCompile(`^[abc123]{6}$`).MatchString(link.Key) {
		t.Errorf("Key = %q, want 6 chars from abc123", link.Key)
	}
}

func TestRegistry_DedupIsStable(t *testing.T) {
	registry := newRegistry(t)
	ctx := context.Background()
	owner := &links.Owner{Type: "user", ID: "u1"}

	first, err := registry.Generate(ctx, "http://x.com/a", owner, links.GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	second, err := registry.Generate(ctx, "HTTP://X.COM:80/a", owner, links.GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if first.Key != second.Key {
		t.Errorf("keys differ: %q vs %q", first.Key, second.Key)
	}

	other, err := registry.Generate(ctx, "http://x.com/a", &links.Owner{Type: "user", ID: "u2"}, links.GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if other.Key == first.Key {
		t.Error("a different owner must get its own record")
	}
}

func TestRegistry_EmptyPathSegmentsAreDistinctTargets(t *testing.T) {
	registry := newRegistry(t)
	ctx := context.Background()

	doubled, err := registry.Generate(ctx, "http://a.com/x//y", nil, links.GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	single, err := registry.Generate(ctx, "http://a.com/x/y", nil, links.GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if doubled.URL != "http://a.com/x//y" {
		t.Errorf("url = %q, want empty segment kept", doubled.URL)
	}
	if doubled.Key == single.Key {
		t.Errorf("%q and %q share key %q", doubled.URL, single.URL, single.Key)
	}
}

func TestRegistry_ExpiryIsOverwritten(t *testing.T) {
	registry := newRegistry(t)
	ctx := context.Background()
	owner := &links.Owner{Type: "user", ID: "u"}
	t1 := time.Now().Add(time.Hour).UTC()
	t2 := time.Now().Add(72 * time.Hour).UTC()

	first, err := registry.Generate(ctx, "http://x.com", owner, links.GenerateOptions{ExpiresAt: &t1})
	if err != nil {
		t.Fatalf("Generate(T1) error: %v", err)
	}
	second, err := registry.Generate(ctx, "http://x.com", owner, links.GenerateOptions{ExpiresAt: &t2})
	if err != nil {
		t.Fatalf("Generate(T2) error: %v", err)
	}
	if second.ID != first.ID || second.Key != first.Key {
		t.Errorf("expected the same record, got %+v and %+v", first, second)
	}
	if second.ExpiresAt == nil || !second.ExpiresAt.Equal(t2) {
		t.Errorf("ExpiresAt = %v, want %v", second.ExpiresAt, t2)
	}

	resolved, err := registry.Resolve(ctx, first.Key)
	if err != nil || !resolved.ExpiresAt.Equal(t2) {
		t.Errorf("stored ExpiresAt = %v (%v), want %v", resolved, err, t2)
	}
}

func TestRegistry_UnexpiredScope(t *testing.T) {
	repo := NewLinksRepository()
	past := time.Now().Add(-time.Second).UTC()
	mustInsert(t, repo, &links.Link{Key: "old01", URL: "http://old.com/", ExpiresAt: &past})
	mustInsert(t, repo, &links.Link{Key: "new01", URL: "http://new.com/"})

	drawer, _ := links.NewRandomDrawer(links.DefaultKeyAlphabet, links.DefaultKeyLength, nil)
	registry := links.NewRegistry(repo, drawer, nil)

	got, err := registry.Unexpired(context.Background(), nil)
	if err != nil {
		t.Fatalf("Unexpired() error: %v", err)
	}
	if keys := keysOf(got); fmt.Sprint(keys) != "[new01]" {
		t.Errorf("Unexpired() = %v, want [new01]", keys)
	}
	if _, err := registry.Resolve(context.Background(), "old01"); !errors.Is(err, links.ErrExpired) {
		t.Errorf("Resolve(expired) error = %v, want ErrExpired", err)
	}
}

func TestRegistry_ConcurrentGenerateYieldsDistinctKeys(t *testing.T) {
	const n = 200

	// 4^6 keys keeps collisions frequent enough to exercise the retry path.
	drawer, err := links.NewRandomDrawer("abcd", 6, nil)
	if err != nil {
		t.Fatalf("NewRandomDrawer() error: %v", err)
	}
	registry := links.NewRegistry(NewLinksRepository(), drawer, nil)

	keys := make(chan string, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			link, err := registry.Generate(context.Background(), fmt.Sprintf("example.com/%d", i), nil, links.GenerateOptions{})
			if err != nil {
				errs <- err
				return
			}
			keys <- link.Key
		}()
	}
	wg.Wait()
	close(keys)
	close(errs)

	for err := range errs {
		t.Errorf("Generate() error: %v", err)
	}
	seen := make(map[string]struct{}, n)
	for k := range keys {
		if _, dup := seen[k]; dup {
			t.Errorf("key %q issued twice", k)
		}
		seen[k] = struct{}{}
	}
	if len(seen) != n {
		t.Errorf("distinct keys = %d, want %d", len(seen), n)
	}
}

func newRegistry(t *testing.T) *links.Registry {
	t.Helper()
	drawer, err := links.NewKeyDrawer("nanoid", links.DefaultKeyAlphabet, links.DefaultKeyLength)
	if err != nil {
		t.Fatalf("NewKeyDrawer() error: %v", err)
	}
	return links.NewRegistry(NewLinksRepository(), drawer, nil)
}

func mustInsert(t *testing.T, repo *LinksRepository, link *links.Link) {
	t.Helper()
	if err := repo.Insert(context.Background(), link); err != nil {
		t.Fatalf("Insert(%s) error: %v", link.Key, err)
	}
}

func keysOf(ls []*links.Link) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Key)
	}
	return out
}
