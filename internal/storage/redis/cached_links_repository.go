package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/IgorGrieder/link-registry/internal/infrastructure/logger"
	"github.com/IgorGrieder/link-registry/internal/processing/links"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "link:"

type pinger interface {
	Ping(ctx context.Context) error
}

// CachedLinksRepository serves FindByKey from Redis and delegates everything
// else to the durable store. Cache failures are logged and bypassed.
type CachedLinksRepository struct {
	store  links.LinkRepository
	client *goredis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewCachedLinksRepository(store links.LinkRepository, client *goredis.Client, ttl time.Duration) *CachedLinksRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedLinksRepository{
		store:  store,
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *CachedLinksRepository) Insert(ctx context.Context, link *links.Link) error {
	if err := r.store.Insert(ctx, link); err != nil {
		return err
	}
	r.cacheLink(ctx, link)
	return nil
}

func (r *CachedLinksRepository) FindByURL(ctx context.Context, owner *links.Owner, url string) (*links.Link, error) {
	return r.store.FindByURL(ctx, owner, url)
}

func (r *CachedLinksRepository) UpdateExpiresAt(ctx context.Context, link *links.Link) error {
	if err := r.store.UpdateExpiresAt(ctx, link); err != nil {
		return err
	}
	if r.cacheLink(ctx, link) {
		return nil
	}
	if err := r.client.Del(ctx, keyPrefix+link.Key).Err(); err != nil {
		logger.Warn("failed to evict cached link", zap.String("key", link.Key), zap.Error(err))
	}
	return nil
}

func (r *CachedLinksRepository) FindByKey(ctx context.Context, key string) (*links.Link, error) {
	if link, ok := r.getFromCache(ctx, key); ok {
		return link, nil
	}

	link, err := r.store.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	r.fillCache(ctx, link)
	return link, nil
}

func (r *CachedLinksRepository) ListUnexpired(ctx context.Context, owner *links.Owner, at time.Time) ([]*links.Link, error) {
	return r.store.ListUnexpired(ctx, owner, at)
}

func (r *CachedLinksRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return err
	}
	if p, ok := r.store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (r *CachedLinksRepository) getFromCache(ctx context.Context, key string) (*links.Link, bool) {
	result, err := r.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		logger.Debug("link cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if len(result) == 0 {
		return nil, false
	}
	return decodeLink(result), true
}

// cacheLink overwrites the cached entry with link until the earlier of the
// cache TTL and its expiry. It reports whether the entry was written; expired
// links are not cached.
func (r *CachedLinksRepository) cacheLink(ctx context.Context, link *links.Link) bool {
	ttl, ok := r.ttlFor(link)
	if !ok {
		return false
	}

	key := keyPrefix + link.Key
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, encodeLink(link))
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("failed to cache link", zap.String("key", link.Key), zap.Error(err))
		return false
	}
	return true
}

// fillCache caches a link read from the store on a miss. The entry is only
// written while the key stays absent, so a read that raced an expiry update
// cannot replace the updated entry with the stale one.
func (r *CachedLinksRepository) fillCache(ctx context.Context, link *links.Link) {
	ttl, ok := r.ttlFor(link)
	if !ok {
		return
	}

	key := keyPrefix + link.Key
	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil || n > 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeLink(link))
			pipe.Expire(ctx, key, ttl)
			return nil
		})
		return err
	}, key)
	if err != nil && !errors.Is(err, goredis.TxFailedErr) {
		logger.Warn("failed to cache link", zap.String("key", link.Key), zap.Error(err))
	}
}

func (r *CachedLinksRepository) ttlFor(link *links.Link) (time.Duration, bool) {
	if link.ExpiresAt == nil {
		return r.ttl, true
	}
	remaining := link.ExpiresAt.Sub(r.now())
	if remaining <= 0 {
		return 0, false
	}
	return min(r.ttl, remaining), true
}

func encodeLink(link *links.Link) map[string]any {
	fields := map[string]any{
		"id":         link.ID,
		"key":        link.Key,
		"url":        link.URL,
		"created_at": link.CreatedAt.UnixNano(),
		"updated_at": link.UpdatedAt.UnixNano(),
	}
	if link.Owner != nil {
		fields["owner_type"] = link.Owner.Type
		fields["owner_id"] = link.Owner.ID
	}
	if link.ExpiresAt != nil {
		fields["expires_at"] = link.ExpiresAt.UnixNano()
	}
	return fields
}

func decodeLink(fields map[string]string) *links.Link {
	link := &links.Link{
		ID:        fields["id"],
		Key:       fields["key"],
		URL:       fields["url"],
		CreatedAt: parseNanos(fields["created_at"]),
		UpdatedAt: parseNanos(fields["updated_at"]),
	}
	if ownerType, ok := fields["owner_type"]; ok {
		link.Owner = &links.Owner{Type: ownerType, ID: fields["owner_id"]}
	}
	if raw, ok := fields["expires_at"]; ok {
		t := parseNanos(raw)
		link.ExpiresAt = &t
	}
	return link
}

func parseNanos(raw string) time.Time {
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, nanos).UTC()
}

var _ links.LinkRepository = (*CachedLinksRepository)(nil)
