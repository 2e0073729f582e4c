package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IgorGrieder/link-registry/internal/infrastructure/logger"
	"github.com/IgorGrieder/link-registry/internal/infrastructure/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MaxKeyAttempts bounds how many inserts are tried before a key collision
// becomes terminal.
const MaxKeyAttempts = 5

type Registry struct {
	repo      LinkRepository
	drawer    KeyDrawer
	forbidden map[string]struct{}
	now       func() time.Time
	tracer    trace.Tracer
}

// NewRegistry wires the registry. The forbidden set must leave at least one
// drawable key, otherwise key drawing never terminates.
func NewRegistry(repo LinkRepository, drawer KeyDrawer, forbiddenKeys []string) *Registry {
	forbidden := make(map[string]struct{}, len(forbiddenKeys))
	for _, k := range forbiddenKeys {
		forbidden[k] = struct{}{}
	}

	return &Registry{
		repo:      repo,
		drawer:    drawer,
		forbidden: forbidden,
		now:       time.Now,
		tracer:    otel.Tracer("links"),
	}
}

// Generate returns the link for raw under owner, creating it when no link
// with the same normalized url exists in the owner's scope.
func (r *Registry) Generate(ctx context.Context, raw string, owner *Owner, opts GenerateOptions) (*Link, error) {
	ctx, span := r.tracer.Start(ctx, "links.generate")
	defer span.End()

	link, err := r.generate(ctx, raw, owner, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		metrics.LinkGenerated(metrics.OutcomeFailed)
		return nil, err
	}
	return link, nil
}

// GenerateFromLink returns link itself when it already belongs to owner.
// Otherwise the link's url is generated afresh for owner; the original
// record is never reassigned.
func (r *Registry) GenerateFromLink(ctx context.Context, link *Link, owner *Owner, opts GenerateOptions) (*Link, error) {
	if link == nil {
		return nil, ErrInvalidInput
	}
	if sameOwner(link.Owner, owner) {
		metrics.LinkGenerated(metrics.OutcomeReused)
		return link, nil
	}
	return r.Generate(ctx, link.URL, owner, opts)
}

// TryGenerate is Generate with every failure reported as nil.
func (r *Registry) TryGenerate(ctx context.Context, raw string, owner *Owner, opts GenerateOptions) *Link {
	link, err := r.Generate(ctx, raw, owner, opts)
	if err != nil {
		return nil
	}
	return link
}

func (r *Registry) TryGenerateFromLink(ctx context.Context, link *Link, owner *Owner, opts GenerateOptions) *Link {
	out, err := r.GenerateFromLink(ctx, link, owner, opts)
	if err != nil {
		return nil
	}
	return out
}

func (r *Registry) generate(ctx context.Context, raw string, owner *Owner, opts GenerateOptions) (*Link, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	normalized, err := NormalizeURL(raw)
	if err != nil {
		return nil, err
	}

	existing, err := r.repo.FindByURL(ctx, owner, normalized)
	switch {
	case err == nil:
		if opts.ExpiresAt != nil {
			existing.ExpiresAt = utcPtr(opts.ExpiresAt)
			existing.UpdatedAt = r.now().UTC()
			if err := r.repo.UpdateExpiresAt(ctx, existing); err != nil {
				return nil, err
			}
		}
		metrics.LinkGenerated(metrics.OutcomeReused)
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	now := r.now().UTC()
	link := &Link{
		URL:       normalized,
		Owner:     copyOwner(owner),
		ExpiresAt: utcPtr(opts.ExpiresAt),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.assignKey(ctx, link); err != nil {
		return nil, err
	}

	metrics.LinkGenerated(metrics.OutcomeCreated)
	return link, nil
}

// assignKey draws a key and inserts the link, drawing again only when the
// store reports a key collision.
func (r *Registry) assignKey(ctx context.Context, link *Link) error {
	ctx, span := r.tracer.Start(ctx, "links.assign_key")
	defer span.End()

	for attempt := 0; ; {
		key, err := r.drawKey()
		if err != nil {
			return err
		}
		link.Key = key

		err = r.repo.Insert(ctx, link)
		if err == nil {
			span.SetAttributes(attribute.Int("links.key_attempts", attempt+1))
			return nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			span.RecordError(err)
			return err
		}

		metrics.KeyCollision()
		attempt++
		if attempt >= MaxKeyAttempts {
			logger.Warn("too many key collisions, giving up", zap.Int("attempts", attempt))
			span.SetAttributes(attribute.Int("links.key_attempts", attempt))
			link.Key = ""
			return fmt.Errorf("%w: gave up after %d attempts", ErrDuplicateKey, attempt)
		}
		logger.Info("retrying with a different unique key", zap.Int("attempt", attempt))
	}
}

func (r *Registry) drawKey() (string, error) {
	for {
		key, err := r.drawer.Draw()
		if err != nil {
			return "", err
		}
		if _, banned := r.forbidden[key]; !banned {
			return key, nil
		}
	}
}

// Resolve returns the link for key when it has not expired.
func (r *Registry) Resolve(ctx context.Context, key string) (*Link, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrNotFound
	}

	link, err := r.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if !link.Unexpired(r.now()) {
		return nil, ErrExpired
	}
	return link, nil
}

// Unexpired lists the links in owner's scope that have not expired. A nil
// owner lists every link.
func (r *Registry) Unexpired(ctx context.Context, owner *Owner) ([]*Link, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	return r.repo.ListUnexpired(ctx, owner, r.now().UTC())
}

func validateOwner(owner *Owner) error {
	if owner == nil {
		return nil
	}
	if strings.TrimSpace(owner.Type) == "" || strings.TrimSpace(owner.ID) == "" {
		return ErrInvalidOwner
	}
	return nil
}

func copyOwner(owner *Owner) *Owner {
	if owner == nil {
		return nil
	}
	o := *owner
	return &o
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
