package postgres

import (
	"context"
	_ "embed"
	"errors"
	"strconv"
	"time"

	"github.com/IgorGrieder/link-registry/internal/infrastructure/db"
	"github.com/IgorGrieder/link-registry/internal/processing/links"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	uniqueViolation     = "23505"
	uniqueKeyConstraint = "shortened_links_unique_key_idx"

	linkColumns = `id, unique_key, url, owner_type, owner_id, expires_at, created_at, updated_at`
)

//go:embed schema.sql
var schema string

type LinksRepository struct {
	pool *db.Postgres
}

func NewLinksRepository(p *db.Postgres) (*LinksRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &LinksRepository{pool: p}, nil
}

// EnsureSchema creates the table and its indexes when missing.
func (r *LinksRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Pool.Exec(ctx, schema)
	return err
}

func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) error {
	if link == nil {
		return errors.New("link is nil")
	}

	ownerType, ownerID := ownerColumns(link.Owner)

	var id int64
	err := r.pool.Pool.QueryRow(ctx, `
		INSERT INTO shortened_links (unique_key, url, owner_type, owner_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		link.Key,
		link.URL,
		ownerType,
		ownerID,
		toNullableTimestamptz(link.ExpiresAt),
		toTimestamptz(link.CreatedAt),
		toTimestamptz(link.UpdatedAt),
	).Scan(&id)
	if err == nil {
		link.ID = strconv.FormatInt(id, 10)
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == uniqueKeyConstraint {
		return links.ErrDuplicateKey
	}
	return err
}

func (r *LinksRepository) FindByURL(ctx context.Context, owner *links.Owner, url string) (*links.Link, error) {
	var row pgx.Row
	if owner == nil {
		row = r.pool.Pool.QueryRow(ctx, `
			SELECT `+linkColumns+`
			FROM shortened_links
			WHERE url = $1
			ORDER BY id
			LIMIT 1`, url)
	} else {
		row = r.pool.Pool.QueryRow(ctx, `
			SELECT `+linkColumns+`
			FROM shortened_links
			WHERE owner_type = $1 AND owner_id = $2 AND url = $3
			ORDER BY id
			LIMIT 1`, owner.Type, owner.ID, url)
	}
	return scanOne(row)
}

func (r *LinksRepository) UpdateExpiresAt(ctx context.Context, link *links.Link) error {
	id, err := strconv.ParseInt(link.ID, 10, 64)
	if err != nil {
		return links.ErrNotFound
	}

	tag, err := r.pool.Pool.Exec(ctx, `
		UPDATE shortened_links
		SET expires_at = $2, updated_at = $3
		WHERE id = $1`,
		id,
		toNullableTimestamptz(link.ExpiresAt),
		toTimestamptz(link.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) FindByKey(ctx context.Context, key string) (*links.Link, error) {
	row := r.pool.Pool.QueryRow(ctx, `
		SELECT `+linkColumns+`
		FROM shortened_links
		WHERE unique_key = $1`, key)
	return scanOne(row)
}

func (r *LinksRepository) ListUnexpired(ctx context.Context, owner *links.Owner, at time.Time) ([]*links.Link, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if owner == nil {
		rows, err = r.pool.Pool.Query(ctx, `
			SELECT `+linkColumns+`
			FROM shortened_links
			WHERE expires_at IS NULL OR expires_at > $1
			ORDER BY id`, toTimestamptz(at))
	} else {
		rows, err = r.pool.Pool.Query(ctx, `
			SELECT `+linkColumns+`
			FROM shortened_links
			WHERE owner_type = $1 AND owner_id = $2
			  AND (expires_at IS NULL OR expires_at > $3)
			ORDER BY id`, owner.Type, owner.ID, toTimestamptz(at))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*links.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

func (r *LinksRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanOne(row pgx.Row) (*links.Link, error) {
	link, err := scanLink(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, links.ErrNotFound
	}
	return link, err
}

func scanLink(row pgx.Row) (*links.Link, error) {
	var (
		id        int64
		ownerType pgtype.Text
		ownerID   pgtype.Text
		expiresAt pgtype.Timestamptz
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		link      links.Link
	)

	if err := row.Scan(&id, &link.Key, &link.URL, &ownerType, &ownerID, &expiresAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	link.ID = strconv.FormatInt(id, 10)
	link.CreatedAt = createdAt.Time.UTC()
	link.UpdatedAt = updatedAt.Time.UTC()
	if ownerType.Valid && ownerID.Valid {
		link.Owner = &links.Owner{Type: ownerType.String, ID: ownerID.String}
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		link.ExpiresAt = &t
	}
	return &link, nil
}

func ownerColumns(owner *links.Owner) (pgtype.Text, pgtype.Text) {
	if owner == nil {
		return pgtype.Text{}, pgtype.Text{}
	}
	return pgtype.Text{String: owner.Type, Valid: true}, pgtype.Text{String: owner.ID, Valid: true}
}

func toTimestamptz(v time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  v.UTC(),
		Valid: true,
	}
}

func toNullableTimestamptz(v *time.Time) pgtype.Timestamptz {
	if v == nil {
		return pgtype.Timestamptz{}
	}
	return toTimestamptz(*v)
}

var _ links.LinkRepository = (*LinksRepository)(nil)
