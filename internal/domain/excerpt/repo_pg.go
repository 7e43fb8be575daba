package excerpt

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/notification-builder/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type archiveRepoPG struct{ pool *pgxpool.Pool }

func NewArchiveRepoPG(pool *pgxpool.Pool) ArchiveRepository {
	return &archiveRepoPG{pool: pool}
}

func (r *archiveRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const archiveCols = `id, identifier, source_identifier, operation, strategy, profile, body, created_at`

func (r *archiveRepoPG) scanArchived(row pgx.Row) (*ArchivedBundle, error) {
	var a ArchivedBundle
	var body []byte
	err := row.Scan(&a.ID, &a.Identifier, &a.SourceIdentifier, &a.Operation, &a.Strategy, &a.Profile, &body, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Body = body
	return &a, nil
}

func (r *archiveRepoPG) Create(ctx context.Context, a *ArchivedBundle) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO excerpt_archive (id, identifier, source_identifier, operation, strategy, profile, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		a.ID, a.Identifier, a.SourceIdentifier, a.Operation, a.Strategy, a.Profile, []byte(a.Body),
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert archived bundle %s: %w", a.Identifier, err)
	}
	return nil
}

func (r *archiveRepoPG) GetByIdentifier(ctx context.Context, identifier string) (*ArchivedBundle, error) {
	a, err := r.scanArchived(r.conn(ctx).QueryRow(ctx, `SELECT `+archiveCols+` FROM excerpt_archive WHERE identifier = $1`, identifier))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *archiveRepoPG) List(ctx context.Context, limit, offset int) ([]*ArchivedBundle, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM excerpt_archive`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+archiveCols+` FROM excerpt_archive ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return r.collect(rows, total)
}

func (r *archiveRepoPG) ListBySource(ctx context.Context, sourceIdentifier string, limit, offset int) ([]*ArchivedBundle, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM excerpt_archive WHERE source_identifier = $1`, sourceIdentifier).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+archiveCols+` FROM excerpt_archive WHERE source_identifier = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, sourceIdentifier, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return r.collect(rows, total)
}

func (r *archiveRepoPG) collect(rows pgx.Rows, total int) ([]*ArchivedBundle, int, error) {
	defer rows.Close()
	var items []*ArchivedBundle
	for rows.Next() {
		a, err := r.scanArchived(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
