package content

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const blockColumns = `id, slug, section, title, body, locale, published, updated_by, created_at, updated_at`

func (r *PGRepository) ListSection(ctx context.Context, section, locale string, publishedOnly bool) ([]Block, error) {
	query := `SELECT ` + blockColumns + ` FROM content_blocks WHERE section = $1 AND locale = $2`
	if publishedOnly {
		query += ` AND published`
	}
	query += ` ORDER BY id`
	rows, err := r.pool.Query(ctx, query, section, locale)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetBySlug(ctx context.Context, slug, locale string) (Block, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+blockColumns+` FROM content_blocks WHERE slug = $1 AND locale = $2`, slug, locale)
	return mapNotFound(scanBlock(row))
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Block, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+blockColumns+` FROM content_blocks WHERE id = $1`, id)
	return mapNotFound(scanBlock(row))
}

func (r *PGRepository) Insert(ctx context.Context, block Block) (Block, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO content_blocks (slug, section, title, body, locale, published, updated_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING `+blockColumns,
		block.Slug, block.Section, block.Title, block.Body, block.Locale, block.Published, block.UpdatedBy, now)
	return scanBlock(row)
}

func (r *PGRepository) Update(ctx context.Context, block Block) (Block, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE content_blocks
		 SET slug = $2, section = $3, title = $4, body = $5, locale = $6, updated_by = $7, updated_at = $8
		 WHERE id = $1
		 RETURNING `+blockColumns,
		block.ID, block.Slug, block.Section, block.Title, block.Body, block.Locale, block.UpdatedBy, time.Now().UTC())
	return mapNotFound(scanBlock(row))
}

func (r *PGRepository) SetPublished(ctx context.Context, id int64, published bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE content_blocks SET published = $2, updated_at = $3 WHERE id = $1`,
		id, published, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanBlock(row pgx.Row) (Block, error) {
	var block Block
	err := row.Scan(&block.ID, &block.Slug, &block.Section, &block.Title, &block.Body,
		&block.Locale, &block.Published, &block.UpdatedBy, &block.CreatedAt, &block.UpdatedAt)
	return block, err
}

func mapNotFound(block Block, err error) (Block, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return Block{}, shared.ErrNotFound
	}
	return block, err
}

var _ Repository = (*PGRepository)(nil)
