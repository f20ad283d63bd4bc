package uploads

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// Repository defines persistence operations for upload records.
type Repository interface {
	Insert(ctx context.Context, upload Upload) (Upload, error)
	Get(ctx context.Context, id int64) (Upload, error)
	List(ctx context.Context, limit, offset int) ([]Upload, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const uploadColumns = `id, file_name, content_type, size, storage_path, uploaded_by, created_at`

func (r *PGRepository) Insert(ctx context.Context, upload Upload) (Upload, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO uploads (file_name, content_type, size, storage_path, uploaded_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+uploadColumns,
		upload.FileName, upload.ContentType, upload.Size, upload.StoragePath, upload.UploadedBy, time.Now().UTC())
	return scanUpload(row)
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Upload, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = $1`, id)
	upload, err := scanUpload(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Upload{}, shared.ErrNotFound
	}
	return upload, err
}

func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]Upload, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+uploadColumns+` FROM uploads ORDER BY id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Upload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, upload)
	}
	return out, rows.Err()
}

func (r *PGRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM uploads`).Scan(&total)
	return total, err
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUpload(row pgx.Row) (Upload, error) {
	var upload Upload
	err := row.Scan(&upload.ID, &upload.FileName, &upload.ContentType, &upload.Size,
		&upload.StoragePath, &upload.UploadedBy, &upload.CreatedAt)
	return upload, err
}

var _ Repository = (*PGRepository)(nil)
