package content

import "context"

// Repository defines persistence operations for content blocks.
type Repository interface {
	ListSection(ctx context.Context, section, locale string, publishedOnly bool) ([]Block, error)
	GetBySlug(ctx context.Context, slug, locale string) (Block, error)
	Get(ctx context.Context, id int64) (Block, error)
	Insert(ctx context.Context, block Block) (Block, error)
	Update(ctx context.Context, block Block) (Block, error)
	SetPublished(ctx context.Context, id int64, published bool) error
}
