package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

const defaultLocale = "zh-TW"

// Service applies slug rules and caching on top of the repository.
type Service struct {
	repo  Repository
	cache *Cache
}

// NewService builds a Service. The cache may be nil in tests.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// PublicSection returns published blocks for a section, served through the
// version keyed cache.
func (s *Service) PublicSection(ctx context.Context, section, locale string) ([]Block, error) {
	locale = normalizeLocale(locale)
	if s.cache == nil {
		return s.repo.ListSection(ctx, section, locale, true)
	}
	key, err := s.cache.BuildKey(ctx, "manpower", "content", "section", section, locale)
	if err != nil {
		return s.repo.ListSection(ctx, section, locale, true)
	}
	var blocks []Block
	err = s.cache.FetchJSON(ctx, key, &blocks, func(ctx context.Context) (any, error) {
		return s.repo.ListSection(ctx, section, locale, true)
	})
	return blocks, err
}

// PublicBlock returns one published block by slug.
func (s *Service) PublicBlock(ctx context.Context, slug, locale string) (Block, error) {
	block, err := s.repo.GetBySlug(ctx, slug, normalizeLocale(locale))
	if err != nil {
		return Block{}, err
	}
	// Drafts are invisible on the public surface.
	if !block.Published {
		return Block{}, shared.ErrNotFound
	}
	return block, nil
}

// ListSection returns all blocks of a section for the admin UI, drafts
// included and uncached.
func (s *Service) ListSection(ctx context.Context, section, locale string) ([]Block, error) {
	return s.repo.ListSection(ctx, section, normalizeLocale(locale), false)
}

// Create inserts a block, deriving the slug from the title when absent.
func (s *Service) Create(ctx context.Context, block Block) (Block, error) {
	block.Locale = normalizeLocale(block.Locale)
	if block.Slug == "" {
		block.Slug = Slugify(block.Title)
	}
	if block.Slug == "" {
		return Block{}, fmt.Errorf("content: title %q yields an empty slug", block.Title)
	}
	created, err := s.repo.Insert(ctx, block)
	if err != nil {
		return Block{}, err
	}
	return created, s.bump(ctx)
}

// Update rewrites a block and invalidates cached reads.
func (s *Service) Update(ctx context.Context, block Block) (Block, error) {
	block.Locale = normalizeLocale(block.Locale)
	if block.Slug == "" {
		block.Slug = Slugify(block.Title)
	}
	updated, err := s.repo.Update(ctx, block)
	if err != nil {
		return Block{}, err
	}
	return updated, s.bump(ctx)
}

// SetPublished flips the publish flag and invalidates cached reads.
func (s *Service) SetPublished(ctx context.Context, id int64, published bool) error {
	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		return err
	}
	return s.bump(ctx)
}

func (s *Service) bump(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Bump(ctx)
}

func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return defaultLocale
	}
	return locale
}
