package content

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

func TestSlugifyFoldsLatin(t *testing.T) {
	assert.Equal(t, "cafe-menu-2026", Slugify("Café Menu 2026"))
	assert.Equal(t, "hello-world", Slugify("  Hello,   World!  "))
}

func TestSlugifyKeepsCJK(t *testing.T) {
	assert.Equal(t, "外籍勞工申請流程", Slugify("外籍勞工申請流程"))
	assert.Equal(t, "2026年-招募公告", Slugify("2026年／招募公告"))
}

func TestSlugifyEmptyResult(t *testing.T) {
	assert.Equal(t, "", Slugify("!!!"))
}

type memRepository struct {
	nextID int64
	blocks map[int64]*Block
	loads  int
}

func newMemRepository() *memRepository {
	return &memRepository{nextID: 1, blocks: make(map[int64]*Block)}
}

func (m *memRepository) ListSection(ctx context.Context, section, locale string, publishedOnly bool) ([]Block, error) {
	m.loads++
	var out []Block
	for id := int64(1); id < m.nextID; id++ {
		block, ok := m.blocks[id]
		if !ok || block.Section != section || block.Locale != locale {
			continue
		}
		if publishedOnly && !block.Published {
			continue
		}
		out = append(out, *block)
	}
	return out, nil
}

func (m *memRepository) GetBySlug(ctx context.Context, slug, locale string) (Block, error) {
	for _, block := range m.blocks {
		if block.Slug == slug && block.Locale == locale {
			return *block, nil
		}
	}
	return Block{}, shared.ErrNotFound
}

func (m *memRepository) Get(ctx context.Context, id int64) (Block, error) {
	if block, ok := m.blocks[id]; ok {
		return *block, nil
	}
	return Block{}, shared.ErrNotFound
}

func (m *memRepository) Insert(ctx context.Context, block Block) (Block, error) {
	block.ID = m.nextID
	m.nextID++
	m.blocks[block.ID] = &block
	return block, nil
}

func (m *memRepository) Update(ctx context.Context, block Block) (Block, error) {
	stored, ok := m.blocks[block.ID]
	if !ok {
		return Block{}, shared.ErrNotFound
	}
	block.Published = stored.Published
	m.blocks[block.ID] = &block
	return block, nil
}

func (m *memRepository) SetPublished(ctx context.Context, id int64, published bool) error {
	block, ok := m.blocks[id]
	if !ok {
		return shared.ErrNotFound
	}
	block.Published = published
	return nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client, time.Minute)
}

func TestCreateDerivesSlugFromTitle(t *testing.T) {
	repo := newMemRepository()
	service := NewService(repo, nil)

	block, err := service.Create(context.Background(), Block{Section: "home.hero", Title: "關於我們 About Us"})
	require.NoError(t, err)
	assert.Equal(t, "關於我們-about-us", block.Slug)
	assert.Equal(t, "zh-TW", block.Locale)
}

func TestCreateRejectsUnsluggableTitle(t *testing.T) {
	service := NewService(newMemRepository(), nil)
	_, err := service.Create(context.Background(), Block{Section: "home.hero", Title: "!!!"})
	assert.Error(t, err)
}

func TestPublicBlockHidesDrafts(t *testing.T) {
	repo := newMemRepository()
	service := NewService(repo, nil)

	block, err := service.Create(context.Background(), Block{Section: "home.hero", Title: "Draft Item"})
	require.NoError(t, err)

	_, err = service.PublicBlock(context.Background(), block.Slug, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, service.SetPublished(context.Background(), block.ID, true))
	got, err := service.PublicBlock(context.Background(), block.Slug, "")
	require.NoError(t, err)
	assert.Equal(t, block.ID, got.ID)
}

func TestPublicSectionCachesUntilBump(t *testing.T) {
	repo := newMemRepository()
	service := NewService(repo, newTestCache(t))
	ctx := context.Background()

	block, err := service.Create(ctx, Block{Section: "home.hero", Title: "First"})
	require.NoError(t, err)
	require.NoError(t, service.SetPublished(ctx, block.ID, true))
	loadsAfterSetup := repo.loads

	first, err := service.PublicSection(ctx, "home.hero", "")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := service.PublicSection(ctx, "home.hero", "")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, loadsAfterSetup+1, repo.loads, "second read must hit the cache")

	_, err = service.Update(ctx, Block{ID: block.ID, Section: "home.hero", Title: "Renamed", Slug: block.Slug})
	require.NoError(t, err)

	third, err := service.PublicSection(ctx, "home.hero", "")
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "Renamed", third[0].Title, "write must invalidate cached reads")
}
