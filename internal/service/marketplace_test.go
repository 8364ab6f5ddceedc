package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/ivanoskov/market_bot/internal/media"
	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/ivanoskov/market_bot/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

type fixture struct {
	store  *repository.Store
	photos *media.FileStore
	market *Marketplace
}

func newFixture(t *testing.T, repo repository.Repository) *fixture {
	t.Helper()
	if repo == nil {
		var err error
		repo, err = repository.NewFileRepository(t.TempDir())
		require.NoError(t, err)
	}
	catalog := model.NewCatalog(model.DefaultCategories)
	photos, err := media.NewFileStore(t.TempDir(), catalog)
	require.NoError(t, err)
	store := repository.NewStore(repo, zap.NewNop())
	return &fixture{
		store:  store,
		photos: photos,
		market: NewMarketplace(store, photos, catalog, zap.NewNop(), WithClock(fixedClock)),
	}
}

func chairDraft() model.Listing {
	return model.Listing{
		Category: "Мебель",
		Name:     "Chair",
		Price:    decimal.NewFromInt(500),
		Contact:  "12345678",
	}
}

func (f *fixture) create(t *testing.T, owner int64, draft model.Listing) *model.Listing {
	t.Helper()
	l, err := f.market.CreateListing(context.Background(), owner, draft, testJPEG(t))
	require.NoError(t, err)
	return l
}

func TestCreateListing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	l := f.create(t, 1, chairDraft())

	assert.NotEmpty(t, l.ID)
	assert.Equal(t, int64(1), l.OwnerID)
	assert.Equal(t, model.Category("Мебель"), l.Category)
	assert.Equal(t, "Chair", l.Name)
	assert.True(t, l.Price.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "12345678", l.Contact)
	assert.Equal(t, model.NewDate(2025, time.June, 15), l.CreatedAt)
	assert.True(t, f.photos.Exists(l.PhotoRef))

	stored, err := f.store.Load(ctx, repository.ActiveKey(1))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, *l, stored[0])
}

func TestCreateListingRejectsNonImage(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.market.CreateListing(context.Background(), 1, chairDraft(), []byte("not an image"))
	assert.ErrorIs(t, err, media.ErrUnsupportedMedia)

	p, err := f.market.Profile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Active)
}

// failingSaves отказывает на записи, чтение работает
type failingSaves struct {
	repository.Repository
}

func (failingSaves) Save(ctx context.Context, key repository.CollectionKey, listings []model.Listing) error {
	return errors.New("disk full")
}

func TestCreateListingStorageFailureReleasesPhoto(t *testing.T) {
	inner, err := repository.NewFileRepository(t.TempDir())
	require.NoError(t, err)
	f := newFixture(t, failingSaves{Repository: inner})

	var refs []string
	spy := &spyMedia{Store: f.photos, put: &refs}
	market := NewMarketplace(f.store, spy, f.market.Catalog(), zap.NewNop(), WithClock(fixedClock))

	_, err = market.CreateListing(context.Background(), 1, chairDraft(), testJPEG(t))
	var se *repository.StorageError
	require.ErrorAs(t, err, &se)

	require.Len(t, refs, 1)
	assert.False(t, f.photos.Exists(refs[0]), "photo must be released after a failed save")
}

type spyMedia struct {
	media.Store
	put *[]string
}

func (s *spyMedia) Put(ctx context.Context, data []byte, ownerID int64, category model.Category) (string, error) {
	ref, err := s.Store.Put(ctx, data, ownerID, category)
	if err == nil {
		*s.put = append(*s.put, ref)
	}
	return ref, err
}

func TestChairScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	const ownerA, buyerB = int64(100), int64(200)

	listed := f.create(t, ownerA, chairDraft())

	bought, err := f.market.PurchaseAt(ctx, buyerB, "Мебель", 0)
	require.NoError(t, err)
	assert.Equal(t, *listed, *bought)

	purchased, err := f.market.Purchased(ctx, buyerB)
	require.NoError(t, err)
	require.Len(t, purchased, 1)
	assert.Equal(t, *listed, purchased[0])

	active, err := f.store.Load(ctx, repository.ActiveKey(ownerA))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, *listed, active[0])
}

func TestPurchaseOutOfRangeMutatesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.create(t, 1, chairDraft())

	for _, pos := range []int{-1, 1, 5} {
		_, err := f.market.PurchaseAt(ctx, 2, "Мебель", pos)
		assert.ErrorIs(t, err, ErrItemUnavailable)
	}

	_, err := f.market.Purchase(ctx, 2, "missing-id")
	assert.ErrorIs(t, err, ErrItemUnavailable)

	buyers, err := f.store.Owners(ctx, repository.Purchased)
	require.NoError(t, err)
	assert.Empty(t, buyers)

	active, err := f.store.Load(ctx, repository.ActiveKey(1))
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestPurchaseAfterDeleteIsUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	l := f.create(t, 1, chairDraft())
	_, err := f.market.Delete(ctx, 1, l.ID)
	require.NoError(t, err)

	_, err = f.market.Purchase(ctx, 2, l.ID)
	assert.ErrorIs(t, err, ErrItemUnavailable)
	_, err = f.market.PurchaseAt(ctx, 2, "Мебель", 0)
	assert.ErrorIs(t, err, ErrItemUnavailable)
}

func TestPurchaseIsNonExclusive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	l := f.create(t, 1, chairDraft())

	for i := 0; i < 2; i++ {
		_, err := f.market.Purchase(ctx, 2, l.ID)
		require.NoError(t, err)
	}
	_, err := f.market.Purchase(ctx, 3, l.ID)
	require.NoError(t, err)

	p2, err := f.market.Purchased(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, p2, 2)

	entries, err := f.market.Browse(ctx, "Мебель")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "seller keeps the listing after purchases")
}

func TestDeleteKeepsPurchasedCopy(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first := f.create(t, 1, chairDraft())
	second := chairDraft()
	second.Name = "Table"
	f.create(t, 1, second)

	_, err := f.market.Purchase(ctx, 2, first.ID)
	require.NoError(t, err)

	removed, err := f.market.DeleteAt(ctx, 1, "Мебель", 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, removed.ID)
	assert.False(t, f.photos.Exists(first.PhotoRef))

	active, err := f.store.Load(ctx, repository.ActiveKey(1))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Table", active[0].Name)

	purchased, err := f.market.Purchased(ctx, 2)
	require.NoError(t, err)
	require.Len(t, purchased, 1)
	assert.Equal(t, *first, purchased[0])
}

func TestDeleteNotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.create(t, 1, chairDraft())

	_, err := f.market.DeleteAt(ctx, 1, "Одежда", 0)
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = f.market.DeleteAt(ctx, 1, "Мебель", 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = f.market.Delete(ctx, 1, "missing-id")
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = f.market.Delete(ctx, 2, "missing-id")
	assert.ErrorIs(t, err, ErrItemNotFound)

	active, err := f.store.Load(ctx, repository.ActiveKey(1))
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDeleteAtUsesCategoryView(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	coat := chairDraft()
	coat.Category = "Одежда"
	coat.Name = "Coat"
	f.create(t, 1, coat)
	f.create(t, 1, chairDraft())
	hat := coat
	hat.Name = "Hat"
	f.create(t, 1, hat)

	removed, err := f.market.DeleteAt(ctx, 1, "Одежда", 1)
	require.NoError(t, err)
	assert.Equal(t, "Hat", removed.Name)

	left, err := f.market.MyListings(ctx, 1, "Одежда")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "Coat", left[0].Name)
}

func TestBrowseAcrossOwners(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, owner := range []int64{3, 1, 2} {
		f.create(t, owner, chairDraft())
	}
	other := chairDraft()
	other.Category = "Другое"
	f.create(t, 1, other)

	entries, err := f.market.Browse(ctx, "Мебель")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.OwnerID)
		assert.Equal(t, e.OwnerID, e.Listing.OwnerID)
	}
}

func TestProfileCategoriesAndStats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	coat := chairDraft()
	coat.Category = "Одежда"
	f.create(t, 1, coat)
	f.create(t, 1, chairDraft())
	l := f.create(t, 2, chairDraft())
	_, err := f.market.Purchase(ctx, 1, l.ID)
	require.NoError(t, err)

	cats, err := f.market.MyCategories(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{"Мебель", "Одежда"}, cats)

	p, err := f.market.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Profile{Active: 2, Purchased: 1}, p)

	stats, err := f.market.CategoryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{
		{Category: "Бытовая техника", Count: 0},
		{Category: "Мебель", Count: 2},
		{Category: "Одежда", Count: 1},
		{Category: "Другое", Count: 0},
	}, stats)
}
