package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finledger/gnc"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCommodityRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	nvda := &gnc.Commodity{
		Namespace:        "NASDAQ",
		Mnemonic:         "NVDA",
		Fullname:         "NVIDIA Corp",
		SmallestFraction: 10000,
		Cusip:            "67066G104",
	}
	require.NoError(t, store.SaveCommodity(ctx, nvda))

	got, err := store.Commodity("NASDAQ", "NVDA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "NVIDIA Corp", got.Fullname)
	assert.Equal(t, int64(10000), got.SmallestFraction)

	miss, err := store.Commodity("NASDAQ", "NOPE")
	require.NoError(t, err)
	assert.Nil(t, miss, "a miss is (nil, nil), not an error")
}

func TestCommodityCurrencyAliases(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	eur := gnc.NewCurrency("EUR")
	require.NoError(t, store.SaveCommodity(ctx, eur))

	got, err := store.Commodity(gnc.NamespaceISO4217, "EUR")
	require.NoError(t, err)
	require.NotNil(t, got, "ISO4217 must find a CURRENCY row")
	assert.Equal(t, "EUR", got.Mnemonic)
}

func TestSaveCommodityUpserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	c := &gnc.Commodity{Namespace: "NASDAQ", Mnemonic: "NVDA", SmallestFraction: 100}
	require.NoError(t, store.SaveCommodity(ctx, c))
	c.Fullname = "NVIDIA Corp"
	require.NoError(t, store.SaveCommodity(ctx, c))

	got, err := store.Commodity("NASDAQ", "NVDA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "NVIDIA Corp", got.Fullname)
}

func TestTemplateCommodityNeverSaved(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveCommodity(context.Background(), gnc.TemplateCommodity()))

	got, err := store.Commodity(gnc.NamespaceTemplate, gnc.NamespaceTemplate)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBookRegistry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	book := gnc.NewBook()
	root := gnc.NewAccount(gnc.RootAccountName, gnc.AccountTypeRoot)
	require.NoError(t, book.AddAccount(root))

	require.NoError(t, store.RegisterBook(ctx, book, "/data/main.gnucash"))
	assert.Equal(t, "Book 1", book.DisplayName, "unnamed books get a generated name")

	books, err := store.Books(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, book.UID, books[0].UID)
	assert.Equal(t, "/data/main.gnucash", books[0].SourceURI)
	assert.True(t, books[0].LastExportTime.IsZero())

	exportTime := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetLastExportTime(ctx, book.UID, exportTime))

	info, err := store.Book(ctx, book.UID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.LastExportTime.Equal(exportTime))

	require.NoError(t, store.DeleteBook(ctx, book.UID))
	books, err = store.Books(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	info, err = store.Book(ctx, book.UID)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestDecodeResolvesFromStore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	nvda := &gnc.Commodity{Namespace: "NASDAQ", Mnemonic: "NVDA", SmallestFraction: 10000}
	require.NoError(t, store.SaveCommodity(ctx, nvda))

	r := gnc.NewResolver(store)
	got, err := r.Resolve("NASDAQ", "NVDA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(10000), got.SmallestFraction)
}
