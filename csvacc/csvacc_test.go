package csvacc

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finledger/gnc"
)

func testBook(t *testing.T) *gnc.Book {
	t.Helper()
	book := gnc.NewBook()
	eur := gnc.NewCurrency("EUR")

	root := gnc.NewAccount(gnc.RootAccountName, gnc.AccountTypeRoot)
	assets := gnc.NewAccount("Assets", gnc.AccountTypeAsset)
	assets.Commodity = eur
	assets.ParentUID = root.UID
	assets.Placeholder = true
	checking := gnc.NewAccount("Checking", gnc.AccountTypeBank)
	checking.Commodity = eur
	checking.ParentUID = assets.UID
	checking.Description = "daily"
	require.NoError(t, checking.SetColor("#ff8000"))
	tmpl := gnc.NewAccount("backing", gnc.AccountTypeBank)
	tmpl.Commodity = gnc.TemplateCommodity()
	tmpl.ParentUID = root.UID

	for _, a := range []*gnc.Account{root, assets, checking, tmpl} {
		require.NoError(t, book.AddAccount(a))
	}
	return book
}

func TestExport(t *testing.T) {
	book := testBook(t)

	var buf bytes.Buffer
	require.NoError(t, Export(context.Background(), &buf, book, Params{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3, "header plus two accounts; ROOT and template accounts are skipped")
	assert.Equal(t, header, records[0])

	assets := records[1]
	assert.Equal(t, "ASSET", assets[0])
	assert.Equal(t, "Assets", assets[1])
	assert.Equal(t, "T", assets[11], "placeholder flag")

	checking := records[2]
	assert.Equal(t, "BANK", checking[0])
	assert.Equal(t, "Assets:Checking", checking[1])
	assert.Equal(t, "Checking", checking[2])
	assert.Equal(t, "daily", checking[4])
	assert.Equal(t, "rgb(255,128,0)", checking[5])
	assert.Equal(t, "EUR", checking[7])
	assert.Equal(t, "CURRENCY", checking[8])
	assert.Equal(t, "F", checking[9])
}

func TestExportSeparator(t *testing.T) {
	book := testBook(t)

	var buf bytes.Buffer
	require.NoError(t, Export(context.Background(), &buf, book, Params{Separator: ';'}))

	r := csv.NewReader(&buf)
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, header, records[0])
}

func TestExportCancellation(t *testing.T) {
	book := testBook(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := Export(ctx, &buf, book, Params{})
	require.ErrorIs(t, err, context.Canceled)
}
