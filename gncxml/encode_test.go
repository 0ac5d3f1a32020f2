package gncxml

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeElementOrder(t *testing.T) {
	book := buildBook(t)

	var buf bytes.Buffer
	require.NoError(t, Encode(context.Background(), &buf, book))
	doc := buf.String()

	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0"`))

	markers := []string{
		"<gnc-v2",
		`xmlns:gnc="http://www.gnucash.org/XML/gnc"`,
		`<gnc:count-data cd:type="book">1</gnc:count-data>`,
		`<gnc:book version="2.0.0">`,
		`<book:id type="guid">`,
		`cd:type="commodity"`,
		`cd:type="account"`,
		`cd:type="transaction"`,
		"<gnc:commodity",
		"<gnc:pricedb",
		"<gnc:account",
		"<gnc:transaction",
		"<gnc:template-transactions>",
		"<gnc:schedxaction",
		"<gnc:budget",
		"</gnc:book>",
		"</gnc-v2>",
	}
	pos := -1
	for _, marker := range markers {
		idx := strings.Index(doc, marker)
		require.NotEqual(t, -1, idx, "missing %q", marker)
		assert.Greater(t, idx, pos, "%q out of order", marker)
		pos = idx
	}
}

func TestEncodeAccountsParentsFirst(t *testing.T) {
	book := buildBook(t)

	var buf bytes.Buffer
	require.NoError(t, Encode(context.Background(), &buf, book))
	doc := buf.String()

	root := strings.Index(doc, "<act:type>ROOT</act:type>")
	checking := strings.Index(doc, "<act:name>Checking</act:name>")
	require.NotEqual(t, -1, root)
	require.NotEqual(t, -1, checking)
	assert.Less(t, root, checking, "ROOT is written before its children")
}

func TestEncodeEscapesText(t *testing.T) {
	book := buildBook(t)
	book.Transactions[0].Description = `Fish & <Chips>`

	var buf bytes.Buffer
	require.NoError(t, Encode(context.Background(), &buf, book))
	doc := buf.String()

	assert.Contains(t, doc, "Fish &amp; &lt;Chips&gt;")
	assert.NotContains(t, doc, "Fish & <Chips>")
}

func TestEncodeSplitSigns(t *testing.T) {
	book := buildBook(t)

	var buf bytes.Buffer
	require.NoError(t, Encode(context.Background(), &buf, book))
	doc := buf.String()

	assert.Contains(t, doc, "<split:value>90000/100</split:value>")
	assert.Contains(t, doc, "<split:value>-90000/100</split:value>")
}

func TestEncodeTemplateCommodityDeclared(t *testing.T) {
	book := buildBook(t)

	var buf bytes.Buffer
	require.NoError(t, Encode(context.Background(), &buf, book))
	doc := buf.String()

	assert.Contains(t, doc, "<cmdty:space>template</cmdty:space>")
	assert.Contains(t, doc, "<cmdty:id>template</cmdty:id>")
}

func TestEncodeScheduleEndPrecedence(t *testing.T) {
	book := buildBook(t)
	sched := book.ScheduledActions[0]

	t.Run("end date wins over occurrence counts", func(t *testing.T) {
		sched.EndTime = time.Date(2027, 1, 5, 0, 0, 0, 0, time.UTC)
		sched.TotalPlannedCount = 12

		var buf bytes.Buffer
		require.NoError(t, Encode(context.Background(), &buf, book))
		doc := buf.String()

		assert.Contains(t, doc, "<sx:end>")
		assert.NotContains(t, doc, "<sx:num-occur>")
		assert.NotContains(t, doc, "<sx:rem-occur>")
	})

	t.Run("counts without an end date", func(t *testing.T) {
		sched.EndTime = time.Time{}
		sched.TotalPlannedCount = 12
		sched.ExecutionCount = 3

		var buf bytes.Buffer
		require.NoError(t, Encode(context.Background(), &buf, book))
		doc := buf.String()

		assert.Contains(t, doc, "<sx:num-occur>12</sx:num-occur>")
		assert.Contains(t, doc, "<sx:rem-occur>9</sx:rem-occur>")
	})

	t.Run("remaining count omitted when exhausted", func(t *testing.T) {
		sched.EndTime = time.Time{}
		sched.TotalPlannedCount = 3
		sched.ExecutionCount = 3

		var buf bytes.Buffer
		require.NoError(t, Encode(context.Background(), &buf, book))
		doc := buf.String()

		assert.Contains(t, doc, "<sx:num-occur>3</sx:num-occur>")
		assert.NotContains(t, doc, "<sx:rem-occur>")
	})
}

func TestEncodeScheduleID(t *testing.T) {
	book := buildBook(t)
	sched := book.ScheduledActions[0]

	var buf bytes.Buffer
	require.NoError(t, Encode(context.Background(), &buf, book))
	doc := buf.String()

	assert.Contains(t, doc, `<sx:id type="guid">`+sched.UID+"</sx:id>")
	assert.NotContains(t, doc, `<sx:id type="guid">`+sched.ActionUID+"</sx:id>")
}
