package modernoptical

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/extract/fields"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func assertOrder6817(t *testing.T, order *core.ExtractedOrder) {
	t.Helper()

	assert.Equal(t, Name, order.Vendor)
	assert.Equal(t, "6817", order.Order.OrderNumber)
	assert.Equal(t, "Eyes of Texas Optical", order.Order.CustomerName)
	assert.Equal(t, "30417", order.Order.CustomerAccount)
	assert.Equal(t, "03/14/2024", order.Order.OrderDate)
	assert.Equal(t, "Pat Millet", order.Order.RepName)
	assert.Equal(t, 20, order.Order.TotalPieces)

	require.Len(t, order.Items, 18)
	assert.Equal(t, 20, order.Pieces())
	for i, item := range order.Items {
		assert.NotEmpty(t, item.Brand, "item %d brand", i)
		assert.NotEmpty(t, item.Model, "item %d model", i)
		assert.NotEmpty(t, item.Color, "item %d color", i)
		assert.NotEmpty(t, item.Size, "item %d size", i)
		assert.NotEmpty(t, item.UPC, "item %d upc", i)
		assert.Equal(t, core.LineItemStatusPending, item.Status, "item %d status", i)
		assert.Empty(t, item.ValidationReason, "item %d", i)
	}

	first := order.Items[0]
	assert.Equal(t, "Genevieve Boutique", first.Brand)
	assert.Equal(t, "GB+ Allure", first.Model)
	assert.Equal(t, "Black", first.Color)
	assert.Equal(t, "52-17-140", first.Size)
	assert.Equal(t, "52", first.EyeSize)
	assert.Equal(t, "17", first.Bridge)
	assert.Equal(t, "140", first.Temple)
	assert.Equal(t, "675254301201", first.UPC)
	require.NotNil(t, first.UnitPrice)
	assert.InDelta(t, 54.00, *first.UnitPrice, 0.001)
	assert.Equal(t, 1, first.Quantity)
	assert.Equal(t, "03/20/2024", first.ShipDate)

	charm := order.Items[3]
	assert.Equal(t, "GB+ Charm", charm.Model)
	assert.Equal(t, "Burgundy", charm.Color)
	assert.Equal(t, 2, charm.Quantity)

	grey := order.Items[8]
	assert.Equal(t, "Modern Art", grey.Brand)
	assert.Equal(t, "A392", grey.Model)
	assert.Equal(t, "Grey", grey.Color)
	assert.Equal(t, "GRY", grey.ColorCode)
	assert.Equal(t, "Grey (GRY)", grey.ColorRaw)
	assert.Empty(t, grey.ShipDate)

	last := order.Items[17]
	assert.Equal(t, "Modern Times", last.Brand)
	assert.Equal(t, "Flash", last.Model)
	assert.Equal(t, "Black", last.Color)
	assert.Equal(t, "54-16-140", last.Size)
	assert.Equal(t, "675254301218", last.UPC)
}

func TestExtractReceiptHTML(t *testing.T) {
	order, err := New().Extract(readFixture(t, "order_6817.html"), "", "noreply@modernoptical.com")
	require.NoError(t, err)
	assertOrder6817(t, order)
}

func TestExtractFallsBackToPlainText(t *testing.T) {
	order, err := New().Extract("<html><body><p>See attached receipt</p></body></html>", readFixture(t, "order_6817.txt"), "")
	require.NoError(t, err)
	assertOrder6817(t, order)
}

func TestExtractNoItems(t *testing.T) {
	order, err := New().Extract("<p>Your Receipt for Order Number 9001</p><p>No items shipped.</p>", "", "")
	require.NoError(t, err)
	assert.Equal(t, "9001", order.Order.OrderNumber)
	assert.NotNil(t, order.Items)
	assert.Empty(t, order.Items)
	assert.Equal(t, 0, order.Order.TotalPieces)
}

func TestExtractDetailWithoutModelIsSkipped(t *testing.T) {
	order, err := New().Extract("", "Genevieve Boutique\n52-17-140 675254301201 $54.00 1", "")
	require.NoError(t, err)
	assert.Empty(t, order.Items)
}

func TestExtractThousandsSeparators(t *testing.T) {
	text := "Modern Times\n  Admire\n    Color: Black\n      54-18-145   675254301211   $1,039.99   1,200\n"
	order, err := New().Extract("", text, "")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 1200, order.Items[0].Quantity)
	assert.InDelta(t, 1039.99, *order.Items[0].UnitPrice, 0.001)
	assert.Equal(t, 1200, order.Order.TotalPieces)
}

func TestExtractNoContent(t *testing.T) {
	_, err := New().Extract("  ", "", "")
	assert.ErrorIs(t, err, fields.ErrNoContent)
}
