// Package luxottica extracts orders from Luxottica order acknowledgements.
//
// Acknowledgements are an HTML table: a header row names the columns, brand
// sections are single-cell rows spanning the table, and every other row is
// one style/colour/size line.
package luxottica

import (
	"regexp"
	"strings"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/extract/fields"
	"github.com/mikey/vendor-order-intake/internal/extract/markup"
)

const (
	Code = "luxottica"
	Name = "Luxottica"
)

var (
	orderNumberLabel = fields.NewLabel("Order #", "Order Number", "Order No")
	soldToLabel      = fields.NewLabel("Sold To", "Account")
	orderDateLabel   = fields.NewLabel("Order Date")
	repLabel         = fields.NewLabel("Sales Rep", "Rep")
	poLabel          = fields.NewLabel("Customer PO", "PO Number", "PO #")
	shipToLabel      = fields.NewLabel("Ship To")
	piecesLabel      = fields.NewLabel("Total Quantity", "Total Qty", "Total Pieces")

	headerLabels = []fields.Label{orderNumberLabel, soldToLabel, orderDateLabel, repLabel, poLabel, shipToLabel, piecesLabel}

	soldTo = regexp.MustCompile(`^(\d+)\s*-?\s*(.+)$`)
)

type column int

const (
	colModel column = iota
	colColor
	colSize
	colUPC
	colQty
	colPrice
	colRetail
	colShipDate
	numColumns
)

// columnNames maps lower-case header cell text to a column
var columnNames = map[string]column{
	"style":      colModel,
	"model":      colModel,
	"color":      colColor,
	"colour":     colColor,
	"size":       colSize,
	"upc":        colUPC,
	"qty":        colQty,
	"quantity":   colQty,
	"wholesale":  colPrice,
	"price":      colPrice,
	"unit price": colPrice,
	"retail":     colRetail,
	"msrp":       colRetail,
	"ship date":  colShipDate,
	"eta":        colShipDate,
}

// layout holds the cell index of each known column, -1 when absent
type layout [numColumns]int

func (l *layout) cell(cells []string, c column) string {
	i := l[c]
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// Extractor parses Luxottica acknowledgements
type Extractor struct{}

// New creates a Luxottica extractor
func New() *Extractor {
	return &Extractor{}
}

// Extract parses the acknowledgement table, falling back to a plain-text table
func (e *Extractor) Extract(markupText, plainText, sender string) (*core.ExtractedOrder, error) {
	lines, err := selectLines(markupText, plainText)
	if err != nil {
		return nil, err
	}

	order := &core.ExtractedOrder{
		Vendor: Name,
		Order:  parseHeader(lines),
		Items:  parseItems(lines),
	}
	if order.Order.TotalPieces == 0 {
		order.Order.TotalPieces = order.Pieces()
	}
	return order, nil
}

func selectLines(markupText, plainText string) ([]markup.Line, error) {
	var doc *markup.Document
	if strings.TrimSpace(markupText) != "" {
		if parsed, err := markup.Parse(markupText); err == nil {
			doc = parsed
			if _, ok := findLayout(doc.Lines); ok {
				return doc.Lines, nil
			}
		}
	}
	if strings.TrimSpace(plainText) != "" {
		// Columns are split on the raw text, before whitespace runs are collapsed
		raw := strings.Split(strings.ReplaceAll(plainText, "\r\n", "\n"), "\n")
		lines := markup.PlainLines(plainText)
		for i := range lines {
			if lines[i].Text != "" {
				lines[i].Cells = fields.SplitColumns(raw[i])
			}
		}
		return lines, nil
	}
	if doc != nil {
		return doc.Lines, nil
	}
	return nil, fields.ErrNoContent
}

func parseHeader(lines []markup.Line) core.OrderHeader {
	var h core.OrderHeader

	find := func(label fields.Label) string {
		v, _ := label.Find(lines)
		return v
	}
	h.OrderNumber = find(orderNumberLabel)
	h.OrderDate = find(orderDateLabel)
	h.RepName = find(repLabel)
	h.PONumber = find(poLabel)
	h.ShipTo = find(shipToLabel)

	sold := find(soldToLabel)
	if m := soldTo.FindStringSubmatch(sold); m != nil {
		h.CustomerAccount, h.CustomerName = m[1], m[2]
	} else {
		h.CustomerName = sold
	}

	if n, ok := fields.ParseInt(find(piecesLabel)); ok {
		h.TotalPieces = n
	}
	return h
}

// headerLayout recognises the column header row
func headerLayout(cells []string) (layout, bool) {
	var l layout
	for i := range l {
		l[i] = -1
	}
	for i, cell := range cells {
		if c, ok := columnNames[strings.ToLower(markup.Clean(cell))]; ok && l[c] < 0 {
			l[c] = i
		}
	}
	return l, l[colModel] >= 0 && l[colUPC] >= 0 && l[colQty] >= 0
}

func findLayout(lines []markup.Line) (layout, bool) {
	for _, line := range lines {
		if l, ok := headerLayout(line.Cells); ok {
			return l, true
		}
	}
	return layout{}, false
}

func parseItems(lines []markup.Line) []core.LineItem {
	items := []core.LineItem{}
	var cols layout
	haveLayout := false
	brand := ""

	for _, line := range lines {
		if line.Text == "" || isHeaderLine(line) {
			continue
		}

		cells := line.Cells
		if len(cells) == 0 {
			cells = []string{line.Text}
		}

		if l, ok := headerLayout(cells); ok {
			cols, haveLayout = l, true
			continue
		}
		if !haveLayout {
			continue
		}

		if v, ok := singleCell(cells); ok {
			brand = v
			continue
		}

		model := cols.cell(cells, colModel)
		qty, ok := fields.ParseInt(cols.cell(cells, colQty))
		if model == "" || !ok {
			continue
		}

		item := core.LineItem{
			BrandRaw:    brand,
			Model:       model,
			ColorRaw:    cols.cell(cells, colColor),
			Size:        cols.cell(cells, colSize),
			Quantity:    qty,
			UnitPrice:   fields.ParsePrice(cols.cell(cells, colPrice)),
			RetailPrice: fields.ParsePrice(cols.cell(cells, colRetail)),
			ShipDate:    cols.cell(cells, colShipDate),
		}
		if upc := cols.cell(cells, colUPC); fields.IsUPC(upc) {
			item.UPC = upc
		}
		if size, ok := fields.ParseSize(item.Size); ok {
			item.Size = size.String()
		}
		fields.Finish(&item)
		items = append(items, item)
	}
	return items
}

// singleCell returns the only non-empty cell of a brand section row
func singleCell(cells []string) (string, bool) {
	value := ""
	for _, c := range cells {
		if c == "" {
			continue
		}
		if value != "" {
			return "", false
		}
		value = c
	}
	return value, value != ""
}

func isHeaderLine(line markup.Line) bool {
	for _, label := range headerLabels {
		if _, ok := label.Line(line); ok {
			return true
		}
	}
	return false
}
