// Package safilo extracts orders from Safilo order confirmations.
//
// Confirmations embed a fixed-width <pre> block with BRAND:, MODEL: and
// COLOR: markers, nested by indentation, followed by SIZE/UPC/QTY lines.
package safilo

import (
	"regexp"
	"strings"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/extract/fields"
	"github.com/mikey/vendor-order-intake/internal/extract/markup"
)

const (
	Code = "safilo"
	Name = "Safilo"
)

var (
	orderNumberLabel = fields.NewLabel("Order No", "Order Number", "Order #")
	accountLabel     = fields.NewLabel("Account", "Sold To")
	orderDateLabel   = fields.NewLabel("Order Date")
	repLabel         = fields.NewLabel("Sales Rep", "Rep")
	poLabel          = fields.NewLabel("PO Number", "PO No", "Customer PO")
	shipToLabel      = fields.NewLabel("Ship To")
	piecesLabel      = fields.NewLabel("Total Units", "Total Pieces", "Total Qty")

	brandLabel = fields.NewLabel("Brand")
	modelLabel = fields.NewLabel("Model", "Style")
	colorLabel = fields.NewLabel("Color", "Colour")

	detailPattern = regexp.MustCompile(`(?i)^SIZE\s+(\d{2}\s*-\s*\d{2}(?:\s*-\s*\d{3})?)\s+UPC\s+(\d{12,14})\s+QTY\s+([\d,]+)(?:\s+PRICE\s+\$?([\d,]+(?:\.\d{1,2})?))?(?:\s+ETA\s+(\S+))?`)
	accountName   = regexp.MustCompile(`^(\d+)\s+(.+)$`)
	sizeSpaces    = regexp.MustCompile(`\s+`)
)

// Extractor parses Safilo confirmations
type Extractor struct{}

// New creates a Safilo extractor
func New() *Extractor {
	return &Extractor{}
}

// Extract parses the <pre> confirmation block, falling back to plain text
// and then to the flattened markup
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
			if len(doc.Pre) > 0 {
				return doc.PreLines(), nil
			}
		}
	}
	if strings.TrimSpace(plainText) != "" {
		return markup.PlainLines(plainText), nil
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

	account := find(accountLabel)
	if m := accountName.FindStringSubmatch(account); m != nil {
		h.CustomerAccount, h.CustomerName = m[1], m[2]
	} else {
		h.CustomerName = account
	}

	if n, ok := fields.ParseInt(find(piecesLabel)); ok {
		h.TotalPieces = n
	}
	return h
}

func parseItems(lines []markup.Line) []core.LineItem {
	items := []core.LineItem{}
	var brand, model, color string

	for _, line := range lines {
		text := line.Text
		if text == "" {
			continue
		}

		if v, ok := brandLabel.Match(text); ok {
			brand, model, color = v, "", ""
			continue
		}
		if v, ok := modelLabel.Match(text); ok {
			model, color = v, ""
			continue
		}
		if v, ok := colorLabel.Match(text); ok {
			color = v
			continue
		}

		m := detailPattern.FindStringSubmatch(text)
		if m == nil {
			indented(line, &brand, &model, &color)
			continue
		}
		if model == "" {
			continue
		}

		qty, _ := fields.ParseInt(m[3])
		item := core.LineItem{
			BrandRaw:  brand,
			Model:     model,
			ColorRaw:  color,
			Size:      sizeSpaces.ReplaceAllString(m[1], ""),
			UPC:       m[2],
			Quantity:  qty,
			UnitPrice: fields.ParsePrice(m[4]),
			ShipDate:  m[5],
		}
		fields.Finish(&item)
		items = append(items, item)
	}
	return items
}

// indented handles unmarked section lines, nested brand > model > colour by indentation
func indented(line markup.Line, brand, model, color *string) {
	if strings.Contains(line.Text, ":") {
		return
	}
	switch {
	case line.Indent == 0:
		*brand, *model, *color = line.Text, "", ""
	case line.Indent < 4:
		if *brand != "" {
			*model, *color = line.Text, ""
		}
	case line.Indent < 6:
		if *model != "" {
			*color = line.Text
		}
	}
}
