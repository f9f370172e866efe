// Package modernoptical extracts orders from Modern Optical receipt emails.
//
// Receipts group items under shaded brand rows and bold model rows. Each
// model lists "Color:" declarations followed by detail rows of
// size, UPC, price, quantity and an optional ship date.
package modernoptical

import (
	"regexp"
	"strings"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/extract/fields"
	"github.com/mikey/vendor-order-intake/internal/extract/markup"
)

const (
	Code = "modern_optical"
	Name = "Modern Optical"
)

var (
	orderNumberLabel = fields.NewLabel("Order Number", "Order #", "Receipt Number")
	customerLabel    = fields.NewLabel("Customer", "Account Name")
	accountLabel     = fields.NewLabel("Account", "Acct")
	orderDateLabel   = fields.NewLabel("Order Date")
	repLabel         = fields.NewLabel("Rep", "Sales Rep", "Submitted By")
	piecesLabel      = fields.NewLabel("Total Pieces", "Pieces")
	poLabel          = fields.NewLabel("PO Number", "PO #")
	colorLabel       = fields.NewLabel("Color", "Colour")

	headerLabels = []fields.Label{orderNumberLabel, customerLabel, accountLabel, orderDateLabel, repLabel, piecesLabel, poLabel}

	detailPattern   = regexp.MustCompile(`^(\d{2}\s*-\s*\d{2}(?:\s*-\s*\d{2,3})?)\s+(\d{12,14})\s+\$?\s*([\d,]+(?:\.\d{1,2})?)\s+([\d,]+)(?:\s+(\d{1,2}/\d{1,2}/\d{2,4}))?$`)
	columnHeader    = regexp.MustCompile(`(?i)^size\s+upc\b`)
	customerAccount = regexp.MustCompile(`^(.*?)\s*\((?:Acct|Account)\.?\s*#?\s*([A-Za-z0-9-]+)\)$`)
	orderInText     = regexp.MustCompile(`(?i)order\s+(?:number|#)\s*:?\s*(\d+)`)
	sizeSpaces      = regexp.MustCompile(`\s+`)
)

// Extractor parses Modern Optical receipts
type Extractor struct{}

// New creates a Modern Optical extractor
func New() *Extractor {
	return &Extractor{}
}

// Extract parses the receipt markup, falling back to the plain-text part
func (e *Extractor) Extract(markupText, plainText, sender string) (*core.ExtractedOrder, error) {
	lines, styled, err := selectLines(markupText, plainText)
	if err != nil {
		return nil, err
	}

	order := &core.ExtractedOrder{
		Vendor: Name,
		Items:  parseItems(lines, styled),
	}
	order.Order = parseHeader(lines)
	if order.Order.TotalPieces == 0 {
		order.Order.TotalPieces = order.Pieces()
	}
	return order, nil
}

// selectLines prefers the HTML receipt when it carries detail rows
func selectLines(markupText, plainText string) ([]markup.Line, bool, error) {
	var doc *markup.Document
	if strings.TrimSpace(markupText) != "" {
		parsed, err := markup.Parse(markupText)
		if err == nil {
			doc = parsed
			if hasDetail(doc.Lines) {
				return doc.Lines, true, nil
			}
		}
	}

	if strings.TrimSpace(plainText) != "" {
		return markup.PlainLines(plainText), false, nil
	}
	if doc != nil {
		return doc.Lines, true, nil
	}
	return nil, false, fields.ErrNoContent
}

func hasDetail(lines []markup.Line) bool {
	for _, l := range lines {
		if detailPattern.MatchString(l.Text) {
			return true
		}
	}
	return false
}

func parseHeader(lines []markup.Line) core.OrderHeader {
	var h core.OrderHeader

	set := func(dst *string, label fields.Label) {
		if *dst != "" {
			return
		}
		if v, ok := label.Find(lines); ok {
			*dst = v
		}
	}
	set(&h.OrderNumber, orderNumberLabel)
	set(&h.CustomerName, customerLabel)
	set(&h.CustomerAccount, accountLabel)
	set(&h.OrderDate, orderDateLabel)
	set(&h.RepName, repLabel)
	set(&h.PONumber, poLabel)

	if m := customerAccount.FindStringSubmatch(h.CustomerName); m != nil {
		h.CustomerName = m[1]
		if h.CustomerAccount == "" {
			h.CustomerAccount = m[2]
		}
	}

	if h.OrderNumber == "" {
		for _, l := range lines {
			if m := orderInText.FindStringSubmatch(l.Text); m != nil {
				h.OrderNumber = m[1]
				break
			}
		}
	}

	if v, ok := piecesLabel.Find(lines); ok {
		if n, ok := fields.ParseInt(v); ok {
			h.TotalPieces = n
		}
	}
	return h
}

func parseItems(lines []markup.Line, styled bool) []core.LineItem {
	items := []core.LineItem{}
	var brand, model, color string

	for _, line := range lines {
		text := line.Text
		if text == "" || (styled && line.Heading) || columnHeader.MatchString(text) || isHeaderLine(line) {
			continue
		}

		if v, ok := colorLabel.Match(text); ok {
			color = v
			continue
		}

		if m := detailPattern.FindStringSubmatch(text); m != nil {
			if model == "" {
				continue
			}
			qty, _ := fields.ParseInt(m[4])
			item := core.LineItem{
				BrandRaw:  brand,
				Model:     model,
				ColorRaw:  color,
				Size:      sizeSpaces.ReplaceAllString(m[1], ""),
				UPC:       m[2],
				UnitPrice: fields.ParsePrice(m[3]),
				Quantity:  qty,
				ShipDate:  m[5],
			}
			fields.Finish(&item)
			items = append(items, item)
			continue
		}

		switch sectionLevel(line, styled) {
		case 1:
			brand, model, color = text, "", ""
		case 2:
			if brand != "" {
				model, color = text, ""
			}
		}
	}
	return items
}

// sectionLevel is 1 for brand headers and 2 for model headers
func sectionLevel(line markup.Line, styled bool) int {
	if styled {
		switch {
		case line.Bold && line.Shaded:
			return 1
		case line.Bold:
			return 2
		default:
			return 0
		}
	}

	if strings.Contains(line.Text, ":") {
		return 0
	}
	if line.Indent == 0 {
		return 1
	}
	return 2
}

func isHeaderLine(line markup.Line) bool {
	for _, label := range headerLabels {
		if _, ok := label.Line(line); ok {
			return true
		}
	}
	return false
}
