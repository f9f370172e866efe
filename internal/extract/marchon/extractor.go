// Package marchon extracts orders from Marchon plain-text confirmations,
// which list each item as a block of "Key: value" pairs.
package marchon

import (
	"regexp"
	"strings"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/extract/fields"
	"github.com/mikey/vendor-order-intake/internal/extract/markup"
)

const (
	Code = "marchon"
	Name = "Marchon"
)

var (
	pairSeparator = regexp.MustCompile(`\s{2,}|\t+`)
	pairPattern   = regexp.MustCompile(`^([A-Za-z][A-Za-z .#]*?)\s*:\s*(.*)$`)
)

// Extractor parses Marchon confirmations
type Extractor struct{}

// New creates a Marchon extractor
func New() *Extractor {
	return &Extractor{}
}

// Extract parses the plain-text part, falling back to the text of the markup
func (e *Extractor) Extract(markupText, plainText, sender string) (*core.ExtractedOrder, error) {
	raw, err := selectText(markupText, plainText)
	if err != nil {
		return nil, err
	}

	p := &parser{order: &core.ExtractedOrder{Vendor: Name, Items: []core.LineItem{}}}
	for _, line := range raw {
		p.line(line)
	}
	p.flush()

	if p.order.Order.TotalPieces == 0 {
		p.order.Order.TotalPieces = p.order.Pieces()
	}
	return p.order, nil
}

// selectText returns raw lines with their column spacing intact
func selectText(markupText, plainText string) ([]string, error) {
	if strings.TrimSpace(plainText) != "" {
		return strings.Split(strings.ReplaceAll(plainText, "\r\n", "\n"), "\n"), nil
	}
	if strings.TrimSpace(markupText) == "" {
		return nil, fields.ErrNoContent
	}

	doc, err := markup.Parse(markupText)
	if err != nil {
		return nil, err
	}
	if len(doc.Pre) > 0 {
		return strings.Split(strings.Join(doc.Pre, "\n"), "\n"), nil
	}

	// Cells keep their boundaries when rows are re-joined with wide gaps
	var lines []string
	for _, l := range doc.Lines {
		if l.IsRow() {
			lines = append(lines, strings.Join(l.Cells, "    "))
			continue
		}
		lines = append(lines, l.Text)
	}
	return lines, nil
}

// pairs splits a line into its "Key: value" segments, keyed by lower-case name
func pairs(line string) map[string]string {
	out := make(map[string]string)
	segments := pairSeparator.Split(strings.TrimSpace(line), -1)
	for i := 0; i < len(segments); i++ {
		m := pairPattern.FindStringSubmatch(segments[i])
		if m == nil {
			continue
		}
		key, value := strings.ToLower(markup.Clean(m[1])), markup.Clean(m[2])
		// "Key:" with its value in the next column
		if value == "" && i+1 < len(segments) && !pairPattern.MatchString(segments[i+1]) {
			value = markup.Clean(segments[i+1])
			i++
		}
		out[key] = value
	}
	return out
}

type parser struct {
	order   *core.ExtractedOrder
	brand   string
	current *core.LineItem
}

func (p *parser) line(line string) {
	kv := pairs(line)
	if len(kv) == 0 {
		return
	}

	h := &p.order.Order
	for key, value := range kv {
		switch key {
		case "order number", "order #", "order no":
			h.OrderNumber = value
		case "customer", "bill to":
			h.CustomerName = value
		case "account", "account #":
			h.CustomerAccount = value
		case "order date":
			h.OrderDate = value
		case "sales rep", "rep":
			h.RepName = value
		case "po number", "po #":
			h.PONumber = value
		case "ship to":
			h.ShipTo = value
		case "total pieces", "total units":
			if n, ok := fields.ParseInt(value); ok {
				h.TotalPieces = n
			}
		case "brand", "collection":
			p.flush()
			p.brand = value
		}
	}

	// A new style starts a new item block
	if style, ok := kv["style"]; ok {
		p.flush()
		p.current = &core.LineItem{BrandRaw: p.brand, Model: style}
	}
	if p.current == nil {
		return
	}

	item := p.current
	for key, value := range kv {
		switch key {
		case "color", "colour":
			item.ColorRaw = value
		case "eye", "eye size":
			item.EyeSize = value
		case "bridge":
			item.Bridge = value
		case "temple":
			item.Temple = value
		case "size":
			item.Size = value
		case "upc":
			if fields.IsUPC(value) {
				item.UPC = value
			}
		case "sku":
			item.SKU = value
		case "qty", "quantity":
			if n, ok := fields.ParseInt(value); ok {
				item.Quantity = n
			}
		case "price", "wholesale":
			item.UnitPrice = fields.ParsePrice(value)
		case "retail", "msrp":
			item.RetailPrice = fields.ParsePrice(value)
		case "material":
			item.Material = value
		case "ship date", "eta":
			item.ShipDate = value
		}
	}
}

func (p *parser) flush() {
	if p.current == nil {
		return
	}
	fields.Finish(p.current)
	p.order.Items = append(p.order.Items, *p.current)
	p.current = nil
}
