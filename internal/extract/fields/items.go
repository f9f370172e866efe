package fields

import (
	"strings"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/extract/markup"
)

const (
	completeConfidence  = 95
	missingFieldPenalty = 10
	minimumConfidence   = 40
)

// Finish normalises an extracted line item in place and scores how complete it is
func Finish(item *core.LineItem) {
	raw := markup.Clean(item.BrandRaw)
	if raw == "" {
		raw = markup.Clean(item.Brand)
	}
	item.BrandRaw = raw
	item.Brand = NormalizeBrand(raw)
	item.Model = markup.Clean(item.Model)

	if item.ColorRaw == "" {
		item.ColorRaw = markup.Clean(item.Color)
	}
	if item.Color == "" && item.ColorRaw != "" {
		item.Color, item.ColorCode = SplitColor(item.ColorRaw)
	}

	if size, ok := ParseSize(item.Size); ok {
		if item.EyeSize == "" {
			item.EyeSize = size.Eye
		}
		if item.Bridge == "" {
			item.Bridge = size.Bridge
		}
		if item.Temple == "" {
			item.Temple = size.Temple
		}
	}
	if item.Size == "" && item.EyeSize != "" {
		item.Size = Size{Eye: item.EyeSize, Bridge: item.Bridge, Temple: item.Temple}.String()
		item.Size = strings.TrimSuffix(item.Size, "-")
	}

	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if item.Status == "" {
		item.Status = core.LineItemStatusPending
	}

	var missing []string
	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	check("brand", item.Brand)
	check("model", item.Model)
	check("color", item.Color)
	check("size", item.Size)
	check("upc", item.UPC)

	item.Confidence = completeConfidence - missingFieldPenalty*len(missing)
	if item.Confidence < minimumConfidence {
		item.Confidence = minimumConfidence
	}
	if len(missing) > 0 {
		item.ValidationReason = "missing " + strings.Join(missing, ", ")
	} else {
		item.ValidationReason = ""
	}
}
