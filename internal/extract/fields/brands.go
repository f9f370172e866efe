package fields

import (
	"strings"

	"github.com/mikey/vendor-order-intake/internal/extract/markup"
)

var brandAliases = map[string]string{
	"D&G":                 "DOLCE & GABBANA",
	"D & G":               "DOLCE & GABBANA",
	"DOLCE E GABBANA":     "DOLCE & GABBANA",
	"DOLCE AND GABBANA":   "DOLCE & GABBANA",
	"DOLCE&GABBANA":       "DOLCE & GABBANA",
	"DOLCE & GABBANA":     "DOLCE & GABBANA",
	"RAYBAN":              "RAY-BAN",
	"RAY BAN":             "RAY-BAN",
	"RAY-BAN":             "RAY-BAN",
	"RB":                  "RAY-BAN",
	"EA":                  "EMPORIO ARMANI",
	"EMPORIO ARMANI":      "EMPORIO ARMANI",
	"GA":                  "GIORGIO ARMANI",
	"MK":                  "MICHAEL KORS",
	"CK":                  "CALVIN KLEIN",
	"CALVIN KLEIN":        "CALVIN KLEIN",
	"HUGO BOSS":           "BOSS",
	"BOSS":                "BOSS",
	"KATE SPADE NEW YORK": "KATE SPADE",
	"KATE SPADE":          "KATE SPADE",
}

// NormalizeBrand maps vendor spellings of a brand to one canonical name.
// Unknown brands come back cleaned but otherwise unchanged.
func NormalizeBrand(raw string) string {
	cleaned := markup.Clean(raw)
	if canonical, ok := brandAliases[strings.ToUpper(cleaned)]; ok {
		return canonical
	}
	return cleaned
}
