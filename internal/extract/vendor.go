// Package extract dispatches classified emails to their vendor extractor.
package extract

import (
	"strings"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/extract/luxottica"
	"github.com/mikey/vendor-order-intake/internal/extract/marchon"
	"github.com/mikey/vendor-order-intake/internal/extract/modernoptical"
	"github.com/mikey/vendor-order-intake/internal/extract/safilo"
)

// Vendor is the fixed set of vendors with a markup extractor
type Vendor int

const (
	ModernOptical Vendor = iota + 1
	Safilo
	Luxottica
	Marchon
)

// Vendors lists every supported vendor
func Vendors() []Vendor {
	return []Vendor{ModernOptical, Safilo, Luxottica, Marchon}
}

// Code returns the vendor code used in profiles and classifications
func (v Vendor) Code() string {
	switch v {
	case ModernOptical:
		return modernoptical.Code
	case Safilo:
		return safilo.Code
	case Luxottica:
		return luxottica.Code
	case Marchon:
		return marchon.Code
	default:
		return ""
	}
}

// String returns the vendor display name
func (v Vendor) String() string {
	switch v {
	case ModernOptical:
		return modernoptical.Name
	case Safilo:
		return safilo.Name
	case Luxottica:
		return luxottica.Name
	case Marchon:
		return marchon.Name
	default:
		return core.UnknownVendor
	}
}

// Extractor returns the extractor for the vendor's markup dialect
func (v Vendor) Extractor() core.Extractor {
	switch v {
	case ModernOptical:
		return modernoptical.New()
	case Safilo:
		return safilo.New()
	case Luxottica:
		return luxottica.New()
	case Marchon:
		return marchon.New()
	default:
		return nil
	}
}

// ParseVendor resolves a vendor code. Case, spaces and dashes are ignored.
func ParseVendor(code string) (Vendor, bool) {
	normalized := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(code)))
	for _, v := range Vendors() {
		if v.Code() == normalized {
			return v, true
		}
	}
	return 0, false
}
