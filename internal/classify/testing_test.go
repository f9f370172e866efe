package classify

import "github.com/mikey/vendor-order-intake/internal/core"

func testProfiles() []core.VendorProfile {
	return []core.VendorProfile{
		{
			ID:              1,
			Code:            "modern_optical",
			Name:            "Modern Optical",
			Domains:         []string{"modernoptical.com"},
			Signatures:      []string{"Modern Optical International"},
			SubjectKeywords: []string{"receipt for order number"},
			BodyKeywords:    []string{"total pieces", "modern optical"},
			Active:          true,
		},
		{
			ID:              2,
			Code:            "safilo",
			Name:            "Safilo",
			Domains:         []string{"safilo.com"},
			Signatures:      []string{"Safilo USA Inc"},
			SubjectKeywords: []string{"order confirmation"},
			BodyKeywords:    []string{"safilo", "myssafilo"},
			Active:          true,
		},
		{
			ID:              3,
			Code:            "luxottica",
			Name:            "Luxottica",
			Domains:         []string{"luxottica.com"},
			Signatures:      []string{"Luxottica of America"},
			SubjectKeywords: []string{"my.luxottica"},
			BodyKeywords:    []string{"ray-ban", "oakley"},
			RequiredMatches: 3,
			Active:          true,
		},
		{
			ID:      4,
			Code:    "retired",
			Name:    "Retired Vendor",
			Domains: []string{"retired.example"},
			Active:  false,
		},
	}
}
