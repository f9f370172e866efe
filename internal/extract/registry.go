package extract

import (
	"github.com/mikey/vendor-order-intake/internal/core"
	"go.uber.org/zap"
)

// Registry maps vendor codes to their extractors
type Registry struct {
	extractors map[Vendor]core.Extractor
	logger     *zap.Logger
}

// NewRegistry creates a registry holding an extractor for every supported vendor
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{
		extractors: make(map[Vendor]core.Extractor, len(Vendors())),
		logger:     logger,
	}
	for _, v := range Vendors() {
		r.extractors[v] = v.Extractor()
	}

	logger.Debug("Initialized extractor registry", zap.Int("vendors", len(r.extractors)))
	return r
}

// Lookup returns the extractor for a vendor code. Unknown codes, including
// the classifier's "unknown" result, have no extractor.
func (r *Registry) Lookup(code string) (core.Extractor, bool) {
	v, ok := ParseVendor(code)
	if !ok {
		return nil, false
	}
	extractor, ok := r.extractors[v]
	return extractor, ok && extractor != nil
}

// Codes lists the vendor codes the registry can extract
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.extractors))
	for _, v := range Vendors() {
		if _, ok := r.extractors[v]; ok {
			codes = append(codes, v.Code())
		}
	}
	return codes
}
