package classify

import (
	"regexp"
	"strings"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/denylist"
	"go.uber.org/zap"
)

var addressPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)

// Resolver digs the real supplier address out of forwarded email bodies
type Resolver struct {
	denied *denylist.Checker
	logger *zap.Logger
}

// NewResolver creates a new forwarded-sender resolver
func NewResolver(denied *denylist.Checker, logger *zap.Logger) *Resolver {
	return &Resolver{
		denied: denied,
		logger: logger,
	}
}

// ExtractAddresses returns every email-shaped substring of text, lower-cased
// and de-duplicated in order of first appearance
func ExtractAddresses(text string) []string {
	matches := addressPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	addresses := make([]string, 0, len(matches))
	for _, m := range matches {
		addr := strings.ToLower(strings.Trim(m, "."))
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addresses = append(addresses, addr)
	}
	return addresses
}

// Resolve returns the first non-denied address whose domain matches a vendor,
// else the first non-denied address, else an empty resolution
func (r *Resolver) Resolve(body string, profiles []core.VendorProfile) core.Resolution {
	var candidates []string
	for _, addr := range ExtractAddresses(body) {
		if r.IsDenied(addr) {
			continue
		}
		candidates = append(candidates, addr)
	}

	if len(candidates) == 0 {
		return core.Resolution{}
	}

	for _, addr := range candidates {
		domain := core.DomainOf(addr)
		if code, ok := matchVendorDomain(domain, profiles); ok {
			if r.logger != nil {
				r.logger.Debug("Found vendor address in body",
					zap.String("address", addr),
					zap.String("vendor", code))
			}
			return core.Resolution{Address: addr, VendorMatch: true, Candidates: candidates}
		}
	}

	return core.Resolution{Address: candidates[0], Candidates: candidates}
}

// IsDenied reports whether an address belongs to a personal or system domain
func (r *Resolver) IsDenied(address string) bool {
	if r.denied == nil {
		return false
	}
	return r.denied.IsDenied(address)
}

// matchVendorDomain returns the code of the first profile with a domain fragment contained in domain
func matchVendorDomain(domain string, profiles []core.VendorProfile) (string, bool) {
	if domain == "" {
		return "", false
	}
	for _, p := range profiles {
		for _, fragment := range p.Domains {
			f := normalizeFragment(fragment)
			if f != "" && strings.Contains(domain, f) {
				return p.Code, true
			}
		}
	}
	return "", false
}
