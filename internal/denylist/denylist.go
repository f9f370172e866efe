package denylist

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultDomains are personal, free-mail and mail-system domains that never
// identify a supplier
var DefaultDomains = []string{
	"gmail.com",
	"googlemail.com",
	"yahoo.com",
	"ymail.com",
	"hotmail.com",
	"outlook.com",
	"live.com",
	"msn.com",
	"aol.com",
	"icloud.com",
	"me.com",
	"mac.com",
	"protonmail.com",
	"proton.me",
	"comcast.net",
	"att.net",
	"verizon.net",
	"sbcglobal.net",
	"mailer-daemon",
	"googlegroups.com",
	"amazonses.com",
	"sendgrid.net",
	"mailgun.org",
	"mcsv.net",
	"mandrillapp.com",
}

// Checker decides whether an address belongs to a denied domain
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new deny-list checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	// Normalize domains (lowercase, no leading @ or dot)
	normalizedDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.Trim(strings.ToLower(strings.TrimSpace(domain)), "@.")
		if d != "" {
			normalizedDomains = append(normalizedDomains, d)
		}
	}

	if len(normalizedDomains) > 0 && logger != nil {
		logger.Debug("Initialized sender deny-list", zap.Int("domains", len(normalizedDomains)))
	}

	return &Checker{
		domains: normalizedDomains,
		logger:  logger,
	}
}

// IsDenied checks if the address's domain, or a parent of it, is denied.
// Entries without a dot (e.g. "mailer-daemon") also match the local part.
func (c *Checker) IsDenied(address string) bool {
	if len(c.domains) == 0 {
		return false
	}

	at := strings.LastIndex(address, "@")
	if at < 0 {
		return false
	}
	local := strings.ToLower(address[:at])
	domain := strings.ToLower(strings.Trim(address[at+1:], " .>"))

	for _, denied := range c.domains {
		if domain == denied || strings.HasSuffix(domain, "."+denied) {
			return true
		}
		if !strings.Contains(denied, ".") && local == denied {
			return true
		}
	}

	return false
}

// Domains returns the normalized deny-list
func (c *Checker) Domains() []string {
	return append([]string(nil), c.domains...)
}
