package classify

import (
	"testing"

	"github.com/mikey/vendor-order-intake/internal/denylist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestResolver() *Resolver {
	return NewResolver(denylist.NewChecker(denylist.DefaultDomains, zap.NewNop()), zap.NewNop())
}

func TestExtractAddresses(t *testing.T) {
	body := "From: Safilo <NoReply@Safilo.com>\nReply to noreply@safilo.com. Or mailto:help@Safilo.com"
	assert.Equal(t, []string{"noreply@safilo.com", "help@safilo.com"}, ExtractAddresses(body))
}

func TestResolverPrefersVendorDomain(t *testing.T) {
	r := newTestResolver()
	body := `---------- Forwarded message ---------
From: Paul Millet <paul.millet@gmail.com>
To: orders@shop.example

> From: Safilo <noreply@safilo.com>
> Subject: Order Confirmation`

	res := r.Resolve(body, testProfiles())
	assert.Equal(t, "noreply@safilo.com", res.Address)
	assert.True(t, res.VendorMatch)
	assert.Equal(t, []string{"orders@shop.example", "noreply@safilo.com"}, res.Candidates)
}

func TestResolverFallsBackToFirstCandidate(t *testing.T) {
	r := newTestResolver()
	res := r.Resolve("contact buyer@optics-shop.example or me@yahoo.com", testProfiles())
	assert.Equal(t, "buyer@optics-shop.example", res.Address)
	assert.False(t, res.VendorMatch)
}

func TestResolverNoCandidates(t *testing.T) {
	r := newTestResolver()

	res := r.Resolve("forwarded by someone@gmail.com via mailer-daemon@mx.example.com", testProfiles())
	assert.Empty(t, res.Address)
	assert.Empty(t, res.Candidates)

	res = r.Resolve("", testProfiles())
	assert.Empty(t, res.Address)
}

func TestResolverWithoutDenyList(t *testing.T) {
	r := NewResolver(nil, nil)
	res := r.Resolve("noreply@safilo.com", nil)
	require.Equal(t, "noreply@safilo.com", res.Address)
	assert.False(t, res.VendorMatch)
	assert.False(t, r.IsDenied("someone@gmail.com"))
}
