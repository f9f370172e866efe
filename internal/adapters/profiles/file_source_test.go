package profiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSource_LoadProfiles(t *testing.T) {
	path := writeFile(t, `
vendors:
  - id: 1
    code: modern_optical
    name: Modern Optical
    domains: [modernoptical.com]
    signatures: ["Modern Optical International"]
    subject_keywords: ["receipt for order number"]
    body_keywords: ["total pieces"]
  - id: 2
    code: safilo
    required_matches: 3
    weights:
      domain: 90
      weak: 65
    active: false
`)

	profiles, err := NewFileSource(path, zap.NewNop()).LoadProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, int64(1), profiles[0].ID)
	assert.Equal(t, "Modern Optical", profiles[0].Name)
	assert.Equal(t, []string{"modernoptical.com"}, profiles[0].Domains)
	assert.True(t, profiles[0].Active)

	assert.Equal(t, "safilo", profiles[1].Name)
	assert.Equal(t, 3, profiles[1].RequiredMatches)
	assert.Equal(t, core.TierWeights{Domain: 90, Weak: 65}, profiles[1].Weights)
	assert.False(t, profiles[1].Active)
}

func TestFileSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no code", "vendors:\n  - id: 1\n", "no code"},
		{"no id", "vendors:\n  - code: safilo\n", "no id"},
		{"duplicate code", "vendors:\n  - {id: 1, code: safilo}\n  - {id: 2, code: safilo}\n", "duplicate vendor profile code"},
		{"duplicate id", "vendors:\n  - {id: 1, code: safilo}\n  - {id: 1, code: marchon}\n", "duplicate vendor profile id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileSource(writeFile(t, tt.content), zap.NewNop()).LoadProfiles(context.Background())
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestFileSource_Empty(t *testing.T) {
	_, err := NewFileSource(writeFile(t, "vendors: []\n"), zap.NewNop()).LoadProfiles(context.Background())
	assert.ErrorIs(t, err, core.ErrNoProfiles)
}

func TestFileSource_MissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop()).LoadProfiles(context.Background())
	assert.Error(t, err)
}

func TestShippedVendorFile(t *testing.T) {
	profiles, err := NewFileSource("../../../configs/vendors.yaml", zap.NewNop()).LoadProfiles(context.Background())
	require.NoError(t, err)

	codes := make([]string, 0, len(profiles))
	for _, p := range profiles {
		codes = append(codes, p.Code)
	}
	assert.ElementsMatch(t, []string{"modern_optical", "safilo", "luxottica", "marchon"}, codes)
}
