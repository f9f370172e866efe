package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTextProcessor_TruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "short", tp.TruncateText("short", 100))
	assert.Equal(t, "short", tp.TruncateText("short", 0))

	out := tp.TruncateText("héllo wörld", 2)
	assert.True(t, strings.HasPrefix(out, "h\n[..."))
	assert.True(t, utf8.ValidString(out))
}

func TestTextProcessor_SanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)
	assert.Equal(t, "ok", tp.SanitizeUTF8("o\xffk"))
	assert.Equal(t, "Montréal", tp.SanitizeUTF8("Montréal"))
}

func TestExtractJSONObject(t *testing.T) {
	object, err := ExtractJSONObject("Sure!\n```json\n{\"vendor_code\": \"safilo\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"vendor_code": "safilo"}`, object)

	_, err = ExtractJSONObject("no braces here")
	assert.ErrorIs(t, err, ErrNoJSONObject)
}

func adviceProfiles() []core.VendorProfile {
	return []core.VendorProfile{
		{Code: "safilo", Active: true},
		{Code: "marchon", Active: true},
		{Code: "retired", Active: false},
	}
}

func TestParseVendorAdvice(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		code       string
		confidence float64
		wantErr    bool
	}{
		{"plain json", `{"vendor_code":"safilo","confidence":0.82,"explanation":"BRAND: markers"}`, "safilo", 0.82, false},
		{"wrapped in prose", "Here you go: {\"vendor_code\":\"MARCHON\",\"confidence\":1.4}", "marchon", 1, false},
		{"unknown code", `{"vendor_code":"acme","confidence":0.5}`, core.UnknownVendor, 0.5, false},
		{"inactive code", `{"vendor_code":"retired","confidence":0.5}`, core.UnknownVendor, 0.5, false},
		{"negative confidence", `{"vendor_code":"safilo","confidence":-2}`, "safilo", 0, false},
		{"garbage", "I cannot tell", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestion, err := ParseVendorAdvice(tt.reply, adviceProfiles(), "test-model")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.code, suggestion.VendorCode)
			assert.InDelta(t, tt.confidence, suggestion.Confidence, 0.0001)
			assert.Equal(t, "test-model", suggestion.ModelUsed)
		})
	}
}

func TestBuildAdvicePrompt(t *testing.T) {
	email := &core.Email{From: "buyer@gmail.com", Subject: "Fwd: confirmation"}
	prompt := BuildAdvicePrompt(email, adviceProfiles(), "BRAND: CARRERA")

	assert.Contains(t, prompt, "Known vendor codes: safilo, marchon\n")
	assert.Contains(t, prompt, "From: buyer@gmail.com")
	assert.Contains(t, prompt, "BRAND: CARRERA")
	assert.NotContains(t, prompt, "retired")
}

func TestAdviceBody(t *testing.T) {
	assert.Equal(t, "text", AdviceBody(&core.Email{PlainText: "text", HTML: "<p>html</p>"}))
	assert.Equal(t, "<p>html</p>", AdviceBody(&core.Email{PlainText: "  ", HTML: "<p>html</p>"}))
}
