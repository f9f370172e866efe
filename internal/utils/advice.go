package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/vendor-order-intake/internal/core"
)

// AdvicePrompt is the shared instruction sent to every review advisor model
const AdvicePrompt = `You help route supplier order confirmation emails for an optical retailer.
The automatic classifier could not tell which vendor sent the email below.
Known vendor codes: %s

Respond with a JSON object containing:
- vendor_code: string (one of the known codes, or "unknown")
- confidence: number between 0 and 1
- explanation: string (brief reason, name the evidence you used)

Email:
From: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// VendorAdvice is the structured reply expected from an advisor model
type VendorAdvice struct {
	VendorCode  string  `json:"vendor_code"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// BuildAdvicePrompt renders the advisor prompt for an email. body should
// already be truncated to the provider's limit.
func BuildAdvicePrompt(email *core.Email, profiles []core.VendorProfile, body string) string {
	codes := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.Active {
			codes = append(codes, p.Code)
		}
	}
	known := strings.Join(codes, ", ")
	if known == "" {
		known = "(none)"
	}
	return fmt.Sprintf(AdvicePrompt, known, email.From, email.Subject, body)
}

// AdviceBody picks the text an advisor should read
func AdviceBody(email *core.Email) string {
	if strings.TrimSpace(email.PlainText) != "" {
		return email.PlainText
	}
	return email.HTML
}

// ParseVendorAdvice decodes a model reply into a suggestion. Codes that are
// not among the active profiles are reported as unknown.
func ParseVendorAdvice(reply string, profiles []core.VendorProfile, model string) (*core.VendorSuggestion, error) {
	var advice VendorAdvice
	if err := json.Unmarshal([]byte(reply), &advice); err != nil {
		object, extractErr := ExtractJSONObject(reply)
		if extractErr != nil {
			return nil, fmt.Errorf("failed to extract JSON from advisor response: %w", extractErr)
		}
		if err := json.Unmarshal([]byte(object), &advice); err != nil {
			return nil, fmt.Errorf("failed to parse advisor response as JSON: %w", err)
		}
	}

	code := strings.ToLower(strings.TrimSpace(advice.VendorCode))
	known := false
	for _, p := range profiles {
		if p.Active && p.Code == code {
			known = true
			break
		}
	}
	if !known {
		code = core.UnknownVendor
	}

	confidence := advice.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &core.VendorSuggestion{
		VendorCode:  code,
		Confidence:  confidence,
		Explanation: advice.Explanation,
		ModelUsed:   model,
	}, nil
}
