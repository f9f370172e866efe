package classify

import (
	"strings"
	"time"

	"github.com/mikey/vendor-order-intake/internal/core"
	"go.uber.org/zap"
)

const (
	DefaultDomainWeight    = 95
	DefaultSignatureWeight = 85
	DefaultWeakWeight      = 60
	DefaultRequiredMatches = 2
	DefaultAcceptFloor     = 70
)

// Reasons reported on unsuccessful classifications
const (
	ReasonMissingSender  = "missing_sender"
	ReasonNoProfiles     = "no_active_profiles"
	ReasonBelowThreshold = "below_threshold"
)

// Thresholds holds the classifier's tunable parameters
type Thresholds struct {
	AcceptFloor     int
	Weights         core.TierWeights
	RequiredMatches int
}

// DefaultThresholds returns the documented default parameters
func DefaultThresholds() Thresholds {
	return Thresholds{
		AcceptFloor: DefaultAcceptFloor,
		Weights: core.TierWeights{
			Domain:    DefaultDomainWeight,
			Signature: DefaultSignatureWeight,
			Weak:      DefaultWeakWeight,
		},
		RequiredMatches: DefaultRequiredMatches,
	}
}

// Classifier is the three-tier vendor classifier
type Classifier struct {
	thresholds Thresholds
	logger     *zap.Logger
	clock      func() time.Time
}

// NewClassifier creates a new classifier. Zero thresholds fall back to the defaults.
func NewClassifier(thresholds Thresholds, logger *zap.Logger) *Classifier {
	defaults := DefaultThresholds()
	if thresholds.AcceptFloor <= 0 {
		thresholds.AcceptFloor = defaults.AcceptFloor
	}
	if thresholds.Weights.Domain <= 0 {
		thresholds.Weights.Domain = defaults.Weights.Domain
	}
	if thresholds.Weights.Signature <= 0 {
		thresholds.Weights.Signature = defaults.Weights.Signature
	}
	if thresholds.Weights.Weak <= 0 {
		thresholds.Weights.Weak = defaults.Weights.Weak
	}
	if thresholds.RequiredMatches <= 0 {
		thresholds.RequiredMatches = defaults.RequiredMatches
	}

	return &Classifier{
		thresholds: thresholds,
		logger:     logger,
		clock:      time.Now,
	}
}

type candidate struct {
	profile *core.VendorProfile
	score   int
	method  core.ClassificationMethod
	signals core.Signals
}

// Classify evaluates the tiers in order and always returns a structured result
func (c *Classifier) Classify(in core.ClassifyInput, profiles []core.VendorProfile) core.Classification {
	start := c.clock()
	finish := func(r core.Classification) core.Classification {
		r.Confidence = clampScore(r.Confidence)
		r.ExecutionTimeMs = c.clock().Sub(start).Milliseconds()
		return r
	}

	sender := core.NormalizeAddress(in.Sender)
	if sender == "" || !strings.Contains(sender, "@") {
		return finish(core.Classification{
			Vendor:            core.UnknownVendor,
			NeedsManualReview: true,
			Reason:            ReasonMissingSender,
		})
	}

	active := make([]core.VendorProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.Active {
			active = append(active, p)
		}
	}

	base := core.Signals{Sender: sender, SenderDomain: core.DomainOf(sender)}
	if len(active) == 0 {
		c.logger.Warn("No active vendor profiles configured")
		return finish(core.Classification{
			Vendor:            core.UnknownVendor,
			Signals:           base,
			NeedsManualReview: true,
			Reason:            ReasonNoProfiles,
		})
	}

	// Tier 1
	if base.SenderDomain != "" {
		for i := range active {
			p := &active[i]
			for _, fragment := range p.Domains {
				f := normalizeFragment(fragment)
				if f == "" || !strings.Contains(base.SenderDomain, f) {
					continue
				}
				signals := base
				signals.MatchedDomain = f
				return finish(c.success(candidate{
					profile: p,
					score:   c.weightsFor(p).Domain,
					method:  core.MethodDomain,
					signals: signals,
				}))
			}
		}
	}

	body := NormalizeText(in.Body)
	subject := NormalizeText(in.Subject)
	scores := make([]core.VendorScore, len(active))
	var best *candidate

	consider := func(cand candidate) {
		if best == nil || cand.score > best.score {
			best = &cand
		}
	}

	// Tier 2
	for i := range active {
		p := &active[i]
		weights := c.weightsFor(p)
		scores[i] = core.VendorScore{VendorCode: p.Code, RequiredWeak: c.requiredFor(p)}

		matched := containedTerms(body, p.Signatures)
		if len(matched) == 0 {
			continue
		}
		scores[i].SignatureMatch = true
		scores[i].Score = weights.Signature
		scores[i].Method = core.MethodBodySignature

		signals := base
		signals.Signatures = matched
		consider(candidate{profile: p, score: weights.Signature, method: core.MethodBodySignature, signals: signals})
	}

	if best != nil && best.score >= c.thresholds.AcceptFloor {
		return finish(c.success(*best))
	}

	// Tier 3
	for i := range active {
		p := &active[i]
		weights := c.weightsFor(p)
		subjectHits := containedTerms(subject, p.SubjectKeywords)
		bodyHits := containedTerms(body, p.BodyKeywords)
		count := len(subjectHits) + len(bodyHits)
		scores[i].WeakMatches = count

		if count < scores[i].RequiredWeak {
			continue
		}
		if weights.Weak > scores[i].Score {
			scores[i].Score = weights.Weak
			scores[i].Method = core.MethodWeakPatterns
		}

		signals := base
		signals.SubjectKeywords = subjectHits
		signals.BodyKeywords = bodyHits
		consider(candidate{profile: p, score: weights.Weak, method: core.MethodWeakPatterns, signals: signals})
	}

	if best != nil && best.score >= c.thresholds.AcceptFloor {
		return finish(c.success(*best))
	}

	result := core.Classification{
		Vendor:            core.UnknownVendor,
		Signals:           base,
		NeedsManualReview: true,
		Reason:            ReasonBelowThreshold,
		Debug:             &core.ClassificationDebug{AllScores: scores},
	}
	if best != nil {
		result.Confidence = best.score
		result.Method = best.method
	}

	c.logger.Debug("No vendor reached the acceptance floor",
		zap.String("sender", sender),
		zap.Int("best_score", result.Confidence),
		zap.Int("floor", c.thresholds.AcceptFloor))

	return finish(result)
}

func (c *Classifier) success(cand candidate) core.Classification {
	c.logger.Debug("Classified vendor",
		zap.String("vendor", cand.profile.Code),
		zap.String("method", string(cand.method)),
		zap.Int("confidence", cand.score))

	return core.Classification{
		Success:    true,
		Vendor:     cand.profile.Name,
		VendorCode: cand.profile.Code,
		VendorID:   cand.profile.ID,
		Confidence: cand.score,
		Method:     cand.method,
		Signals:    cand.signals,
	}
}

// weightsFor fills a profile's missing tier weights from the configured defaults
func (c *Classifier) weightsFor(p *core.VendorProfile) core.TierWeights {
	w := p.Weights
	if w.Domain <= 0 {
		w.Domain = c.thresholds.Weights.Domain
	}
	if w.Signature <= 0 {
		w.Signature = c.thresholds.Weights.Signature
	}
	if w.Weak <= 0 {
		w.Weak = c.thresholds.Weights.Weak
	}
	return w
}

func (c *Classifier) requiredFor(p *core.VendorProfile) int {
	if p.RequiredMatches > 0 {
		return p.RequiredMatches
	}
	return c.thresholds.RequiredMatches
}

// containedTerms returns the normalised terms that occur in text
func containedTerms(text string, terms []string) []string {
	if text == "" {
		return nil
	}
	var matched []string
	for _, term := range terms {
		t := NormalizeText(term)
		if t != "" && strings.Contains(text, t) {
			matched = append(matched, t)
		}
	}
	return matched
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
