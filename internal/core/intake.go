package core

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IntakeResult summarises what happened to one inbound email
type IntakeResult struct {
	EmailID           string          `json:"email_id"`
	ParseStatus       ParseStatus     `json:"parse_status"`
	Classification    *Classification `json:"classification"`
	Extracted         *ExtractedOrder `json:"extracted,omitempty"`
	Order             *Order          `json:"order,omitempty"`
	OrderCreated      bool            `json:"order_created"`
	NewCatalogEntries int             `json:"new_catalog_entries"`
	Review            *ReviewEntry    `json:"review,omitempty"`
}

// IntakeService runs the classification and extraction pipeline for inbound email
type IntakeService struct {
	profiles   ProfileProvider
	resolver   SenderResolver
	classifier VendorClassifier
	extractors ExtractorRegistry
	catalog    *CatalogService
	orders     *OrderService
	emails     EmailRepository
	review     ReviewQueue
	advisor    VendorAdvisor
	logger     *zap.Logger
	clock      func() time.Time
}

// NewIntakeService creates a new intake service. advisor may be nil.
func NewIntakeService(
	profiles ProfileProvider,
	resolver SenderResolver,
	classifier VendorClassifier,
	extractors ExtractorRegistry,
	catalog *CatalogService,
	orders *OrderService,
	store Store,
	advisor VendorAdvisor,
	logger *zap.Logger,
) *IntakeService {
	return &IntakeService{
		profiles:   profiles,
		resolver:   resolver,
		classifier: classifier,
		extractors: extractors,
		catalog:    catalog,
		orders:     orders,
		emails:     store,
		review:     store,
		advisor:    advisor,
		logger:     logger,
		clock:      time.Now,
	}
}

// Process records an inbound email and runs it through the pipeline. Low
// confidence and empty extractions are outcomes, not errors; only storage
// failures are returned.
func (s *IntakeService) Process(ctx context.Context, email *Email) (*IntakeResult, error) {
	if email == nil {
		return nil, errors.New("nil email")
	}

	receivedAt := email.Date
	if receivedAt.IsZero() {
		receivedAt = s.clock()
	}

	inbound := &InboundEmail{
		ID:          uuid.NewString(),
		Sender:      NormalizeAddress(email.From),
		Subject:     email.Subject,
		PlainText:   email.PlainText,
		HTML:        email.HTML,
		ReceivedAt:  receivedAt,
		ParseStatus: ParseStatusUnparsed,
	}
	if err := s.emails.SaveEmail(ctx, inbound); err != nil {
		return nil, fmt.Errorf("failed to record inbound email: %w", err)
	}

	return s.run(ctx, inbound, email)
}

// Replay re-runs the pipeline over the preserved content of a stored email
func (s *IntakeService) Replay(ctx context.Context, emailID string) (*IntakeResult, error) {
	inbound, err := s.emails.GetEmail(ctx, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to load email %s: %w", emailID, err)
	}

	email := &Email{
		From:      inbound.Sender,
		Subject:   inbound.Subject,
		Date:      inbound.ReceivedAt,
		PlainText: inbound.PlainText,
		HTML:      inbound.HTML,
	}
	inbound.ParseStatus = ParseStatusUnparsed
	inbound.Order = nil
	inbound.Error = ""

	return s.run(ctx, inbound, email)
}

func (s *IntakeService) run(ctx context.Context, inbound *InboundEmail, email *Email) (*IntakeResult, error) {
	result := &IntakeResult{EmailID: inbound.ID}

	profiles, err := s.profiles.Profiles(ctx)
	if err != nil {
		s.logger.Error("Vendor profiles unavailable, classifying without rules",
			zap.String("email_id", inbound.ID),
			zap.Error(err))
		profiles = nil
	}

	body := email.PlainText
	if email.HTML != "" {
		body = body + "\n" + email.HTML
	}

	resolution := s.resolver.Resolve(body, profiles)
	sender := s.selectSender(inbound.Sender, resolution)
	if sender != inbound.Sender {
		inbound.ResolvedSender = sender
		s.logger.Debug("Resolved forwarded sender",
			zap.String("envelope", inbound.Sender),
			zap.String("resolved", sender))
	}

	classification := s.classifier.Classify(ClassifyInput{
		Sender:  sender,
		Subject: email.Subject,
		Body:    body,
	}, profiles)
	inbound.Classification = &classification
	result.Classification = &classification

	s.logger.Info("Classified email",
		zap.String("email_id", inbound.ID),
		zap.String("sender", sender),
		zap.String("vendor", classification.Vendor),
		zap.Int("confidence", classification.Confidence),
		zap.String("method", string(classification.Method)))

	if !classification.Success {
		return s.toReview(ctx, result, inbound, email, profiles, ReviewUnknownVendor, classification.Reason)
	}

	extractor, ok := s.extractors.Lookup(classification.VendorCode)
	if !ok {
		return s.toReview(ctx, result, inbound, email, profiles, ReviewNoExtractor, classification.VendorCode)
	}

	extracted, err := safeExtract(extractor, email.HTML, email.PlainText, sender)
	if err != nil {
		s.logger.Warn("Extractor failed",
			zap.String("email_id", inbound.ID),
			zap.String("vendor", classification.VendorCode),
			zap.Error(err))
		return s.toReview(ctx, result, inbound, email, profiles, ReviewExtractorError, err.Error())
	}
	result.Extracted = extracted
	inbound.Order = extracted

	if len(extracted.Items) == 0 {
		return s.toReview(ctx, result, inbound, email, profiles, ReviewEmptyExtraction, "no line items found")
	}

	created, err := s.catalog.CacheOrder(ctx, classification.VendorID, extracted)
	if err != nil {
		return nil, s.persistenceFailure(ctx, inbound, err)
	}
	result.NewCatalogEntries = created

	order, orderCreated, err := s.orders.RecordExtractedOrder(ctx, classification.VendorID, classification.VendorCode, inbound.ID, extracted)
	if err != nil {
		return nil, s.persistenceFailure(ctx, inbound, err)
	}
	result.Order = order
	result.OrderCreated = orderCreated

	inbound.ParseStatus = ParseStatusParsed
	if err := s.emails.UpdateEmailOutcome(ctx, inbound); err != nil {
		return nil, fmt.Errorf("failed to record parse outcome: %w", err)
	}
	result.ParseStatus = ParseStatusParsed

	s.logger.Info("Parsed vendor order",
		zap.String("email_id", inbound.ID),
		zap.String("vendor", classification.VendorCode),
		zap.String("order_number", extracted.Order.OrderNumber),
		zap.Int("items", len(extracted.Items)),
		zap.Int("new_catalog_entries", created))

	return result, nil
}

// selectSender picks the address the classifier should trust. A vendor-matched
// body address wins, then a non-denied envelope sender, then any other body
// address, so a non-vendor address quoted in the body never displaces a usable
// envelope sender.
func (s *IntakeService) selectSender(envelope string, resolution Resolution) string {
	switch {
	case resolution.Address != "" && resolution.VendorMatch:
		return resolution.Address
	case envelope != "" && !s.resolver.IsDenied(envelope):
		return envelope
	case resolution.Address != "":
		return resolution.Address
	default:
		return envelope
	}
}

func (s *IntakeService) toReview(
	ctx context.Context,
	result *IntakeResult,
	inbound *InboundEmail,
	email *Email,
	profiles []VendorProfile,
	reason ReviewReason,
	detail string,
) (*IntakeResult, error) {
	entry := &ReviewEntry{
		ID:             uuid.NewString(),
		EmailID:        inbound.ID,
		Reason:         reason,
		Detail:         detail,
		Classification: inbound.Classification,
		CreatedAt:      s.clock(),
	}

	if s.advisor != nil && reason == ReviewUnknownVendor {
		suggestion, err := s.advisor.SuggestVendor(ctx, email, profiles)
		if err != nil {
			s.logger.Warn("Vendor advisor failed", zap.String("email_id", inbound.ID), zap.Error(err))
		} else {
			entry.Suggestion = suggestion
		}
	}

	inbound.ParseStatus = ParseStatusFailed
	inbound.Error = string(reason)
	if detail != "" {
		inbound.Error += ": " + detail
	}

	if err := s.emails.UpdateEmailOutcome(ctx, inbound); err != nil {
		return nil, fmt.Errorf("failed to record parse outcome: %w", err)
	}
	if err := s.review.Enqueue(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to enqueue email for review: %w", err)
	}

	s.logger.Info("Routed email to manual review",
		zap.String("email_id", inbound.ID),
		zap.String("reason", string(reason)),
		zap.String("detail", detail))

	result.ParseStatus = ParseStatusFailed
	result.Review = entry
	return result, nil
}

// persistenceFailure keeps the email unparsed for replay and wraps err
func (s *IntakeService) persistenceFailure(ctx context.Context, inbound *InboundEmail, err error) error {
	inbound.ParseStatus = ParseStatusUnparsed
	inbound.Error = err.Error()
	if updateErr := s.emails.UpdateEmailOutcome(ctx, inbound); updateErr != nil {
		s.logger.Error("Failed to record persistence failure",
			zap.String("email_id", inbound.ID),
			zap.Error(updateErr))
	}
	return fmt.Errorf("failed to persist extracted order: %w", err)
}

// safeExtract runs an extractor, turning a panic into an error
func safeExtract(extractor Extractor, markup, plainText, sender string) (order *ExtractedOrder, err error) {
	defer func() {
		if r := recover(); r != nil {
			order = nil
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()

	order, err = extractor.Extract(markup, plainText, sender)
	if err == nil && order == nil {
		err = errors.New("extractor returned no order")
	}
	return order, err
}

// NormalizeAddress reduces "Name <addr>" forms to a lower-case bare address
func NormalizeAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(s); err == nil {
		return strings.ToLower(addr.Address)
	}
	if start, end := strings.LastIndex(s, "<"), strings.LastIndex(s, ">"); start >= 0 && end > start {
		s = s[start+1 : end]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// DomainOf returns the lower-case domain part of an address
func DomainOf(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.Trim(strings.ToLower(address[at+1:]), " .>")
}
