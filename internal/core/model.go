package core

import (
	"time"
)

// Email represents an inbound message as delivered by an intake transport
type Email struct {
	From        string              `json:"from"`
	To          []string            `json:"to"`
	Subject     string              `json:"subject"`
	Date        time.Time           `json:"date"`
	PlainText   string              `json:"plainText"`
	HTML        string              `json:"html"`
	Attachments []Attachment        `json:"attachments"`
	SpamScore   float64             `json:"spamScore"`
	Headers     map[string][]string `json:"-"`
}

// Attachment describes a file attached to an inbound email
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// ParseStatus records the extraction outcome of an inbound email
type ParseStatus string

const (
	ParseStatusUnparsed ParseStatus = "unparsed"
	ParseStatusParsed   ParseStatus = "parsed"
	ParseStatusFailed   ParseStatus = "failed"
)

// InboundEmail is the persisted record of one received message
type InboundEmail struct {
	ID             string          `json:"id"`
	Sender         string          `json:"sender"`
	ResolvedSender string          `json:"resolved_sender,omitempty"`
	Subject        string          `json:"subject"`
	PlainText      string          `json:"plain_text"`
	HTML           string          `json:"html"`
	ReceivedAt     time.Time       `json:"received_at"`
	Classification *Classification `json:"classification,omitempty"`
	ParseStatus    ParseStatus     `json:"parse_status"`
	Order          *ExtractedOrder `json:"order,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// TierWeights holds the confidence awarded by each classifier tier
type TierWeights struct {
	Domain    int `json:"domain" mapstructure:"domain"`
	Signature int `json:"signature" mapstructure:"signature"`
	Weak      int `json:"weak" mapstructure:"weak"`
}

// VendorProfile is the per-vendor classification rule set
type VendorProfile struct {
	ID              int64       `json:"id" mapstructure:"id"`
	Code            string      `json:"code" mapstructure:"code"`
	Name            string      `json:"name" mapstructure:"name"`
	Domains         []string    `json:"domains" mapstructure:"domains"`
	Signatures      []string    `json:"signatures" mapstructure:"signatures"`
	SubjectKeywords []string    `json:"subject_keywords" mapstructure:"subject_keywords"`
	BodyKeywords    []string    `json:"body_keywords" mapstructure:"body_keywords"`
	RequiredMatches int         `json:"required_matches" mapstructure:"required_matches"`
	Weights         TierWeights `json:"weights" mapstructure:"weights"`
	Active          bool        `json:"active" mapstructure:"active"`
}

// ClassificationMethod names the tier that produced a classification
type ClassificationMethod string

const (
	MethodDomain        ClassificationMethod = "domain"
	MethodBodySignature ClassificationMethod = "body_signature"
	MethodWeakPatterns  ClassificationMethod = "weak_patterns"
)

// UnknownVendor is reported when no vendor reaches the acceptance floor
const UnknownVendor = "unknown"

// Classification is the structured classifier outcome. It is never an error.
type Classification struct {
	Success           bool                 `json:"success"`
	Vendor            string               `json:"vendor"`
	VendorCode        string               `json:"vendorCode,omitempty"`
	VendorID          int64                `json:"vendorId,omitempty"`
	Confidence        int                  `json:"confidence"`
	Method            ClassificationMethod `json:"method,omitempty"`
	Signals           Signals              `json:"signals"`
	NeedsManualReview bool                 `json:"needsManualReview,omitempty"`
	Reason            string               `json:"reason,omitempty"`
	Debug             *ClassificationDebug `json:"debug,omitempty"`
	ExecutionTimeMs   int64                `json:"executionTimeMs"`
}

// Signals carries the evidence behind a classification
type Signals struct {
	Sender          string   `json:"sender,omitempty"`
	SenderDomain    string   `json:"senderDomain,omitempty"`
	MatchedDomain   string   `json:"matchedDomain,omitempty"`
	Signatures      []string `json:"signatures,omitempty"`
	SubjectKeywords []string `json:"subjectKeywords,omitempty"`
	BodyKeywords    []string `json:"bodyKeywords,omitempty"`
}

// ClassificationDebug is attached to unknown results for manual review
type ClassificationDebug struct {
	AllScores []VendorScore `json:"allScores"`
}

// VendorScore is one row of the diagnostic score table
type VendorScore struct {
	VendorCode     string               `json:"vendorCode"`
	Score          int                  `json:"score"`
	Method         ClassificationMethod `json:"method,omitempty"`
	WeakMatches    int                  `json:"weakMatches"`
	RequiredWeak   int                  `json:"requiredWeak"`
	SignatureMatch bool                 `json:"signatureMatch"`
}

// OrderHeader carries the header fields of an extracted purchase order
type OrderHeader struct {
	OrderNumber     string `json:"order_number"`
	CustomerName    string `json:"customer_name"`
	CustomerAccount string `json:"customer_account,omitempty"`
	OrderDate       string `json:"order_date"`
	RepName         string `json:"rep_name"`
	TotalPieces     int    `json:"total_pieces"`
	PONumber        string `json:"po_number,omitempty"`
	ShipTo          string `json:"ship_to,omitempty"`
}

// ExtractedOrder is the immutable result of running a vendor extractor
type ExtractedOrder struct {
	Vendor string      `json:"vendor"`
	Order  OrderHeader `json:"order"`
	Items  []LineItem  `json:"items"`
}

// Pieces sums the quantities of all extracted line items
func (o *ExtractedOrder) Pieces() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// LineItem is a single SKU line of an extracted order
type LineItem struct {
	Brand            string   `json:"brand"`
	BrandRaw         string   `json:"brand_raw,omitempty"`
	Model            string   `json:"model"`
	Color            string   `json:"color"`
	ColorRaw         string   `json:"color_raw,omitempty"`
	ColorCode        string   `json:"color_code,omitempty"`
	Size             string   `json:"size"`
	EyeSize          string   `json:"eye_size"`
	Bridge           string   `json:"bridge,omitempty"`
	Temple           string   `json:"temple,omitempty"`
	Quantity         int      `json:"quantity"`
	UPC              string   `json:"upc,omitempty"`
	SKU              string   `json:"sku,omitempty"`
	UnitPrice        *float64 `json:"unit_price,omitempty"`
	RetailPrice      *float64 `json:"retail_price,omitempty"`
	Material         string   `json:"material,omitempty"`
	ShipDate         string   `json:"ship_date,omitempty"`
	Status           string   `json:"status"`
	Confidence       int      `json:"confidence"`
	ValidationReason string   `json:"validation_reason,omitempty"`
}

// LineItemStatusPending is the receipt state of freshly extracted items
const LineItemStatusPending = "pending"

// CatalogSource tags where a catalog attribute came from
type CatalogSource string

const (
	SourceExtracted CatalogSource = "extracted"
	SourceEnriched  CatalogSource = "enriched"
)

// CatalogKey is the natural key of a catalog entry
type CatalogKey struct {
	VendorID int64  `json:"vendor_id"`
	ModelKey string `json:"model_key"`
	ColorKey string `json:"color_key"`
	EyeSize  string `json:"eye_size"`
}

// CatalogEntry is the deduplicated record of one observed SKU combination
type CatalogEntry struct {
	ID              int64         `json:"id"`
	Key             CatalogKey    `json:"key"`
	Brand           string        `json:"brand"`
	Model           string        `json:"model"`
	Color           string        `json:"color"`
	ColorNormalized string        `json:"color_normalized"`
	Material        string        `json:"material,omitempty"`
	UPC             string        `json:"upc,omitempty"`
	WholesalePrice  *float64      `json:"wholesale_price,omitempty"`
	RetailPrice     *float64      `json:"retail_price,omitempty"`
	InStock         *bool         `json:"in_stock,omitempty"`
	Confidence      int           `json:"confidence"`
	Verified        bool          `json:"verified"`
	Source          CatalogSource `json:"source"`
	Sightings       int           `json:"sightings"`
	FirstSeenAt     time.Time     `json:"first_seen_at"`
	LastSeenAt      time.Time     `json:"last_seen_at"`
}

// OrderStatus is the aggregate fulfilment state of a persisted order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a persisted business order
type Order struct {
	ID            int64       `json:"id"`
	OrderNumber   string      `json:"order_number"`
	VendorID      int64       `json:"vendor_id"`
	VendorCode    string      `json:"vendor_code"`
	Status        OrderStatus `json:"status"`
	TotalPieces   int         `json:"total_pieces"`
	SourceEmailID string      `json:"source_email_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// InventoryItem is one physical piece belonging to an order
type InventoryItem struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	LineNo    int       `json:"line_no"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Color     string    `json:"color"`
	Size      string    `json:"size"`
	UPC       string    `json:"upc,omitempty"`
	Received  bool      `json:"received"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewReason explains why an email was routed to manual review
type ReviewReason string

const (
	ReviewUnknownVendor   ReviewReason = "unknown_vendor"
	ReviewNoExtractor     ReviewReason = "no_extractor"
	ReviewExtractorError  ReviewReason = "extractor_error"
	ReviewEmptyExtraction ReviewReason = "empty_extraction"
)

// VendorSuggestion is an advisory vendor guess attached to a review entry
type VendorSuggestion struct {
	VendorCode  string  `json:"vendor_code"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	ModelUsed   string  `json:"model_used"`
}

// ReviewEntry is one item of the manual-review queue
type ReviewEntry struct {
	ID             string            `json:"id"`
	EmailID        string            `json:"email_id"`
	Reason         ReviewReason      `json:"reason"`
	Detail         string            `json:"detail,omitempty"`
	Classification *Classification   `json:"classification,omitempty"`
	Suggestion     *VendorSuggestion `json:"suggestion,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
