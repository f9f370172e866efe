package core

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a stored record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition is returned when an order status change is not allowed
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrNoProfiles is returned when a profile source yields nothing usable
	ErrNoProfiles = errors.New("no vendor profiles available")
)

// ProfileSource loads vendor profiles from their backing configuration store
type ProfileSource interface {
	LoadProfiles(ctx context.Context) ([]VendorProfile, error)
}

// ProfileProvider serves the current set of active vendor profiles
type ProfileProvider interface {
	Profiles(ctx context.Context) ([]VendorProfile, error)
}

// Resolution is the outcome of forwarded-sender resolution
type Resolution struct {
	// Address is the best-guess true sender, empty when nothing usable was found
	Address string
	// VendorMatch is true when Address matched a known vendor domain
	VendorMatch bool
	// Candidates lists every address that survived the deny-list
	Candidates []string
}

// SenderResolver finds the true vendor sender buried in forwarded mail
type SenderResolver interface {
	Resolve(body string, profiles []VendorProfile) Resolution
	IsDenied(address string) bool
}

// ClassifyInput is what the classifier looks at
type ClassifyInput struct {
	Sender  string
	Subject string
	Body    string
}

// VendorClassifier identifies the vendor of an email
type VendorClassifier interface {
	Classify(in ClassifyInput, profiles []VendorProfile) Classification
}

// Extractor turns one vendor's markup into a structured order
type Extractor interface {
	Extract(markup, plainText, sender string) (*ExtractedOrder, error)
}

// ExtractorRegistry resolves a vendor code to its extractor
type ExtractorRegistry interface {
	Lookup(vendorCode string) (Extractor, bool)
}

// CatalogRepository persists catalog entries keyed by their natural key
type CatalogRepository interface {
	// UpsertCatalogEntry inserts or merges an entry atomically and reports whether it was created
	UpsertCatalogEntry(ctx context.Context, entry *CatalogEntry) (*CatalogEntry, bool, error)

	// GetCatalogEntry returns the entry stored under key
	GetCatalogEntry(ctx context.Context, key CatalogKey) (*CatalogEntry, error)

	// ListCatalogEntries returns a vendor's entries at or above minConfidence
	ListCatalogEntries(ctx context.Context, vendorID int64, minConfidence int) ([]CatalogEntry, error)
}

// OrderRepository persists orders and their inventory rows. Every inventory
// mutation recomputes the owning order's status inside the same transaction.
type OrderRepository interface {
	// EnsureOrder inserts the order unless one with the same vendor and number exists
	EnsureOrder(ctx context.Context, order *Order) (bool, error)

	// CreateOrderWithItems inserts the order, its inventory rows and the derived
	// status atomically. An order already stored under the same vendor and number
	// is loaded into order, nothing is written and false is returned.
	CreateOrderWithItems(ctx context.Context, order *Order, items []InventoryItem) (bool, error)

	GetOrder(ctx context.Context, id int64) (*Order, error)
	FindOrder(ctx context.Context, vendorCode, orderNumber string) (*Order, error)

	AddInventoryItems(ctx context.Context, orderID int64, items []InventoryItem) error
	SetItemReceived(ctx context.Context, itemID int64, received bool) error
	DeleteInventoryItem(ctx context.Context, itemID int64) error
	ListInventoryItems(ctx context.Context, orderID int64) ([]InventoryItem, error)

	// SetTerminalStatus applies an externally driven terminal status
	SetTerminalStatus(ctx context.Context, orderID int64, status OrderStatus) error

	// RecomputeStatus re-derives the order status and reports whether it changed
	RecomputeStatus(ctx context.Context, orderID int64) (OrderStatus, bool, error)

	ListNonTerminalOrderIDs(ctx context.Context) ([]int64, error)
}

// EmailRepository records inbound emails and their outcome
type EmailRepository interface {
	SaveEmail(ctx context.Context, email *InboundEmail) error
	UpdateEmailOutcome(ctx context.Context, email *InboundEmail) error
	GetEmail(ctx context.Context, id string) (*InboundEmail, error)
}

// ReviewQueue is the manual-review sink
type ReviewQueue interface {
	Enqueue(ctx context.Context, entry *ReviewEntry) error
	ListPending(ctx context.Context, limit int) ([]ReviewEntry, error)
}

// VendorAdvisor suggests a vendor for emails the classifier could not place
type VendorAdvisor interface {
	SuggestVendor(ctx context.Context, email *Email, profiles []VendorProfile) (*VendorSuggestion, error)
}

// Store bundles every repository a storage backend provides
type Store interface {
	CatalogRepository
	OrderRepository
	EmailRepository
	ReviewQueue
}
