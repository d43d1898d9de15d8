package extraction

import "errors"

// BillData contains the expense fields extracted from a scanned bill.
// Date and Category are returned exactly as the model produced them;
// callers decide what to do with out-of-list categories.
type BillData struct {
	Vendor   string  `json:"vendor"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"` // YYYY-MM-DD expected
	Category string  `json:"category"`
}

// Input validation errors, raised before any network call is made.
var (
	ErrEmptyImage   = errors.New("empty image payload")
	ErrNoCategories = errors.New("at least one category is required")
)

// Extractor defines the interface for bill extraction operations
type Extractor interface {
	// ExtractBill analyzes a bill image/PDF and extracts an expense record,
	// choosing a category from the supplied list
	ExtractBill(imageData []byte, contentType string, categories []string) (*BillData, error)
	// Close closes the extractor and releases resources
	Close() error
}
