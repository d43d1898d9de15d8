package expense

import "time"

// Expense represents one recognized bill
type Expense struct {
	ID        string    `json:"id"`
	Vendor    string    `json:"vendor"`
	Amount    float64   `json:"amount"`
	Date      string    `json:"date"` // YYYY-MM-DD, as returned by the extractor
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is an expense before an ID has been assigned, the shape the
// extraction layer produces
type Draft struct {
	Vendor   string  `json:"vendor"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Category string  `json:"category"`
}
