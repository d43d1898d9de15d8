package expense

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCategories seeds a new store when no category list is configured.
var DefaultCategories = []string{
	"Groceries", "Utilities", "Entertainment", "Dining Out", "Transport", "Uncategorized",
}

// IDGenerator generates unique IDs for expenses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Store holds the session's expenses and category labels in memory.
// Expenses are kept newest first; categories are an ordered set with
// case-insensitive uniqueness. Nothing is ever deleted or updated, and
// nothing survives the process.
type Store struct {
	mu          sync.RWMutex
	expenses    []*Expense
	categories  []string
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewStore creates a Store seeded with the given categories. Empty and
// duplicate labels in the seed list are dropped the same way user input is.
func NewStore(categories []string) *Store {
	return NewStoreWithDeps(categories, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewStoreWithDeps creates a Store with custom dependencies for testing
func NewStoreWithDeps(categories []string, idGen IDGenerator, timeSrc TimeSource) *Store {
	s := &Store{
		expenses:    make([]*Expense, 0),
		categories:  make([]string, 0, len(categories)),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
	for _, c := range categories {
		s.RegisterCategory(c)
	}
	return s
}

// Append assigns a fresh ID to the draft and inserts it at the front of
// the list, so position 0 is always the most recent expense.
func (s *Store) Append(d Draft) *Expense {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &Expense{
		ID:        s.idGenerator.Generate(),
		Vendor:    d.Vendor,
		Amount:    d.Amount,
		Date:      d.Date,
		Category:  d.Category,
		CreatedAt: s.timeSource.Now(),
	}
	s.expenses = append([]*Expense{e}, s.expenses...)
	return e
}

// RegisterCategory adds a label to the category set. Empty or whitespace
// labels and case-insensitive duplicates are no-ops. Reports whether the
// set grew.
func (s *Store) RegisterCategory(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if strings.EqualFold(c, label) {
			return false
		}
	}
	s.categories = append(s.categories, label)
	return true
}

// Expenses returns a copy of the expense list, newest first
func (s *Store) Expenses() []*Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Expense, len(s.expenses))
	copy(out, s.expenses)
	return out
}

// Categories returns a copy of the category labels in registration order
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}
