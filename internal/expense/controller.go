package expense

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zombor/pixel-budget/internal/extraction"
)

// State names the controller's user-visible condition
type State string

const (
	StateIdle  State = "idle"
	StateBusy  State = "busy"
	StateError State = "error"
)

var (
	// ErrBusy is returned when an action arrives while a scan is in flight
	ErrBusy = errors.New("a scan is already in progress")
	// ErrNoFile is returned when Scan is triggered with no file selected
	ErrNoFile = errors.New("select a bill image first")
)

// SelectedFile is the pending bill candidate awaiting a scan trigger
type SelectedFile struct {
	Name        string
	Data        []byte
	ContentType string
}

// Snapshot is a read-only view of the controller state for rendering
type Snapshot struct {
	State        State  `json:"state"`
	ErrorMessage string `json:"error,omitempty"`
	SelectedFile string `json:"selected_file,omitempty"`
}

// Controller mediates user actions against the extractor and the store.
// It is the only writer of the store and tracks the idle/busy/error state
// that gates the scan trigger. At most one extraction is in flight at a
// time: Scan refuses to start while another is running.
type Controller struct {
	mu        sync.Mutex
	store     *Store
	extractor extraction.Extractor

	state    State
	errMsg   string
	selected *SelectedFile
}

// NewController creates a Controller in the idle state with no file selected
func NewController(store *Store, extractor extraction.Extractor) *Controller {
	return &Controller{
		store:     store,
		extractor: extractor,
		state:     StateIdle,
	}
}

// SelectFile replaces the pending bill candidate. Allowed in any state;
// selecting a file clears a previous error but never touches a running
// scan.
func (c *Controller) SelectFile(name string, data []byte, contentType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selected = &SelectedFile{Name: name, Data: data, ContentType: contentType}
	if c.state == StateError {
		c.state = StateIdle
		c.errMsg = ""
	}
}

// Scan submits the selected file to the extractor and appends the result
// to the store. With no file selected the controller goes to the error
// state without contacting the extractor. On success the selected file is
// cleared; on failure it is kept so the user can retry without
// re-selecting it.
func (c *Controller) Scan() (*Expense, error) {
	c.mu.Lock()
	if c.state == StateBusy {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.selected == nil {
		c.state = StateError
		c.errMsg = ErrNoFile.Error()
		c.mu.Unlock()
		return nil, ErrNoFile
	}
	file := c.selected
	categories := c.store.Categories()
	c.state = StateBusy
	c.errMsg = ""
	c.mu.Unlock()

	// The lock is released for the duration of the network call; the busy
	// state keeps a second scan from starting.
	data, err := c.extractor.ExtractBill(file.Data, file.ContentType, categories)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		slog.Error("Failed to scan bill",
			"filename", file.Name,
			"content_type", file.ContentType,
			"file_size", len(file.Data),
			"error", err,
		)
		c.state = StateError
		c.errMsg = fmt.Sprintf("failed to process bill: %v", err)
		return nil, fmt.Errorf("scanning bill: %w", err)
	}

	e := c.store.Append(Draft{
		Vendor:   data.Vendor,
		Amount:   data.Amount,
		Date:     data.Date,
		Category: data.Category,
	})
	c.selected = nil
	c.state = StateIdle
	return e, nil
}

// AddCategory registers a new category label. Refused while a scan is in
// flight; otherwise a pure store call with no state-machine effect.
func (c *Controller) AddCategory(label string) (bool, error) {
	c.mu.Lock()
	if c.state == StateBusy {
		c.mu.Unlock()
		return false, ErrBusy
	}
	c.mu.Unlock()

	return c.store.RegisterCategory(label), nil
}

// Snapshot returns the current state, error message and selected filename
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: c.state, ErrorMessage: c.errMsg}
	if c.selected != nil {
		snap.SelectedFile = c.selected.Name
	}
	return snap
}
