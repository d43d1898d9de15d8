package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseBillJSON parses the JSON response from the model. Models sometimes
// wrap the object in markdown fences or prose despite instructions, so the
// outermost object is located before unmarshaling. All four fields are
// required; their values are not validated beyond presence.
func parseBillJSON(text string) (*BillData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	// Pointer fields distinguish absent from zero-valued.
	var raw struct {
		Vendor   *string  `json:"vendor"`
		Amount   *float64 `json:"amount"`
		Date     *string  `json:"date"`
		Category *string  `json:"category"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if raw.Vendor == nil {
		return nil, fmt.Errorf("missing required field %q", "vendor")
	}
	if raw.Amount == nil {
		return nil, fmt.Errorf("missing required field %q", "amount")
	}
	if raw.Date == nil {
		return nil, fmt.Errorf("missing required field %q", "date")
	}
	if raw.Category == nil {
		return nil, fmt.Errorf("missing required field %q", "category")
	}

	return &BillData{
		Vendor:   *raw.Vendor,
		Amount:   *raw.Amount,
		Date:     *raw.Date,
		Category: *raw.Category,
	}, nil
}
