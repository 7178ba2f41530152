package odata

import (
	"encoding/json"
	"fmt"
)

// Page is the OData response envelope for collection reads.
type Page struct {
	// Count is the server-reported total row count, present when the
	// request asked for $count=true.
	Count *int64 `json:"@odata.count,omitempty"`

	// Value holds the rows of this page, in response order.
	Value []json.RawMessage `json:"value"`

	// NextLink is the ready-to-use absolute URL of the next page.
	// Empty on the last page.
	NextLink string `json:"@odata.nextLink,omitempty"`
}

// Items decodes raw collection rows into concrete values.
func Items[T any](raw []json.RawMessage) ([]T, error) {
	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}
