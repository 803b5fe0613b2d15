package quotes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// VendorOption identifies a vendor invited to quote.
type VendorOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

// VendorQuote is one vendor's offer for one item. Quote is kept as entered.
type VendorQuote struct {
	Quote string `json:"quote,omitempty"`
	Make  string `json:"make,omitempty"`
}

// UnmarshalJSON accepts quotes sent as JSON numbers as well as strings.
func (q *VendorQuote) UnmarshalJSON(data []byte) error {
	var raw struct {
		Quote json.RawMessage `json:"quote"`
		Make  *string         `json:"make"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*q = VendorQuote{}
	if raw.Make != nil {
		q.Make = *raw.Make
	}
	quote, err := decodeQuote(raw.Quote)
	if err != nil {
		return err
	}
	q.Quote = quote
	return nil
}

// RawQuote is a quote value as sent by clients: a JSON string, a JSON number
// or null. It decodes to the same text VendorQuote stores.
type RawQuote string

// UnmarshalJSON implements json.Unmarshaler.
func (r *RawQuote) UnmarshalJSON(data []byte) error {
	quote, err := decodeQuote(data)
	if err != nil {
		return err
	}
	*r = RawQuote(quote)
	return nil
}

func decodeQuote(data []byte) (string, error) {
	quote := bytes.TrimSpace(data)
	switch {
	case len(quote) == 0, bytes.Equal(quote, []byte("null")):
		return "", nil
	case quote[0] == '"':
		var s string
		if err := json.Unmarshal(quote, &s); err != nil {
			return "", fmt.Errorf("quote: %w", err)
		}
		return strings.TrimSpace(s), nil
	default:
		var n json.Number
		if err := json.Unmarshal(quote, &n); err != nil {
			return "", fmt.Errorf("quote: %w", err)
		}
		return n.String(), nil
	}
}

// ItemDetail collects the make options and per-vendor quotes for one item.
type ItemDetail struct {
	Makes        []string               `json:"makes"`
	VendorQuotes map[string]VendorQuote `json:"vendorQuotes"`
}

// Details maps item id to its quote collection.
type Details map[string]ItemDetail

// RFQData is the quote collection persisted on a document as rfq_data.
type RFQData struct {
	SelectedVendors []VendorOption `json:"selectedVendors"`
	Details         Details        `json:"details"`
}

// EmptyRFQData returns the default structure used when nothing usable is stored.
func EmptyRFQData() RFQData {
	return RFQData{SelectedVendors: []VendorOption{}, Details: Details{}}
}

// IsEmpty reports whether no vendors and no item details were captured.
func (d RFQData) IsEmpty() bool {
	return len(d.SelectedVendors) == 0 && len(d.Details) == 0
}

// HasVendor reports whether vendorID is among the selected vendors.
func (d RFQData) HasVendor(vendorID string) bool {
	for _, v := range d.SelectedVendors {
		if v.Value == vendorID {
			return true
		}
	}
	return false
}

// VendorLabel returns the display label for vendorID, or the id itself.
func (d RFQData) VendorLabel(vendorID string) string {
	for _, v := range d.SelectedVendors {
		if v.Value == vendorID && v.Label != "" {
			return v.Label
		}
	}
	return vendorID
}

// Normalized returns a deep copy with nil collections replaced by empty ones so
// the value survives a JSON round trip unchanged.
func (d RFQData) Normalized() RFQData {
	out := RFQData{
		SelectedVendors: make([]VendorOption, len(d.SelectedVendors)),
		Details:         make(Details, len(d.Details)),
	}
	copy(out.SelectedVendors, d.SelectedVendors)
	for itemID, detail := range d.Details {
		out.Details[itemID] = detail.clone()
	}
	return out
}

func (d ItemDetail) clone() ItemDetail {
	out := ItemDetail{
		Makes:        make([]string, len(d.Makes)),
		VendorQuotes: make(map[string]VendorQuote, len(d.VendorQuotes)),
	}
	copy(out.Makes, d.Makes)
	for vendorID, quote := range d.VendorQuotes {
		out.VendorQuotes[vendorID] = quote
	}
	return out
}
