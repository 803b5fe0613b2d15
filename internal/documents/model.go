package documents

import (
	"github.com/angelmondragon/procurement-backend/internal/quotes"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// LineItem is one procurement line on a document.
type LineItem struct {
	ItemID   string          `json:"item_id"`
	ItemName string          `json:"item_name"`
	Unit     string          `json:"unit"`
	Quantity decimal.Decimal `json:"quantity"`
	Category string          `json:"category"`
	Tax      decimal.Decimal `json:"tax"`
	Vendor   string          `json:"vendor,omitempty"`
	Quote    decimal.Decimal `json:"quote"`
	Make     string          `json:"make,omitempty"`
	Status   string          `json:"status,omitempty"`

	// extra holds upstream fields this service does not interpret. They are
	// written back untouched.
	extra map[string]any
}

// Assigned reports whether the item has a vendor and a non-zero quote.
func (li LineItem) Assigned() bool {
	return li.Vendor != "" && !li.Quote.IsZero()
}

// ClearSelection drops vendor, quote and make.
func (li LineItem) ClearSelection() LineItem {
	li.Vendor = ""
	li.Quote = decimal.Zero
	li.Make = ""
	return li
}

// Category is one entry of a document's category list.
type Category struct {
	Name  string   `json:"name"`
	Makes []string `json:"makes,omitempty"`
}

// Document is the normalized view of a procurement request or sent-back
// category document.
type Document struct {
	Kind          enums.DocumentKind  `json:"kind"`
	Name          string              `json:"name"`
	Project       string              `json:"project,omitempty"`
	WorkflowState enums.WorkflowState `json:"workflow_state"`
	Modified      string              `json:"modified,omitempty"`
	Items         []LineItem          `json:"items"`
	Categories    []Category          `json:"categories"`
	RFQData       quotes.RFQData      `json:"rfq_data"`
}

// HasItem reports whether itemID belongs to the document.
func (d Document) HasItem(itemID string) bool {
	_, ok := d.Item(itemID)
	return ok
}

// Item returns the line item with itemID.
func (d Document) Item(itemID string) (LineItem, bool) {
	for _, it := range d.Items {
		if it.ItemID == itemID {
			return it, true
		}
	}
	return LineItem{}, false
}

// AssignedItems returns the items that already carry a vendor and quote.
func (d Document) AssignedItems() []LineItem {
	var out []LineItem
	for _, it := range d.Items {
		if it.Assigned() {
			out = append(out, it)
		}
	}
	return out
}

// Comment is an auxiliary note attached to a document on submission.
type Comment struct {
	ReferenceKind enums.DocumentKind
	ReferenceName string
	Subject       string
	Content       string
	CommentBy     string
}

// Patch is a partial document update. Zero-valued fields are left untouched.
type Patch struct {
	RFQData       *quotes.RFQData
	ClearRFQData  bool
	Items         []LineItem
	WorkflowState enums.WorkflowState
	PaymentTerms  any
}

// IsEmpty reports whether the patch would write nothing.
func (p Patch) IsEmpty() bool {
	return p.RFQData == nil && !p.ClearRFQData && p.Items == nil && p.WorkflowState == "" && p.PaymentTerms == nil
}
