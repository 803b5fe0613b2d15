package rfq

import (
	"strings"
	"time"

	"github.com/angelmondragon/procurement-backend/internal/documents"
	"github.com/angelmondragon/procurement-backend/internal/quotes"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/numeric"
)

// Draft is the locally persisted, not yet committed RFQ state of one document.
type Draft struct {
	Mode      enums.RFQMode     `json:"mode"`
	RFQData   quotes.RFQData    `json:"rfq_data"`
	Selection map[string]string `json:"selection"`
	Revision  int64             `json:"revision"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewDraft returns an empty draft in edit mode.
func NewDraft() Draft {
	return Draft{
		Mode:      enums.RFQModeEdit,
		RFQData:   quotes.EmptyRFQData(),
		Selection: map[string]string{},
	}
}

// IsEmpty reports whether the draft holds no vendors and no item details.
func (d Draft) IsEmpty() bool {
	return d.RFQData.IsEmpty()
}

func (d *Draft) normalize() {
	d.RFQData = d.RFQData.Normalized()
	if d.Selection == nil {
		d.Selection = map[string]string{}
	}
	if !d.Mode.IsValid() {
		d.Mode = enums.RFQModeEdit
	}
}

func (d *Draft) touch(now time.Time) {
	d.Revision++
	d.UpdatedAt = now.UTC()
}

// AddVendors appends vendors to the draft. Vendors already present are skipped.
func (d *Draft) AddVendors(vendors []quotes.VendorOption) error {
	if len(vendors) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one vendor is required")
	}
	for _, v := range vendors {
		v.Value = strings.TrimSpace(v.Value)
		if v.Value == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
		}
		if d.RFQData.HasVendor(v.Value) {
			continue
		}
		if v.Label == "" {
			v.Label = v.Value
		}
		d.RFQData.SelectedVendors = append(d.RFQData.SelectedVendors, v)
	}
	return nil
}

// RemoveVendor drops a vendor with every quote it gave and every selection
// that pointed at it.
func (d *Draft) RemoveVendor(vendorID string) error {
	if !d.RFQData.HasVendor(vendorID) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor is not part of this rfq")
	}
	kept := d.RFQData.SelectedVendors[:0]
	for _, v := range d.RFQData.SelectedVendors {
		if v.Value != vendorID {
			kept = append(kept, v)
		}
	}
	d.RFQData.SelectedVendors = kept

	for itemID, detail := range d.RFQData.Details {
		delete(detail.VendorQuotes, vendorID)
		d.RFQData.Details[itemID] = detail
	}
	for itemID, selected := range d.Selection {
		if selected == vendorID {
			delete(d.Selection, itemID)
		}
	}
	return nil
}

// SetQuote records a vendor's quote and make for an item of doc. A selection
// on that pair is dropped once the quote stops being positive.
func (d *Draft) SetQuote(doc documents.Document, itemID, vendorID, quote, makeName string) error {
	if !doc.HasItem(itemID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to this document").
			WithDetails(map[string]any{"item_id": itemID})
	}
	if !d.RFQData.HasVendor(vendorID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor must be added before quoting").
			WithDetails(map[string]any{"vendor_id": vendorID})
	}

	detail := d.detail(itemID)
	detail.VendorQuotes[vendorID] = quotes.VendorQuote{
		Quote: strings.TrimSpace(quote),
		Make:  strings.TrimSpace(makeName),
	}
	d.RFQData.Details[itemID] = detail

	if d.Selection[itemID] == vendorID && !numeric.Positive(quote) {
		delete(d.Selection, itemID)
	}
	return nil
}

// SetMakes replaces the make options offered for an item.
func (d *Draft) SetMakes(doc documents.Document, itemID string, makes []string) error {
	if !doc.HasItem(itemID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to this document").
			WithDetails(map[string]any{"item_id": itemID})
	}
	detail := d.detail(itemID)
	detail.Makes = detail.Makes[:0]
	seen := map[string]struct{}{}
	for _, m := range makes {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		detail.Makes = append(detail.Makes, m)
	}
	d.RFQData.Details[itemID] = detail
	return nil
}

// ToggleSelection marks vendorID as the chosen quote for itemID. Choosing the
// vendor that is already selected clears the selection instead.
func (d *Draft) ToggleSelection(itemID, vendorID string) error {
	if d.Selection[itemID] == vendorID {
		delete(d.Selection, itemID)
		return nil
	}
	vq, ok := d.RFQData.Details[itemID].VendorQuotes[vendorID]
	if !ok || !numeric.Positive(vq.Quote) {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor has no positive quote for this item").
			WithDetails(map[string]any{"item_id": itemID, "vendor_id": vendorID})
	}
	d.Selection[itemID] = vendorID
	return nil
}

// UnselectedItems returns the ids of doc items without a selection, in
// document order.
func (d Draft) UnselectedItems(doc documents.Document) []string {
	var out []string
	for _, it := range doc.Items {
		if _, ok := d.Selection[it.ItemID]; !ok {
			out = append(out, it.ItemID)
		}
	}
	return out
}

// Apply returns doc's items with each selected quote copied onto its item and
// every other item cleared.
func (d Draft) Apply(doc documents.Document) []documents.LineItem {
	items := make([]documents.LineItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		it = it.ClearSelection()
		if vendorID, ok := d.Selection[it.ItemID]; ok {
			vq := d.RFQData.Details[it.ItemID].VendorQuotes[vendorID]
			it.Vendor = vendorID
			it.Quote = numeric.Parse(vq.Quote)
			it.Make = vq.Make
		}
		items = append(items, it)
	}
	return items
}

// prune drops selections and details that no longer satisfy the draft
// invariants against doc.
func (d *Draft) prune(doc documents.Document) {
	for itemID := range d.RFQData.Details {
		if !doc.HasItem(itemID) {
			delete(d.RFQData.Details, itemID)
		}
	}
	for _, detail := range d.RFQData.Details {
		for vendorID := range detail.VendorQuotes {
			if !d.RFQData.HasVendor(vendorID) {
				delete(detail.VendorQuotes, vendorID)
			}
		}
	}
	for itemID, vendorID := range d.Selection {
		vq, ok := d.RFQData.Details[itemID].VendorQuotes[vendorID]
		if !ok || !numeric.Positive(vq.Quote) {
			delete(d.Selection, itemID)
		}
	}
}

func (d *Draft) detail(itemID string) quotes.ItemDetail {
	detail, ok := d.RFQData.Details[itemID]
	if !ok {
		detail = quotes.ItemDetail{Makes: []string{}, VendorQuotes: map[string]quotes.VendorQuote{}}
	}
	if detail.VendorQuotes == nil {
		detail.VendorQuotes = map[string]quotes.VendorQuote{}
	}
	if detail.Makes == nil {
		detail.Makes = []string{}
	}
	if d.RFQData.Details == nil {
		d.RFQData.Details = quotes.Details{}
	}
	return detail
}
