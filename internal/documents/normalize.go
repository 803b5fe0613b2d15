package documents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/procurement-backend/internal/quotes"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/numeric"
)

var knownItemFields = map[string]struct{}{
	"name": {}, "item_id": {}, "item": {}, "item_name": {}, "unit": {}, "quantity": {},
	"category": {}, "tax": {}, "vendor": {}, "quote": {}, "make": {}, "status": {},
}

// Normalized is the result of Normalize: the canonical document plus notes
// about fields that had to be recovered.
type Normalized struct {
	Document Document
	Warnings []string
}

// Normalize converts a raw document payload into the canonical shape. Fields
// that arrive as JSON strings are parsed; anything unrecoverable is replaced
// by an empty default and reported in Warnings. Only a payload that is not an
// object at all is an error.
func Normalize(variant Variant, raw []byte) (Normalized, error) {
	var fields map[string]any
	if err := strictDecode(raw, &fields); err != nil || fields == nil {
		return Normalized{}, fmt.Errorf("document payload is not an object")
	}

	out := Normalized{Document: Document{
		Kind:          variant.Kind,
		Name:          str(fields, "name"),
		Project:       str(fields, "project"),
		WorkflowState: enums.WorkflowState(str(fields, "workflow_state")),
		Modified:      str(fields, "modified"),
	}}

	items, warn := decodeItems(fields[variant.ItemsField])
	out.Document.Items = items
	out.warn(variant.ItemsField, warn)

	categories, warn := decodeCategories(fields["category_list"])
	out.Document.Categories = categories
	out.warn("category_list", warn)

	rfqData, warn := DecodeRFQData(fields["rfq_data"])
	out.Document.RFQData = rfqData
	out.warn("rfq_data", warn)

	return out, nil
}

func (n *Normalized) warn(field, msg string) {
	if msg != "" {
		n.Warnings = append(n.Warnings, field+": "+msg)
	}
}

// DecodeRFQData reads an rfq_data value that may be an object, a JSON string,
// null, or malformed text. The returned message is non-empty when recovery
// was needed.
func DecodeRFQData(value any) (quotes.RFQData, string) {
	var data quotes.RFQData
	msg, ok := decodeField(value, &data)
	if !ok {
		return quotes.EmptyRFQData(), msg
	}
	return data.Normalized(), msg
}

// decodeField handles the object-or-string ambiguity of document fields. It
// returns false when target could not be filled.
func decodeField(value any, target any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		strategy, err := decodeLenient(v, target)
		if err != nil {
			return "discarded malformed value", false
		}
		if strategy != strategyJSON {
			return "recovered with " + strategy, true
		}
		return "", true
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "discarded unencodable value", false
		}
		if err := strictDecode(encoded, target); err != nil {
			return "discarded value with unexpected shape", false
		}
		return "", true
	}
}

type listEnvelope struct {
	List []map[string]any `json:"list"`
}

func decodeList(value any) ([]map[string]any, string) {
	if s, ok := value.(string); ok {
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "[") {
			var rows []map[string]any
			msg, ok := decodeField(s, &rows)
			if !ok {
				return nil, msg
			}
			return rows, msg
		}
	}
	if rows, ok := value.([]any); ok {
		var list []map[string]any
		msg, ok := decodeField(rows, &list)
		if !ok {
			return nil, msg
		}
		return list, msg
	}
	var env listEnvelope
	msg, ok := decodeField(value, &env)
	if !ok {
		return nil, msg
	}
	return env.List, msg
}

func decodeItems(value any) ([]LineItem, string) {
	rows, msg := decodeList(value)
	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		item := LineItem{
			ItemID:   str(row, "name", "item_id"),
			ItemName: str(row, "item", "item_name"),
			Unit:     str(row, "unit"),
			Quantity: numeric.Parse(row["quantity"]),
			Category: str(row, "category"),
			Tax:      numeric.Parse(row["tax"]),
			Vendor:   str(row, "vendor"),
			Quote:    numeric.Parse(row["quote"]),
			Make:     str(row, "make"),
			Status:   str(row, "status"),
		}
		if item.ItemID == "" {
			continue
		}
		for k, v := range row {
			if _, known := knownItemFields[k]; known {
				continue
			}
			if item.extra == nil {
				item.extra = map[string]any{}
			}
			item.extra[k] = v
		}
		items = append(items, item)
	}
	return items, msg
}

func decodeCategories(value any) ([]Category, string) {
	rows, msg := decodeList(value)
	categories := make([]Category, 0, len(rows))
	for _, row := range rows {
		c := Category{Name: str(row, "name")}
		if c.Name == "" {
			continue
		}
		if makes, ok := row["makes"].([]any); ok {
			for _, m := range makes {
				if s, ok := m.(string); ok && s != "" {
					c.Makes = append(c.Makes, s)
				}
			}
		}
		categories = append(categories, c)
	}
	return categories, msg
}

// ItemRow renders a line item in the upstream list shape. Cleared vendor,
// quote and make are omitted.
func ItemRow(item LineItem) map[string]any {
	row := make(map[string]any, len(item.extra)+10)
	for k, v := range item.extra {
		row[k] = v
	}
	row["name"] = item.ItemID
	row["item"] = item.ItemName
	row["unit"] = item.Unit
	row["quantity"] = item.Quantity
	row["category"] = item.Category
	row["tax"] = item.Tax
	if item.Status != "" {
		row["status"] = item.Status
	}
	if item.Vendor != "" {
		row["vendor"] = item.Vendor
	}
	if !item.Quote.IsZero() {
		row["quote"] = item.Quote
	}
	if item.Make != "" {
		row["make"] = item.Make
	}
	return row
}

// Fields renders a patch as the upstream partial-update body.
func (p Patch) Fields(variant Variant) map[string]any {
	fields := map[string]any{}
	switch {
	case p.ClearRFQData:
		fields["rfq_data"] = nil
	case p.RFQData != nil:
		fields["rfq_data"] = p.RFQData.Normalized()
	}
	if p.Items != nil {
		rows := make([]map[string]any, 0, len(p.Items))
		for _, item := range p.Items {
			rows = append(rows, ItemRow(item))
		}
		fields[variant.ItemsField] = map[string]any{"list": rows}
	}
	if p.WorkflowState != "" {
		fields["workflow_state"] = p.WorkflowState.String()
	}
	if p.PaymentTerms != nil {
		fields["payment_terms"] = p.PaymentTerms
	}
	return fields
}

func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}
