package documents

import (
	"fmt"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

const (
	DefaultProcurementDoctype = "Procurement Requests"
	DefaultSentBackDoctype    = "Sent Back Category"
	DefaultCommentDoctype     = "Nirmaan Comments"
)

// Variant describes how one document kind is stored and which rules apply to it.
type Variant struct {
	Kind       enums.DocumentKind
	Doctype    string
	ItemsField string
	// PreRFQState is the workflow state a revert returns the document to.
	PreRFQState enums.WorkflowState
	// RequireFullSelection means every item needs a selected quote before proceeding.
	RequireFullSelection bool
}

// Catalog resolves document kinds to variants.
type Catalog struct {
	variants map[enums.DocumentKind]Variant
}

// NewCatalog builds a catalog. Empty doctype names fall back to the defaults.
func NewCatalog(procurementDoctype, sentBackDoctype string) Catalog {
	if procurementDoctype == "" {
		procurementDoctype = DefaultProcurementDoctype
	}
	if sentBackDoctype == "" {
		sentBackDoctype = DefaultSentBackDoctype
	}
	return Catalog{variants: map[enums.DocumentKind]Variant{
		enums.DocumentKindProcurementRequest: {
			Kind:        enums.DocumentKindProcurementRequest,
			Doctype:     procurementDoctype,
			ItemsField:  "procurement_list",
			PreRFQState: enums.WorkflowStateApproved,
		},
		enums.DocumentKindSentBack: {
			Kind:                 enums.DocumentKindSentBack,
			Doctype:              sentBackDoctype,
			ItemsField:           "item_list",
			PreRFQState:          enums.WorkflowStatePending,
			RequireFullSelection: true,
		},
	}}
}

// Variant returns the variant for kind.
func (c Catalog) Variant(kind enums.DocumentKind) (Variant, error) {
	v, ok := c.variants[kind]
	if !ok {
		return Variant{}, fmt.Errorf("unknown document kind %q", kind)
	}
	return v, nil
}

// IsZero reports whether the catalog was never built.
func (c Catalog) IsZero() bool {
	return len(c.variants) == 0
}
