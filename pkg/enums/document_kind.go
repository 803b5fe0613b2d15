package enums

import "fmt"

// DocumentKind discriminates the two procurement document shapes.
type DocumentKind string

const (
	DocumentKindProcurementRequest DocumentKind = "procurement_request"
	DocumentKindSentBack           DocumentKind = "sent_back"
)

var validDocumentKinds = []DocumentKind{
	DocumentKindProcurementRequest,
	DocumentKindSentBack,
}

// String implements fmt.Stringer.
func (v DocumentKind) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DocumentKind.
func (v DocumentKind) IsValid() bool {
	for _, candidate := range validDocumentKinds {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDocumentKind converts raw input into a DocumentKind.
func ParseDocumentKind(value string) (DocumentKind, error) {
	for _, candidate := range validDocumentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document kind %q", value)
}
