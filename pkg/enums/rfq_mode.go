package enums

import "fmt"

// RFQMode is the editing mode of an RFQ draft.
type RFQMode string

const (
	RFQModeEdit   RFQMode = "edit"
	RFQModeView   RFQMode = "view"
	RFQModeReview RFQMode = "review"
)

var validRFQModes = []RFQMode{
	RFQModeEdit,
	RFQModeView,
	RFQModeReview,
}

// String implements fmt.Stringer.
func (v RFQMode) String() string {
	return string(v)
}

// IsValid reports whether the value is a known RFQMode.
func (v RFQMode) IsValid() bool {
	for _, candidate := range validRFQModes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseRFQMode converts raw input into a RFQMode.
func ParseRFQMode(value string) (RFQMode, error) {
	for _, candidate := range validRFQModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rfq mode %q", value)
}
