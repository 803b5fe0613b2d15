package enums

import "fmt"

// RFQTransition names a remote-writing or mode-changing RFQ action.
type RFQTransition string

const (
	RFQTransitionView    RFQTransition = "view"
	RFQTransitionEdit    RFQTransition = "edit"
	RFQTransitionProceed RFQTransition = "proceed"
	RFQTransitionRevert  RFQTransition = "revert"
	RFQTransitionSubmit  RFQTransition = "submit"
)

var validRFQTransitions = []RFQTransition{
	RFQTransitionView,
	RFQTransitionEdit,
	RFQTransitionProceed,
	RFQTransitionRevert,
	RFQTransitionSubmit,
}

// String implements fmt.Stringer.
func (v RFQTransition) String() string {
	return string(v)
}

// IsValid reports whether the value is a known RFQTransition.
func (v RFQTransition) IsValid() bool {
	for _, candidate := range validRFQTransitions {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseRFQTransition converts raw input into a RFQTransition.
func ParseRFQTransition(value string) (RFQTransition, error) {
	for _, candidate := range validRFQTransitions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rfq transition %q", value)
}
