package enums

import "fmt"

// WorkflowState is the document workflow status owned by the ERP.
type WorkflowState string

const (
	WorkflowStatePending           WorkflowState = "Pending"
	WorkflowStateApproved          WorkflowState = "Approved"
	WorkflowStateInProgress        WorkflowState = "In Progress"
	WorkflowStateVendorSelected    WorkflowState = "Vendor Selected"
	WorkflowStatePartiallyApproved WorkflowState = "Partially Approved"
	WorkflowStateRejected          WorkflowState = "Rejected"
)

var validWorkflowStates = []WorkflowState{
	WorkflowStatePending,
	WorkflowStateApproved,
	WorkflowStateInProgress,
	WorkflowStateVendorSelected,
	WorkflowStatePartiallyApproved,
	WorkflowStateRejected,
}

// String implements fmt.Stringer.
func (v WorkflowState) String() string {
	return string(v)
}

// IsValid reports whether the value is a known WorkflowState.
func (v WorkflowState) IsValid() bool {
	for _, candidate := range validWorkflowStates {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseWorkflowState converts raw input into a WorkflowState.
func ParseWorkflowState(value string) (WorkflowState, error) {
	for _, candidate := range validWorkflowStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid workflow state %q", value)
}
