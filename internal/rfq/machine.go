package rfq

import (
	"github.com/angelmondragon/procurement-backend/internal/documents"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

type edge struct {
	from enums.RFQMode
	to   enums.RFQMode
}

var transitions = map[enums.RFQTransition]edge{
	enums.RFQTransitionView:    {from: enums.RFQModeEdit, to: enums.RFQModeView},
	enums.RFQTransitionEdit:    {from: enums.RFQModeView, to: enums.RFQModeEdit},
	enums.RFQTransitionProceed: {from: enums.RFQModeView, to: enums.RFQModeReview},
	enums.RFQTransitionRevert:  {from: enums.RFQModeView, to: enums.RFQModeEdit},
	enums.RFQTransitionSubmit:  {from: enums.RFQModeReview, to: enums.RFQModeReview},
}

// Next returns the mode reached by applying t in mode.
func Next(mode enums.RFQMode, t enums.RFQTransition) (enums.RFQMode, error) {
	e, ok := transitions[t]
	if !ok {
		return mode, pkgerrors.New(pkgerrors.CodeValidation, "unknown transition")
	}
	if e.from != mode {
		return mode, pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed in current mode").
			WithDetails(map[string]any{"mode": mode, "transition": t, "required_mode": e.from})
	}
	return e.to, nil
}

func requireMode(mode, want enums.RFQMode, op string) error {
	if mode == want {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, op+" is only available in "+want.String()+" mode").
		WithDetails(map[string]any{"mode": mode, "required_mode": want})
}

// ModeFor derives the mode of a document that has no local draft. A document
// past RFQ, or one in progress whose items already carry vendors, is in review.
func ModeFor(doc documents.Document) enums.RFQMode {
	if !rfqOpen(doc.WorkflowState) {
		return enums.RFQModeReview
	}
	if doc.WorkflowState == enums.WorkflowStateInProgress && len(doc.AssignedItems()) > 0 {
		return enums.RFQModeReview
	}
	return enums.RFQModeEdit
}

// rfqOpen reports whether the workflow still accepts RFQ work: before the RFQ
// starts or while it is in progress. Vendor Selected and later are terminal.
func rfqOpen(state enums.WorkflowState) bool {
	switch state {
	case enums.WorkflowStatePending, enums.WorkflowStateApproved, enums.WorkflowStateInProgress:
		return true
	}
	return false
}

func requireOpen(state enums.WorkflowState) error {
	if rfqOpen(state) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "document workflow has moved past rfq").
		WithDetails(map[string]any{"workflow_state": state})
}

func revertAllowed(state enums.WorkflowState) bool {
	return state == enums.WorkflowStateApproved || state == enums.WorkflowStateInProgress
}
