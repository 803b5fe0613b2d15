package rfq

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/procurement-backend/internal/benchmark"
	"github.com/angelmondragon/procurement-backend/internal/documents"
	"github.com/angelmondragon/procurement-backend/internal/quotes"
	"github.com/angelmondragon/procurement-backend/internal/summary"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
)

// RateSource returns the reference rates for a set of items.
type RateSource interface {
	FindByItemIDs(ctx context.Context, itemIDs []string) ([]benchmark.Record, error)
}

// State is what a client needs to render an RFQ in progress.
type State struct {
	Kind          enums.DocumentKind   `json:"kind"`
	DocID         string               `json:"doc_id"`
	Mode          enums.RFQMode        `json:"mode"`
	WorkflowState enums.WorkflowState  `json:"workflow_state"`
	RFQData       quotes.RFQData       `json:"rfq_data"`
	Selection     map[string]string    `json:"selection"`
	Revision      int64                `json:"revision"`
	UpdatedAt     *time.Time           `json:"updated_at,omitempty"`
	Local         bool                 `json:"local"`
	IsUpdating    bool                 `json:"is_updating"`
	Items         []documents.LineItem `json:"items"`
}

// SummaryView is the vendor-wise summary of a document at its current mode.
type SummaryView struct {
	Kind    enums.DocumentKind `json:"kind"`
	DocID   string             `json:"doc_id"`
	Project string             `json:"project,omitempty"`
	Mode    enums.RFQMode      `json:"mode"`
	Preview bool               `json:"preview"`
	summary.Result
}

// ServiceParams wires the RFQ service.
type ServiceParams struct {
	Documents     documents.Store
	Catalog       documents.Catalog
	Drafts        *DraftStore
	Guard         *Guard
	Rates         RateSource
	Quotes        benchmark.LowestQuoter
	LegacyItemKey bool
	Metrics       *metrics.RFQMetrics
	Logger        *logger.Logger
	Clock         func() time.Time
}

// Service runs the RFQ draft state machine against the document store.
type Service struct {
	docs          documents.Store
	catalog       documents.Catalog
	drafts        *DraftStore
	guard         *Guard
	rates         RateSource
	quotes        benchmark.LowestQuoter
	legacyItemKey bool
	metrics       *metrics.RFQMetrics
	logg          *logger.Logger
	now           func() time.Time
}

// NewService validates params and builds the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Documents == nil {
		return nil, fmt.Errorf("document store required")
	}
	if params.Drafts == nil {
		return nil, fmt.Errorf("draft store required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Catalog.IsZero() {
		params.Catalog = documents.NewCatalog("", "")
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &Service{
		docs:          params.Documents,
		catalog:       params.Catalog,
		drafts:        params.Drafts,
		guard:         params.Guard,
		rates:         params.Rates,
		quotes:        params.Quotes,
		legacyItemKey: params.LegacyItemKey,
		metrics:       params.Metrics,
		logg:          params.Logger,
		now:           params.Clock,
	}, nil
}

type session struct {
	kind    enums.DocumentKind
	docID   string
	variant documents.Variant
	doc     documents.Document
	draft   Draft
	local   bool
}

// load fetches the document and reconciles the local draft against it. The
// local draft wins unless it is empty. A document past RFQ is always in review,
// whatever a stale draft says.
func (s *Service) load(ctx context.Context, kind enums.DocumentKind, docID string) (*session, error) {
	variant, err := s.catalog.Variant(kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported document kind")
	}
	doc, err := s.docs.Get(ctx, kind, docID)
	if err != nil {
		return nil, err
	}
	draft, found, err := s.drafts.Load(ctx, kind, docID)
	if err != nil {
		return nil, err
	}
	if !found {
		draft = NewDraft()
		draft.Mode = ModeFor(doc)
	}
	if !rfqOpen(doc.WorkflowState) {
		draft.Mode = enums.RFQModeReview
	}
	if draft.IsEmpty() && !doc.RFQData.IsEmpty() {
		draft.RFQData = doc.RFQData.Normalized()
	}
	draft.prune(doc)
	return &session{kind: kind, docID: docID, variant: variant, doc: doc, draft: draft, local: found}, nil
}

// Get returns the reconciled RFQ state of a document.
func (s *Service) Get(ctx context.Context, kind enums.DocumentKind, docID string) (State, error) {
	ctx = s.logg.WithDocumentID(ctx, kind.String(), docID)
	sess, err := s.load(ctx, kind, docID)
	if err != nil {
		return State{}, err
	}
	return s.state(ctx, sess), nil
}

func (s *Service) state(ctx context.Context, sess *session) State {
	updating, err := s.guard.Updating(ctx, sess.kind, sess.docID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "in-flight guard unreadable")
	}
	st := State{
		Kind:          sess.kind,
		DocID:         sess.docID,
		Mode:          sess.draft.Mode,
		WorkflowState: sess.doc.WorkflowState,
		RFQData:       sess.draft.RFQData.Normalized(),
		Selection:     sess.draft.Selection,
		Revision:      sess.draft.Revision,
		Local:         sess.local,
		IsUpdating:    updating,
		Items:         sess.doc.Items,
	}
	if !sess.draft.UpdatedAt.IsZero() {
		updatedAt := sess.draft.UpdatedAt
		st.UpdatedAt = &updatedAt
	}
	if st.Items == nil {
		st.Items = []documents.LineItem{}
	}
	return st
}

// mutate applies a local-only draft edit in the required mode and persists it.
func (s *Service) mutate(ctx context.Context, kind enums.DocumentKind, docID string, mode enums.RFQMode, op string, fn func(*session) error) (State, error) {
	ctx = s.logg.WithDocumentID(ctx, kind.String(), docID)
	sess, err := s.load(ctx, kind, docID)
	if err != nil {
		return State{}, err
	}
	if err := requireOpen(sess.doc.WorkflowState); err != nil {
		return State{}, err
	}
	if err := requireMode(sess.draft.Mode, mode, op); err != nil {
		return State{}, err
	}
	if err := fn(sess); err != nil {
		return State{}, err
	}
	sess.draft.touch(s.now())
	if err := s.drafts.Save(ctx, kind, docID, sess.draft); err != nil {
		return State{}, err
	}
	sess.local = true
	return s.state(ctx, sess), nil
}

// AddVendors adds vendors to the draft.
func (s *Service) AddVendors(ctx context.Context, kind enums.DocumentKind, docID string, vendors []quotes.VendorOption) (State, error) {
	return s.mutate(ctx, kind, docID, enums.RFQModeEdit, "adding vendors", func(sess *session) error {
		return sess.draft.AddVendors(vendors)
	})
}

// RemoveVendor removes a vendor and everything it quoted.
func (s *Service) RemoveVendor(ctx context.Context, kind enums.DocumentKind, docID, vendorID string) (State, error) {
	return s.mutate(ctx, kind, docID, enums.RFQModeEdit, "removing vendors", func(sess *session) error {
		return sess.draft.RemoveVendor(vendorID)
	})
}

// QuoteInput is one (item, vendor) quote edit.
type QuoteInput struct {
	ItemID   string
	VendorID string
	Quote    string
	Make     string
}

// SetQuotes records quote edits in order. Later edits to the same pair win.
func (s *Service) SetQuotes(ctx context.Context, kind enums.DocumentKind, docID string, inputs []QuoteInput) (State, error) {
	return s.mutate(ctx, kind, docID, enums.RFQModeEdit, "quoting", func(sess *session) error {
		for _, in := range inputs {
			if err := sess.draft.SetQuote(sess.doc, in.ItemID, in.VendorID, in.Quote, in.Make); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetMakes replaces the make options for an item.
func (s *Service) SetMakes(ctx context.Context, kind enums.DocumentKind, docID, itemID string, makes []string) (State, error) {
	return s.mutate(ctx, kind, docID, enums.RFQModeEdit, "editing makes", func(sess *session) error {
		return sess.draft.SetMakes(sess.doc, itemID, makes)
	})
}

// ToggleSelection selects or deselects a vendor's quote for an item.
func (s *Service) ToggleSelection(ctx context.Context, kind enums.DocumentKind, docID, itemID, vendorID string) (State, error) {
	return s.mutate(ctx, kind, docID, enums.RFQModeView, "selecting quotes", func(sess *session) error {
		if !sess.doc.HasItem(itemID) {
			return pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to this document").
				WithDetails(map[string]any{"item_id": itemID})
		}
		return sess.draft.ToggleSelection(itemID, vendorID)
	})
}

// SwitchToView saves the draft to the document and then enters view mode.
// When the save fails the draft stays in edit mode untouched.
func (s *Service) SwitchToView(ctx context.Context, kind enums.DocumentKind, docID string) (st State, err error) {
	start := s.now()
	defer func() { s.observe(enums.RFQTransitionView, start, err) }()
	ctx = s.logg.WithDocumentID(ctx, kind.String(), docID)

	sess, err := s.load(ctx, kind, docID)
	if err != nil {
		return State{}, err
	}
	if err := requireOpen(sess.doc.WorkflowState); err != nil {
		return State{}, err
	}
	next, err := Next(sess.draft.Mode, enums.RFQTransitionView)
	if err != nil {
		return State{}, err
	}

	err = s.guard.Do(ctx, kind, docID, enums.RFQTransitionView, func(ctx context.Context) error {
		data := sess.draft.RFQData.Normalized()
		patch := documents.Patch{RFQData: &data}
		if kind == enums.DocumentKindProcurementRequest && sess.doc.WorkflowState == enums.WorkflowStateApproved {
			patch.WorkflowState = enums.WorkflowStateInProgress
		}
		if err := s.docs.Update(ctx, kind, docID, patch); err != nil {
			return err
		}
		if patch.WorkflowState != "" {
			sess.doc.WorkflowState = patch.WorkflowState
		}
		draft := sess.draft
		draft.Mode = next
		draft.UpdatedAt = s.now().UTC()
		if err := s.drafts.Save(ctx, kind, docID, draft); err != nil {
			return err
		}
		sess.draft = draft
		return nil
	})
	if err != nil {
		s.logg.Error(ctx, "switch to view failed", err)
		return State{}, err
	}
	sess.local = true
	s.logg.Info(ctx, "rfq draft saved, view mode entered")
	return s.state(ctx, sess), nil
}

// SwitchToEdit returns to edit mode. Selections are kept.
func (s *Service) SwitchToEdit(ctx context.Context, kind enums.DocumentKind, docID string) (st State, err error) {
	start := s.now()
	defer func() { s.observe(enums.RFQTransitionEdit, start, err) }()
	ctx = s.logg.WithDocumentID(ctx, kind.String(), docID)

	sess, err := s.load(ctx, kind, docID)
	if err != nil {
		return State{}, err
	}
	if err := requireOpen(sess.doc.WorkflowState); err != nil {
		return State{}, err
	}
	next, err := Next(sess.draft.Mode, enums.RFQTransitionEdit)
	if err != nil {
		return State{}, err
	}
	sess.draft.Mode = next
	sess.draft.UpdatedAt = s.now().UTC()
	if err := s.drafts.Save(ctx, kind, docID, sess.draft); err != nil {
		return State{}, err
	}
	sess.local = true
	return s.state(ctx, sess), nil
}

// Proceed copies the selected quotes onto the line items, marks the document
// in progress and drops the local draft.
func (s *Service) Proceed(ctx context.Context, kind enums.DocumentKind, docID string) (st State, err error) {
	start := s.now()
	defer func() { s.observe(enums.RFQTransitionProceed, start, err) }()
	ctx = s.logg.WithDocumentID(ctx, kind.String(), docID)

	sess, err := s.load(ctx, kind, docID)
	if err != nil {
		return State{}, err
	}
	if err := requireOpen(sess.doc.WorkflowState); err != nil {
		return State{}, err
	}
	next, err := Next(sess.draft.Mode, enums.RFQTransitionProceed)
	if err != nil {
		return State{}, err
	}
	if err := proceedGate(sess); err != nil {
		return State{}, err
	}

	items := sess.draft.Apply(sess.doc)
	err = s.guard.Do(ctx, kind, docID, enums.RFQTransitionProceed, func(ctx context.Context) error {
		data := sess.draft.RFQData.Normalized()
		return s.docs.Update(ctx, kind, docID, documents.Patch{
			Items:         items,
			RFQData:       &data,
			WorkflowState: enums.WorkflowStateInProgress,
		})
	})
	if err != nil {
		s.logg.Error(ctx, "proceed to review failed", err)
		return State{}, err
	}

	if delErr := s.drafts.Delete(ctx, kind, docID, false); delErr != nil {
		s.logg.Error(ctx, "failed to drop local draft after proceed", delErr)
	}
	sess.doc.Items = items
	sess.doc.WorkflowState = enums.WorkflowStateInProgress
	sess.draft.Mode = next
	sess.local = false
	s.logg.Info(ctx, "rfq selections committed")
	return s.state(ctx, sess), nil
}

func proceedGate(sess *session) error {
	if sess.variant.RequireFullSelection {
		if missing := sess.draft.UnselectedItems(sess.doc); len(missing) > 0 {
			return pkgerrors.New(pkgerrors.CodeGateBlocked, "every item needs a selected quote").
				WithDetails(map[string]any{"unselected_items": missing})
		}
	}
	if len(sess.draft.Selection) == 0 {
		return pkgerrors.New(pkgerrors.CodeGateBlocked, "select at least one quote before proceeding")
	}
	return nil
}

// Revert discards the RFQ: server rfq_data and item selections are cleared
// and the workflow returns to its pre-RFQ state. Local blobs are dropped only
// after the remote write succeeds.
func (s *Service) Revert(ctx context.Context, kind enums.DocumentKind, docID string) (st State, err error) {
	start := s.now()
	defer func() { s.observe(enums.RFQTransitionRevert, start, err) }()
	ctx = s.logg.WithDocumentID(ctx, kind.String(), docID)

	sess, err := s.load(ctx, kind, docID)
	if err != nil {
		return State{}, err
	}
	next, err := Next(sess.draft.Mode, enums.RFQTransitionRevert)
	if err != nil {
		return State{}, err
	}
	if !revertAllowed(sess.doc.WorkflowState) {
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "document workflow does not allow revert").
			WithDetails(map[string]any{"workflow_state": sess.doc.WorkflowState})
	}

	cleared := make([]documents.LineItem, 0, len(sess.doc.Items))
	for _, it := range sess.doc.Items {
		cleared = append(cleared, it.ClearSelection())
	}
	err = s.guard.Do(ctx, kind, docID, enums.RFQTransitionRevert, func(ctx context.Context) error {
		return s.docs.Update(ctx, kind, docID, documents.Patch{
			ClearRFQData:  true,
			Items:         cleared,
			WorkflowState: sess.variant.PreRFQState,
		})
	})
	if err != nil {
		s.logg.Error(ctx, "revert failed", err)
		return State{}, err
	}

	if delErr := s.drafts.Delete(ctx, kind, docID, true); delErr != nil {
		s.logg.Error(ctx, "failed to drop local blobs after revert", delErr)
	}
	sess.doc.Items = cleared
	sess.doc.WorkflowState = sess.variant.PreRFQState
	sess.doc.RFQData = quotes.EmptyRFQData()
	sess.draft = NewDraft()
	sess.draft.Mode = next
	sess.local = false
	s.logg.Info(ctx, "rfq reverted")
	return s.state(ctx, sess), nil
}

// Summary aggregates the document. In view mode the current selection is
// previewed; otherwise the committed line items are used.
func (s *Service) Summary(ctx context.Context, kind enums.DocumentKind, docID string) (SummaryView, error) {
	ctx = s.logg.WithDocumentID(ctx, kind.String(), docID)
	sess, err := s.load(ctx, kind, docID)
	if err != nil {
		return SummaryView{}, err
	}

	items := sess.doc.Items
	preview := sess.draft.Mode == enums.RFQModeView
	if preview {
		items = sess.draft.Apply(sess.doc)
	}

	selector, err := s.selector(ctx, items)
	if err != nil {
		return SummaryView{}, err
	}
	res := summary.Aggregate(items, sess.draft.RFQData.Details, selector)
	res.Label(sess.draft.RFQData.VendorLabel)

	return SummaryView{
		Kind:    kind,
		DocID:   docID,
		Project: sess.doc.Project,
		Mode:    sess.draft.Mode,
		Preview: preview,
		Result:  res,
	}, nil
}

func (s *Service) selector(ctx context.Context, items []documents.LineItem) (*benchmark.Selector, error) {
	var records []benchmark.Record
	if s.rates != nil && len(items) > 0 {
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ItemID)
		}
		found, err := s.rates.FindByItemIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		records = found
	}
	var opts []benchmark.Option
	if s.legacyItemKey {
		opts = append(opts, benchmark.WithLegacyItemKey())
	}
	return benchmark.NewSelector(benchmark.NewIndex(records, opts...), s.quotes), nil
}

func (s *Service) observe(t enums.RFQTransition, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		outcome = metrics.OutcomeConflict
	case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), pkgerrors.IsCode(err, pkgerrors.CodeGateBlocked):
		outcome = metrics.OutcomeBlocked
	default:
		outcome = metrics.OutcomeFailure
	}
	s.metrics.ObserveTransition(t.String(), outcome, s.now().Sub(start))
}
