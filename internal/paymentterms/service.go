package paymentterms

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/procurement-backend/internal/documents"
	"github.com/angelmondragon/procurement-backend/internal/rfq"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
)

const defaultTTL = 30 * 24 * time.Hour

// Summarizer returns the vendor-wise summary of a document.
type Summarizer interface {
	Summary(ctx context.Context, kind enums.DocumentKind, docID string) (rfq.SummaryView, error)
}

// View reports the drafted terms of a document and whether it can be submitted.
type View struct {
	Kind           enums.DocumentKind `json:"kind"`
	DocID          string             `json:"doc_id"`
	Mode           enums.RFQMode      `json:"mode"`
	Terms          Terms              `json:"terms"`
	Vendors        []string           `json:"vendors"`
	MissingVendors []string           `json:"missing_vendors"`
	Ready          bool               `json:"ready"`
}

// SubmitInput carries the optional submission comment.
type SubmitInput struct {
	Comment string
	Actor   string
}

// ServiceParams wires the payment terms service.
type ServiceParams struct {
	Documents documents.Store
	Summaries Summarizer
	Blobs     rfq.BlobStore
	Drafts    *rfq.DraftStore
	Guard     *rfq.Guard
	TTL       time.Duration
	Metrics   *metrics.RFQMetrics
	Logger    *logger.Logger
	Clock     func() time.Time
}

// Service drafts payment terms and submits the vendor selection.
type Service struct {
	docs      documents.Store
	summaries Summarizer
	blobs     rfq.BlobStore
	drafts    *rfq.DraftStore
	guard     *rfq.Guard
	ttl       time.Duration
	metrics   *metrics.RFQMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService validates params and builds the service.
func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Documents == nil:
		return nil, fmt.Errorf("document store required")
	case params.Summaries == nil:
		return nil, fmt.Errorf("summarizer required")
	case params.Blobs == nil:
		return nil, fmt.Errorf("blob store required")
	case params.Drafts == nil:
		return nil, fmt.Errorf("draft store required")
	case params.Guard == nil:
		return nil, fmt.Errorf("guard required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	if params.TTL <= 0 {
		params.TTL = defaultTTL
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &Service{
		docs:      params.Documents,
		summaries: params.Summaries,
		blobs:     params.Blobs,
		drafts:    params.Drafts,
		guard:     params.Guard,
		ttl:       params.TTL,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       params.Clock,
	}, nil
}

// Get returns the drafted terms priced against the current summary.
func (s *Service) Get(ctx context.Context, kind enums.DocumentKind, docID string) (View, error) {
	ctx = s.logg.WithDocumentID(ctx, kind.String(), docID)
	sum, err := s.summaries.Summary(ctx, kind, docID)
	if err != nil {
		return View{}, err
	}
	terms, err := s.load(ctx, kind, docID)
	if err != nil {
		return View{}, err
	}
	return s.view(sum, terms), nil
}

// Put merges terms for the given vendors into the draft. Only vendors with
// assigned items in review mode are accepted.
func (s *Service) Put(ctx context.Context, kind enums.DocumentKind, docID string, updates Terms) (View, error) {
	ctx = s.logg.WithDocumentID(ctx, kind.String(), docID)
	sum, err := s.summaries.Summary(ctx, kind, docID)
	if err != nil {
		return View{}, err
	}
	if sum.Mode != enums.RFQModeReview {
		return View{}, reviewOnly(sum.Mode)
	}
	if len(updates) == 0 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "no payment terms supplied")
	}
	for vendorID, vt := range updates {
		if _, ok := sum.VendorSummary[vendorID]; !ok {
			return View{}, pkgerrors.New(pkgerrors.CodeValidation, "vendor has no assigned items").
				WithDetails(map[string]any{"vendor_id": vendorID})
		}
		if err := vt.Validate(); err != nil {
			return View{}, err
		}
	}

	terms, err := s.load(ctx, kind, docID)
	if err != nil {
		return View{}, err
	}
	for vendorID, vt := range updates {
		terms[vendorID] = vt.withIDs()
	}
	if err := s.save(ctx, kind, docID, terms); err != nil {
		return View{}, err
	}
	return s.view(sum, terms), nil
}

// Submit writes the payment terms, moves the document to Vendor Selected and
// drops the local blobs. It is blocked until every vendor with assigned items
// has terms.
func (s *Service) Submit(ctx context.Context, kind enums.DocumentKind, docID string, in SubmitInput) (view View, err error) {
	start := s.now()
	defer func() { s.observe(start, err) }()
	ctx = s.logg.WithDocumentID(ctx, kind.String(), docID)

	err = s.guard.Do(ctx, kind, docID, enums.RFQTransitionSubmit, func(ctx context.Context) error {
		sum, err := s.summaries.Summary(ctx, kind, docID)
		if err != nil {
			return err
		}
		if _, err := rfq.Next(sum.Mode, enums.RFQTransitionSubmit); err != nil {
			return err
		}
		terms, err := s.load(ctx, kind, docID)
		if err != nil {
			return err
		}
		view = s.view(sum, terms)
		if len(view.Vendors) == 0 {
			return pkgerrors.New(pkgerrors.CodeGateBlocked, "no vendor has assigned items")
		}
		if !view.Ready {
			return pkgerrors.New(pkgerrors.CodeGateBlocked, "every vendor needs payment terms").
				WithDetails(map[string]any{"missing_vendors": view.MissingVendors})
		}

		if err := s.docs.Update(ctx, kind, docID, documents.Patch{
			PaymentTerms:  view.Terms,
			WorkflowState: enums.WorkflowStateVendorSelected,
		}); err != nil {
			return err
		}

		if in.Comment != "" {
			if cErr := s.docs.CreateComment(ctx, documents.Comment{
				ReferenceKind: kind,
				ReferenceName: docID,
				Subject:       "vendors selected",
				Content:       in.Comment,
				CommentBy:     in.Actor,
			}); cErr != nil {
				s.logg.Error(ctx, "failed to attach submission comment", cErr)
			}
		}
		return nil
	})
	if err != nil {
		s.logg.Error(ctx, "submit failed", err)
		return View{}, err
	}

	if delErr := s.drafts.Delete(ctx, kind, docID, true); delErr != nil {
		s.logg.Error(ctx, "failed to drop local blobs after submit", delErr)
	}
	view.Mode = enums.RFQModeReview
	s.logg.Info(ctx, "vendor selection submitted")
	return view, nil
}

// view prices the stored terms against the summary, keeping only vendors that
// still have assigned items.
func (s *Service) view(sum rfq.SummaryView, stored Terms) View {
	out := View{
		Kind:           sum.Kind,
		DocID:          sum.DocID,
		Mode:           sum.Mode,
		Terms:          Terms{},
		Vendors:        []string{},
		MissingVendors: []string{},
	}
	for vendorID, vs := range sum.VendorSummary {
		out.Vendors = append(out.Vendors, vendorID)
		vt, ok := stored[vendorID]
		if !ok {
			out.MissingVendors = append(out.MissingVendors, vendorID)
			continue
		}
		out.Terms[vendorID] = vt.withTotal(vs.TotalInclGst)
	}
	sort.Strings(out.Vendors)
	sort.Strings(out.MissingVendors)
	out.Ready = len(out.Vendors) > 0 && len(out.MissingVendors) == 0
	return out
}

func (s *Service) load(ctx context.Context, kind enums.DocumentKind, docID string) (Terms, error) {
	raw, found, err := s.blobs.LoadBlob(ctx, s.blobs.PaymentTermsKey(kind.String(), docID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment terms draft")
	}
	if !found {
		return Terms{}, nil
	}
	var terms Terms
	if err := json.Unmarshal(raw, &terms); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "discarding malformed payment terms draft")
		return Terms{}, nil
	}
	if terms == nil {
		terms = Terms{}
	}
	return terms, nil
}

func (s *Service) save(ctx context.Context, kind enums.DocumentKind, docID string, terms Terms) error {
	payload, err := json.Marshal(terms)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment terms draft")
	}
	if err := s.blobs.SaveBlob(ctx, s.blobs.PaymentTermsKey(kind.String(), docID), payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment terms draft")
	}
	return nil
}

func (s *Service) observe(start time.Time, err error) {
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
	s.metrics.ObserveTransition(enums.RFQTransitionSubmit.String(), outcome, s.now().Sub(start))
}

func reviewOnly(mode enums.RFQMode) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "payment terms are only editable in review mode").
		WithDetails(map[string]any{"mode": mode, "required_mode": enums.RFQModeReview})
}
