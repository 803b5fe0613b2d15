package paymentterms

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/procurement-backend/internal/documents"
	"github.com/angelmondragon/procurement-backend/internal/rfq"
	"github.com/angelmondragon/procurement-backend/internal/summary"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

type memBlobs struct {
	mu    sync.Mutex
	data  map[string][]byte
	locks map[string]bool
}

func (m *memBlobs) LoadBlob(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBlobs) SaveBlob(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memBlobs) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memBlobs) DraftKey(kind, docID string) string        { return "draft:" + kind + ":" + docID }
func (m *memBlobs) PaymentTermsKey(kind, docID string) string { return "terms:" + kind + ":" + docID }
func (m *memBlobs) InFlightKey(kind, docID, action string) string {
	return "inflight:" + kind + ":" + docID + ":" + action
}

func (m *memBlobs) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *memBlobs) ReleaseLock(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func (m *memBlobs) Locked(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[key], nil
}

type stubDocs struct {
	updateErr  error
	commentErr error
	updates    []documents.Patch
	comments   []documents.Comment
}

func (s *stubDocs) Get(context.Context, enums.DocumentKind, string) (documents.Document, error) {
	return documents.Document{}, nil
}

func (s *stubDocs) Update(_ context.Context, _ enums.DocumentKind, _ string, patch documents.Patch) error {
	s.updates = append(s.updates, patch)
	return s.updateErr
}

func (s *stubDocs) CreateComment(_ context.Context, c documents.Comment) error {
	s.comments = append(s.comments, c)
	return s.commentErr
}

type stubSummaries struct {
	view rfq.SummaryView
	err  error
}

func (s stubSummaries) Summary(context.Context, enums.DocumentKind, string) (rfq.SummaryView, error) {
	return s.view, s.err
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func reviewSummary() rfq.SummaryView {
	return rfq.SummaryView{
		Kind:  enums.DocumentKindProcurementRequest,
		DocID: "PR-1",
		Mode:  enums.RFQModeReview,
		Result: summary.Result{VendorSummary: map[string]*summary.VendorSummary{
			"V1": {VendorID: "V1", TotalInclGst: dec("1180")},
			"V2": {VendorID: "V2", TotalInclGst: dec("500.555")},
		}},
	}
}

type fixture struct {
	svc   *Service
	docs  *stubDocs
	blobs *memBlobs
	logs  *bytes.Buffer
}

func newFixture(t *testing.T, view rfq.SummaryView) *fixture {
	t.Helper()
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: "json"})
	blobs := &memBlobs{data: map[string][]byte{}, locks: map[string]bool{}}
	drafts, err := rfq.NewDraftStore(blobs, time.Hour, logg)
	require.NoError(t, err)
	guard, err := rfq.NewGuard(blobs, time.Second)
	require.NoError(t, err)
	docs := &stubDocs{}
	svc, err := NewService(ServiceParams{
		Documents: docs,
		Summaries: stubSummaries{view: view},
		Blobs:     blobs,
		Drafts:    drafts,
		Guard:     guard,
		Logger:    logg,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, docs: docs, blobs: blobs, logs: buf}
}

func split(pcts ...string) []Term {
	terms := make([]Term, 0, len(pcts))
	for i, p := range pcts {
		terms = append(terms, Term{Name: "Installment " + string(rune('A'+i)), Percentage: dec(p)})
	}
	return terms
}

func TestVendorTermsValidate(t *testing.T) {
	cases := []struct {
		name string
		in   VendorTerms
		ok   bool
	}{
		{"credit without schedule", VendorTerms{Type: enums.PaymentTermTypeCredit}, true},
		{"schedule adds up", VendorTerms{Type: enums.PaymentTermTypeDeliveryAgainstPayment, Terms: split("30", "70")}, true},
		{"within tolerance", VendorTerms{Type: enums.PaymentTermTypeCredit, Terms: split("33.33", "33.33", "33.33")}, true},
		{"short of 100", VendorTerms{Type: enums.PaymentTermTypeCredit, Terms: split("50", "40")}, false},
		{"negative", VendorTerms{Type: enums.PaymentTermTypeCredit, Terms: split("120", "-20")}, false},
		{"unknown type", VendorTerms{Type: "Barter"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestPutPricesTermsAgainstSummary(t *testing.T) {
	f := newFixture(t, reviewSummary())
	view, err := f.svc.Put(context.Background(), enums.DocumentKindProcurementRequest, "PR-1", Terms{
		"V1": {Type: enums.PaymentTermTypeDeliveryAgainstPayment, Terms: split("40", "60")},
	})
	require.NoError(t, err)

	v1 := view.Terms["V1"]
	assert.True(t, v1.TotalPOAmount.Equal(dec("1180")))
	require.Len(t, v1.Terms, 2)
	assert.True(t, v1.Terms[0].Amount.Equal(dec("472")), "amount %s", v1.Terms[0].Amount)
	assert.NotEmpty(t, v1.Terms[0].ID)
	assert.Equal(t, []string{"V2"}, view.MissingVendors)
	assert.False(t, view.Ready)
}

func TestPutRejectsOutsideReviewAndUnknownVendors(t *testing.T) {
	editing := reviewSummary()
	editing.Mode = enums.RFQModeView
	f := newFixture(t, editing)
	_, err := f.svc.Put(context.Background(), enums.DocumentKindProcurementRequest, "PR-1", Terms{"V1": {Type: enums.PaymentTermTypeCredit}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	f = newFixture(t, reviewSummary())
	_, err = f.svc.Put(context.Background(), enums.DocumentKindProcurementRequest, "PR-1", Terms{"V9": {Type: enums.PaymentTermTypeCredit}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSubmitBlockedUntilEveryVendorHasTerms(t *testing.T) {
	f := newFixture(t, reviewSummary())
	ctx := context.Background()
	_, err := f.svc.Put(ctx, enums.DocumentKindProcurementRequest, "PR-1", Terms{"V1": {Type: enums.PaymentTermTypeCredit}})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, enums.DocumentKindProcurementRequest, "PR-1", SubmitInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateBlocked))
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.Equal(t, []string{"V2"}, details["missing_vendors"])
	assert.Empty(t, f.docs.updates)
}

func TestSubmitWritesTermsAndDropsBlobs(t *testing.T) {
	f := newFixture(t, reviewSummary())
	ctx := context.Background()
	kind := enums.DocumentKindProcurementRequest
	f.blobs.data[f.blobs.DraftKey(kind.String(), "PR-1")] = []byte(`{"mode":"review"}`)
	_, err := f.svc.Put(ctx, kind, "PR-1", Terms{
		"V1": {Type: enums.PaymentTermTypeCredit},
		"V2": {Type: enums.PaymentTermTypeDeliveryAgainstPayment, Terms: split("100")},
	})
	require.NoError(t, err)

	view, err := f.svc.Submit(ctx, kind, "PR-1", SubmitInput{Comment: "go with Acme", Actor: "buyer@example.test"})
	require.NoError(t, err)

	assert.True(t, view.Ready)
	require.Len(t, f.docs.updates, 1)
	patch := f.docs.updates[0]
	assert.Equal(t, enums.WorkflowStateVendorSelected, patch.WorkflowState)
	written := patch.PaymentTerms.(Terms)
	assert.True(t, written["V2"].TotalPOAmount.Equal(dec("500.56")), "rounded total %s", written["V2"].TotalPOAmount)
	assert.True(t, written["V2"].Terms[0].Amount.Equal(dec("500.56")))
	require.Len(t, f.docs.comments, 1)
	assert.Equal(t, "buyer@example.test", f.docs.comments[0].CommentBy)
	assert.Empty(t, f.blobs.data)
}

func TestSubmitRemoteFailureKeepsDraft(t *testing.T) {
	f := newFixture(t, reviewSummary())
	ctx := context.Background()
	kind := enums.DocumentKindProcurementRequest
	_, err := f.svc.Put(ctx, kind, "PR-1", Terms{
		"V1": {Type: enums.PaymentTermTypeCredit},
		"V2": {Type: enums.PaymentTermTypeCredit},
	})
	require.NoError(t, err)
	f.docs.updateErr = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("down"), "update document")

	_, err = f.svc.Submit(ctx, kind, "PR-1", SubmitInput{})
	require.Error(t, err)
	_, kept := f.blobs.data[f.blobs.PaymentTermsKey(kind.String(), "PR-1")]
	assert.True(t, kept)
}

func TestSubmitCommentFailureIsNotFatal(t *testing.T) {
	single := reviewSummary()
	delete(single.VendorSummary, "V2")
	f := newFixture(t, single)
	ctx := context.Background()
	kind := enums.DocumentKindProcurementRequest
	_, err := f.svc.Put(ctx, kind, "PR-1", Terms{"V1": {Type: enums.PaymentTermTypeCredit}})
	require.NoError(t, err)
	f.docs.commentErr = errors.New("comment rejected")

	_, err = f.svc.Submit(ctx, kind, "PR-1", SubmitInput{Comment: "ok"})
	require.NoError(t, err)
	assert.Contains(t, f.logs.String(), "failed to attach submission comment")
}

func TestGetDiscardsMalformedDraft(t *testing.T) {
	f := newFixture(t, reviewSummary())
	kind := enums.DocumentKindProcurementRequest
	f.blobs.data[f.blobs.PaymentTermsKey(kind.String(), "PR-1")] = []byte("not json")

	view, err := f.svc.Get(context.Background(), kind, "PR-1")
	require.NoError(t, err)
	assert.Empty(t, view.Terms)
	assert.Equal(t, []string{"V1", "V2"}, view.MissingVendors)
	assert.Contains(t, f.logs.String(), "discarding malformed payment terms draft")
}
