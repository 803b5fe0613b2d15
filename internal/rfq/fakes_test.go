package rfq

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/procurement-backend/internal/benchmark"
	"github.com/angelmondragon/procurement-backend/internal/documents"
	"github.com/angelmondragon/procurement-backend/internal/quotes"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

type fakeDocs struct {
	doc       documents.Document
	getErr    error
	updateErr error
	updates   []documents.Patch
}

func (f *fakeDocs) Get(_ context.Context, _ enums.DocumentKind, _ string) (documents.Document, error) {
	if f.getErr != nil {
		return documents.Document{}, f.getErr
	}
	return f.doc, nil
}

func (f *fakeDocs) Update(_ context.Context, _ enums.DocumentKind, _ string, patch documents.Patch) error {
	f.updates = append(f.updates, patch)
	if f.updateErr != nil {
		return f.updateErr
	}
	if patch.ClearRFQData {
		f.doc.RFQData = quotes.EmptyRFQData()
	}
	if patch.RFQData != nil {
		f.doc.RFQData = patch.RFQData.Normalized()
	}
	if patch.Items != nil {
		f.doc.Items = patch.Items
	}
	if patch.WorkflowState != "" {
		f.doc.WorkflowState = patch.WorkflowState
	}
	return nil
}

func (f *fakeDocs) CreateComment(context.Context, documents.Comment) error { return nil }

type memBlobs struct {
	mu       sync.Mutex
	data     map[string][]byte
	locks    map[string]bool
	saveErr  error
	acquired []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: map[string][]byte{}, locks: map[string]bool{}}
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
	if m.saveErr != nil {
		return m.saveErr
	}
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
	m.acquired = append(m.acquired, key)
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

type staticRates []benchmark.Record

func (r staticRates) FindByItemIDs(context.Context, []string) ([]benchmark.Record, error) {
	return r, nil
}

type harness struct {
	svc   *Service
	docs  *fakeDocs
	blobs *memBlobs
	logs  *bytes.Buffer
}

var errRemote = errors.New("remote rejected")

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func prDoc() documents.Document {
	return documents.Document{
		Kind:          enums.DocumentKindProcurementRequest,
		Name:          "PR-1",
		WorkflowState: enums.WorkflowStateApproved,
		Items: []documents.LineItem{
			{ItemID: "I1", ItemName: "Pipe", Unit: "Nos", Quantity: dec("2"), Tax: dec("18"), Category: "Pipes"},
			{ItemID: "I2", ItemName: "Elbow", Unit: "Nos", Quantity: dec("1"), Tax: dec("0"), Category: "Pipes"},
		},
		RFQData: quotes.EmptyRFQData(),
	}
}

func newHarness(t *testing.T, doc documents.Document, rates ...benchmark.Record) *harness {
	t.Helper()
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: "json"})
	blobs := newMemBlobs()
	drafts, err := NewDraftStore(blobs, time.Hour, logg)
	require.NoError(t, err)
	guard, err := NewGuard(blobs, time.Second)
	require.NoError(t, err)
	docs := &fakeDocs{doc: doc}
	svc, err := NewService(ServiceParams{
		Documents: docs,
		Drafts:    drafts,
		Guard:     guard,
		Rates:     staticRates(rates),
		Quotes:    quotes.NewResolver(16, nil),
		Logger:    logg,
		Clock:     func() time.Time { return time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return &harness{svc: svc, docs: docs, blobs: blobs, logs: buf}
}

// quoted brings the harness document to edit mode with V1 and V2 quoting both items.
func (h *harness) quoted(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	kind, id := h.docs.doc.Kind, h.docs.doc.Name
	_, err := h.svc.AddVendors(ctx, kind, id, []quotes.VendorOption{{Value: "V1", Label: "Acme"}, {Value: "V2", Label: "Zenith"}})
	require.NoError(t, err)
	_, err = h.svc.SetQuotes(ctx, kind, id, []QuoteInput{
		{ItemID: "I1", VendorID: "V1", Quote: "100", Make: "Astral"},
		{ItemID: "I1", VendorID: "V2", Quote: "90"},
		{ItemID: "I2", VendorID: "V1", Quote: "40"},
	})
	require.NoError(t, err)
}
