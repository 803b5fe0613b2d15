package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/procurement-backend/api/middleware"
	"github.com/angelmondragon/procurement-backend/internal/benchmark"
	"github.com/angelmondragon/procurement-backend/internal/documents"
	"github.com/angelmondragon/procurement-backend/internal/export"
	"github.com/angelmondragon/procurement-backend/internal/paymentterms"
	"github.com/angelmondragon/procurement-backend/internal/quotes"
	"github.com/angelmondragon/procurement-backend/internal/rfq"
	"github.com/angelmondragon/procurement-backend/internal/summary"
	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

type stubRFQ struct {
	err      error
	vendors  []quotes.VendorOption
	quotes   []rfq.QuoteInput
	selected [2]string
	makes    []string
	calls    []string
}

func (s *stubRFQ) state(kind enums.DocumentKind, docID string, mode enums.RFQMode) (rfq.State, error) {
	if s.err != nil {
		return rfq.State{}, s.err
	}
	return rfq.State{Kind: kind, DocID: docID, Mode: mode, Selection: map[string]string{}}, nil
}

func (s *stubRFQ) Get(_ context.Context, kind enums.DocumentKind, docID string) (rfq.State, error) {
	s.calls = append(s.calls, "get")
	return s.state(kind, docID, enums.RFQModeEdit)
}

func (s *stubRFQ) AddVendors(_ context.Context, kind enums.DocumentKind, docID string, vendors []quotes.VendorOption) (rfq.State, error) {
	s.vendors = vendors
	return s.state(kind, docID, enums.RFQModeEdit)
}

func (s *stubRFQ) RemoveVendor(_ context.Context, kind enums.DocumentKind, docID, vendorID string) (rfq.State, error) {
	s.calls = append(s.calls, "remove:"+vendorID)
	return s.state(kind, docID, enums.RFQModeEdit)
}

func (s *stubRFQ) SetQuotes(_ context.Context, kind enums.DocumentKind, docID string, inputs []rfq.QuoteInput) (rfq.State, error) {
	s.quotes = inputs
	return s.state(kind, docID, enums.RFQModeEdit)
}

func (s *stubRFQ) SetMakes(_ context.Context, kind enums.DocumentKind, docID, itemID string, makes []string) (rfq.State, error) {
	s.makes = makes
	return s.state(kind, docID, enums.RFQModeEdit)
}

func (s *stubRFQ) ToggleSelection(_ context.Context, kind enums.DocumentKind, docID, itemID, vendorID string) (rfq.State, error) {
	s.selected = [2]string{itemID, vendorID}
	return s.state(kind, docID, enums.RFQModeView)
}

func (s *stubRFQ) SwitchToView(_ context.Context, kind enums.DocumentKind, docID string) (rfq.State, error) {
	s.calls = append(s.calls, "view")
	return s.state(kind, docID, enums.RFQModeView)
}

func (s *stubRFQ) SwitchToEdit(_ context.Context, kind enums.DocumentKind, docID string) (rfq.State, error) {
	s.calls = append(s.calls, "edit")
	return s.state(kind, docID, enums.RFQModeEdit)
}

func (s *stubRFQ) Proceed(_ context.Context, kind enums.DocumentKind, docID string) (rfq.State, error) {
	s.calls = append(s.calls, "proceed")
	return s.state(kind, docID, enums.RFQModeReview)
}

func (s *stubRFQ) Revert(_ context.Context, kind enums.DocumentKind, docID string) (rfq.State, error) {
	s.calls = append(s.calls, "revert")
	return s.state(kind, docID, enums.RFQModeEdit)
}

func (s *stubRFQ) Summary(_ context.Context, kind enums.DocumentKind, docID string) (rfq.SummaryView, error) {
	if s.err != nil {
		return rfq.SummaryView{}, s.err
	}
	items := []documents.LineItem{{
		ItemID: "I1", ItemName: "Cement", Unit: "bag",
		Quantity: decimal.NewFromInt(2), Tax: decimal.NewFromInt(18),
		Vendor: "V1", Quote: decimal.NewFromInt(100),
	}}
	return rfq.SummaryView{Kind: kind, DocID: docID, Mode: enums.RFQModeReview, Result: summary.Aggregate(items, nil, nil)}, nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(kind, docID, actor string) {
	n.events = append(n.events, kind+"/"+docID+"/"+actor)
}

func serve(t *testing.T, method, pattern, target, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(middleware.Actor(nil))
	r.Method(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(middleware.ActorHeader, "buyer@example.test")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

const docPattern = "/api/v1/rfq/{kind}/{docId}"

func TestRFQStateRejectsUnknownKind(t *testing.T) {
	rec := serve(t, http.MethodGet, docPattern, "/api/v1/rfq/invoice/PR-1", "", RFQState(&stubRFQ{}, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decode(t, rec).Error.Code)
}

func TestRFQStateReturnsDraft(t *testing.T) {
	rec := serve(t, http.MethodGet, docPattern, "/api/v1/rfq/sent_back/SB-9", "", RFQState(&stubRFQ{}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var state rfq.State
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &state))
	assert.Equal(t, enums.DocumentKindSentBack, state.Kind)
	assert.Equal(t, "SB-9", state.DocID)
}

func TestRFQAddVendorsValidatesAndNotifies(t *testing.T) {
	svc := &stubRFQ{}
	notifier := &recordingNotifier{}
	h := RFQAddVendors(svc, notifier, nil)

	rec := serve(t, http.MethodPost, docPattern+"/vendors", "/api/v1/rfq/procurement_request/PR-1/vendors", `{"vendors":[]}`, h)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, notifier.events)

	rec = serve(t, http.MethodPost, docPattern+"/vendors", "/api/v1/rfq/procurement_request/PR-1/vendors",
		`{"vendors":[{"value":"V1","label":"Acme"}]}`, h)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.vendors, 1)
	assert.Equal(t, "Acme", svc.vendors[0].Label)
	assert.Equal(t, []string{"procurement_request/PR-1/buyer@example.test"}, notifier.events)
}

func TestRFQSetQuotesMapsBody(t *testing.T) {
	svc := &stubRFQ{}
	rec := serve(t, http.MethodPut, docPattern+"/quotes", "/api/v1/rfq/procurement_request/PR-1/quotes",
		`{"quotes":[{"item_id":"I1","vendor_id":"V1","quote":"95.5","make":"Ultratech"}]}`,
		RFQSetQuotes(svc, nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []rfq.QuoteInput{{ItemID: "I1", VendorID: "V1", Quote: "95.5", Make: "Ultratech"}}, svc.quotes)
}

func TestRFQSetQuotesAcceptsNumericQuotes(t *testing.T) {
	tests := []struct {
		name  string
		quote string
		want  string
	}{
		{name: "integer", quote: `120`, want: "120"},
		{name: "decimal", quote: `95.5`, want: "95.5"},
		{name: "padded string", quote: `" 88 "`, want: "88"},
		{name: "null clears", quote: `null`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubRFQ{}
			rec := serve(t, http.MethodPut, docPattern+"/quotes", "/api/v1/rfq/procurement_request/PR-1/quotes",
				`{"quotes":[{"item_id":"I1","vendor_id":"V1","quote":`+tt.quote+`}]}`,
				RFQSetQuotes(svc, nil, nil))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Len(t, svc.quotes, 1)
			assert.Equal(t, tt.want, svc.quotes[0].Quote)
		})
	}
}

func TestRFQSetQuotesRejectsNonScalarQuote(t *testing.T) {
	svc := &stubRFQ{}
	rec := serve(t, http.MethodPut, docPattern+"/quotes", "/api/v1/rfq/procurement_request/PR-1/quotes",
		`{"quotes":[{"item_id":"I1","vendor_id":"V1","quote":true}]}`,
		RFQSetQuotes(svc, nil, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.quotes)
}

func TestRFQRemoveVendorUsesPath(t *testing.T) {
	svc := &stubRFQ{}
	rec := serve(t, http.MethodDelete, docPattern+"/vendors/{vendorId}", "/api/v1/rfq/procurement_request/PR-1/vendors/V2", "",
		RFQRemoveVendor(svc, nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"remove:V2"}, svc.calls)
}

func TestRFQToggleSelectionAndMakes(t *testing.T) {
	svc := &stubRFQ{}
	rec := serve(t, http.MethodPost, docPattern+"/select", "/api/v1/rfq/procurement_request/PR-1/select",
		`{"item_id":"I1","vendor_id":"V1"}`, RFQToggleSelection(svc, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]string{"I1", "V1"}, svc.selected)

	rec = serve(t, http.MethodPut, docPattern+"/makes", "/api/v1/rfq/procurement_request/PR-1/makes",
		`{"item_id":"I1","makes":["Ultratech","ACC"]}`, RFQSetMakes(svc, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Ultratech", "ACC"}, svc.makes)
}

func TestRFQTransitionSurfacesGateDetails(t *testing.T) {
	svc := &stubRFQ{err: pkgerrors.New(pkgerrors.CodeGateBlocked, "select a vendor for every item").
		WithDetails(map[string]any{"unselected_items": []string{"I2"}})}
	notifier := &recordingNotifier{}
	rec := serve(t, http.MethodPost, docPattern+"/proceed", "/api/v1/rfq/sent_back/SB-1/proceed", "",
		RFQTransition(svc.Proceed, notifier, nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, string(pkgerrors.CodeGateBlocked), env.Error.Code)
	assert.Contains(t, env.Error.Details, "unselected_items")
	assert.Empty(t, notifier.events)
}

func TestRFQTransitionConflict(t *testing.T) {
	svc := &stubRFQ{err: pkgerrors.New(pkgerrors.CodeConflict, "an update is already in progress")}
	rec := serve(t, http.MethodPost, docPattern+"/view", "/api/v1/rfq/procurement_request/PR-1/view", "",
		RFQTransition(svc.SwitchToView, nil, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRFQSummaryXLSX(t *testing.T) {
	rec := serve(t, http.MethodGet, docPattern+"/summary.xlsx", "/api/v1/rfq/procurement_request/PR-1/summary.xlsx", "",
		RFQSummaryXLSX(&stubRFQ{}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "PR-1_summary.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestRFQSummaryJSON(t *testing.T) {
	rec := serve(t, http.MethodGet, docPattern+"/summary", "/api/v1/rfq/procurement_request/PR-1/summary", "",
		RFQSummary(&stubRFQ{}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	assert.EqualValues(t, 236, body["approval_total_incl_gst"])
}

type stubTerms struct {
	submitted paymentterms.SubmitInput
	put       paymentterms.Terms
	err       error
}

func (s *stubTerms) Get(_ context.Context, kind enums.DocumentKind, docID string) (paymentterms.View, error) {
	return paymentterms.View{Kind: kind, DocID: docID}, s.err
}

func (s *stubTerms) Put(_ context.Context, kind enums.DocumentKind, docID string, updates paymentterms.Terms) (paymentterms.View, error) {
	s.put = updates
	return paymentterms.View{Kind: kind, DocID: docID, Terms: updates}, s.err
}

func (s *stubTerms) Submit(_ context.Context, kind enums.DocumentKind, docID string, in paymentterms.SubmitInput) (paymentterms.View, error) {
	s.submitted = in
	return paymentterms.View{Kind: kind, DocID: docID, Ready: true}, s.err
}

func TestPaymentTermsPutDecodesTerms(t *testing.T) {
	svc := &stubTerms{}
	body := `{"terms":{"V1":{"type":"Credit","terms":[{"name":"Advance","percentage":100}]}}}`
	rec := serve(t, http.MethodPut, docPattern+"/payment-terms", "/api/v1/rfq/procurement_request/PR-1/payment-terms", body,
		PaymentTermsPut(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, svc.put, "V1")
	assert.Equal(t, enums.PaymentTermType("Credit"), svc.put["V1"].Type)
	assert.True(t, svc.put["V1"].Terms[0].Percentage.Equal(decimal.NewFromInt(100)))
}

func TestRFQSubmitPassesActorAndComment(t *testing.T) {
	svc := &stubTerms{}
	notifier := &recordingNotifier{}
	rec := serve(t, http.MethodPost, docPattern+"/submit", "/api/v1/rfq/procurement_request/PR-1/submit",
		`{"comment":"  please expedite  "}`, RFQSubmit(svc, notifier, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "please expedite", svc.submitted.Comment)
	assert.Equal(t, "buyer@example.test", svc.submitted.Actor)
	assert.Len(t, notifier.events, 1)

	rec = serve(t, http.MethodPost, docPattern+"/submit", "/api/v1/rfq/procurement_request/PR-1/submit", "",
		RFQSubmit(svc, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.submitted.Comment)
}

type stubRates []benchmark.Record

func (s stubRates) FindByItemIDs(_ context.Context, ids []string) ([]benchmark.Record, error) {
	return s, nil
}

func TestTargetRatesLookup(t *testing.T) {
	h := TargetRatesLookup(stubRates{{ItemID: "I1", Unit: "bag", Rate: "410"}}, nil)

	rec := serve(t, http.MethodGet, "/api/v1/target-rates", "/api/v1/target-rates", "", h)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, http.MethodGet, "/api/v1/target-rates", "/api/v1/target-rates?item_id=I1", "", h)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"item_id":"I1"`)
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReadyReportsFailedDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	h := HealthReady(cfg, nil, map[string]Pinger{
		"db":    pingerFunc(func(context.Context) error { return nil }),
		"redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	rec := serve(t, http.MethodGet, "/health/ready", "/health/ready", "", h)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "connection refused", env.Error.Details["redis"])
	assert.Equal(t, "test", rec.Header().Get(envHeader))

	rec = serve(t, http.MethodGet, "/health/live", "/health/live", "", HealthLive(cfg))
	assert.Equal(t, http.StatusOK, rec.Code)
}
