package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/procurement-backend/api/middleware"
	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/api/validators"
	"github.com/angelmondragon/procurement-backend/internal/quotes"
	"github.com/angelmondragon/procurement-backend/internal/rfq"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

// RFQService is the draft workflow the RFQ routes drive.
type RFQService interface {
	Get(ctx context.Context, kind enums.DocumentKind, docID string) (rfq.State, error)
	AddVendors(ctx context.Context, kind enums.DocumentKind, docID string, vendors []quotes.VendorOption) (rfq.State, error)
	RemoveVendor(ctx context.Context, kind enums.DocumentKind, docID, vendorID string) (rfq.State, error)
	SetQuotes(ctx context.Context, kind enums.DocumentKind, docID string, inputs []rfq.QuoteInput) (rfq.State, error)
	SetMakes(ctx context.Context, kind enums.DocumentKind, docID, itemID string, makes []string) (rfq.State, error)
	ToggleSelection(ctx context.Context, kind enums.DocumentKind, docID, itemID, vendorID string) (rfq.State, error)
	SwitchToView(ctx context.Context, kind enums.DocumentKind, docID string) (rfq.State, error)
	SwitchToEdit(ctx context.Context, kind enums.DocumentKind, docID string) (rfq.State, error)
	Proceed(ctx context.Context, kind enums.DocumentKind, docID string) (rfq.State, error)
	Revert(ctx context.Context, kind enums.DocumentKind, docID string) (rfq.State, error)
	Summary(ctx context.Context, kind enums.DocumentKind, docID string) (rfq.SummaryView, error)
}

// ChangeNotifier tells other viewers of a document that it changed.
type ChangeNotifier interface {
	Notify(kind, docID, actor string)
}

// TransitionFunc is one body-less RFQ mode transition.
type TransitionFunc func(ctx context.Context, kind enums.DocumentKind, docID string) (rfq.State, error)

// RFQState returns the reconciled draft of a document.
func RFQState(svc RFQService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.Get(r.Context(), ref.kind, ref.docID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

type vendorOptionRequest struct {
	Value string `json:"value" validate:"required,notblank,max=140"`
	Label string `json:"label" validate:"max=140"`
	City  string `json:"city" validate:"max=140"`
	State string `json:"state" validate:"max=140"`
}

type addVendorsRequest struct {
	Vendors []vendorOptionRequest `json:"vendors" validate:"required,min=1,max=200,dive"`
}

// RFQAddVendors invites vendors to quote.
func RFQAddVendors(svc RFQService, notifier ChangeNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req addVendorsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendors := make([]quotes.VendorOption, 0, len(req.Vendors))
		for _, v := range req.Vendors {
			vendors = append(vendors, quotes.VendorOption{Value: v.Value, Label: v.Label, City: v.City, State: v.State})
		}
		state, err := svc.AddVendors(r.Context(), ref.kind, ref.docID, vendors)
		writeState(w, r, ref, state, err, notifier, logg)
	}
}

// RFQRemoveVendor drops a vendor together with its quotes.
func RFQRemoveVendor(svc RFQService, notifier ChangeNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID := validators.SanitizeString(chi.URLParam(r, "vendorId"), maxDocIDLen)
		if vendorID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required"))
			return
		}
		state, err := svc.RemoveVendor(r.Context(), ref.kind, ref.docID, vendorID)
		writeState(w, r, ref, state, err, notifier, logg)
	}
}

type quoteRequest struct {
	ItemID   string          `json:"item_id" validate:"required,notblank"`
	VendorID string          `json:"vendor_id" validate:"required,notblank"`
	Quote    quotes.RawQuote `json:"quote" validate:"max=32"`
	Make     string          `json:"make" validate:"max=140"`
}

type setQuotesRequest struct {
	Quotes []quoteRequest `json:"quotes" validate:"required,min=1,max=1000,dive"`
}

// RFQSetQuotes records quotes and makes per (item, vendor).
func RFQSetQuotes(svc RFQService, notifier ChangeNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setQuotesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inputs := make([]rfq.QuoteInput, 0, len(req.Quotes))
		for _, q := range req.Quotes {
			inputs = append(inputs, rfq.QuoteInput{ItemID: q.ItemID, VendorID: q.VendorID, Quote: string(q.Quote), Make: q.Make})
		}
		state, err := svc.SetQuotes(r.Context(), ref.kind, ref.docID, inputs)
		writeState(w, r, ref, state, err, notifier, logg)
	}
}

type setMakesRequest struct {
	ItemID string   `json:"item_id" validate:"required,notblank"`
	Makes  []string `json:"makes" validate:"max=50,dive,max=140"`
}

// RFQSetMakes replaces the make options of one item.
func RFQSetMakes(svc RFQService, notifier ChangeNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setMakesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.SetMakes(r.Context(), ref.kind, ref.docID, req.ItemID, req.Makes)
		writeState(w, r, ref, state, err, notifier, logg)
	}
}

type selectRequest struct {
	ItemID   string `json:"item_id" validate:"required,notblank"`
	VendorID string `json:"vendor_id" validate:"required,notblank"`
}

// RFQToggleSelection picks or unpicks a vendor's quote for an item.
func RFQToggleSelection(svc RFQService, notifier ChangeNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req selectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.ToggleSelection(r.Context(), ref.kind, ref.docID, req.ItemID, req.VendorID)
		writeState(w, r, ref, state, err, notifier, logg)
	}
}

// RFQTransition runs a body-less mode transition such as view, edit,
// proceed or revert.
func RFQTransition(run TransitionFunc, notifier ChangeNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := run(r.Context(), ref.kind, ref.docID)
		writeState(w, r, ref, state, err, notifier, logg)
	}
}

// RFQSummary returns the vendor-wise summary.
func RFQSummary(svc RFQService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Summary(r.Context(), ref.kind, ref.docID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func writeState(w http.ResponseWriter, r *http.Request, ref docRef, state rfq.State, err error, notifier ChangeNotifier, logg *logger.Logger) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	if notifier != nil {
		notifier.Notify(ref.kind.String(), ref.docID, middleware.ActorFromContext(r.Context()))
	}
	responses.WriteSuccess(w, state)
}
