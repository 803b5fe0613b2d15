package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/procurement-backend/api/middleware"
	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/api/validators"
	"github.com/angelmondragon/procurement-backend/internal/paymentterms"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

// PaymentTermsService drafts payment terms and submits the selection.
type PaymentTermsService interface {
	Get(ctx context.Context, kind enums.DocumentKind, docID string) (paymentterms.View, error)
	Put(ctx context.Context, kind enums.DocumentKind, docID string, updates paymentterms.Terms) (paymentterms.View, error)
	Submit(ctx context.Context, kind enums.DocumentKind, docID string, in paymentterms.SubmitInput) (paymentterms.View, error)
}

// PaymentTermsGet returns the drafted terms and the submission readiness.
func PaymentTermsGet(svc PaymentTermsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), ref.kind, ref.docID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type putPaymentTermsRequest struct {
	Terms paymentterms.Terms `json:"terms" validate:"required,min=1"`
}

// PaymentTermsPut merges terms for one or more vendors into the draft.
func PaymentTermsPut(svc PaymentTermsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req putPaymentTermsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Put(r.Context(), ref.kind, ref.docID, req.Terms)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type submitRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

// RFQSubmit sends the vendor selection with its payment terms.
func RFQSubmit(svc PaymentTermsService, notifier ChangeNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req submitRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		actor := middleware.ActorFromContext(r.Context())
		view, err := svc.Submit(r.Context(), ref.kind, ref.docID, paymentterms.SubmitInput{
			Comment: validators.SanitizeString(req.Comment, 2000),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if notifier != nil {
			notifier.Notify(ref.kind.String(), ref.docID, actor)
		}
		responses.WriteSuccess(w, view)
	}
}
