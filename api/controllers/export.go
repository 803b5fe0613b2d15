package controllers

import (
	"bytes"
	"net/http"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/internal/export"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

// RFQSummaryXLSX downloads the vendor-wise summary as a workbook.
func RFQSummaryXLSX(svc RFQService, logg *logger.Logger) http.HandlerFunc {
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
		var buf bytes.Buffer
		if err := export.Write(&buf, view); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render summary workbook"))
			return
		}
		responses.WriteAttachment(w, export.ContentType, export.Filename(view), buf.Bytes())
	}
}
