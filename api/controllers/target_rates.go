package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/api/validators"
	"github.com/angelmondragon/procurement-backend/internal/benchmark"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

const maxRateLookupIDs = 200

// RateLookup returns stored reference rates by item.
type RateLookup interface {
	FindByItemIDs(ctx context.Context, itemIDs []string) ([]benchmark.Record, error)
}

// TargetRatesLookup lists reference rates for the requested item ids.
func TargetRatesLookup(rates RateLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := validators.ParseQueryList(r, "item_id", maxRateLookupIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(ids) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item_id is required"))
			return
		}
		records, err := rates.FindByItemIDs(r.Context(), ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rates": records})
	}
}
