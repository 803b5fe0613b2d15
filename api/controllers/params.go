package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/procurement-backend/api/validators"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

const maxDocIDLen = 140

type docRef struct {
	kind  enums.DocumentKind
	docID string
}

// docFromPath reads {kind} and {docId} from the route.
func docFromPath(r *http.Request) (docRef, error) {
	kind, err := enums.ParseDocumentKind(strings.TrimSpace(chi.URLParam(r, "kind")))
	if err != nil {
		return docRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported document kind").
			WithDetails(map[string]any{"kind": chi.URLParam(r, "kind")})
	}
	docID := validators.SanitizeString(chi.URLParam(r, "docId"), maxDocIDLen)
	if docID == "" {
		return docRef{}, pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
	}
	return docRef{kind: kind, docID: docID}, nil
}
