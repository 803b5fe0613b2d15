package controllers

import (
	"net/http"

	"github.com/angelmondragon/procurement-backend/api/middleware"
	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

// PresenceServer keeps a websocket open for one document's viewers.
type PresenceServer interface {
	Serve(w http.ResponseWriter, r *http.Request, kind, docID, user string)
}

// RFQPresence upgrades to a websocket that reports who else has the document
// open. The user comes from the actor header or the "user" query parameter,
// since browsers cannot set headers on websocket requests.
func RFQPresence(hub PresenceServer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := docFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user := middleware.ActorFromContext(r.Context())
		if user == "" {
			user = r.URL.Query().Get("user")
		}
		hub.Serve(w, r, ref.kind.String(), ref.docID, user)
	}
}
