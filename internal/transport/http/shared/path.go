package shared

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"workforce/internal/domain/apperr"
	"workforce/internal/transport/http/api"
)

// PathID returns the UUID route parameter name. Anything else cannot name a
// row in the tenant, so it is answered as not found without touching storage.
func PathID(w http.ResponseWriter, r *http.Request, name, resource, requestID string) (string, bool) {
	id := chi.URLParam(r, name)
	if err := uuid.Validate(id); err != nil {
		api.FailError(w, apperr.NotFound("%s not found", resource), "", "", requestID)
		return "", false
	}
	return id, true
}
