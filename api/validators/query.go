package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
)

// ParseUUIDParam reads a chi URL parameter as a uuid. Malformed ids are
// reported as not found so they behave like unknown ids.
func ParseUUIDParam(r *http.Request, name, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", resource)
	}
	return id, nil
}
