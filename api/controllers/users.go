package controllers

import (
	"net/http"

	"github.com/angelmondragon/koumale-backend/api/responses"
	"github.com/angelmondragon/koumale-backend/internal/users"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
)

// UsersList is the admin user directory.
func UsersList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := pagination.Parse(q)

		items, total, err := svc.List(r.Context(), users.ListInput{
			Role:   q.Get("role"),
			Status: q.Get("status"),
			Query:  q.Get("q"),
			Page:   page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, items, total, page)
	}
}
