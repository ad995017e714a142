package controllers

import (
	"net/http"

	"github.com/angelmondragon/koumale-backend/api/middleware"
	pkgAuth "github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
)

func actorFrom(r *http.Request) (pkgAuth.Actor, error) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return pkgAuth.Actor{
		UserID: userID,
		Role:   enums.UserRole(middleware.RoleFromContext(r.Context())),
	}, nil
}
