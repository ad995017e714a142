package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
)

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.User, int64, error)
}

// ListInput is the raw admin listing request.
type ListInput struct {
	Role   string
	Status string
	Query  string
	Page   pagination.Params
}

// Service exposes user reads shared by the admin surface and the auth middleware.
type Service interface {
	List(ctx context.Context, input ListInput) ([]UserDTO, int64, error)
	ResolveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error)
}

type service struct {
	repo usersRepository
}

// NewService builds the users service.
func NewService(repo usersRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]UserDTO, int64, error) {
	filter := ListFilter{Query: input.Query}
	if raw := strings.TrimSpace(input.Role); raw != "" {
		role, err := enums.ParseUserRole(raw)
		if err != nil {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role filter")
		}
		filter.Role = &role
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseUserStatus(raw)
		if err != nil {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = &status
	}

	rows, total, err := s.repo.List(ctx, filter, input.Page)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, total, nil
}

// ResolveRole returns the stored role of an authenticated user. A deleted user
// resolves to NotFound so stale tokens stop working.
func (s *service) ResolveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user.Role, nil
}
