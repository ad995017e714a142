package push

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/koumale-backend/internal/repo"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
)

// Repository persists push subscriptions.
type Repository struct {
	repo.Base
}

// NewRepository returns a subscription repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Upsert stores sub keyed by endpoint. On an existing endpoint the keys are
// refreshed, and the owner and user agent only when sub carries them.
func (r *Repository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	columns := []string{"p256dh", "auth", "updated_at"}
	if sub.UserID != nil {
		columns = append(columns, "user_id")
	}
	if sub.UserAgent != nil {
		columns = append(columns, "user_agent")
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(sub).Error
}

// FindByEndpoint loads one subscription.
func (r *Repository) FindByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	if err := r.DB(ctx).Where("endpoint = ?", endpoint).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteByEndpoint removes the subscription and reports whether it existed.
func (r *Repository) DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error) {
	res := r.DB(ctx).Where("endpoint = ?", endpoint).Delete(&models.PushSubscription{})
	return res.RowsAffected > 0, res.Error
}

// ForAudience lists the subscriptions reached by audience.
func (r *Repository) ForAudience(ctx context.Context, audience Audience) ([]models.PushSubscription, error) {
	q := r.DB(ctx).Table("push_subscriptions AS s").Select("s.*")
	switch audience.kind {
	case audienceClients:
		q = q.Joins("LEFT JOIN users u ON u.id = s.user_id").
			Where("s.user_id IS NULL OR u.role = ?", enums.UserRoleClient)
	case audienceVendors:
		q = q.Joins("JOIN users u ON u.id = s.user_id").Where("u.role = ?", enums.UserRoleVendor)
	case audienceAdmins:
		q = q.Joins("JOIN users u ON u.id = s.user_id").Where("u.role = ?", enums.UserRoleSuperAdmin)
	case audienceUser:
		q = q.Where("s.user_id = ?", audience.userID)
	default:
		return nil, nil
	}
	var subs []models.PushSubscription
	if err := q.Order("s.created_at ASC").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

type audienceKind int

const (
	audienceNone audienceKind = iota
	audienceClients
	audienceVendors
	audienceAdmins
	audienceUser
)

// Audience selects the recipients of a broadcast.
type Audience struct {
	kind   audienceKind
	userID uuid.UUID
}

// AllClients reaches anonymous subscriptions and client accounts.
func AllClients() Audience { return Audience{kind: audienceClients} }

// Vendors reaches vendor accounts.
func Vendors() Audience { return Audience{kind: audienceVendors} }

// Admins reaches super admins.
func Admins() Audience { return Audience{kind: audienceAdmins} }

// User reaches every browser of one account.
func User(id uuid.UUID) Audience { return Audience{kind: audienceUser, userID: id} }

func (a Audience) String() string {
	switch a.kind {
	case audienceClients:
		return "clients"
	case audienceVendors:
		return "vendors"
	case audienceAdmins:
		return "admins"
	case audienceUser:
		return "user:" + a.userID.String()
	default:
		return "none"
	}
}
