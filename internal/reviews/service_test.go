package reviews

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	product "github.com/angelmondragon/koumale-backend/internal/products"
	"github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/db/dbtest"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/visibility"
)

type dbResolver struct {
	conn *gorm.DB
}

func (r dbResolver) ResolveVisible(ctx context.Context, slug string) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.conn.WithContext(ctx).Where("slug = ?", slug).First(&vendor).Error; err != nil {
		return nil, visibility.EnsureVendorVisible(nil, nil)
	}
	var owner models.User
	if err := r.conn.WithContext(ctx).First(&owner, "id = ?", vendor.UserID).Error; err != nil {
		return nil, err
	}
	if err := visibility.EnsureVendorVisible(&vendor, &owner); err != nil {
		return nil, err
	}
	return &vendor, nil
}

type recordingAnnouncer struct {
	mu      sync.Mutex
	ratings []int
}

func (a *recordingAnnouncer) ProductReviewed(_ context.Context, _ models.Product, review models.Review) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ratings = append(a.ratings, review.Rating)
}

func newTestService(t *testing.T) (Service, *gorm.DB, *recordingAnnouncer) {
	t.Helper()
	conn := dbtest.Open(t).DB()
	announcer := &recordingAnnouncer{}
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Products:  product.NewRepository(conn),
		Vendors:   dbResolver{conn: conn},
		Announcer: announcer,
		Logg:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, conn, announcer
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestReviewInputValidation(t *testing.T) {
	svc, conn, _ := newTestService(t)
	author := dbtest.MustUser(t, conn, enums.UserRoleClient, enums.UserStatusApproved)
	actor := auth.Actor{UserID: author.ID, Role: author.Role}

	for _, input := range []Input{
		{Rating: 0, Comment: "ok"},
		{Rating: 6, Comment: "ok"},
		{Rating: 3, Comment: "   "},
		{Rating: 3},
	} {
		_, err := svc.CreateAppReview(context.Background(), actor, input)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%+v: got %v", input, err)
	}

	created, err := svc.CreateAppReview(context.Background(), actor, Input{Rating: 5, Comment: "  Super appli  "})
	require.NoError(t, err)
	require.Equal(t, "Super appli", created.Comment)
	require.Equal(t, enums.ReviewTypeApp, created.Type)
}

func TestProductReviewsNotifyAndListNewestFirst(t *testing.T) {
	svc, conn, announcer := newTestService(t)
	ctx := context.Background()
	_, vendor := dbtest.MustApprovedVendor(t, conn, "Maison Kente")
	item := dbtest.MustProduct(t, conn, vendor.ID, "Kente", "mode", 70)
	author := dbtest.MustUser(t, conn, enums.UserRoleClient, enums.UserStatusApproved)
	actor := auth.Actor{UserID: author.ID, Role: author.Role}

	base := time.Now().UTC().Add(-time.Hour)
	for i, rating := range []int{5, 3, 4} {
		created, err := svc.CreateProductReview(ctx, actor, item.ID, Input{Rating: rating, Comment: "avis"})
		require.NoError(t, err)
		require.NoError(t, conn.Model(&models.Review{}).Where("id = ?", created.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	require.Equal(t, []int{5, 3, 4}, announcer.ratings)

	page, total, err := svc.ListProductReviews(ctx, item.ID, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	require.Equal(t, 4, page[0].Rating)
	require.Equal(t, 3, page[1].Rating)
	require.Equal(t, "Test", page[0].User.FirstName)
	require.Equal(t, author.ID, page[0].User.ID)

	_, _, err = svc.ListProductReviews(ctx, uuid.New(), pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
	_, err = svc.CreateProductReview(ctx, actor, uuid.New(), Input{Rating: 4, Comment: "avis"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestVendorReviewsFollowApprovalGate(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	_, approved := dbtest.MustApprovedVendor(t, conn, "Maison Kente")
	pendingOwner := dbtest.MustUser(t, conn, enums.UserRoleVendor, enums.UserStatusPending)
	pending := dbtest.MustVendor(t, conn, pendingOwner, "Atelier Wax")
	author := dbtest.MustUser(t, conn, enums.UserRoleClient, enums.UserStatusApproved)
	actor := auth.Actor{UserID: author.ID, Role: author.Role}

	_, err := svc.CreateVendorReview(ctx, actor, approved.Slug, Input{Rating: 4, Comment: "Bon accueil"})
	require.NoError(t, err)

	items, total, err := svc.ListVendorReviews(ctx, approved.Slug, pagination.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, &approved.ID, items[0].VendorID)

	_, err = svc.CreateVendorReview(ctx, actor, pending.Slug, Input{Rating: 4, Comment: "Bon accueil"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
	_, _, err = svc.ListVendorReviews(ctx, "ghost", pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	apps, total, err := svc.ListAppReviews(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, apps)
}
