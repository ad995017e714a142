package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	product "github.com/angelmondragon/koumale-backend/internal/products"
	"github.com/angelmondragon/koumale-backend/internal/push"
	"github.com/angelmondragon/koumale-backend/internal/vendors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/query"
)

const (
	publishReminderThreshold = 5
	fewProductsThreshold     = 3
	fewProductsLimit         = 5
	lowViewsThreshold        = 10
	lowViewsLimit            = 10
)

type productCatalog interface {
	List(ctx context.Context, plan query.Plan) ([]product.Row, int64, error)
	LowViewIDs(ctx context.Context, below int64, limit int) ([]uuid.UUID, error)
}

type vendorCatalog interface {
	List(ctx context.Context, plan query.Plan) ([]vendors.Row, int64, error)
	WithFewProducts(ctx context.Context, threshold int64, limit int) ([]vendors.ProductCount, error)
	WithUnpromotedProducts(ctx context.Context) ([]vendors.ProductCount, error)
}

type reminderNotifier interface {
	PromotionReminder(ctx context.Context, product push.ProductRef) error
	TrendingProduct(ctx context.Context, product push.ProductRef) error
	PopularVendor(ctx context.Context, vendor push.VendorRef) error
	PublishReminder(ctx context.Context, vendor push.VendorRef) error
	PromoteReminder(ctx context.Context, vendor push.VendorRef) error
	AdminFewProducts(ctx context.Context, count int) error
	AdminLowViews(ctx context.Context, count int) error
}

// NotificationJobsParams wires the scheduled push notifications.
type NotificationJobsParams struct {
	Logger   *logger.Logger
	Products productCatalog
	Vendors  vendorCatalog
	Notifier reminderNotifier
}

type notificationJobs struct {
	logg     *logger.Logger
	products productCatalog
	vendors  vendorCatalog
	notifier reminderNotifier
}

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

// RegisterNotificationJobs adds the marketplace reminders to registry.
func RegisterNotificationJobs(registry *Registry, params NotificationJobsParams) error {
	if registry == nil {
		return fmt.Errorf("registry required")
	}
	if params.Logger == nil {
		return fmt.Errorf("logger required")
	}
	if params.Products == nil {
		return fmt.Errorf("product catalog required")
	}
	if params.Vendors == nil {
		return fmt.Errorf("vendor catalog required")
	}
	if params.Notifier == nil {
		return fmt.Errorf("notifier required")
	}
	j := &notificationJobs{logg: params.Logger, products: params.Products, vendors: params.Vendors, notifier: params.Notifier}

	schedule := []struct {
		spec string
		job  Job
	}{
		{"0 10 * * *", funcJob{"promotional-products", j.promotionalProducts}},
		{"0 14 1-31/2 * *", funcJob{"trending-products", j.trendingProducts}},
		{"0 16 1-31/3 * *", funcJob{"popular-vendor", j.popularVendor}},
		{"0 9 * * 1", funcJob{"vendor-publish-reminder", j.publishReminders}},
		{"0 11 * * 3", funcJob{"vendor-promote-reminder", j.promoteReminders}},
		{"0 10 * * 2", funcJob{"admin-few-products", j.adminFewProducts}},
		{"0 10 * * 4", funcJob{"admin-low-views", j.adminLowViews}},
	}
	for _, s := range schedule {
		if err := registry.Register(s.spec, s.job); err != nil {
			return err
		}
	}
	return nil
}

func firstOnly(sort query.Sort) query.Plan {
	plan := query.NewPlan()
	plan.Sort = sort
	plan.Page = pagination.Params{Page: 1, Limit: 1}
	return plan
}

func productRef(row product.Row) push.ProductRef {
	return push.ProductRef{
		ID:               row.ID,
		Name:             row.Name,
		VendorName:       row.VendorBusinessName,
		VendorSlug:       row.VendorSlug,
		Price:            row.Price,
		PromotionalPrice: row.PromotionalPrice.Decimal,
	}
}

func (j *notificationJobs) promotionalProducts(ctx context.Context) error {
	plan := firstOnly(query.NewestSort())
	plan.Where(query.Positive(query.FieldPromotionalPrice))
	rows, _, err := j.products.List(ctx, plan)
	if err != nil {
		return fmt.Errorf("load promoted product: %w", err)
	}
	if len(rows) == 0 {
		j.logg.Info(ctx, "no promoted product to advertise")
		return nil
	}
	return j.notifier.PromotionReminder(ctx, productRef(rows[0]))
}

func (j *notificationJobs) trendingProducts(ctx context.Context) error {
	rows, _, err := j.products.List(ctx, firstOnly(query.TrendingSort()))
	if err != nil {
		return fmt.Errorf("load trending product: %w", err)
	}
	if len(rows) == 0 {
		j.logg.Info(ctx, "no trending product to advertise")
		return nil
	}
	return j.notifier.TrendingProduct(ctx, productRef(rows[0]))
}

func (j *notificationJobs) popularVendor(ctx context.Context) error {
	rows, _, err := j.vendors.List(ctx, firstOnly(query.PopularSort()))
	if err != nil {
		return fmt.Errorf("load popular vendor: %w", err)
	}
	if len(rows) == 0 {
		j.logg.Info(ctx, "no vendor to advertise")
		return nil
	}
	v := rows[0].Vendor
	return j.notifier.PopularVendor(ctx, push.VendorRef{ID: v.ID, UserID: v.UserID, Name: v.BusinessName, Slug: v.Slug})
}

func (j *notificationJobs) publishReminders(ctx context.Context) error {
	counts, err := j.vendors.WithFewProducts(ctx, publishReminderThreshold, 0)
	if err != nil {
		return fmt.Errorf("load small catalogs: %w", err)
	}
	return j.remindEach(ctx, counts, j.notifier.PublishReminder)
}

func (j *notificationJobs) promoteReminders(ctx context.Context) error {
	counts, err := j.vendors.WithUnpromotedProducts(ctx)
	if err != nil {
		return fmt.Errorf("load unpromoted catalogs: %w", err)
	}
	return j.remindEach(ctx, counts, j.notifier.PromoteReminder)
}

// remindEach notifies every vendor and keeps going past individual failures.
func (j *notificationJobs) remindEach(ctx context.Context, counts []vendors.ProductCount, remind func(context.Context, push.VendorRef) error) error {
	var errs error
	for _, c := range counts {
		ref := push.VendorRef{ID: c.VendorID, UserID: c.UserID, Name: c.BusinessName}
		if err := remind(ctx, ref); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("vendor %s: %w", c.VendorID, err))
		}
	}
	j.logg.Info(j.logg.WithField(ctx, "vendors", len(counts)), "vendor reminders sent")
	return errs
}

func (j *notificationJobs) adminFewProducts(ctx context.Context) error {
	counts, err := j.vendors.WithFewProducts(ctx, fewProductsThreshold, fewProductsLimit)
	if err != nil {
		return fmt.Errorf("load small catalogs: %w", err)
	}
	if len(counts) == 0 {
		return nil
	}
	return j.notifier.AdminFewProducts(ctx, len(counts))
}

func (j *notificationJobs) adminLowViews(ctx context.Context) error {
	ids, err := j.products.LowViewIDs(ctx, lowViewsThreshold, lowViewsLimit)
	if err != nil {
		return fmt.Errorf("load low view products: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	return j.notifier.AdminLowViews(ctx, len(ids))
}
