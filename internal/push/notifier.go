package push

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/tasks"
)

const taskKindEvent = "push.event"

type vendorLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

// Notifier turns marketplace events into push broadcasts. Event methods
// return immediately and deliver on the task dispatcher. Reminder methods
// deliver synchronously for the scheduler.
type Notifier struct {
	push    Service
	tasks   tasks.Submitter
	vendors vendorLookup
	logg    *logger.Logger
}

// NewNotifier wires the notifier.
func NewNotifier(push Service, submitter tasks.Submitter, vendors vendorLookup, logg *logger.Logger) (*Notifier, error) {
	if push == nil {
		return nil, fmt.Errorf("push service required")
	}
	if submitter == nil {
		return nil, fmt.Errorf("task submitter required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor lookup required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Notifier{push: push, tasks: submitter, vendors: vendors, logg: logg}, nil
}

// ProductCreated tells every client about a new product.
func (n *Notifier) ProductCreated(ctx context.Context, vendor models.Vendor, product models.Product) {
	ref := ProductRef{ID: product.ID, Name: product.Name, VendorName: vendor.BusinessName, VendorSlug: vendor.Slug}
	n.submit(ctx, "new_product", func(ctx context.Context) error {
		return n.broadcast(ctx, AllClients(), newProductPayload(ref))
	})
}

// ProductReviewed tells the owning vendor about a new product review.
func (n *Notifier) ProductReviewed(ctx context.Context, product models.Product, review models.Review) {
	n.submit(ctx, "product_review", func(ctx context.Context) error {
		vendor, err := n.vendors.FindByID(ctx, product.VendorID)
		if err != nil {
			return fmt.Errorf("load vendor %s: %w", product.VendorID, err)
		}
		ref := ProductRef{ID: product.ID, Name: product.Name, VendorName: vendor.BusinessName, VendorSlug: vendor.Slug}
		return n.broadcast(ctx, User(vendor.UserID), productReviewPayload(ref, review.ID, review.Rating))
	})
}

// VendorRegistered asks admins to review a new storefront.
func (n *Notifier) VendorRegistered(ctx context.Context, vendor models.Vendor) {
	ref := vendorRef(vendor)
	n.submit(ctx, "vendor_pending", func(ctx context.Context) error {
		return n.broadcast(ctx, Admins(), vendorPendingPayload(ref))
	})
}

// VendorApproved announces a storefront that just became public.
func (n *Notifier) VendorApproved(ctx context.Context, vendor models.Vendor) {
	ref := vendorRef(vendor)
	n.submit(ctx, "new_vendor", func(ctx context.Context) error {
		return n.broadcast(ctx, AllClients(), newVendorPayload(ref))
	})
}

// UserRegistered tells admins about a new account.
func (n *Notifier) UserRegistered(ctx context.Context, user models.User) {
	n.submit(ctx, "new_user", func(ctx context.Context) error {
		return n.broadcast(ctx, Admins(), newUserPayload(user.ID, user.Email))
	})
}

// PromotionReminder advertises a discounted product to clients.
func (n *Notifier) PromotionReminder(ctx context.Context, product ProductRef) error {
	return n.broadcast(ctx, AllClients(), promotionalPayload(product))
}

// TrendingProduct advertises the most viewed product to clients.
func (n *Notifier) TrendingProduct(ctx context.Context, product ProductRef) error {
	return n.broadcast(ctx, AllClients(), trendingPayload(product))
}

// PopularVendor advertises a storefront to clients.
func (n *Notifier) PopularVendor(ctx context.Context, vendor VendorRef) error {
	return n.broadcast(ctx, AllClients(), popularVendorPayload(vendor))
}

// PublishReminder nudges a vendor with a small catalog.
func (n *Notifier) PublishReminder(ctx context.Context, vendor VendorRef) error {
	return n.broadcast(ctx, User(vendor.UserID), publishReminderPayload(vendor))
}

// PromoteReminder nudges a vendor with unpromoted products.
func (n *Notifier) PromoteReminder(ctx context.Context, vendor VendorRef) error {
	return n.broadcast(ctx, User(vendor.UserID), promoteReminderPayload(vendor))
}

// AdminFewProducts reports how many vendors have a small catalog.
func (n *Notifier) AdminFewProducts(ctx context.Context, count int) error {
	return n.broadcast(ctx, Admins(), adminFewProductsPayload(count))
}

// AdminLowViews reports how many products lack visibility.
func (n *Notifier) AdminLowViews(ctx context.Context, count int) error {
	return n.broadcast(ctx, Admins(), adminLowViewsPayload(count))
}

func vendorRef(vendor models.Vendor) VendorRef {
	return VendorRef{ID: vendor.ID, UserID: vendor.UserID, Name: vendor.BusinessName, Slug: vendor.Slug}
}

func (n *Notifier) broadcast(ctx context.Context, audience Audience, payload Payload) error {
	_, err := n.push.Send(ctx, audience, payload)
	return err
}

func (n *Notifier) submit(ctx context.Context, event string, fn tasks.Func) {
	n.tasks.Submit(n.logg.WithField(ctx, "push_event", event), taskKindEvent, fn)
}
