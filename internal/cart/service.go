package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/db"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/types"
)

// Service exposes the shopper cart.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo        CartRepository
	tx          txRunner
	productRepo productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, productRepo productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		productRepo: productRepo,
	}, nil
}

// Get returns the caller's cart, creating it on first access.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart.ID)
}

// AddItem adds a line, merging it into an existing line for the same product
// and selected attributes.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	note, err := cleanNote(input.Note)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	cart, err := s.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	selected := input.SelectedAttributes
	if selected == nil {
		selected = types.SelectedAttributes{}
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.ItemsForProduct(ctx, cart.ID, product.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
		}
		for i := range existing {
			item := &existing[i]
			if !item.SelectedAttributes.Equal(selected) {
				continue
			}
			item.Quantity += input.Quantity
			if note != nil {
				item.Note = note
			}
			if err := repo.SaveItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
			}
			return nil
		}

		position, err := repo.NextPosition(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "position cart line")
		}
		item := &models.CartItem{
			CartID:             cart.ID,
			ProductID:          product.ID,
			Quantity:           input.Quantity,
			SelectedAttributes: selected,
			Note:               note,
			Position:           position,
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return s.view(ctx, cart.ID)
}

// UpdateItem changes a line of the caller's cart. A quantity of zero or less
// removes the line.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error) {
	note, err := cleanNote(input.Note)
	if err != nil {
		return nil, err
	}
	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if input.Quantity != nil && *input.Quantity <= 0 {
		if _, err := s.repo.DeleteItem(ctx, cart.ID, item.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
		}
		return s.view(ctx, cart.ID)
	}

	if input.Quantity != nil {
		item.Quantity = *input.Quantity
	}
	if input.Note != nil {
		item.Note = note
	}
	if input.SelectedAttributes != nil {
		item.SelectedAttributes = *input.SelectedAttributes
	}
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return s.view(ctx, cart.ID)
}

// RemoveItem deletes a line of the caller's cart.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.DeleteItem(ctx, cart.ID, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	return s.view(ctx, cart.ID)
}

// Clear empties the caller's cart.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Clear(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return s.view(ctx, cart.ID)
}

func (s *service) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, *models.CartItem, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return cart, item, nil
}

// ensureCart loads the user's cart or creates it. A concurrent first access
// that loses the unique race reloads the winner's cart.
func (s *service) ensureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{UserID: userID}
	if err := s.repo.Create(ctx, cart); err != nil {
		if !db.IsUniqueViolation(err, "user_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		cart, err = s.repo.FindByUser(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
	}
	return cart, nil
}

func (s *service) view(ctx context.Context, cartID uuid.UUID) (*CartDTO, error) {
	rows, err := s.repo.Lines(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}
	return buildCart(cartID, rows), nil
}

// MaxNoteLength bounds a line note in characters.
const MaxNoteLength = 500

func cleanNote(note *string) (*string, error) {
	if note == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > MaxNoteLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "note must be at most %d characters", MaxNoteLength).
			WithDetails(map[string]string{"note": "too long"})
	}
	return &trimmed, nil
}
