package repositories

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/errs"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// orderNumberAttempts bounds retries when a random order number collides.
const orderNumberAttempts = 5

type OrderRepo interface {
	Create(ctx context.Context, in models.CreateOrderInput) (*models.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type orderRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOrderRepo(db *gorm.DB) OrderRepo {
	return &orderRepo{db: db, now: time.Now}
}

// Create checks stock, decrements it and writes the order with its items in one
// transaction. Any failing line rolls the whole order back.
func (r *orderRepo) Create(ctx context.Context, in models.CreateOrderInput) (*models.Order, error) {
	if err := models.Validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order, err := r.create(ctx, in, r.orderNumber())
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("could not allocate an order number: %w", lastErr)
}

func (r *orderRepo) create(ctx context.Context, in models.CreateOrderInput, number string) (*models.Order, error) {
	order := &models.Order{
		UserID:          in.UserID,
		OrderNumber:     number,
		Status:          models.OrderStatusPending,
		DeliveryAddress: in.DeliveryAddress,
		DeliveryPhone:   in.DeliveryPhone,
		Notes:           in.Notes,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(order).Error; err != nil {
			return err
		}

		var total float64
		for _, line := range in.Items {
			var product models.Product
			err := tx.Where("is_active = ?", true).First(&product, line.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", errs.ErrProductNotFound, line.ProductID)
			}
			if err != nil {
				return err
			}

			// guarded decrement: concurrent orders cannot drive stock negative
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", product.ID, line.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s (requested %d, available %d)",
					errs.ErrInsufficientStock, product.Name, line.Quantity, product.Stock)
			}

			item := models.OrderItem{
				OrderID:     order.ID,
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
				Subtotal:    utils.RoundMoney(product.Price * float64(line.Quantity)),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, item)
			total += item.Subtotal
		}

		order.TotalAmount = utils.RoundMoney(total)
		return tx.Model(order).UpdateColumn("total_amount", order.TotalAmount).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// orderNumber has the form ORD-YYYYMMDD-NNN.
func (r *orderRepo) orderNumber() string {
	return fmt.Sprintf("ORD-%s-%03d", r.now().Format("20060102"), rand.IntN(1000))
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	return &order, err
}

func (r *orderRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("order_number = ?", orderNumber).First(&order).Error
	return &order, err
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&orders).Error
	return orders, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}
