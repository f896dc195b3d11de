package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRepoCreate(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	catalog := seedCatalog(t, db)
	users := NewUserRepo(db)
	user, err := users.FindOrCreate(ctx, "messenger", "psid-1")
	require.NoError(t, err)

	repo := NewOrderRepo(db).(*orderRepo)
	repo.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

	cement := catalog["Cemento Sol Tipo I"]
	paint := catalog["Pintura látex blanca"]

	order, err := repo.Create(ctx, models.CreateOrderInput{
		UserID:          user.ID,
		Items:           []models.OrderLine{{ProductID: cement.ID, Quantity: 2}, {ProductID: paint.ID, Quantity: 1}},
		DeliveryAddress: "Av. Principal 123, San Isidro",
		DeliveryPhone:   "987654321",
	})
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-20261015-\d{3}$`, order.OrderNumber)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.InDelta(t, 96.00, order.TotalAmount, 0.001)

	var sum float64
	for _, item := range order.Items {
		sum += item.UnitPrice * float64(item.Quantity)
	}
	assert.InDelta(t, sum, order.TotalAmount, 0.001)

	stored, err := repo.GetByOrderNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
	assert.InDelta(t, 96.00, stored.TotalAmount, 0.001)

	var c models.Product
	require.NoError(t, db.First(&c, cement.ID).Error)
	assert.Equal(t, 98, c.Stock)

	list, err := repo.ListByUser(ctx, user.ID, 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOrderRepoCreateRollsBack(t *testing.T) {
	tests := []struct {
		name    string
		lines   func(catalog map[string]models.Product) []models.OrderLine
		wantErr error
	}{
		{
			name: "insufficient stock on second line",
			lines: func(c map[string]models.Product) []models.OrderLine {
				return []models.OrderLine{
					{ProductID: c["Cemento Sol Tipo I"].ID, Quantity: 1},
					{ProductID: c["Fierro corrugado 1/2\""].ID, Quantity: 4},
				}
			},
			wantErr: errs.ErrInsufficientStock,
		},
		{
			name: "unknown product",
			lines: func(c map[string]models.Product) []models.OrderLine {
				return []models.OrderLine{
					{ProductID: c["Cemento Sol Tipo I"].ID, Quantity: 1},
					{ProductID: 9999, Quantity: 1},
				}
			},
			wantErr: errs.ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := openDB(t)
			catalog := seedCatalog(t, db)
			user, err := NewUserRepo(db).FindOrCreate(ctx, "messenger", "psid-2")
			require.NoError(t, err)

			_, err = NewOrderRepo(db).Create(ctx, models.CreateOrderInput{
				UserID:          user.ID,
				Items:           tt.lines(catalog),
				DeliveryAddress: "Jr. Lima 456",
				DeliveryPhone:   "912345678",
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var orders, items int64
			db.Model(&models.Order{}).Count(&orders)
			db.Model(&models.OrderItem{}).Count(&items)
			assert.Zero(t, orders)
			assert.Zero(t, items)

			var cement models.Product
			require.NoError(t, db.First(&cement, catalog["Cemento Sol Tipo I"].ID).Error)
			assert.Equal(t, 100, cement.Stock, "stock must be untouched after rollback")
		})
	}
}

func TestOrderRepoCreateRejectsInvalidInput(t *testing.T) {
	db := openDB(t)
	_, err := NewOrderRepo(db).Create(context.Background(), models.CreateOrderInput{})
	assert.Error(t, err)
}
