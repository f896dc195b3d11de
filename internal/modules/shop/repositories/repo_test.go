package repositories

import (
	"context"
	"testing"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/database/dbtest"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	return dbtest.Open(t, &models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}, &models.Conversation{})
}

// seedCatalog inserts a small hardware catalog and returns it by name.
func seedCatalog(t *testing.T, db *gorm.DB) map[string]models.Product {
	t.Helper()
	catalog := []models.Product{
		{Name: "Cemento Sol Tipo I", Description: "Bolsa de 42.5 kg", Category: "Construcción", Price: 25.50, Stock: 100, Unit: "bolsa", IsActive: true},
		{Name: "Fierro corrugado 1/2\"", Description: "Varilla de 9 m", Category: "Construcción", Price: 38.90, Stock: 3, Unit: "varilla", IsActive: true},
		{Name: "Pintura látex blanca", Description: "Galón para interiores", Category: "Pinturas", Price: 45.00, Stock: 20, Unit: "galón", IsActive: true},
		{Name: "Martillo de uña", Description: "Mango de fibra", Category: "Herramientas", Price: 29.90, Stock: 0, IsActive: true},
	}
	out := map[string]models.Product{}
	for i := range catalog {
		require.NoError(t, db.WithContext(context.Background()).Create(&catalog[i]).Error)
		out[catalog[i].Name] = catalog[i]
	}
	return out
}
