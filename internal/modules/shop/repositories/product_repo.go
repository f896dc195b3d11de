package repositories

import (
	"context"
	"strings"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
	"gorm.io/gorm"
)

type ProductRepo interface {
	Search(ctx context.Context, term string, limit int) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	GetByCategory(ctx context.Context, category string, limit int) ([]models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	CheckStock(ctx context.Context, id uint, quantity int) (bool, error)
	Create(ctx context.Context, product *models.Product) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepo {
	return &productRepo{db: db}
}

// Search matches term as a case-insensitive substring of name or description.
func (r *productRepo) Search(ctx context.Context, term string, limit int) ([]models.Product, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"

	var products []models.Product
	query := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&products).Error
	return products, err
}

func (r *productRepo) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&product, id).Error
	return &product, err
}

// GetByIDs returns the active products among ids; missing ones are simply absent.
func (r *productRepo) GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error
	return products, err
}

func (r *productRepo) GetByCategory(ctx context.Context, category string, limit int) ([]models.Product, error) {
	var products []models.Product
	query := r.db.WithContext(ctx).
		Where("is_active = ? AND LOWER(category) = ?", true, strings.ToLower(category)).
		Order("name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&products).Error
	return products, err
}

func (r *productRepo) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("is_active = ? AND category IS NOT NULL AND category <> ''", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

func (r *productRepo) CheckStock(ctx context.Context, id uint, quantity int) (bool, error) {
	product, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return product.Stock >= quantity, nil
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}
