package repositories

import (
	"context"
	"errors"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepo interface {
	FindOrCreate(ctx context.Context, channel, externalID string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateContact(ctx context.Context, id uuid.UUID, data models.ContactData) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName string) error
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepo{db: db}
}

// FindOrCreate is safe under concurrent first messages from the same sender.
func (r *userRepo) FindOrCreate(ctx context.Context, channel, externalID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("channel = ? AND external_id = ?", channel, externalID).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{Channel: channel, ExternalID: externalID}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user).Error
	if err != nil {
		return nil, err
	}

	// re-read so a concurrent insert wins consistently
	var stored models.User
	err = r.db.WithContext(ctx).
		Where("channel = ? AND external_id = ?", channel, externalID).
		First(&stored).Error
	return &stored, err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	return &user, err
}

// UpdateContact only overwrites the fields present in data.
func (r *userRepo) UpdateContact(ctx context.Context, id uuid.UUID, data models.ContactData) (*models.User, error) {
	updates := map[string]interface{}{}
	if data.FullName != "" {
		updates["full_name"] = data.FullName
	}
	if data.Phone != "" {
		updates["phone"] = data.Phone
	}
	if data.Address != "" {
		updates["address"] = data.Address
	}
	if data.Email != "" {
		updates["email"] = data.Email
	}

	if len(updates) > 0 {
		err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
		if err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *userRepo) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"first_name": firstName, "last_name": lastName}).Error
}
