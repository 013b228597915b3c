package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camden-git/identitybackend/models"
	"gorm.io/gorm"
)

// ContactRepository handles database operations for Contact entities through GORM
type ContactRepository struct {
	DB *gorm.DB
}

// NewContactRepository creates a new instance of ContactRepository
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{DB: db}
}

// FindMatching retrieves every contact sharing the given email or phone number
func (r *ContactRepository) FindMatching(ctx context.Context, email, phone *string) ([]models.Contact, error) {
	if email == nil && phone == nil {
		return []models.Contact{}, nil
	}

	query := r.DB.WithContext(ctx).Model(&models.Contact{})
	switch {
	case email != nil && phone != nil:
		query = query.Where("email = ? OR phone_number = ?", *email, *phone)
	case email != nil:
		query = query.Where("email = ?", *email)
	default:
		query = query.Where("phone_number = ?", *phone)
	}

	var contacts []models.Contact
	if err := query.Order("id ASC").Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("failed to find matching contacts: %w", err)
	}
	return contacts, nil
}

// FindByID retrieves a contact by its ID
func (r *ContactRepository) FindByID(ctx context.Context, id uint) (*models.Contact, error) {
	var contact models.Contact
	err := r.DB.WithContext(ctx).First(&contact, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to get contact by ID %d: %w", id, err)
	}
	return &contact, nil
}

// FindChildOf retrieves the contact linked directly to the given parent ID
func (r *ContactRepository) FindChildOf(ctx context.Context, id uint) (*models.Contact, error) {
	var contact models.Contact
	err := r.DB.WithContext(ctx).Where("linked_id = ?", id).Order("id ASC").First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to get child of contact %d: %w", id, err)
	}
	return &contact, nil
}

// Create inserts a new contact, primary when parentID is nil and secondary otherwise
func (r *ContactRepository) Create(ctx context.Context, email, phone *string, parentID *uint) (*models.Contact, error) {
	now := time.Now().Unix()
	contact := &models.Contact{
		Email:          email,
		PhoneNumber:    phone,
		LinkedID:       parentID,
		LinkPrecedence: models.LinkPrecedencePrimary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if parentID != nil {
		contact.LinkPrecedence = models.LinkPrecedenceSecondary
	}

	if err := r.DB.WithContext(ctx).Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return contact, nil
}

// Relink demotes a contact to secondary and points it at a new parent
func (r *ContactRepository) Relink(ctx context.Context, id, newParentID uint) (*models.Contact, error) {
	result := r.DB.WithContext(ctx).Model(&models.Contact{}).Where("id = ?", id).Updates(map[string]interface{}{
		"linked_id":       newParentID,
		"link_precedence": models.LinkPrecedenceSecondary,
		"updated_at":      time.Now().Unix(),
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to relink contact %d to %d: %w", id, newParentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrContactNotFound
	}
	return r.FindByID(ctx, id)
}

// Ping checks that the underlying database answers
func (r *ContactRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
