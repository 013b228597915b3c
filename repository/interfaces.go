package repository

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks ContactRepositoryInterface

import (
	"context"
	"errors"

	"github.com/camden-git/identitybackend/models"
)

var (
	// ErrContactNotFound is returned when a lookup by id or parent id finds no row.
	ErrContactNotFound = errors.New("contact not found")
	// ErrStoreUnavailable wraps failures to reach the backing store.
	ErrStoreUnavailable = errors.New("contact store unavailable")
)

// ContactRepositoryInterface defines the methods the identity core needs from
// durable contact storage. Every call is one round trip.
type ContactRepositoryInterface interface {
	// FindMatching returns contacts whose email equals email OR whose phone
	// number equals phone, ascending by id. Nil arguments match nothing.
	FindMatching(ctx context.Context, email, phone *string) ([]models.Contact, error)
	FindByID(ctx context.Context, id uint) (*models.Contact, error)
	// FindChildOf returns the contact whose linked_id is id.
	FindChildOf(ctx context.Context, id uint) (*models.Contact, error)
	// Create inserts a contact. It is primary iff parentID is nil.
	Create(ctx context.Context, email, phone *string, parentID *uint) (*models.Contact, error)
	// Relink points id at newParentID and demotes it to secondary.
	Relink(ctx context.Context, id, newParentID uint) (*models.Contact, error)
	Ping(ctx context.Context) error
}
