package repository

import (
	"context"
	"sync"
	"time"

	"github.com/camden-git/identitybackend/models"
)

// InMemoryContactRepository keeps contacts in process memory. Ids are
// assigned in insertion order starting at 1, like an autoincrement column.
type InMemoryContactRepository struct {
	mu       sync.RWMutex
	contacts map[uint]models.Contact
	nextID   uint
}

// NewInMemoryContactRepository creates an empty in-memory contact store
func NewInMemoryContactRepository() *InMemoryContactRepository {
	return &InMemoryContactRepository{
		contacts: make(map[uint]models.Contact),
		nextID:   1,
	}
}

func (r *InMemoryContactRepository) FindMatching(_ context.Context, email, phone *string) ([]models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := []models.Contact{}
	for id := uint(1); id < r.nextID; id++ {
		c, ok := r.contacts[id]
		if !ok {
			continue
		}
		if (email != nil && c.Email != nil && *c.Email == *email) ||
			(phone != nil && c.PhoneNumber != nil && *c.PhoneNumber == *phone) {
			matches = append(matches, cloneContact(c))
		}
	}
	return matches, nil
}

func (r *InMemoryContactRepository) FindByID(_ context.Context, id uint) (*models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contacts[id]
	if !ok {
		return nil, ErrContactNotFound
	}
	out := cloneContact(c)
	return &out, nil
}

func (r *InMemoryContactRepository) FindChildOf(_ context.Context, id uint) (*models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for childID := uint(1); childID < r.nextID; childID++ {
		c, ok := r.contacts[childID]
		if ok && c.LinkedID != nil && *c.LinkedID == id {
			out := cloneContact(c)
			return &out, nil
		}
	}
	return nil, ErrContactNotFound
}

func (r *InMemoryContactRepository) Create(_ context.Context, email, phone *string, parentID *uint) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Unix()
	c := models.Contact{
		ID:             r.nextID,
		Email:          copyString(email),
		PhoneNumber:    copyString(phone),
		LinkPrecedence: models.LinkPrecedencePrimary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if parentID != nil {
		parent := *parentID
		c.LinkedID = &parent
		c.LinkPrecedence = models.LinkPrecedenceSecondary
	}
	r.contacts[c.ID] = c
	r.nextID++

	out := cloneContact(c)
	return &out, nil
}

func (r *InMemoryContactRepository) Relink(_ context.Context, id, newParentID uint) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[id]
	if !ok {
		return nil, ErrContactNotFound
	}
	parent := newParentID
	c.LinkedID = &parent
	c.LinkPrecedence = models.LinkPrecedenceSecondary
	c.UpdatedAt = time.Now().Unix()
	r.contacts[id] = c

	out := cloneContact(c)
	return &out, nil
}

func (r *InMemoryContactRepository) Ping(context.Context) error {
	return nil
}

// Put stores a contact verbatim, bypassing the link rules. Seeding and tests
// use it to build chains (including corrupted ones) directly.
func (r *InMemoryContactRepository) Put(c models.Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contacts[c.ID] = cloneContact(c)
	if c.ID >= r.nextID {
		r.nextID = c.ID + 1
	}
}

func cloneContact(c models.Contact) models.Contact {
	c.Email = copyString(c.Email)
	c.PhoneNumber = copyString(c.PhoneNumber)
	if c.LinkedID != nil {
		linked := *c.LinkedID
		c.LinkedID = &linked
	}
	return c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
