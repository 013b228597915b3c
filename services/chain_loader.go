package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/camden-git/identitybackend/models"
	"github.com/camden-git/identitybackend/repository"
)

// DefaultMaxChainHops bounds pointer walks in either direction. A chain
// longer than this is treated as corrupted.
const DefaultMaxChainHops = 10000

// ChainLoader reconstructs the identity chain a contact belongs to by
// following parent pointers up to the root and child pointers down to the tail.
type ChainLoader struct {
	repo    repository.ContactRepositoryInterface
	maxHops int
}

// NewChainLoader creates a loader; maxHops <= 0 selects DefaultMaxChainHops
func NewChainLoader(repo repository.ContactRepositoryInterface, maxHops int) *ChainLoader {
	if maxHops <= 0 {
		maxHops = DefaultMaxChainHops
	}
	return &ChainLoader{repo: repo, maxHops: maxHops}
}

// LoadChain returns the full chain containing contact, root first and tail
// last, with no duplicate ids.
func (l *ChainLoader) LoadChain(ctx context.Context, contact models.Contact) ([]models.Contact, error) {
	visited := map[uint]struct{}{contact.ID: {}}

	var chain []models.Contact
	if !contact.IsPrimary() {
		ancestors, err := l.walkBackward(ctx, contact, visited)
		if err != nil {
			return nil, err
		}
		chain = ancestors
	}
	chain = append(chain, contact)

	descendants, err := l.walkForward(ctx, contact.ID, visited)
	if err != nil {
		return nil, err
	}
	return append(chain, descendants...), nil
}

// walkBackward follows LinkedID from contact to the root. The result is
// root first and excludes contact itself.
func (l *ChainLoader) walkBackward(ctx context.Context, contact models.Contact, visited map[uint]struct{}) ([]models.Contact, error) {
	var ancestors []models.Contact
	current := contact
	for !current.IsPrimary() {
		if current.LinkedID == nil {
			return nil, consistencyError(current.ID, "secondary contact has no linked id")
		}
		if len(ancestors) >= l.maxHops {
			return nil, consistencyError(contact.ID, "parent walk exceeded %d hops", l.maxHops)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		parentID := *current.LinkedID
		if _, seen := visited[parentID]; seen {
			return nil, consistencyError(current.ID, "link cycle through contact %d", parentID)
		}
		parent, err := l.repo.FindByID(ctx, parentID)
		if err != nil {
			if errors.Is(err, repository.ErrContactNotFound) {
				return nil, consistencyError(current.ID, "parent contact %d does not exist", parentID)
			}
			return nil, fmt.Errorf("failed to load parent %d of contact %d: %w", parentID, current.ID, err)
		}

		visited[parent.ID] = struct{}{}
		ancestors = append(ancestors, *parent)
		current = *parent
	}

	slices.Reverse(ancestors)
	return ancestors, nil
}

// walkForward follows child pointers from id until the tail is reached.
func (l *ChainLoader) walkForward(ctx context.Context, id uint, visited map[uint]struct{}) ([]models.Contact, error) {
	var descendants []models.Contact
	currentID := id
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		child, err := l.repo.FindChildOf(ctx, currentID)
		if err != nil {
			if errors.Is(err, repository.ErrContactNotFound) {
				return descendants, nil
			}
			return nil, fmt.Errorf("failed to load child of contact %d: %w", currentID, err)
		}
		if _, seen := visited[child.ID]; seen {
			return nil, consistencyError(currentID, "link cycle through child contact %d", child.ID)
		}
		if len(descendants) >= l.maxHops {
			return nil, consistencyError(id, "child walk exceeded %d hops", l.maxHops)
		}

		visited[child.ID] = struct{}{}
		descendants = append(descendants, *child)
		currentID = child.ID
	}
}
