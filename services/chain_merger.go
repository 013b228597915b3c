package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/camden-git/identitybackend/models"
	"github.com/camden-git/identitybackend/repository"
)

// ChainMerger joins two identity chains into one.
type ChainMerger struct {
	repo repository.ContactRepositoryInterface
}

func NewChainMerger(repo repository.ContactRepositoryInterface) *ChainMerger {
	return &ChainMerger{repo: repo}
}

// Merge relinks the junior chain's root under the senior chain's tail and
// returns senior followed by junior. Seniority is positional: the caller
// passes the chain reached through the first match as senior, whatever the
// root ids are.
func (m *ChainMerger) Merge(ctx context.Context, senior, junior []models.Contact) ([]models.Contact, error) {
	if len(senior) == 0 || len(junior) == 0 {
		return nil, errors.New("cannot merge an empty identity chain")
	}

	tail := senior[len(senior)-1]
	relinked, err := m.repo.Relink(ctx, junior[0].ID, tail.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to relink contact %d under contact %d: %w", junior[0].ID, tail.ID, err)
	}

	merged := make([]models.Contact, 0, len(senior)+len(junior))
	merged = append(merged, senior...)
	merged = append(merged, *relinked)
	merged = append(merged, junior[1:]...)
	return merged, nil
}
