package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/camden-git/identitybackend/metrics"
	"github.com/camden-git/identitybackend/models"
	"github.com/camden-git/identitybackend/repository"
)

// EventPublisher receives identity events after each successful write.
// Publish must not block the resolution.
type EventPublisher interface {
	Publish(event models.IdentityEvent)
}

// IdentityService resolves (email, phone) observations into consolidated
// identity chains, growing or merging chains as new links are discovered.
type IdentityService struct {
	repo    repository.ContactRepositoryInterface
	loader  *ChainLoader
	merger  *ChainMerger
	locker  KeyLocker
	events  EventPublisher
	logger  *zap.Logger
	maxHops int
}

// Option configures an IdentityService
type Option func(*IdentityService)

func WithLogger(logger *zap.Logger) Option {
	return func(s *IdentityService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyLocker serializes resolutions whose email/phone keys overlap.
func WithKeyLocker(locker KeyLocker) Option {
	return func(s *IdentityService) {
		if locker != nil {
			s.locker = locker
		}
	}
}

func WithEventPublisher(events EventPublisher) Option {
	return func(s *IdentityService) {
		s.events = events
	}
}

func WithMaxChainHops(maxHops int) Option {
	return func(s *IdentityService) {
		s.maxHops = maxHops
	}
}

// NewIdentityService creates a resolver over the given contact store
func NewIdentityService(repo repository.ContactRepositoryInterface, opts ...Option) (*IdentityService, error) {
	if repo == nil {
		return nil, errors.New("contact repository is required")
	}

	s := &IdentityService{
		repo:    repo,
		locker:  NoopKeyLocker{},
		logger:  zap.NewNop(),
		maxHops: DefaultMaxChainHops,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loader = NewChainLoader(repo, s.maxHops)
	s.merger = NewChainMerger(repo)
	return s, nil
}

// Resolve records the observation (email, phone) and returns the
// consolidated identity it belongs to. At least one argument should be
// non-nil; callers validate that before resolving.
//
// Writes are not rolled back if a later step fails.
func (s *IdentityService) Resolve(ctx context.Context, email, phone *string) (*ConsolidatedIdentity, error) {
	start := time.Now()

	unlock, err := s.locker.Lock(ctx, ResolutionKeys(email, phone))
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("failed to acquire resolution lock: %w", err)
	}
	defer unlock()

	chain, outcome, err := s.resolve(ctx, email, phone)
	metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		if errors.Is(err, ErrDataConsistency) {
			metrics.ConsistencyErrorsTotal.Inc()
		}
		return nil, err
	}

	metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
	metrics.ChainLength.Observe(float64(len(chain)))
	return FormatChain(chain), nil
}

func (s *IdentityService) resolve(ctx context.Context, email, phone *string) ([]models.Contact, string, error) {
	matches, err := s.repo.FindMatching(ctx, email, phone)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find matching contacts: %w", err)
	}

	if len(matches) == 0 {
		created, err := s.repo.Create(ctx, email, phone, nil)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create primary contact: %w", err)
		}
		s.logger.Info("created primary contact", zap.Uint("contact_id", created.ID))
		s.publish(models.IdentityEvent{
			Type:             models.EventContactCreated,
			ContactID:        created.ID,
			PrimaryContactID: created.ID,
		})
		return []models.Contact{*created}, metrics.OutcomeCreated, nil
	}

	chain, err := s.loader.LoadChain(ctx, matches[0])
	if err != nil {
		return nil, "", fmt.Errorf("failed to load chain for contact %d: %w", matches[0].ID, err)
	}

	classification := ClassifyMatches(matches, chain)
	if classification.IsSingleChain() {
		if !hasNewAttribute(email, phone, chain) {
			return chain, metrics.OutcomeUnchanged, nil
		}

		tailID := chain[len(chain)-1].ID
		appended, err := s.repo.Create(ctx, email, phone, &tailID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to append contact to chain rooted at %d: %w", chain[0].ID, err)
		}
		chain = append(chain, *appended)

		s.logger.Info("appended secondary contact",
			zap.Uint("contact_id", appended.ID),
			zap.Uint("parent_contact_id", tailID),
			zap.Uint("primary_contact_id", chain[0].ID),
		)
		s.publish(models.IdentityEvent{
			Type:             models.EventContactLinked,
			ContactID:        appended.ID,
			PrimaryContactID: chain[0].ID,
			ParentContactID:  &tailID,
		})
		return chain, metrics.OutcomeAppended, nil
	}

	foreign := classification.Foreign
	secondChain, err := s.loader.LoadChain(ctx, *foreign)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load chain for contact %d: %w", foreign.ID, err)
	}
	if secondChain[0].ID == chain[0].ID {
		// Only possible when the chain branches, which the append rule never produces.
		return nil, "", consistencyError(foreign.ID, "match is outside the loaded chain but shares its root %d", chain[0].ID)
	}

	merged, err := s.merger.Merge(ctx, chain, secondChain)
	if err != nil {
		return nil, "", err
	}

	tailID := chain[len(chain)-1].ID
	s.logger.Info("merged identity chains",
		zap.Uint("primary_contact_id", chain[0].ID),
		zap.Uint("merged_root_contact_id", secondChain[0].ID),
		zap.Uint("parent_contact_id", tailID),
		zap.Int("chain_length", len(merged)),
	)
	s.publish(models.IdentityEvent{
		Type:             models.EventChainsMerged,
		ContactID:        secondChain[0].ID,
		PrimaryContactID: merged[0].ID,
		ParentContactID:  &tailID,
	})
	return merged, metrics.OutcomeMerged, nil
}

// Lookup returns the consolidated identity containing contactID without
// writing anything.
func (s *IdentityService) Lookup(ctx context.Context, contactID uint) (*ConsolidatedIdentity, error) {
	contact, err := s.repo.FindByID(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact %d: %w", contactID, err)
	}

	chain, err := s.loader.LoadChain(ctx, *contact)
	if err != nil {
		if errors.Is(err, ErrDataConsistency) {
			metrics.ConsistencyErrorsTotal.Inc()
		}
		return nil, fmt.Errorf("failed to load chain for contact %d: %w", contactID, err)
	}
	return FormatChain(chain), nil
}

func (s *IdentityService) publish(event models.IdentityEvent) {
	if s.events == nil {
		return
	}
	event.Timestamp = time.Now().Unix()
	s.events.Publish(event)
}

// hasNewAttribute reports whether the request carries an email or phone
// number that no chain member has.
func hasNewAttribute(email, phone *string, chain []models.Contact) bool {
	emailNew := email != nil
	phoneNew := phone != nil
	for _, c := range chain {
		if emailNew && c.Email != nil && *c.Email == *email {
			emailNew = false
		}
		if phoneNew && c.PhoneNumber != nil && *c.PhoneNumber == *phone {
			phoneNew = false
		}
		if !emailNew && !phoneNew {
			break
		}
	}
	return emailNew || phoneNew
}
