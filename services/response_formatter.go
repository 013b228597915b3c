package services

import "github.com/camden-git/identitybackend/models"

// ConsolidatedIdentity is the externally visible view of one identity chain.
type ConsolidatedIdentity struct {
	PrimaryContactID    uint     `json:"primaryContactId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []uint   `json:"secondaryContactIds"`
}

// orderedSet keeps the first occurrence of each value in insertion order.
type orderedSet[T comparable] struct {
	seen   map[T]struct{}
	values []T
}

func newOrderedSet[T comparable]() *orderedSet[T] {
	return &orderedSet[T]{seen: make(map[T]struct{}), values: []T{}}
}

func (s *orderedSet[T]) Add(v T) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}

func (s *orderedSet[T]) Values() []T {
	return s.values
}

// FormatChain projects a root-first chain into its consolidated view. Emails
// and phone numbers keep the order in which they first appear walking from
// the root; contacts without a value are skipped.
func FormatChain(chain []models.Contact) *ConsolidatedIdentity {
	if len(chain) == 0 {
		return nil
	}

	emails := newOrderedSet[string]()
	phones := newOrderedSet[string]()
	secondaries := newOrderedSet[uint]()
	for _, c := range chain {
		if email := c.EmailValue(); email != "" {
			emails.Add(email)
		}
		if phone := c.PhoneValue(); phone != "" {
			phones.Add(phone)
		}
		if !c.IsPrimary() {
			secondaries.Add(c.ID)
		}
	}

	return &ConsolidatedIdentity{
		PrimaryContactID:    chain[0].ID,
		Emails:              emails.Values(),
		PhoneNumbers:        phones.Values(),
		SecondaryContactIDs: secondaries.Values(),
	}
}
