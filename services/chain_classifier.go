package services

import "github.com/camden-git/identitybackend/models"

// Classification is the outcome of comparing a match set against one chain.
// Foreign is nil when every match already belongs to the chain.
type Classification struct {
	Foreign *models.Contact
}

// IsSingleChain reports whether all matches were accounted for by the chain.
func (c Classification) IsSingleChain() bool {
	return c.Foreign == nil
}

// ClassifyMatches finds the first match, in id-ascending order, that is not a
// member of chain. Because matches are ordered by id the foreign contact is
// the lowest-id match outside the chain.
func ClassifyMatches(matches, chain []models.Contact) Classification {
	members := make(map[uint]struct{}, len(chain))
	for _, c := range chain {
		members[c.ID] = struct{}{}
	}

	for i := range matches {
		if _, ok := members[matches[i].ID]; !ok {
			foreign := matches[i]
			return Classification{Foreign: &foreign}
		}
	}
	return Classification{}
}
