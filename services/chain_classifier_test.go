package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/camden-git/identitybackend/models"
)

func TestClassifyMatches(t *testing.T) {
	chain := []models.Contact{
		newContact(1, "a@x.com", "123", 0),
		newContact(2, "", "123", 1),
	}

	tests := []struct {
		name        string
		matches     []models.Contact
		wantSingle  bool
		wantForeign uint
	}{
		{
			name:       "all matches in chain",
			matches:    []models.Contact{chain[0], chain[1]},
			wantSingle: true,
		},
		{
			name:       "subset of chain",
			matches:    []models.Contact{chain[1]},
			wantSingle: true,
		},
		{
			name:        "one foreign match",
			matches:     []models.Contact{chain[0], newContact(3, "", "999", 0)},
			wantForeign: 3,
		},
		{
			name: "lowest foreign id wins",
			matches: []models.Contact{
				chain[0],
				newContact(3, "", "999", 0),
				newContact(5, "", "999", 3),
				newContact(8, "a@x.com", "", 6),
			},
			wantForeign: 3,
		},
		{
			name:        "foreign before chain members",
			matches:     []models.Contact{newContact(0, "z@x.com", "", 0), chain[0]},
			wantForeign: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyMatches(tt.matches, chain)
			assert.Equal(t, tt.wantSingle, got.IsSingleChain())
			if !tt.wantSingle {
				if assert.NotNil(t, got.Foreign) {
					assert.Equal(t, tt.wantForeign, got.Foreign.ID)
				}
			}
		})
	}
}
