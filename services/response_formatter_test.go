package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/identitybackend/models"
)

func TestFormatChain(t *testing.T) {
	t.Run("singleton", func(t *testing.T) {
		got := FormatChain([]models.Contact{newContact(1, "a@x.com", "123", 0)})
		assert.Equal(t, &ConsolidatedIdentity{
			PrimaryContactID:    1,
			Emails:              []string{"a@x.com"},
			PhoneNumbers:        []string{"123"},
			SecondaryContactIDs: []uint{},
		}, got)
	})

	t.Run("first appearance order and de-duplication", func(t *testing.T) {
		got := FormatChain([]models.Contact{
			newContact(4, "b@x.com", "999", 0),
			newContact(2, "a@x.com", "999", 4),
			newContact(9, "b@x.com", "123", 2),
			newContact(11, "", "999", 9),
			newContact(12, "c@x.com", "", 11),
		})
		assert.Equal(t, uint(4), got.PrimaryContactID)
		assert.Equal(t, []string{"b@x.com", "a@x.com", "c@x.com"}, got.Emails)
		assert.Equal(t, []string{"999", "123"}, got.PhoneNumbers)
		assert.Equal(t, []uint{2, 9, 11, 12}, got.SecondaryContactIDs)
	})

	t.Run("empty lists serialize as arrays", func(t *testing.T) {
		got := FormatChain([]models.Contact{newContact(1, "", "123", 0)})
		body, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, `{"primaryContactId":1,"emails":[],"phoneNumbers":["123"],"secondaryContactIds":[]}`, string(body))
	})

	t.Run("blank stored values are skipped", func(t *testing.T) {
		root := newContact(1, "a@x.com", "", 0)
		root.PhoneNumber = strPtr("")
		child := newContact(2, "", "123", 1)
		child.Email = strPtr("")

		got := FormatChain([]models.Contact{root, child})
		assert.Equal(t, []string{"a@x.com"}, got.Emails)
		assert.Equal(t, []string{"123"}, got.PhoneNumbers)
	})

	t.Run("empty chain", func(t *testing.T) {
		assert.Nil(t, FormatChain(nil))
	})
}

func TestOrderedSet(t *testing.T) {
	s := newOrderedSet[string]()
	for _, v := range []string{"b", "a", "b", "c", "a"} {
		s.Add(v)
	}
	assert.Equal(t, []string{"b", "a", "c"}, s.Values())
}
