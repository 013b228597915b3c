// Package repotest holds the behaviour every ContactRepositoryInterface
// implementation must share, run as a testify suite against each store.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/camden-git/identitybackend/models"
	"github.com/camden-git/identitybackend/repository"
)

// ContactStoreSuite runs against the store returned by NewStore, which is
// called once per test and must return an empty store.
type ContactStoreSuite struct {
	suite.Suite
	NewStore func(t *testing.T) repository.ContactRepositoryInterface

	store repository.ContactRepositoryInterface
	ctx   context.Context
}

func (s *ContactStoreSuite) SetupTest() {
	s.store = s.NewStore(s.T())
	s.ctx = context.Background()
}

func ptr(v string) *string { return &v }

func ids(contacts []models.Contact) []uint {
	out := make([]uint, len(contacts))
	for i, c := range contacts {
		out[i] = c.ID
	}
	return out
}

func (s *ContactStoreSuite) create(email, phone *string, parentID *uint) *models.Contact {
	c, err := s.store.Create(s.ctx, email, phone, parentID)
	s.Require().NoError(err)
	return c
}

func (s *ContactStoreSuite) TestCreatePrimaryAndSecondary() {
	primary := s.create(ptr("a@x.com"), ptr("123"), nil)
	s.NotZero(primary.ID)
	s.Equal(models.LinkPrecedencePrimary, primary.LinkPrecedence)
	s.Nil(primary.LinkedID)
	s.Equal("a@x.com", primary.EmailValue())
	s.Equal("123", primary.PhoneValue())
	s.NotZero(primary.CreatedAt)

	secondary := s.create(nil, ptr("456"), &primary.ID)
	s.Greater(secondary.ID, primary.ID)
	s.Equal(models.LinkPrecedenceSecondary, secondary.LinkPrecedence)
	s.Require().NotNil(secondary.LinkedID)
	s.Equal(primary.ID, *secondary.LinkedID)
	s.Nil(secondary.Email)
}

func (s *ContactStoreSuite) TestFindMatching() {
	a := s.create(ptr("a@x.com"), ptr("111"), nil)
	b := s.create(ptr("b@x.com"), ptr("222"), nil)
	c := s.create(nil, ptr("111"), &a.ID)
	s.create(ptr("c@x.com"), nil, nil)

	got, err := s.store.FindMatching(s.ctx, ptr("b@x.com"), ptr("111"))
	s.Require().NoError(err)
	s.Equal([]uint{a.ID, b.ID, c.ID}, ids(got))

	got, err = s.store.FindMatching(s.ctx, ptr("a@x.com"), nil)
	s.Require().NoError(err)
	s.Equal([]uint{a.ID}, ids(got))

	got, err = s.store.FindMatching(s.ctx, nil, ptr("222"))
	s.Require().NoError(err)
	s.Equal([]uint{b.ID}, ids(got))
}

func (s *ContactStoreSuite) TestFindMatchingIgnoresAbsentAttributes() {
	s.create(nil, ptr("111"), nil)
	s.create(ptr("a@x.com"), nil, nil)

	got, err := s.store.FindMatching(s.ctx, nil, nil)
	s.Require().NoError(err)
	s.Empty(got)

	// a missing email on the request must not match rows with a null email
	got, err = s.store.FindMatching(s.ctx, nil, ptr("999"))
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *ContactStoreSuite) TestFindByID() {
	created := s.create(ptr("a@x.com"), nil, nil)

	got, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal("a@x.com", got.EmailValue())

	_, err = s.store.FindByID(s.ctx, created.ID+100)
	s.ErrorIs(err, repository.ErrContactNotFound)
}

func (s *ContactStoreSuite) TestFindChildOfReturnsLowestID() {
	root := s.create(ptr("a@x.com"), nil, nil)
	first := s.create(nil, ptr("1"), &root.ID)
	s.create(nil, ptr("2"), &root.ID)

	got, err := s.store.FindChildOf(s.ctx, root.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, got.ID)

	_, err = s.store.FindChildOf(s.ctx, first.ID)
	s.ErrorIs(err, repository.ErrContactNotFound)
}

func (s *ContactStoreSuite) TestRelink() {
	senior := s.create(ptr("a@x.com"), nil, nil)
	junior := s.create(ptr("b@x.com"), nil, nil)

	relinked, err := s.store.Relink(s.ctx, junior.ID, senior.ID)
	s.Require().NoError(err)
	s.Equal(junior.ID, relinked.ID)
	s.Equal(models.LinkPrecedenceSecondary, relinked.LinkPrecedence)
	s.Require().NotNil(relinked.LinkedID)
	s.Equal(senior.ID, *relinked.LinkedID)
	s.Equal("b@x.com", relinked.EmailValue())

	child, err := s.store.FindChildOf(s.ctx, senior.ID)
	s.Require().NoError(err)
	s.Equal(junior.ID, child.ID)

	_, err = s.store.Relink(s.ctx, junior.ID+100, senior.ID)
	s.ErrorIs(err, repository.ErrContactNotFound)
}

func (s *ContactStoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}
