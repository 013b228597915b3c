package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/camden-git/identitybackend/models"
	"github.com/camden-git/identitybackend/repository/mocks"
)

type ChainMergerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	mockRepo *mocks.MockContactRepositoryInterface
	merger   *ChainMerger
	ctx      context.Context
}

func TestChainMergerSuite(t *testing.T) {
	suite.Run(t, new(ChainMergerSuite))
}

func (s *ChainMergerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockRepo = mocks.NewMockContactRepositoryInterface(s.ctrl)
	s.merger = NewChainMerger(s.mockRepo)
	s.ctx = context.Background()
}

func (s *ChainMergerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ChainMergerSuite) TestRelinksJuniorRootUnderSeniorTail() {
	senior := []models.Contact{
		newContact(1, "a@x.com", "123", 0),
		newContact(2, "", "123", 1),
	}
	junior := []models.Contact{
		newContact(3, "", "999", 0),
		newContact(4, "", "999", 3),
	}
	relinked := newContact(3, "", "999", 2)

	s.mockRepo.EXPECT().Relink(gomock.Any(), uint(3), uint(2)).Return(&relinked, nil)

	merged, err := s.merger.Merge(s.ctx, senior, junior)
	s.Require().NoError(err)
	s.Equal([]uint{1, 2, 3, 4}, contactIDs(merged))
	s.False(merged[2].IsPrimary())
	s.Equal(uint(2), *merged[2].LinkedID)
	s.True(junior[0].IsPrimary(), "input chain is left untouched")
}

func (s *ChainMergerSuite) TestSeniorityIsPositional() {
	senior := []models.Contact{newContact(8, "", "800", 0)}
	junior := []models.Contact{newContact(5, "", "500", 0)}
	relinked := newContact(5, "", "500", 8)

	s.mockRepo.EXPECT().Relink(gomock.Any(), uint(5), uint(8)).Return(&relinked, nil)

	merged, err := s.merger.Merge(s.ctx, senior, junior)
	s.Require().NoError(err)
	s.Equal([]uint{8, 5}, contactIDs(merged))
}

func (s *ChainMergerSuite) TestErrors() {
	s.Run("empty chain", func() {
		_, err := s.merger.Merge(s.ctx, nil, []models.Contact{newContact(1, "", "1", 0)})
		s.Require().Error(err)
	})

	s.Run("relink failure", func() {
		storeErr := errors.New("connection reset")
		s.mockRepo.EXPECT().Relink(gomock.Any(), uint(3), uint(1)).Return(nil, storeErr)

		_, err := s.merger.Merge(s.ctx,
			[]models.Contact{newContact(1, "", "1", 0)},
			[]models.Contact{newContact(3, "", "3", 0)},
		)
		s.Require().ErrorIs(err, storeErr)
	})
}
