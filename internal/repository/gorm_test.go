package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"choreo-backend/internal/model"
)

type GormRepositorySuite struct {
	suite.Suite
	ctx    context.Context
	db     *gorm.DB
	users  *GormCredentialRepository
	dances *GormDanceRepository
}

func (s *GormRepositorySuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(db.AutoMigrate(&model.User{}, &model.Dance{}))

	s.ctx = context.Background()
	s.db = db
	s.users = NewGormCredentialRepository(db)
	s.dances = NewGormDanceRepository(db)
}

func (s *GormRepositorySuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	s.Require().NoError(sqlDB.Close())
}

func TestGormRepositorySuite(t *testing.T) {
	suite.Run(t, new(GormRepositorySuite))
}

func (s *GormRepositorySuite) newDance(owner, name string) *model.Dance {
	d := &model.Dance{
		UserID:          owner,
		Name:            name,
		NumberOfDancers: 2,
		Formations:      []model.Formation{{ID: "f1", Positions: model.SeedPositions(2)}},
	}
	s.Require().NoError(s.dances.Insert(s.ctx, d))
	return d
}

func (s *GormRepositorySuite) TestCredentials() {
	s.Require().NoError(s.users.Create(s.ctx, &model.User{Username: "alice", PasswordHash: "h"}))

	err := s.users.Create(s.ctx, &model.User{Username: "alice", PasswordHash: "other"})
	s.ErrorIs(err, ErrUsernameTaken)

	user, err := s.users.FindByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("h", user.PasswordHash)

	_, err = s.users.FindByUsername(s.ctx, "bob")
	s.ErrorIs(err, ErrNotFound)

	count, err := s.users.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *GormRepositorySuite) TestInsertAndFind() {
	d := s.newDance("alice", "Opening")
	s.NotEmpty(d.ID)

	got, err := s.dances.FindOwned(s.ctx, "alice", d.ID)
	s.Require().NoError(err)
	s.Equal("Opening", got.Name)
	s.Equal(d.Formations, got.Formations)

	_, err = s.dances.FindOwned(s.ctx, "bob", d.ID)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.dances.FindOwned(s.ctx, "alice", "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *GormRepositorySuite) TestListByOwner() {
	s.newDance("alice", "A")
	s.newDance("alice", "B")
	s.newDance("bob", "C")

	alice, err := s.dances.ListByOwner(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(alice, 2)
	for _, d := range alice {
		s.Equal("alice", d.UserID)
	}

	carol, err := s.dances.ListByOwner(s.ctx, "carol")
	s.Require().NoError(err)
	s.NotNil(carol)
	s.Empty(carol)
}

func (s *GormRepositorySuite) TestUpdate() {
	d := s.newDance("alice", "Opening")

	updated, err := s.dances.Update(s.ctx, "alice", d.ID, func(d *model.Dance) error {
		d.Name = "Finale"
		return nil
	})
	s.Require().NoError(err)
	s.Equal("Finale", updated.Name)
	s.Equal(int64(1), updated.Revision)

	got, err := s.dances.FindOwned(s.ctx, "alice", d.ID)
	s.Require().NoError(err)
	s.Equal("Finale", got.Name)

	_, err = s.dances.Update(s.ctx, "bob", d.ID, func(*model.Dance) error { return nil })
	s.ErrorIs(err, ErrNotFound)

	boom := errors.New("boom")
	_, err = s.dances.Update(s.ctx, "alice", d.ID, func(*model.Dance) error { return boom })
	s.ErrorIs(err, boom)
}

func (s *GormRepositorySuite) TestUpdateRetriesOnConcurrentWrite() {
	d := s.newDance("alice", "Opening")

	attempts := 0
	_, err := s.dances.Update(s.ctx, "alice", d.ID, func(next *model.Dance) error {
		attempts++
		if attempts == 1 {
			_, err := s.dances.Update(s.ctx, "alice", d.ID, func(other *model.Dance) error {
				other.Formations = append(other.Formations, model.Formation{ID: "f2", Positions: model.SeedPositions(2)})
				return nil
			})
			s.Require().NoError(err)
		}
		next.Name = "Renamed"
		return nil
	})
	s.Require().NoError(err)
	s.Equal(2, attempts)

	got, err := s.dances.FindOwned(s.ctx, "alice", d.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", got.Name)
	s.Len(got.Formations, 2, "both writes survive")
}

func (s *GormRepositorySuite) TestUpdateGivesUpUnderContention() {
	d := s.newDance("alice", "Opening")

	_, err := s.dances.Update(s.ctx, "alice", d.ID, func(next *model.Dance) error {
		return s.db.Model(&model.Dance{}).
			Where("id = ?", d.ID).
			Update("revision", gorm.Expr("revision + 1")).Error
	})
	s.ErrorIs(err, ErrConflict)
}

func (s *GormRepositorySuite) TestDelete() {
	d := s.newDance("alice", "Opening")

	s.ErrorIs(s.dances.Delete(s.ctx, "bob", d.ID), ErrNotFound)
	s.Require().NoError(s.dances.Delete(s.ctx, "alice", d.ID))
	s.ErrorIs(s.dances.Delete(s.ctx, "alice", d.ID), ErrNotFound)
}

func (s *GormRepositorySuite) TestAll() {
	s.newDance("alice", "A")
	s.newDance("bob", "B")

	var names []string
	err := s.dances.All(s.ctx, func(d *model.Dance) error {
		names = append(names, d.Name)
		return nil
	})
	s.Require().NoError(err)
	s.ElementsMatch([]string{"A", "B"}, names)
}

func TestRetryUpdateHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := retryUpdate(ctx, func() (*model.Dance, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}
