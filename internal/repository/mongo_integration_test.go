package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"choreo-backend/internal/model"
)

// MongoRepositorySuite runs against a real server. Set MONGO_TEST_URI, e.g.
// mongodb://localhost:27017, to enable it; each test gets its own database.
type MongoRepositorySuite struct {
	suite.Suite
	ctx    context.Context
	client *mongo.Client
	db     *mongo.Database
	users  *MongoCredentialRepository
	dances *MongoDanceRepository
}

func TestMongoRepositorySuite(t *testing.T) {
	if os.Getenv("MONGO_TEST_URI") == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	suite.Run(t, new(MongoRepositorySuite))
}

func (s *MongoRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	client, err := mongo.Connect(options.Client().ApplyURI(os.Getenv("MONGO_TEST_URI")))
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	s.Require().NoError(client.Ping(ctx, nil))
	s.client = client
}

func (s *MongoRepositorySuite) TearDownSuite() {
	s.Require().NoError(s.client.Disconnect(s.ctx))
}

func (s *MongoRepositorySuite) SetupTest() {
	s.db = s.client.Database(fmt.Sprintf("choreo_test_%s", bson.NewObjectID().Hex()))

	dances, err := NewMongoDanceRepository(s.ctx, s.db)
	s.Require().NoError(err)
	s.dances = dances
	s.users = NewMongoCredentialRepository(s.db)
}

func (s *MongoRepositorySuite) TearDownTest() {
	s.Require().NoError(s.db.Drop(s.ctx))
}

func (s *MongoRepositorySuite) newDance(owner, name string) *model.Dance {
	d := &model.Dance{
		UserID:          owner,
		Name:            name,
		NumberOfDancers: 2,
		Formations:      []model.Formation{{ID: "f1", Positions: model.SeedPositions(2)}},
	}
	s.Require().NoError(s.dances.Insert(s.ctx, d))
	return d
}

func (s *MongoRepositorySuite) TestCredentials() {
	s.Require().NoError(s.users.Create(s.ctx, &model.User{Username: "alice", PasswordHash: "h"}))

	err := s.users.Create(s.ctx, &model.User{Username: "alice", PasswordHash: "other"})
	s.ErrorIs(err, ErrUsernameTaken)

	user, err := s.users.FindByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("alice", user.Username)
	s.Equal("h", user.PasswordHash)

	var raw bson.M
	s.Require().NoError(s.db.Collection(usersCollection).FindOne(s.ctx, bson.D{{Key: "username", Value: "alice"}}).Decode(&raw))
	s.Equal("alice", raw["_id"])

	_, err = s.users.FindByUsername(s.ctx, "bob")
	s.ErrorIs(err, ErrNotFound)

	count, err := s.users.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *MongoRepositorySuite) TestExistingUserRecord() {
	_, err := s.db.Collection(usersCollection).InsertOne(s.ctx, bson.D{
		{Key: "_id", Value: "dana"},
		{Key: "username", Value: "dana"},
		{Key: "password", Value: "hash"},
	})
	s.Require().NoError(err)

	user, err := s.users.FindByUsername(s.ctx, "dana")
	s.Require().NoError(err)
	s.Equal("hash", user.PasswordHash)
}

func (s *MongoRepositorySuite) TestInsertAndFind() {
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

	_, err = s.dances.FindOwned(s.ctx, "alice", bson.NewObjectID().Hex())
	s.ErrorIs(err, ErrNotFound)
}

func (s *MongoRepositorySuite) TestListByOwner() {
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

func (s *MongoRepositorySuite) TestUpdate() {
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
}

func (s *MongoRepositorySuite) TestUpdateDocumentWithoutRevision() {
	oid := bson.NewObjectID()
	_, err := s.db.Collection(dancesCollection).InsertOne(s.ctx, bson.D{
		{Key: "_id", Value: oid},
		{Key: "userId", Value: "alice"},
		{Key: "name", Value: "Legacy"},
		{Key: "numberOfDancers", Value: 1},
		{Key: "formations", Value: bson.A{
			bson.D{{Key: "id", Value: "f1"}, {Key: "positions", Value: bson.A{
				bson.D{{Key: "dancerIndex", Value: 0}, {Key: "x", Value: 50.0}, {Key: "y", Value: 50.0}},
			}}},
		}},
	})
	s.Require().NoError(err)

	updated, err := s.dances.Update(s.ctx, "alice", oid.Hex(), func(d *model.Dance) error {
		d.Name = "Legacy, renamed"
		return nil
	})
	s.Require().NoError(err)
	s.Equal(int64(1), updated.Revision)

	got, err := s.dances.FindOwned(s.ctx, "alice", oid.Hex())
	s.Require().NoError(err)
	s.Equal("Legacy, renamed", got.Name)
	s.Len(got.Formations, 1)
}

func (s *MongoRepositorySuite) TestUpdateRetriesOnConcurrentWrite() {
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

func (s *MongoRepositorySuite) TestUpdateGivesUpUnderContention() {
	d := s.newDance("alice", "Opening")
	filter, _ := ownedFilter("alice", d.ID)

	_, err := s.dances.Update(s.ctx, "alice", d.ID, func(*model.Dance) error {
		_, err := s.db.Collection(dancesCollection).UpdateOne(s.ctx, filter,
			bson.D{{Key: "$inc", Value: bson.D{{Key: "revision", Value: 1}}}})
		return err
	})
	s.ErrorIs(err, ErrConflict)
}

func (s *MongoRepositorySuite) TestDelete() {
	d := s.newDance("alice", "Opening")

	s.ErrorIs(s.dances.Delete(s.ctx, "bob", d.ID), ErrNotFound)
	s.Require().NoError(s.dances.Delete(s.ctx, "alice", d.ID))
	s.ErrorIs(s.dances.Delete(s.ctx, "alice", d.ID), ErrNotFound)
	s.ErrorIs(s.dances.Delete(s.ctx, "alice", "not-an-id"), ErrNotFound)
}

func (s *MongoRepositorySuite) TestAll() {
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
