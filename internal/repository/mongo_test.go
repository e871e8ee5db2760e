package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"

	"choreo-backend/internal/model"
)

func TestOwnedFilterRejectsMalformedID(t *testing.T) {
	_, ok := ownedFilter("alice", "not-an-object-id")
	assert.False(t, ok)

	oid := bson.NewObjectID()
	filter, ok := ownedFilter("alice", oid.Hex())
	assert.True(t, ok)
	assert.Equal(t, bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: "alice"}}, filter)
}

func TestDanceDocumentNeverYieldsNilFormations(t *testing.T) {
	oid := bson.NewObjectID()
	doc := newDanceDocument(&model.Dance{UserID: "alice", Name: "A", NumberOfDancers: 1}, oid)
	assert.NotNil(t, doc.Formations)

	d := danceDocument{ID: oid, UserID: "alice"}.toModel()
	assert.Equal(t, oid.Hex(), d.ID)
	assert.NotNil(t, d.Formations)
}

func TestRevisionFilterAcceptsMissingField(t *testing.T) {
	assert.Equal(t, bson.E{Key: "revision", Value: int64(3)}, revisionFilter(3))

	zero := revisionFilter(0)
	assert.Equal(t, "$or", zero.Key)
	assert.Equal(t, bson.A{
		bson.D{{Key: "revision", Value: int64(0)}},
		bson.D{{Key: "revision", Value: bson.D{{Key: "$exists", Value: false}}}},
	}, zero.Value)
}
