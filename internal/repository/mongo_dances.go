package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"choreo-backend/internal/model"
)

const dancesCollection = "dances"

type danceDocument struct {
	ID              bson.ObjectID     `bson:"_id"`
	UserID          string            `bson:"userId"`
	Name            string            `bson:"name"`
	NumberOfDancers int               `bson:"numberOfDancers"`
	Formations      []model.Formation `bson:"formations"`
	Revision        int64             `bson:"revision"`
	CreatedAt       time.Time         `bson:"createdAt"`
	UpdatedAt       time.Time         `bson:"updatedAt"`
}

func newDanceDocument(d *model.Dance, id bson.ObjectID) danceDocument {
	formations := d.Formations
	if formations == nil {
		formations = []model.Formation{}
	}
	return danceDocument{
		ID:              id,
		UserID:          d.UserID,
		Name:            d.Name,
		NumberOfDancers: d.NumberOfDancers,
		Formations:      formations,
		Revision:        d.Revision,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func (doc danceDocument) toModel() *model.Dance {
	formations := doc.Formations
	if formations == nil {
		formations = []model.Formation{}
	}
	return &model.Dance{
		ID:              doc.ID.Hex(),
		UserID:          doc.UserID,
		Name:            doc.Name,
		NumberOfDancers: doc.NumberOfDancers,
		Formations:      formations,
		Revision:        doc.Revision,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

// MongoDanceRepository DanceRepository on MongoDB
type MongoDanceRepository struct {
	coll *mongo.Collection
}

// NewMongoDanceRepository creates a MongoDanceRepository and ensures the owner index.
func NewMongoDanceRepository(ctx context.Context, db *mongo.Database) (*MongoDanceRepository, error) {
	coll := db.Collection(dancesCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	return &MongoDanceRepository{coll: coll}, nil
}

// ownedFilter matches one dance of one owner. A malformed id matches nothing.
func ownedFilter(owner, id string) (bson.D, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: owner}}, true
}

// revisionFilter matches documents still at rev. Documents written before
// revisions were tracked have no field and count as revision 0.
func revisionFilter(rev int64) bson.E {
	if rev == 0 {
		return bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "revision", Value: int64(0)}},
			bson.D{{Key: "revision", Value: bson.D{{Key: "$exists", Value: false}}}},
		}}
	}
	return bson.E{Key: "revision", Value: rev}
}

func (r *MongoDanceRepository) Insert(ctx context.Context, d *model.Dance) error {
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	d.Revision = 0

	oid := bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, newDanceDocument(d, oid)); err != nil {
		return err
	}
	d.ID = oid.Hex()
	return nil
}

func (r *MongoDanceRepository) ListByOwner(ctx context.Context, owner string) ([]model.Dance, error) {
	cur, err := r.coll.Find(ctx,
		bson.D{{Key: "userId", Value: owner}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}

	var docs []danceDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	dances := make([]model.Dance, 0, len(docs))
	for _, doc := range docs {
		dances = append(dances, *doc.toModel())
	}
	return dances, nil
}

func (r *MongoDanceRepository) FindOwned(ctx context.Context, owner, id string) (*model.Dance, error) {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return nil, ErrNotFound
	}

	var doc danceDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *MongoDanceRepository) Update(ctx context.Context, owner, id string, fn Mutator) (*model.Dance, error) {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return nil, ErrNotFound
	}

	return retryUpdate(ctx, func() (*model.Dance, error) {
		var doc danceDocument
		err := r.coll.FindOne(ctx, filter).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		current := doc.toModel()
		next := current.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		next.UserID = current.UserID
		next.CreatedAt = current.CreatedAt
		next.Revision = current.Revision + 1
		next.UpdatedAt = time.Now()

		cas := append(bson.D{}, filter...)
		cas = append(cas, revisionFilter(current.Revision))
		result, err := r.coll.ReplaceOne(ctx, cas, newDanceDocument(next, doc.ID))
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, errStale
		}
		next.ID = doc.ID.Hex()
		return next, nil
	})
}

func (r *MongoDanceRepository) Delete(ctx context.Context, owner, id string) error {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return ErrNotFound
	}
	result, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoDanceRepository) All(ctx context.Context, fn func(d *model.Dance) error) error {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetBatchSize(batchSize))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc danceDocument
		if err := cur.Decode(&doc); err != nil {
			return err
		}
		if err := fn(doc.toModel()); err != nil {
			return err
		}
	}
	return cur.Err()
}
