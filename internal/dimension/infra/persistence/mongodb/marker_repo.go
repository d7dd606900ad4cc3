package mongodb

import (
	"context"
	"errors"
	"time"

	"WorldShift/internal/dimension/infra/persistence/model"
	"WorldShift/internal/dimension/marker"
	"WorldShift/modules/kit/errx"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultCollectionName = "dimension_marker"

type MarkerRepository struct {
	coll *mongo.Collection
}

func NewMarkerRepository(db *mongo.Database) *MarkerRepository {
	return &MarkerRepository{
		coll: db.Collection(defaultCollectionName),
	}
}

func (r *MarkerRepository) Load(ctx context.Context, worldUID string) ([]byte, error) {
	if r == nil || r.coll == nil {
		return nil, errx.ErrStorageUnavailable.WithReason("mongodb marker collection is nil")
	}

	var doc model.MarkerDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": worldUID}).Decode(&doc)
	switch {
	case err == nil:
		return doc.Data, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, marker.ErrNotFound
	default:
		return nil, errx.ErrStorageUnavailable.WithCause(err).WithData("world_uid", worldUID)
	}
}

func (r *MarkerRepository) Save(ctx context.Context, worldUID string, data []byte) error {
	if r == nil || r.coll == nil {
		return errx.ErrStorageUnavailable.WithReason("mongodb marker collection is nil")
	}

	doc := model.MarkerDoc{WorldUID: worldUID, Data: data, UpdatedAt: time.Now()}
	_, err := r.coll.ReplaceOne(
		ctx,
		bson.M{"_id": worldUID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errx.ErrStorageUnavailable.WithCause(err).WithData("world_uid", worldUID)
	}
	return nil
}
