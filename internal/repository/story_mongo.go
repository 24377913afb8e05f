package repository

import (
	"context"
	"errors"
	"time"

	"socialhub/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoriesCollection is the Mongo collection backing the story store.
const StoriesCollection = "stories"

type mongoStoryRepository struct {
	collection *mongo.Collection
}

// NewMongoStoryRepository creates the Mongo-backed story store.
func NewMongoStoryRepository(db *mongo.Database) StoryRepository {
	return &mongoStoryRepository{collection: db.Collection(StoriesCollection)}
}

// EnsureStoryIndexes creates the author and expiry indexes used by ListActive and DeleteExpired.
func EnsureStoryIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(StoriesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	return mapMongoError(err, "expires_at")
}

func (r *mongoStoryRepository) Create(ctx context.Context, story *models.Story) error {
	_, err := r.collection.InsertOne(ctx, story)
	return mapMongoError(err, story.ID)
}

func (r *mongoStoryRepository) ListActive(ctx context.Context, authorIDs []uint, now time.Time) ([]*models.Story, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"author_id":  bson.M{"$in": authorIDs},
		"expires_at": bson.M{"$gte": now.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapMongoError(err, authorIDs)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var stories []*models.Story
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, mapMongoError(err, authorIDs)
	}
	return stories, nil
}

func (r *mongoStoryRepository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	filter := bson.M{"expires_at": bson.M{"$lt": now.UTC()}}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, mapMongoError(err, "expired")
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapMongoError(err, "expired")
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, mapMongoError(err, "expired")
	}
	return ids, nil
}

func mapMongoError(err error, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.NewNotFoundError("Story", id)
	case mongo.IsDuplicateKeyError(err):
		return models.NewConflictError("Story already exists", err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, context.DeadlineExceeded):
		return models.NewTransientError(err)
	}
	return models.NewInternalError(err)
}
