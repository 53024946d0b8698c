package mongo

import (
	"context"
	"errors"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const templateCollectionName = "session_templates"

// mongoTemplateRepository implements repository.TemplateRepository
type mongoTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateRepository creates a new SessionTemplate repository backed by MongoDB.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
	}
}

// FindMatch picks the matching template with the lowest ObjectID, which is
// also the earliest created one.
func (r *mongoTemplateRepository) FindMatch(ctx context.Context, tenantID primitive.ObjectID, sessionType domain.SessionType, tier string) (*domain.SessionTemplate, error) {
	filter := bson.M{
		"tenantId":    tenantID,
		"sessionType": sessionType,
		"tier":        tier,
	}
	findOneOptions := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})

	var tpl domain.SessionTemplate
	err := r.collection.FindOne(ctx, filter, findOneOptions).Decode(&tpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &tpl, nil
}

// EnsureTemplateIndexes creates the resolution index.
func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "tenantId", Value: 1},
				{Key: "sessionType", Value: 1},
				{Key: "tier", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
