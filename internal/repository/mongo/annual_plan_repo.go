package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const annualPlanCollectionName = "annual_plans"

// mongoAnnualPlanRepository implements repository.AnnualPlanRepository
type mongoAnnualPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoAnnualPlanRepository creates a new AnnualTrainingPlan repository.
func NewMongoAnnualPlanRepository(db *mongo.Database) repository.AnnualPlanRepository {
	return &mongoAnnualPlanRepository{
		collection: db.Collection(annualPlanCollectionName),
	}
}

// Create inserts a new plan.
func (r *mongoAnnualPlanRepository) Create(ctx context.Context, plan *domain.AnnualTrainingPlan) (primitive.ObjectID, error) {
	if plan.PlayerID == primitive.NilObjectID {
		return primitive.NilObjectID, fmt.Errorf("%w: plan requires playerId", domain.ErrInvalidRecord)
	}
	plan.ID = primitive.NewObjectID()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, writeError(err)
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single plan by its ID.
func (r *mongoAnnualPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AnnualTrainingPlan, error) {
	var plan domain.AnnualTrainingPlan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListByPlayer returns every plan of a player, newest first.
func (r *mongoAnnualPlanRepository) ListByPlayer(ctx context.Context, playerID primitive.ObjectID) ([]domain.AnnualTrainingPlan, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"playerId": playerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.AnnualTrainingPlan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

// EnsureAnnualPlanIndexes creates necessary indexes. Call during startup.
func EnsureAnnualPlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "playerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
