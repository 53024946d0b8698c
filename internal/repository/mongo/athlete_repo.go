package mongo

import (
	"context"
	"errors"
	"time"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const athleteCollectionName = "athletes"

// mongoAthleteRepository implements repository.AthleteRepository.
type mongoAthleteRepository struct {
	collection *mongo.Collection
	plans      *mongo.Collection
}

// NewMongoAthleteRepository creates a new instance of mongoAthleteRepository.
func NewMongoAthleteRepository(db *mongo.Database) repository.AthleteRepository {
	return &mongoAthleteRepository{
		collection: db.Collection(athleteCollectionName),
		plans:      db.Collection(annualPlanCollectionName),
	}
}

// GetByID retrieves an athlete by ObjectID.
func (r *mongoAthleteRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Athlete, error) {
	var athlete domain.Athlete
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&athlete)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &athlete, nil
}

// ListActive returns active athletes ordered by id.
func (r *mongoAthleteRepository) ListActive(ctx context.Context, f domain.AthleteFilter) ([]domain.Athlete, error) {
	filter := bson.M{"active": true}
	if f.TenantID != primitive.NilObjectID {
		filter["tenantId"] = f.TenantID
	}
	if len(f.PlayerIDs) > 0 {
		filter["_id"] = bson.M{"$in": f.PlayerIDs}
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	athletes := []domain.Athlete{}
	if err = cursor.All(ctx, &athletes); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return athletes, nil
}

// GetCurrentPlan follows the athlete's current-plan pointer.
func (r *mongoAthleteRepository) GetCurrentPlan(ctx context.Context, playerID primitive.ObjectID) (*domain.AnnualTrainingPlan, error) {
	athlete, err := r.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if !athlete.HasCurrentPlan() {
		return nil, nil
	}

	var plan domain.AnnualTrainingPlan
	err = r.plans.FindOne(ctx, bson.M{"_id": *athlete.CurrentPlanID}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Dangling pointer, e.g. after administrative deletion.
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// SetCurrentPlan moves the current-plan pointer.
func (r *mongoAthleteRepository) SetCurrentPlan(ctx context.Context, playerID, planID primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"currentPlanId": planID,
			"updatedAt":     time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": playerID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureAthleteIndexes creates necessary indexes for the athletes collection.
func EnsureAthleteIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "currentPlanId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
