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

const periodizationCollectionName = "periodizations"

// mongoPeriodizationRepository implements repository.PeriodizationRepository.
// Rows are only ever inserted.
type mongoPeriodizationRepository struct {
	collection *mongo.Collection
}

// NewMongoPeriodizationRepository creates a new Periodization repository.
func NewMongoPeriodizationRepository(db *mongo.Database) repository.PeriodizationRepository {
	return &mongoPeriodizationRepository{
		collection: db.Collection(periodizationCollectionName),
	}
}

// InsertMany appends rows, assigning ids and createdAt where missing.
func (r *mongoPeriodizationRepository) InsertMany(ctx context.Context, rows []domain.Periodization) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(rows))
	for i := range rows {
		if rows[i].PlayerID == primitive.NilObjectID || rows[i].AnnualPlanID == primitive.NilObjectID {
			return fmt.Errorf("%w: periodization requires playerId and annualPlanId", domain.ErrInvalidRecord)
		}
		rows[i].ID = primitive.NewObjectID()
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		docs[i] = rows[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return writeError(err)
}

// FindForWeek returns the latest row for the week under the given plan.
func (r *mongoPeriodizationRepository) FindForWeek(ctx context.Context, playerID, planID primitive.ObjectID, weekNumber int) (*domain.Periodization, error) {
	filter := bson.M{
		"playerId":     playerID,
		"annualPlanId": planID,
		"weekNumber":   weekNumber,
	}
	// Latest by createdAt; _id breaks ties between rows written in the same batch.
	findOneOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	var row domain.Periodization
	err := r.collection.FindOne(ctx, filter, findOneOptions).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByPlan returns every row of a plan including superseded ones.
func (r *mongoPeriodizationRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.Periodization, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "weekStart", Value: 1}, {Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"annualPlanId": planID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rows := []domain.Periodization{}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// EnsurePeriodizationIndexes creates the (player, plan, week, createdAt) lookup index.
func EnsurePeriodizationIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "playerId", Value: 1},
				{Key: "annualPlanId", Value: 1},
				{Key: "weekNumber", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "annualPlanId", Value: 1}, {Key: "weekStart", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
