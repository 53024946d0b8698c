package mongo

import (
	"context"
	"fmt"
	"time"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const assignmentCollectionName = "daily_training_assignments"

// mongoAssignmentRepository implements repository.AssignmentRepository
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new assignment repository backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

func rangeFilter(playerID primitive.ObjectID, start, endExclusive time.Time) bson.M {
	return bson.M{
		"playerId": playerID,
		"assignedDate": bson.M{
			"$gte": domain.DateOf(start),
			"$lt":  domain.DateOf(endExclusive),
		},
	}
}

// DeleteInRange removes a player's assignments dated inside [start, endExclusive).
func (r *mongoAssignmentRepository) DeleteInRange(ctx context.Context, playerID primitive.ObjectID, start, endExclusive time.Time) (int, error) {
	result, err := r.collection.DeleteMany(ctx, rangeFilter(playerID, start, endExclusive))
	if err != nil {
		return 0, err
	}
	return int(result.DeletedCount), nil
}

// CountInRange counts what DeleteInRange would remove.
func (r *mongoAssignmentRepository) CountInRange(ctx context.Context, playerID primitive.ObjectID, start, endExclusive time.Time) (int, error) {
	n, err := r.collection.CountDocuments(ctx, rangeFilter(playerID, start, endExclusive))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// InsertMany stores new assignments. A duplicate uniqueness key fails the batch.
func (r *mongoAssignmentRepository) InsertMany(ctx context.Context, rows []domain.DailyTrainingAssignment) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(rows))
	for i := range rows {
		if rows[i].PlayerID == primitive.NilObjectID || rows[i].AnnualPlanID == primitive.NilObjectID {
			return 0, fmt.Errorf("%w: assignment requires playerId and annualPlanId", domain.ErrInvalidRecord)
		}
		rows[i].ID = primitive.NewObjectID()
		rows[i].AssignedDate = domain.DateOf(rows[i].AssignedDate)
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		if rows[i].Status == "" {
			rows[i].Status = domain.StatusPending
		}
		docs[i] = rows[i]
	}

	result, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, writeError(err)
	}
	return len(result.InsertedIDs), nil
}

// ListInRange returns a player's assignments ordered by date then session type.
func (r *mongoAssignmentRepository) ListInRange(ctx context.Context, playerID primitive.ObjectID, start, endExclusive time.Time) ([]domain.DailyTrainingAssignment, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "assignedDate", Value: 1}, {Key: "sessionType", Value: 1}})

	cursor, err := r.collection.Find(ctx, rangeFilter(playerID, start, endExclusive), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	assignments := []domain.DailyTrainingAssignment{}
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// EnsureAssignmentIndexes creates necessary indexes for the assignments collection.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Uniqueness key of a daily assignment
			Keys: bson.D{
				{Key: "playerId", Value: 1},
				{Key: "assignedDate", Value: 1},
				{Key: "annualPlanId", Value: 1},
				{Key: "sessionType", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "annualPlanId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
