package mongo

import (
	"context"
	"errors"
	"fmt"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const refreshRunCollectionName = "refresh_runs"

// mongoRefreshRunRepository implements repository.RefreshRunRepository.
// The report body itself lives in object storage.
type mongoRefreshRunRepository struct {
	collection *mongo.Collection
}

// NewMongoRefreshRunRepository creates a new refresh-run repository.
func NewMongoRefreshRunRepository(db *mongo.Database) repository.RefreshRunRepository {
	return &mongoRefreshRunRepository{
		collection: db.Collection(refreshRunCollectionName),
	}
}

// Create stores a run record. The id is set by the caller.
func (r *mongoRefreshRunRepository) Create(ctx context.Context, run *domain.RefreshRun) error {
	if run.ID == "" {
		return fmt.Errorf("%w: refresh run requires an id", domain.ErrInvalidRecord)
	}
	_, err := r.collection.InsertOne(ctx, run)
	return writeError(err)
}

// GetByID retrieves a run record.
func (r *mongoRefreshRunRepository) GetByID(ctx context.Context, id string) (*domain.RefreshRun, error) {
	var run domain.RefreshRun
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// EnsureRefreshRunIndexes creates necessary indexes for the refresh_runs collection.
func EnsureRefreshRunIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "startedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
