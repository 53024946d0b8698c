package mongo

import (
	"context"
	"fmt"
	"time"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI and
// verifies it with a ping against the primary.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// The initial connect can succeed while the server is unresponsive.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection used by the planner.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ensurers := []struct {
		name string
		fn   func(context.Context, *mongo.Collection) error
	}{
		{athleteCollectionName, EnsureAthleteIndexes},
		{annualPlanCollectionName, EnsureAnnualPlanIndexes},
		{periodizationCollectionName, EnsurePeriodizationIndexes},
		{templateCollectionName, EnsureTemplateIndexes},
		{assignmentCollectionName, EnsureAssignmentIndexes},
		{refreshRunCollectionName, EnsureRefreshRunIndexes},
	}
	for _, e := range ensurers {
		if err := e.fn(ctx, db.Collection(e.name)); err != nil {
			return err
		}
	}
	return nil
}

// mongoTransactor implements repository.Transactor with client sessions.
// Transactions require a replica set or sharded cluster.
type mongoTransactor struct {
	client *mongo.Client
}

// NewTransactor creates a Transactor bound to the client.
func NewTransactor(client *mongo.Client) repository.Transactor {
	return &mongoTransactor{client: client}
}

func (t *mongoTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Already inside a session: join it.
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return writeError(err)
}

// writeError marks unique index violations so callers do not retry them.
func writeError(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicateKey, err)
	}
	return err
}
