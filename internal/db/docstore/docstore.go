// Package docstore implements the project, data file, template and job stores on MongoDB.
//
// Documents use the bson tags of the models. Numeric ids come from a counters
// collection so both backends expose the same uint identifiers.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/logger"
)

// Collection names
const (
	ProjectsCollection        = "projects"
	DataFilesCollection       = "data_files"
	PromptTemplatesCollection = "prompt_templates"
	VideoJobsCollection       = "video_jobs"
	CountersCollection        = "counters"
)

const idField = "_id"

// Connect opens a client for uri, checks it answers and returns the named database
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	logger.Infof("Connected to mongodb database %s", dbName)
	return client, client.Database(dbName), nil
}

// EnsureIndexes creates the indexes the stores rely on. It is safe to call repeatedly.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		ProjectsCollection: {
			{Keys: bson.D{{Key: models.CreatedAtField, Value: -1}, {Key: idField, Value: -1}}},
		},
		DataFilesCollection: {
			{Keys: bson.D{{Key: models.ProjectIDField, Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		PromptTemplatesCollection: {
			{Keys: bson.D{{Key: models.ProjectIDField, Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		VideoJobsCollection: {
			{
				Keys:    bson.D{{Key: models.ProjectIDField, Value: 1}, {Key: models.RowIndexField, Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_video_jobs_project_row"),
			},
			{Keys: bson.D{{Key: models.StatusField, Value: 1}, {Key: models.UpdatedAtField, Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

type counter struct {
	Seq uint `bson:"seq"`
}

// nextID atomically allocates the next id of a collection
func nextID(ctx context.Context, db *mongo.Database, collection string) (uint, error) {
	var c counter
	err := db.Collection(CountersCollection).FindOneAndUpdate(ctx,
		bson.M{idField: collection},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", collection, err)
	}
	return c.Seq, nil
}

// notFound maps mongo's no-documents error onto errs.ErrNotFound
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.NotFound(format, args...)
	}
	return err
}

// now matches the millisecond precision mongo stores
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
