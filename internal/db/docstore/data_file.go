package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/celestiaorg/vidbatch/internal/db/models"
)

// DataFileStore keeps data file metadata in the data_files collection
type DataFileStore struct {
	db *mongo.Database
}

// NewDataFileStore creates a new DataFileStore
func NewDataFileStore(db *mongo.Database) *DataFileStore {
	return &DataFileStore{db: db}
}

// Create inserts a data file. A project holds at most one.
func (s *DataFileStore) Create(ctx context.Context, file *models.DataFile) error {
	if err := file.Validate(); err != nil {
		return err
	}
	id, err := nextID(ctx, s.db, DataFilesCollection)
	if err != nil {
		return err
	}
	file.ID = id
	file.UploadedAt = now()
	_, err = s.db.Collection(DataFilesCollection).InsertOne(ctx, file)
	return err
}

// GetByProject retrieves the data file of a project
func (s *DataFileStore) GetByProject(ctx context.Context, projectID uint) (*models.DataFile, error) {
	var file models.DataFile
	err := s.db.Collection(DataFilesCollection).
		FindOne(ctx, bson.M{models.ProjectIDField: projectID}).
		Decode(&file)
	if err != nil {
		return nil, notFound(err, "data file for project %d", projectID)
	}
	return &file, nil
}
