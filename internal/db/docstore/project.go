package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
)

// ProjectStore keeps projects in the projects collection
type ProjectStore struct {
	db *mongo.Database
}

// NewProjectStore creates a new ProjectStore
func NewProjectStore(db *mongo.Database) *ProjectStore {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) collection() *mongo.Collection {
	return s.db.Collection(ProjectsCollection)
}

// Create assigns an id and inserts the project
func (s *ProjectStore) Create(ctx context.Context, project *models.Project) error {
	if project.Status == "" {
		project.Status = models.ProjectStatusUploading
	}
	if err := project.Validate(); err != nil {
		return err
	}
	id, err := nextID(ctx, s.db, ProjectsCollection)
	if err != nil {
		return err
	}
	project.ID = id
	project.CreatedAt = now()
	project.UpdatedAt = project.CreatedAt
	_, err = s.collection().InsertOne(ctx, project)
	return err
}

// Get retrieves a project by ID
func (s *ProjectStore) Get(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.collection().FindOne(ctx, bson.M{idField: id}).Decode(&project); err != nil {
		return nil, notFound(err, "project %d", id)
	}
	return &project, nil
}

// List retrieves projects, newest first
func (s *ProjectStore) List(ctx context.Context, opts *models.ListOptions) ([]models.Project, error) {
	find := options.Find().SetSort(bson.D{{Key: models.CreatedAtField, Value: -1}, {Key: idField, Value: -1}})
	if opts != nil {
		if opts.Limit > 0 {
			find.SetLimit(int64(opts.Limit))
		}
		if opts.Offset > 0 {
			find.SetSkip(int64(opts.Offset))
		}
	}

	cursor, err := s.collection().Find(ctx, bson.M{}, find)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateStatus sets the status of a project
func (s *ProjectStore) UpdateStatus(ctx context.Context, id uint, status models.ProjectStatus) error {
	res, err := s.collection().UpdateOne(ctx, bson.M{idField: id}, bson.M{"$set": bson.M{
		models.StatusField:    status,
		models.UpdatedAtField: now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.NotFound("project %d", id)
	}
	return nil
}

// Delete removes a project together with its data file, template and jobs.
// Not transactional; dependents are removed first.
func (s *ProjectStore) Delete(ctx context.Context, id uint) error {
	filter := bson.M{models.ProjectIDField: id}
	for _, name := range []string{VideoJobsCollection, PromptTemplatesCollection, DataFilesCollection} {
		if _, err := s.db.Collection(name).DeleteMany(ctx, filter); err != nil {
			return err
		}
	}
	_, err := s.collection().DeleteOne(ctx, bson.M{idField: id})
	return err
}
