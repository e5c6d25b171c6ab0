package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
)

// VideoJobStore keeps video jobs in the video_jobs collection
type VideoJobStore struct {
	db *mongo.Database
}

// NewVideoJobStore creates a new VideoJobStore
func NewVideoJobStore(db *mongo.Database) *VideoJobStore {
	return &VideoJobStore{db: db}
}

func (s *VideoJobStore) collection() *mongo.Collection {
	return s.db.Collection(VideoJobsCollection)
}

// Create assigns an id and inserts a job
func (s *VideoJobStore) Create(ctx context.Context, job *models.VideoJob) error {
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if err := job.Validate(); err != nil {
		return err
	}
	id, err := nextID(ctx, s.db, VideoJobsCollection)
	if err != nil {
		return err
	}
	job.ID = id
	job.CreatedAt = now()
	job.UpdatedAt = job.CreatedAt
	_, err = s.collection().InsertOne(ctx, job)
	return err
}

// Get retrieves a job by ID
func (s *VideoJobStore) Get(ctx context.Context, id uint) (*models.VideoJob, error) {
	return s.findOne(ctx, bson.M{idField: id}, "video job %d", id)
}

// GetByRow retrieves the job generated from a given row of a project
func (s *VideoJobStore) GetByRow(ctx context.Context, projectID uint, rowIndex int) (*models.VideoJob, error) {
	return s.findOne(ctx,
		bson.M{models.ProjectIDField: projectID, models.RowIndexField: rowIndex},
		"video job for project %d row %d", projectID, rowIndex)
}

func (s *VideoJobStore) findOne(ctx context.Context, filter bson.M, format string, args ...interface{}) (*models.VideoJob, error) {
	var job models.VideoJob
	if err := s.collection().FindOne(ctx, filter).Decode(&job); err != nil {
		return nil, notFound(err, format, args...)
	}
	return &job, nil
}

// ListByProject returns the jobs of a project ordered by row index
func (s *VideoJobStore) ListByProject(ctx context.Context, projectID uint) ([]models.VideoJob, error) {
	return s.find(ctx, bson.M{models.ProjectIDField: projectID},
		options.Find().SetSort(bson.D{{Key: models.RowIndexField, Value: 1}}))
}

// ListByStatus returns up to limit jobs in status, least recently updated first. A limit of 0 returns all.
func (s *VideoJobStore) ListByStatus(ctx context.Context, status models.JobStatus, limit int) ([]models.VideoJob, error) {
	find := options.Find().SetSort(bson.D{{Key: models.UpdatedAtField, Value: 1}, {Key: idField, Value: 1}})
	if limit > 0 {
		find.SetLimit(int64(limit))
	}
	return s.find(ctx, bson.M{models.StatusField: status}, find)
}

func (s *VideoJobStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.VideoJob, error) {
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	jobs := []models.VideoJob{}
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpdateStatus applies update with a single conditional write guarded by the allowed source statuses
func (s *VideoJobStore) UpdateStatus(ctx context.Context, id uint, update models.JobUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	set := bson.M{models.UpdatedAtField: now()}
	for k, v := range update.Columns() {
		set[k] = v
	}
	res, err := s.collection().UpdateOne(ctx,
		bson.M{idField: id, models.StatusField: bson.M{"$in": update.Status.AllowedFrom()}},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return errs.InvalidTransition(id, current.Status, update.Status)
}

// SetExternalJobID records the provider operation name of a job
func (s *VideoJobStore) SetExternalJobID(ctx context.Context, id uint, externalID string) error {
	res, err := s.collection().UpdateOne(ctx, bson.M{idField: id}, bson.M{"$set": bson.M{
		models.ExternalJobIDField: externalID,
		models.UpdatedAtField:     now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.NotFound("video job %d", id)
	}
	return nil
}

// CountByStatus returns the number of jobs of a project per status
func (s *VideoJobStore) CountByStatus(ctx context.Context, projectID uint) (map[models.JobStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: models.ProjectIDField, Value: projectID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: idField, Value: "$" + models.StatusField},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := s.collection().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status models.JobStatus `bson:"_id"`
		Count  int64            `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}

	counts := make(map[models.JobStatus]int64, len(models.JobStatuses))
	for _, status := range models.JobStatuses {
		counts[status] = 0
	}
	for _, g := range groups {
		counts[g.Status] = g.Count
	}
	return counts, nil
}
