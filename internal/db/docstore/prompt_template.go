package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
)

// PromptTemplateStore keeps templates in the prompt_templates collection
type PromptTemplateStore struct {
	db *mongo.Database
}

// NewPromptTemplateStore creates a new PromptTemplateStore
func NewPromptTemplateStore(db *mongo.Database) *PromptTemplateStore {
	return &PromptTemplateStore{db: db}
}

func (s *PromptTemplateStore) collection() *mongo.Collection {
	return s.db.Collection(PromptTemplatesCollection)
}

// Save creates or replaces the template of a project. Last write wins.
func (s *PromptTemplateStore) Save(ctx context.Context, tmpl *models.PromptTemplate) error {
	id, err := nextID(ctx, s.db, PromptTemplatesCollection)
	if err != nil {
		return err
	}
	ts := now()
	var saved models.PromptTemplate
	err = s.collection().FindOneAndUpdate(ctx,
		bson.M{models.ProjectIDField: tmpl.ProjectID},
		bson.M{
			"$set": bson.M{
				"template":            tmpl.Template,
				"enhanced_template":   tmpl.EnhancedTemplate,
				models.UpdatedAtField: ts,
			},
			"$setOnInsert": bson.M{idField: id, models.CreatedAtField: ts},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&saved)
	if err != nil {
		return err
	}
	*tmpl = saved
	return nil
}

// GetByProject retrieves the template of a project
func (s *PromptTemplateStore) GetByProject(ctx context.Context, projectID uint) (*models.PromptTemplate, error) {
	var tmpl models.PromptTemplate
	if err := s.collection().FindOne(ctx, bson.M{models.ProjectIDField: projectID}).Decode(&tmpl); err != nil {
		return nil, notFound(err, "prompt template for project %d", projectID)
	}
	return &tmpl, nil
}

// SetEnhanced stores an enhanced variant next to the project's template
func (s *PromptTemplateStore) SetEnhanced(ctx context.Context, projectID uint, enhanced string) error {
	res, err := s.collection().UpdateOne(ctx,
		bson.M{models.ProjectIDField: projectID},
		bson.M{"$set": bson.M{"enhanced_template": enhanced, models.UpdatedAtField: now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.NotFound("prompt template for project %d", projectID)
	}
	return nil
}
