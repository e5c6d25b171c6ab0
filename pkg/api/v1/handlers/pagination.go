package handlers

import "github.com/celestiaorg/vidbatch/internal/db/models"

const (
	// MinPageSize is the minimum allowed page size
	MinPageSize = 1
	// MaxPageSize is the maximum allowed page size
	MaxPageSize = 1000
)

// getPaginationOptions returns a ListOptions struct with validated pagination parameters
func getPaginationOptions(page, limit int) *models.ListOptions {
	if page < 1 {
		page = 1
	}
	if limit < MinPageSize {
		limit = models.DefaultLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return &models.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
