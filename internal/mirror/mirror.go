// Package mirror maintains a MongoDB copy of the latest top-emitters
// summary.
package mirror

import (
	"context"

	"github.com/ecolyze/ecolyze/internal/model"
)

// Mirror replaces the mirrored collection with the latest summary.
type Mirror interface {
	// Replace swaps the collection contents for the given rows. After
	// it returns, the collection holds exactly these rows; an empty
	// slice yields an empty collection. The swap is staged so readers
	// never observe a half-written collection.
	Replace(ctx context.Context, rows []model.SummaryRow) error

	// Close disconnects the underlying client.
	Close(ctx context.Context) error
}
