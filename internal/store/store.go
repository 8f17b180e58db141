package store

import (
	"context"

	"github.com/me/gosweep/pkg/model"
)

// Store defines the run ledger: batch history and per-run outcomes.
type Store interface {
	// Batch operations
	CreateBatch(ctx context.Context, b *model.Batch) error
	GetBatch(ctx context.Context, id string) (*model.Batch, error)
	ListBatches(ctx context.Context, opts model.ListOptions) ([]*model.Batch, int, error)
	UpdateBatch(ctx context.Context, b *model.Batch) error

	// Run operations
	RecordRun(ctx context.Context, rec *model.RunRecord) error
	ListRuns(ctx context.Context, batchID string) ([]*model.RunRecord, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
