package store

import (
	"context"

	"github.com/me/gosweep/pkg/model"
)

// Recorder writes run outcomes of one batch into a Store.
type Recorder struct {
	st      Store
	batchID string
}

// NewRecorder returns a Recorder that files outcomes under batchID.
func NewRecorder(st Store, batchID string) *Recorder {
	return &Recorder{st: st, batchID: batchID}
}

// RecordOutcome upserts the run record for spec.
func (r *Recorder) RecordOutcome(ctx context.Context, spec *model.RunSpec, out model.RunOutcome) error {
	return r.st.RecordRun(ctx, model.NewRunRecord(r.batchID, spec, out))
}
