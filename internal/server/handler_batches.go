package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/gosweep/internal/scheduler"
	"github.com/me/gosweep/pkg/model"
)

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.progress == nil {
		respondOK(w, reqID, scheduler.Progress{States: map[model.RunState]int{}})
		return
	}
	respondOK(w, reqID, s.progress.Progress())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireLedger(w, reqID) {
		return
	}
	s.respondRuns(w, r, reqID, s.batchID)
}

func (s *Server) handleListBatchRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireLedger(w, reqID) {
		return
	}
	id := chi.URLParam(r, "id")

	b, err := s.store.GetBatch(r.Context(), id)
	if err != nil {
		respondInternal(w, reqID, err)
		return
	}
	if b == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("batch", id))
		return
	}
	s.respondRuns(w, r, reqID, id)
}

func (s *Server) respondRuns(w http.ResponseWriter, r *http.Request, reqID, batchID string) {
	runs, err := s.store.ListRuns(r.Context(), batchID)
	if err != nil {
		respondInternal(w, reqID, err)
		return
	}
	if runs == nil {
		runs = []*model.RunRecord{}
	}
	respondOK(w, reqID, runs)
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireLedger(w, reqID) {
		return
	}

	opts, apiErr := listOptions(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	batches, total, err := s.store.ListBatches(r.Context(), opts)
	if err != nil {
		respondInternal(w, reqID, err)
		return
	}
	if batches == nil {
		batches = []*model.Batch{}
	}

	opts.Clamp()
	respondList(w, reqID, batches, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+opts.Limit < total,
	})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireLedger(w, reqID) {
		return
	}
	id := chi.URLParam(r, "id")

	b, err := s.store.GetBatch(r.Context(), id)
	if err != nil {
		respondInternal(w, reqID, err)
		return
	}
	if b == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("batch", id))
		return
	}
	respondOK(w, reqID, b)
}

func (s *Server) requireLedger(w http.ResponseWriter, reqID string) bool {
	if s.store != nil {
		return true
	}
	respondError(w, reqID, http.StatusNotFound, &model.APIError{
		Code:    model.ErrNoLedger,
		Message: "run ledger is not configured",
	})
	return false
}

func listOptions(r *http.Request) (model.ListOptions, *model.APIError) {
	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if state := q.Get("state"); state != "" {
		opts.State = state
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &opts.Limit}, {"offset", &opts.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, &model.APIError{Code: model.ErrValidation, Message: p.name + " must be an integer"}
		}
		*p.dst = n
	}
	return opts, nil
}
