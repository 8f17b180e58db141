package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/me/gosweep/internal/scheduler"
	"github.com/me/gosweep/internal/store"
	"github.com/me/gosweep/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticProgress scheduler.Progress

func (p staticProgress) Progress() scheduler.Progress { return scheduler.Progress(p) }

func testLedger(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	for i, id := range []string{"batch_old", "batch_cur"} {
		b := &model.Batch{ID: id, Dir: "/ws/executor/" + id, Workspace: "/ws", ReportPath: "/ws/result.csv",
			Parallelism: 2, Total: 2, CreatedAt: now.Add(time.Duration(i) * time.Minute)}
		if err := st.CreateBatch(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	rec := store.NewRecorder(st, "batch_cur")
	for i := 0; i < 2; i++ {
		spec := &model.RunSpec{Index: i, ConfigPath: "p", LogPath: "l", Modified: map[string]string{"x": "1"}}
		out := model.RunOutcome{Index: i, Succeeded: i == 0}
		if i == 1 {
			out.Fail(model.ReasonExitStatus)
			out.ExitStatus = 1
		}
		if err := rec.RecordOutcome(ctx, spec, out); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Timestamp  string            `json:"timestamp"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func doRequest(t *testing.T, srv *Server, path string, wantStatus int) envelope {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != wantStatus {
		t.Fatalf("GET %s: status=%d, want %d, body=%s", path, w.Code, wantStatus, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("GET %s: invalid JSON: %v", path, err)
	}
	return env
}

func TestDiscovery(t *testing.T) {
	srv := New(testLogger())
	env := doRequest(t, srv, "/api/v1/", http.StatusOK)
	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}
	if !strings.HasPrefix(env.RequestID, "req_") {
		t.Errorf("request_id = %q, want req_ prefix", env.RequestID)
	}
}

func TestHealth(t *testing.T) {
	srv := New(testLogger(), WithLedger(testLedger(t), "batch_cur"))
	env := doRequest(t, srv, "/api/v1/health", http.StatusOK)

	var data healthResponse
	json.Unmarshal(env.Data, &data)
	if data.Status != "healthy" || data.Version != Version {
		t.Errorf("health = %+v", data)
	}
	if data.Batch != "batch_cur" || data.Ledger != "available" {
		t.Errorf("batch=%q ledger=%q", data.Batch, data.Ledger)
	}
}

func TestProgress(t *testing.T) {
	p := staticProgress{Total: 4, Finished: 3, Succeeded: 2, Failed: 1, Running: 1,
		States: map[model.RunState]int{model.RunStateSucceeded: 2, model.RunStateFailed: 1, model.RunStateLaunched: 1}}
	srv := New(testLogger(), WithProgress(p))
	env := doRequest(t, srv, "/api/v1/progress", http.StatusOK)

	var got scheduler.Progress
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Total != 4 || got.Finished != 3 || got.Failed != 1 || got.Running != 1 {
		t.Errorf("progress = %+v", got)
	}
	if got.States[model.RunStateSucceeded] != 2 {
		t.Errorf("states = %v", got.States)
	}
}

func TestProgress_NoSource(t *testing.T) {
	srv := New(testLogger())
	env := doRequest(t, srv, "/api/v1/progress", http.StatusOK)
	var got scheduler.Progress
	json.Unmarshal(env.Data, &got)
	if got.Total != 0 {
		t.Errorf("total = %d, want 0", got.Total)
	}
}

func TestRuns(t *testing.T) {
	srv := New(testLogger(), WithLedger(testLedger(t), "batch_cur"))
	env := doRequest(t, srv, "/api/v1/runs", http.StatusOK)

	var runs []model.RunRecord
	if err := json.Unmarshal(env.Data, &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if !runs[0].Succeeded || runs[1].Reason != model.ReasonExitStatus {
		t.Errorf("runs = %+v", runs)
	}
}

func TestLedgerDisabled(t *testing.T) {
	srv := New(testLogger())
	for _, path := range []string{"/api/v1/runs", "/api/v1/batches/", "/api/v1/batches/batch_cur"} {
		env := doRequest(t, srv, path, http.StatusNotFound)
		if env.Error == nil || env.Error.Code != model.ErrNoLedger {
			t.Errorf("%s: error = %v, want LEDGER_DISABLED", path, env.Error)
		}
	}
}

func TestListBatches(t *testing.T) {
	srv := New(testLogger(), WithLedger(testLedger(t), "batch_cur"))

	env := doRequest(t, srv, "/api/v1/batches/", http.StatusOK)
	if env.Pagination == nil || env.Pagination.Total != 2 || env.Pagination.HasMore {
		t.Fatalf("pagination = %+v", env.Pagination)
	}
	var batches []model.Batch
	json.Unmarshal(env.Data, &batches)
	if len(batches) != 2 || batches[0].ID != "batch_cur" {
		t.Errorf("batches = %+v", batches)
	}

	env = doRequest(t, srv, "/api/v1/batches/?limit=1", http.StatusOK)
	if env.Pagination.Limit != 1 || !env.Pagination.HasMore {
		t.Errorf("pagination = %+v", env.Pagination)
	}

	env = doRequest(t, srv, "/api/v1/batches/?limit=abc", http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != model.ErrValidation {
		t.Errorf("error = %v, want VALIDATION_ERROR", env.Error)
	}
}

func TestGetBatch(t *testing.T) {
	srv := New(testLogger(), WithLedger(testLedger(t), "batch_cur"))

	env := doRequest(t, srv, "/api/v1/batches/batch_old", http.StatusOK)
	var b model.Batch
	json.Unmarshal(env.Data, &b)
	if b.ID != "batch_old" || b.State != model.BatchStateRunning {
		t.Errorf("batch = %+v", b)
	}

	env = doRequest(t, srv, "/api/v1/batches/batch_old/runs", http.StatusOK)
	var runs []model.RunRecord
	json.Unmarshal(env.Data, &runs)
	if len(runs) != 0 {
		t.Errorf("runs of batch_old = %d, want 0", len(runs))
	}

	env = doRequest(t, srv, "/api/v1/batches/nope", http.StatusNotFound)
	if env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("error = %v, want NOT_FOUND", env.Error)
	}
	doRequest(t, srv, "/api/v1/batches/nope/runs", http.StatusNotFound)
}

func TestMetrics(t *testing.T) {
	srv := New(testLogger())
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("metrics output missing go_goroutines")
	}
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	srv := New(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
